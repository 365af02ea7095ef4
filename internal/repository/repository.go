package repository

import (
	"context"

	"github.com/einarr2o12/review-service/internal/domain"
)

// ReviewRepository defines the persistence operations for reviews.
type ReviewRepository interface {
	// List returns every review ordered by id.
	List(ctx context.Context) ([]domain.Review, error)

	// ListByProductID returns the reviews of one product ordered by id.
	ListByProductID(ctx context.Context, productID int64) ([]domain.Review, error)

	// GetByID retrieves a review by id.
	GetByID(ctx context.Context, id int64) (*domain.Review, error)

	// Create inserts a review and returns it with its generated id and
	// creation time.
	Create(ctx context.Context, in *domain.CreateReviewInput) (*domain.Review, error)

	// Update writes the mutable columns of r. created_at is left alone.
	Update(ctx context.Context, r *domain.Review) error

	// Delete removes a review by id.
	Delete(ctx context.Context, id int64) error

	// Ping performs a trivial read against the reviews table.
	Ping(ctx context.Context) error
}
