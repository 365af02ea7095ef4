package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/einarr2o12/review-service/internal/domain"
	"github.com/einarr2o12/review-service/internal/product"
	"github.com/einarr2o12/review-service/internal/repository"
	apperrors "github.com/einarr2o12/review-service/pkg/errors"
)

// Messages returned to clients for product and input failures.
const (
	msgNoData             = "No data provided"
	msgProductNotFound    = "Product not found"
	msgProductCheckFailed = "Error validating product"
	msgProductIDNotNull   = "product_id cannot be null"
	msgRatingNotNull      = "rating cannot be null"
)

// EventPublisher emits review lifecycle events after a write commits.
type EventPublisher interface {
	PublishReviewCreated(ctx context.Context, r *domain.Review) error
	PublishReviewUpdated(ctx context.Context, r *domain.Review) error
	PublishReviewDeleted(ctx context.Context, r *domain.Review) error
}

// ReviewService implements the business logic for reviews.
type ReviewService struct {
	repo     repository.ReviewRepository
	products product.Validator
	events   EventPublisher
	logger   *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(
	repo repository.ReviewRepository,
	products product.Validator,
	events EventPublisher,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		repo:     repo,
		products: products,
		events:   events,
		logger:   logger,
	}
}

// ListReviews returns every review.
func (s *ReviewService) ListReviews(ctx context.Context) ([]domain.Review, error) {
	reviews, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

// GetReview retrieves a review by id.
func (s *ReviewService) GetReview(ctx context.Context, id int64) (*domain.Review, error) {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review by id: %w", err)
	}
	return review, nil
}

// CreateReview validates the product and stores a new review. A product the
// product service does not know is an input error.
func (s *ReviewService) CreateReview(ctx context.Context, in *domain.CreateReviewInput) (*domain.Review, error) {
	if in == nil {
		return nil, apperrors.InvalidInput(msgNoData)
	}

	if err := s.ensureProduct(ctx, in.ProductID, apperrors.InvalidInput); err != nil {
		return nil, err
	}

	review, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	if err := s.events.PublishReviewCreated(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.created event",
			slog.Int64("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review created",
		slog.Int64("review_id", review.ID),
		slog.Int64("product_id", review.ProductID),
		slog.Int("rating", review.Rating),
	)
	return review, nil
}

// UpdateReview applies the set fields of in to an existing review. The
// review must exist before the input is examined. The product is validated
// only when product_id changes.
func (s *ReviewService) UpdateReview(ctx context.Context, id int64, in *domain.UpdateReviewInput) (*domain.Review, error) {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review for update: %w", err)
	}

	if in == nil {
		return nil, apperrors.InvalidInput(msgNoData)
	}
	if in.ProductID.Set && in.ProductID.Null {
		return nil, apperrors.InvalidInput(msgProductIDNotNull)
	}
	if in.Rating.Set && in.Rating.Null {
		return nil, apperrors.InvalidInput(msgRatingNotNull)
	}

	if in.ChangesProduct(review.ProductID) {
		if err := s.ensureProduct(ctx, in.ProductID.Value, apperrors.InvalidInput); err != nil {
			return nil, err
		}
	}

	updated := *review
	in.Apply(&updated)

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	if err := s.events.PublishReviewUpdated(ctx, &updated); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.updated event",
			slog.Int64("review_id", updated.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review updated",
		slog.Int64("review_id", updated.ID),
		slog.Int64("product_id", updated.ProductID),
	)
	return &updated, nil
}

// DeleteReview removes a review by id.
func (s *ReviewService) DeleteReview(ctx context.Context, id int64) error {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get review for delete: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	if err := s.events.PublishReviewDeleted(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.deleted event",
			slog.Int64("review_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review deleted", slog.Int64("review_id", id))
	return nil
}

// ListProductReviews returns the reviews of a product. Here an unknown
// product is reported as not found rather than as bad input.
func (s *ReviewService) ListProductReviews(ctx context.Context, productID int64) ([]domain.Review, error) {
	if err := s.ensureProduct(ctx, productID, apperrors.NotFoundMessage); err != nil {
		return nil, err
	}

	reviews, err := s.repo.ListByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list product reviews: %w", err)
	}
	return reviews, nil
}

// CheckHealth performs a trivial store read.
func (s *ReviewService) CheckHealth(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// ensureProduct asks the product service whether id exists. A missing product
// is reported through missing; a failed check is an upstream error.
func (s *ReviewService) ensureProduct(ctx context.Context, id int64, missing func(string) *apperrors.AppError) error {
	ok, err := s.products.Exists(ctx, id)
	if err != nil {
		return apperrors.Upstream(msgProductCheckFailed, err)
	}
	if !ok {
		return missing(msgProductNotFound)
	}
	return nil
}
