package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/einarr2o12/review-service/internal/domain"
	"github.com/einarr2o12/review-service/internal/repository"
	"github.com/einarr2o12/review-service/pkg/database"
	apperrors "github.com/einarr2o12/review-service/pkg/errors"
)

// Compile-time interface check.
var _ repository.ReviewRepository = (*ReviewRepository)(nil)

const reviewColumns = `id, product_id, rating, comment, created_at, review_metadata`

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// List returns all reviews.
func (r *ReviewRepository) List(ctx context.Context) (_ []domain.Review, err error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews ORDER BY id`

	ctx, end := database.TraceQuery(ctx, "ListReviews", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return collectReviews(rows)
}

// ListByProductID returns the reviews for a single product.
func (r *ReviewRepository) ListByProductID(ctx context.Context, productID int64) (_ []domain.Review, err error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE product_id = $1 ORDER BY id`

	ctx, end := database.TraceQuery(ctx, "ListReviewsByProduct", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews for product %d: %w", productID, err)
	}
	return collectReviews(rows)
}

// GetByID retrieves a review by id.
func (r *ReviewRepository) GetByID(ctx context.Context, id int64) (_ *domain.Review, err error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetReview", query)
	defer func() { end(err) }()

	review, err := scanReview(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("get review %d: %w", id, err)
	}
	return review, nil
}

// Create inserts a review inside a transaction.
func (r *ReviewRepository) Create(ctx context.Context, in *domain.CreateReviewInput) (_ *domain.Review, err error) {
	query := `
		INSERT INTO reviews (product_id, rating, comment, review_metadata, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	ctx, end := database.TraceQuery(ctx, "CreateReview", query)
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	review := &domain.Review{
		ProductID:      in.ProductID,
		Rating:         in.Rating,
		Comment:        in.Comment,
		ReviewMetadata: in.ReviewMetadata,
	}

	var createdAt time.Time
	err = tx.QueryRow(ctx, query,
		in.ProductID,
		in.Rating,
		in.Comment,
		[]byte(in.ReviewMetadata),
		time.Now().UTC(),
	).Scan(&review.ID, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}
	createdAt = createdAt.UTC()
	review.CreatedAt = &createdAt

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return review, nil
}

// Update writes product_id, rating, comment and review_metadata for the
// review with r.ID inside a transaction.
func (r *ReviewRepository) Update(ctx context.Context, review *domain.Review) (err error) {
	query := `
		UPDATE reviews
		SET product_id = $1, rating = $2, comment = $3, review_metadata = $4
		WHERE id = $5`

	ctx, end := database.TraceQuery(ctx, "UpdateReview", query)
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, query,
		review.ProductID,
		review.Rating,
		review.Comment,
		[]byte(review.ReviewMetadata),
		review.ID,
	)
	if err != nil {
		return fmt.Errorf("update review %d: %w", review.ID, err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", strconv.FormatInt(review.ID, 10))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Delete removes a review inside a transaction.
func (r *ReviewRepository) Delete(ctx context.Context, id int64) (err error) {
	query := `DELETE FROM reviews WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "DeleteReview", query)
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete review %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", strconv.FormatInt(id, 10))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Ping reads at most one row from the reviews table. An empty table is healthy.
func (r *ReviewRepository) Ping(ctx context.Context) (err error) {
	query := `SELECT id FROM reviews LIMIT 1`

	ctx, end := database.TraceQuery(ctx, "PingReviews", query)
	defer func() { end(err) }()

	var id int64
	if err = r.pool.QueryRow(ctx, query).Scan(&id); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("query reviews: %w", err)
	}
	return nil
}

func scanReview(row pgx.Row) (*domain.Review, error) {
	var (
		review    domain.Review
		createdAt *time.Time
		metadata  []byte
	)
	if err := row.Scan(
		&review.ID,
		&review.ProductID,
		&review.Rating,
		&review.Comment,
		&createdAt,
		&metadata,
	); err != nil {
		return nil, err
	}
	if createdAt != nil {
		utc := createdAt.UTC()
		review.CreatedAt = &utc
	}
	if metadata != nil {
		review.ReviewMetadata = metadata
	}
	return &review, nil
}

func collectReviews(rows pgx.Rows) ([]domain.Review, error) {
	defer rows.Close()

	reviews := make([]domain.Review, 0)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, *review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return reviews, nil
}
