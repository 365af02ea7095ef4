package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/einarr2o12/review-service/internal/domain"
	pkgkafka "github.com/einarr2o12/review-service/pkg/kafka"
	"github.com/einarr2o12/review-service/pkg/logger"
)

// Kafka topic constants for review lifecycle events.
const (
	TopicReviewCreated = "reviews.review.created"
	TopicReviewUpdated = "reviews.review.updated"
	TopicReviewDeleted = "reviews.review.deleted"
)

// AggregateTypeReview is the aggregate type stamped on every review event.
const AggregateTypeReview = "review"

// SourceReviewService identifies events emitted by this service.
const SourceReviewService = "review-service"

// ReviewData is the payload of review.created and review.updated events.
type ReviewData struct {
	ID             int64           `json:"id"`
	ProductID      int64           `json:"product_id"`
	Rating         int             `json:"rating"`
	Comment        *string         `json:"comment"`
	CreatedAt      *time.Time      `json:"created_at"`
	ReviewMetadata json.RawMessage `json:"review_metadata"`
}

// ReviewDeletedData is the payload of a review.deleted event.
type ReviewDeletedData struct {
	ID        int64 `json:"id"`
	ProductID int64 `json:"product_id"`
}

// Publisher writes an event envelope to a topic. *pkgkafka.Producer
// satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes review domain events.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a review event producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishReviewCreated publishes a review.created event with the full review.
func (p *Producer) PublishReviewCreated(ctx context.Context, r *domain.Review) error {
	return p.publish(ctx, TopicReviewCreated, r.ID, reviewData(r))
}

// PublishReviewUpdated publishes a review.updated event with the review as
// stored after the update.
func (p *Producer) PublishReviewUpdated(ctx context.Context, r *domain.Review) error {
	return p.publish(ctx, TopicReviewUpdated, r.ID, reviewData(r))
}

// PublishReviewDeleted publishes a review.deleted event.
func (p *Producer) PublishReviewDeleted(ctx context.Context, r *domain.Review) error {
	return p.publish(ctx, TopicReviewDeleted, r.ID, ReviewDeletedData{ID: r.ID, ProductID: r.ProductID})
}

func (p *Producer) publish(ctx context.Context, topic string, id int64, data any) error {
	aggregateID := strconv.FormatInt(id, 10)

	event, err := pkgkafka.NewEvent(topic, aggregateID, AggregateTypeReview, SourceReviewService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		event.WithCorrelationID(cid)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published review event",
		slog.String("topic", topic),
		slog.Int64("review_id", id),
	)
	return nil
}

func reviewData(r *domain.Review) ReviewData {
	return ReviewData{
		ID:             r.ID,
		ProductID:      r.ProductID,
		Rating:         r.Rating,
		Comment:        r.Comment,
		CreatedAt:      r.CreatedAt,
		ReviewMetadata: r.ReviewMetadata,
	}
}

// NoopProducer discards events. It is used when Kafka is disabled.
type NoopProducer struct{}

func (NoopProducer) PublishReviewCreated(context.Context, *domain.Review) error { return nil }
func (NoopProducer) PublishReviewUpdated(context.Context, *domain.Review) error { return nil }
func (NoopProducer) PublishReviewDeleted(context.Context, *domain.Review) error { return nil }
