// Package event publishes review domain events to Kafka.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront-reviews/internal/domain"
	pkgkafka "github.com/utafrali/storefront-reviews/pkg/kafka"
	"github.com/utafrali/storefront-reviews/pkg/logger"
)

const TopicReviewSubmitted = "storefront.review.submitted"

const AggregateTypeProduct = "product"

const SourceReviewPage = "review-page"

// publisher is satisfied by *pkgkafka.Producer.
type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes review events.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishReviewSubmitted publishes a review.submitted event keyed by the
// product id, so a product's reviews stay ordered within a partition.
func (p *Producer) PublishReviewSubmitted(ctx context.Context, review *domain.Review) error {
	data := domain.ReviewSubmittedEvent{
		ReviewID:  review.ID,
		ProductID: review.ProductID,
		Rating:    review.Rating,
		Analysis:  review.Analysis,
		CreatedAt: review.CreatedAt,
	}

	event, err := pkgkafka.NewEvent(TopicReviewSubmitted, review.ProductID, AggregateTypeProduct, SourceReviewPage, data)
	if err != nil {
		return fmt.Errorf("create review.submitted event: %w", err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, TopicReviewSubmitted, event); err != nil {
		return fmt.Errorf("publish review.submitted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published review.submitted event",
		slog.String("review_id", review.ID),
		slog.String("product_id", review.ProductID),
	)
	return nil
}

// Discard drops events. It stands in for Producer when Kafka is disabled.
type Discard struct{}

func (Discard) PublishReviewSubmitted(context.Context, *domain.Review) error { return nil }
