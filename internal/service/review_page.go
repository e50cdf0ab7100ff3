// Package service holds the review page's business logic: resolving which
// view a shopper sees and running the submit sequence.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/storefront-reviews/internal/analyzer"
	"github.com/utafrali/storefront-reviews/internal/domain"
	"github.com/utafrali/storefront-reviews/internal/repository"
	apperrors "github.com/utafrali/storefront-reviews/pkg/errors"
	"github.com/utafrali/storefront-reviews/pkg/logger"
	"github.com/utafrali/storefront-reviews/pkg/pagination"
	"github.com/utafrali/storefront-reviews/pkg/validator"
)

var submissionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "review_submissions_total",
		Help: "Review submissions by outcome",
	},
	[]string{"outcome"},
)

// ProductLookup resolves a product id, reporting Loading while the fetch is
// in flight. Satisfied by *catalog.Loader.
type ProductLookup interface {
	Lookup(ctx context.Context, id string) domain.ProductLookup
}

// EventPublisher announces stored reviews.
type EventPublisher interface {
	PublishReviewSubmitted(ctx context.Context, review *domain.Review) error
}

const (
	defaultSubmitTimeout = 2 * time.Minute
	publishTimeout       = 5 * time.Second
)

// SubmitOutcome says what happened to a page submission.
type SubmitOutcome string

const (
	SubmitStored  SubmitOutcome = "stored"
	SubmitIgnored SubmitOutcome = "ignored"
	SubmitInvalid SubmitOutcome = "invalid"
	SubmitFailed  SubmitOutcome = "failed"
)

// SubmitResult is the outcome of Submit and the view to show afterwards.
type SubmitResult struct {
	Outcome SubmitOutcome
	View    domain.View
}

// ReviewPageService implements the review page: view resolution, draft
// edits and review submission.
type ReviewPageService struct {
	products ProductLookup
	reviews  repository.ReviewRepository
	drafts   repository.DraftRepository
	analyzer analyzer.Analyzer
	events   EventPublisher
	logger   *slog.Logger
	now      func() time.Time

	submitTimeout time.Duration
}

// Option configures a ReviewPageService.
type Option func(*ReviewPageService)

// WithSubmitTimeout sets how long a submission may stay in flight. A draft
// still marked submitting after that is treated as idle, so a reset that
// failed to save does not block the shopper until the draft expires.
func WithSubmitTimeout(d time.Duration) Option {
	return func(s *ReviewPageService) {
		if d > 0 {
			s.submitTimeout = d
		}
	}
}

func NewReviewPageService(
	products ProductLookup,
	reviews repository.ReviewRepository,
	drafts repository.DraftRepository,
	commentAnalyzer analyzer.Analyzer,
	events EventPublisher,
	logger *slog.Logger,
	opts ...Option,
) *ReviewPageService {
	s := &ReviewPageService{
		products:      products,
		reviews:       reviews,
		drafts:        drafts,
		analyzer:      commentAnalyzer,
		events:        events,
		logger:        logger,
		now:           time.Now,
		submitTimeout: defaultSubmitTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// View returns what the shopper with sessionID currently sees for productID.
func (s *ReviewPageService) View(ctx context.Context, sessionID, productID string) (domain.View, error) {
	view, _, err := s.resolve(ctx, domain.DraftKey{SessionID: sessionID, ProductID: productID})
	return view, err
}

// SelectRating sets the draft rating to star and keeps comment as the
// current comment text. Outside the editing view nothing changes.
func (s *ReviewPageService) SelectRating(ctx context.Context, sessionID, productID string, star int, comment string) (domain.View, error) {
	return s.edit(ctx, domain.DraftKey{SessionID: sessionID, ProductID: productID}, func(f *domain.ReviewForm) error {
		f.EditComment(comment)
		return f.SelectStar(star)
	})
}

// EditComment replaces the draft comment.
func (s *ReviewPageService) EditComment(ctx context.Context, sessionID, productID, comment string) (domain.View, error) {
	return s.edit(ctx, domain.DraftKey{SessionID: sessionID, ProductID: productID}, func(f *domain.ReviewForm) error {
		f.EditComment(comment)
		return nil
	})
}

func (s *ReviewPageService) edit(ctx context.Context, key domain.DraftKey, apply func(*domain.ReviewForm) error) (domain.View, error) {
	view, draft, err := s.resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	editing, ok := view.(domain.EditingView)
	if !ok {
		return view, nil
	}

	form := draft.Form()
	if err := apply(&form); err != nil {
		return nil, err
	}
	draft = draft.WithForm(form)
	if err := s.saveDraft(ctx, key, &draft); err != nil {
		return nil, err
	}

	editing.Form = form
	return editing, nil
}

// Submit runs the page submission: validate, mark the draft submitting,
// analyze the comment, append the review and mark the draft submitted.
//
// Analyzer and store failures are logged and swallowed: the result carries
// SubmitFailed and the editing view with submitting reset, so the shopper
// can try again. A submission arriving while another is in flight, or
// outside the editing view, is ignored. The returned error is reserved for
// draft store failures before anything was sent.
func (s *ReviewPageService) Submit(ctx context.Context, sessionID, productID string, form domain.ReviewForm) (*SubmitResult, error) {
	key := domain.DraftKey{SessionID: sessionID, ProductID: productID}
	view, draft, err := s.resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	editing, ok := view.(domain.EditingView)
	if !ok || draft.Submitting {
		submissionsTotal.WithLabelValues(string(SubmitIgnored)).Inc()
		return &SubmitResult{Outcome: SubmitIgnored, View: view}, nil
	}

	draft = draft.WithForm(form)
	editing.Form = form

	if err := form.Validate(); err != nil {
		var ve *validator.ValidationError
		if !errors.As(err, &ve) {
			return nil, fmt.Errorf("validate review form: %w", err)
		}
		if err := s.saveDraft(ctx, key, &draft); err != nil {
			return nil, err
		}
		submissionsTotal.WithLabelValues(string(SubmitInvalid)).Inc()
		editing.Errors = ve.Fields()
		return &SubmitResult{Outcome: SubmitInvalid, View: editing}, nil
	}

	draft.Submitting = true
	if err := s.saveDraft(ctx, key, &draft); err != nil {
		return nil, err
	}

	review, err := s.store(ctx, productID, form)

	// The draft must leave the submitting state even if the request is gone.
	saveCtx := context.WithoutCancel(ctx)
	draft.Submitting = false

	if err != nil {
		logger.FromContextOr(ctx, s.logger).ErrorContext(ctx, "review submission failed",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		if err := s.saveDraft(saveCtx, key, &draft); err != nil {
			s.logDraftError(ctx, key, err)
		}
		submissionsTotal.WithLabelValues(string(SubmitFailed)).Inc()
		editing.Submitting = false
		return &SubmitResult{Outcome: SubmitFailed, View: editing}, nil
	}

	draft.Submitted = true
	if err := s.saveDraft(saveCtx, key, &draft); err != nil {
		s.logDraftError(ctx, key, err)
	}
	submissionsTotal.WithLabelValues(string(SubmitStored)).Inc()

	s.publish(ctx, review)
	return &SubmitResult{Outcome: SubmitStored, View: domain.SubmittedView{Product: editing.Product}}, nil
}

// SubmitReview is the stateless variant used by the JSON API: no drafts,
// and every failure is returned to the caller.
func (s *ReviewPageService) SubmitReview(ctx context.Context, productID string, form domain.ReviewForm) (*domain.Review, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	lookup := s.products.Lookup(ctx, productID)
	switch {
	case lookup.Loading:
		return nil, apperrors.Unavailable("product is still loading, retry shortly", nil)
	case lookup.Product == nil:
		return nil, apperrors.NotFound("product", productID)
	}

	review, err := s.store(ctx, productID, form)
	if err != nil {
		submissionsTotal.WithLabelValues(string(SubmitFailed)).Inc()
		return nil, err
	}
	submissionsTotal.WithLabelValues(string(SubmitStored)).Inc()

	s.publish(ctx, review)
	return review, nil
}

// ListReviews returns a page of the product's reviews, newest first.
func (s *ReviewPageService) ListReviews(ctx context.Context, productID string, params pagination.Params) (pagination.Result[domain.Review], error) {
	reviews, total, err := s.reviews.ListByProductID(ctx, productID, params.Page, params.PerPage)
	if err != nil {
		return pagination.Result[domain.Review]{}, fmt.Errorf("list reviews: %w", err)
	}
	return pagination.NewResult(reviews, total, params), nil
}

// store analyzes the comment and appends the review. Nothing is written when
// the analyzer fails.
func (s *ReviewPageService) store(ctx context.Context, productID string, form domain.ReviewForm) (*domain.Review, error) {
	analysis, err := s.analyzer.AnalyzeComment(ctx, form.Comment)
	if err != nil {
		return nil, fmt.Errorf("analyze comment: %w", err)
	}

	review, err := s.reviews.Append(ctx, productID, &domain.NewReview{
		Rating:   form.Rating,
		Comment:  form.Comment,
		Analysis: analysis,
	})
	if err != nil {
		return nil, fmt.Errorf("append review: %w", err)
	}

	logger.FromContextOr(ctx, s.logger).InfoContext(ctx, "review stored",
		slog.String("review_id", review.ID),
		slog.String("product_id", productID),
		slog.Int("rating", review.Rating),
	)
	return review, nil
}

// publish announces a stored review. The review is already written, so the
// publish gets its own short deadline and ignores request cancellation.
func (s *ReviewPageService) publish(ctx context.Context, review *domain.Review) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.events.PublishReviewSubmitted(pubCtx, review); err != nil {
		logger.FromContextOr(ctx, s.logger).WarnContext(ctx, "failed to publish review.submitted event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}
}

// resolve looks the product up and loads the draft. The draft is only read
// when the product exists. A submitting flag older than submitTimeout is
// cleared on the returned copy.
func (s *ReviewPageService) resolve(ctx context.Context, key domain.DraftKey) (domain.View, domain.Draft, error) {
	lookup := s.products.Lookup(ctx, key.ProductID)
	if lookup.Loading || lookup.Product == nil {
		return domain.ResolveView(key.ProductID, lookup, domain.Draft{}), domain.Draft{}, nil
	}

	draft, err := s.drafts.Get(ctx, key)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		draft = &domain.Draft{}
	case err != nil:
		return nil, domain.Draft{}, fmt.Errorf("load draft: %w", err)
	}
	if draft.Submitting && s.now().Sub(draft.UpdatedAt) > s.submitTimeout {
		logger.FromContextOr(ctx, s.logger).WarnContext(ctx, "treating stale submission as idle",
			slog.String("product_id", key.ProductID),
			slog.Time("updated_at", draft.UpdatedAt),
		)
		draft.Submitting = false
	}
	return domain.ResolveView(key.ProductID, lookup, *draft), *draft, nil
}

func (s *ReviewPageService) saveDraft(ctx context.Context, key domain.DraftKey, draft *domain.Draft) error {
	draft.UpdatedAt = s.now().UTC()
	if err := s.drafts.Save(ctx, key, draft); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (s *ReviewPageService) logDraftError(ctx context.Context, key domain.DraftKey, err error) {
	logger.FromContextOr(ctx, s.logger).ErrorContext(ctx, "failed to save draft",
		slog.String("product_id", key.ProductID),
		slog.String("error", err.Error()),
	)
}
