package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/storefront-reviews/internal/domain"
	"github.com/utafrali/storefront-reviews/internal/service"
	apperrors "github.com/utafrali/storefront-reviews/pkg/errors"
	"github.com/utafrali/storefront-reviews/pkg/logger"
)

// PageHandler serves the server-rendered review page.
type PageHandler struct {
	service *service.ReviewPageService
	logger  *slog.Logger
}

func NewPageHandler(svc *service.ReviewPageService, logger *slog.Logger) *PageHandler {
	return &PageHandler{service: svc, logger: logger}
}

func reviewPath(productID string) string {
	return "/products/" + productID + "/review"
}

// Show handles GET /products/{productId}/review
func (h *PageHandler) Show(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	view, err := h.service.View(r.Context(), sessionIDFromContext(r.Context()), productID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("review.view", string(view.Kind())))
	page, status := newReviewPage(view)
	render(w, r, h.logger, reviewTemplate, status, page)
}

// SelectRating handles POST /products/{productId}/review/rating
func (h *PageHandler) SelectRating(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, apperrors.InvalidInput("invalid form body"))
		return
	}

	star, err := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("star")))
	if err != nil {
		h.renderError(w, r, apperrors.InvalidInput("star must be a number"))
		return
	}

	_, err = h.service.SelectRating(r.Context(), sessionIDFromContext(r.Context()), productID, star, r.PostForm.Get("comment"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, reviewPath(productID), http.StatusSeeOther)
}

// EditComment handles POST /products/{productId}/review/comment
func (h *PageHandler) EditComment(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, apperrors.InvalidInput("invalid form body"))
		return
	}

	_, err := h.service.EditComment(r.Context(), sessionIDFromContext(r.Context()), productID, r.PostForm.Get("comment"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, reviewPath(productID), http.StatusSeeOther)
}

// Submit handles POST /products/{productId}/review
func (h *PageHandler) Submit(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, apperrors.InvalidInput("invalid form body"))
		return
	}

	form, err := parseReviewForm(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	res, err := h.service.Submit(r.Context(), sessionIDFromContext(r.Context()), productID, form)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("review.submit_outcome", string(res.Outcome)),
		attribute.String("review.view", string(res.View.Kind())),
	)

	switch res.Outcome {
	case service.SubmitStored, service.SubmitIgnored:
		http.Redirect(w, r, reviewPath(productID), http.StatusSeeOther)
	case service.SubmitInvalid:
		page, _ := newReviewPage(res.View)
		render(w, r, h.logger, reviewTemplate, http.StatusUnprocessableEntity, page)
	default:
		page, status := newReviewPage(res.View)
		render(w, r, h.logger, reviewTemplate, status, page)
	}
}

// parseReviewForm reads rating and comment. A missing rating is zero.
func parseReviewForm(r *http.Request) (domain.ReviewForm, error) {
	form := domain.ReviewForm{Comment: r.PostForm.Get("comment")}
	if raw := strings.TrimSpace(r.PostForm.Get("rating")); raw != "" {
		rating, err := strconv.Atoi(raw)
		if err != nil {
			return form, apperrors.InvalidInput("rating must be a number")
		}
		form.Rating = rating
	}
	return form, nil
}

func (h *PageHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	message := "Please try again in a moment."

	var appErr *apperrors.AppError
	switch {
	case status >= http.StatusInternalServerError:
		logger.FromContextOr(r.Context(), h.logger).ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	case errors.As(err, &appErr):
		message = appErr.Message
	}

	render(w, r, h.logger, errorTemplate, status, errorPage{Title: http.StatusText(status), Message: message})
}
