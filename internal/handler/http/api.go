package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront-reviews/internal/domain"
	"github.com/utafrali/storefront-reviews/internal/service"
	"github.com/utafrali/storefront-reviews/pkg/httputil"
	"github.com/utafrali/storefront-reviews/pkg/pagination"
	"github.com/utafrali/storefront-reviews/pkg/validator"
)

// ReviewAPIHandler serves the JSON review endpoints.
type ReviewAPIHandler struct {
	service *service.ReviewPageService
	logger  *slog.Logger
}

func NewReviewAPIHandler(svc *service.ReviewPageService, logger *slog.Logger) *ReviewAPIHandler {
	return &ReviewAPIHandler{service: svc, logger: logger}
}

// CreateReviewRequest is the JSON body for a stateless submission.
type CreateReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// ListReviews handles GET /api/v1/products/{productId}/reviews
func (h *ReviewAPIHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.RequiredURLParam(w, r, "productId")
	if !ok {
		return
	}

	result, err := h.service.ListReviews(r.Context(), productID, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// CreateReview handles POST /api/v1/products/{productId}/reviews
func (h *ReviewAPIHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.RequiredURLParam(w, r, "productId")
	if !ok {
		return
	}

	var req CreateReviewRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	review, err := h.service.SubmitReview(r.Context(), productID, domain.ReviewForm{Rating: req.Rating, Comment: req.Comment})
	if err != nil {
		var ve *validator.ValidationError
		if errors.As(err, &ve) {
			httputil.WriteValidationError(w, err)
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: review})
}
