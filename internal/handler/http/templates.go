package http

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront-reviews/internal/domain"
	"github.com/utafrali/storefront-reviews/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	reviewTemplate = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/review.html"))
	errorTemplate  = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/error.html"))
)

// loadingRefreshSeconds is how often the loading view reloads itself.
const loadingRefreshSeconds = 1

type reviewPage struct {
	Title   string
	Refresh int

	Loading   *domain.LoadingView
	NotFound  *domain.NotFoundView
	Editing   *domain.EditingView
	Submitted *domain.SubmittedView
}

type errorPage struct {
	Title   string
	Refresh int
	Message string
}

// newReviewPage maps each View variant onto the template's sections.
func newReviewPage(view domain.View) (reviewPage, int) {
	switch v := view.(type) {
	case domain.LoadingView:
		return reviewPage{Title: "Loading...", Refresh: loadingRefreshSeconds, Loading: &v}, http.StatusOK
	case domain.NotFoundView:
		return reviewPage{Title: "Product not found", NotFound: &v}, http.StatusNotFound
	case domain.EditingView:
		return reviewPage{Title: "Review " + v.Product.ProductName, Editing: &v}, http.StatusOK
	case domain.SubmittedView:
		return reviewPage{Title: "Thank you", Submitted: &v}, http.StatusOK
	default:
		panic("unhandled view kind " + string(view.Kind()))
	}
}

// render executes tmpl into a buffer first so a template error still yields
// a clean 500 instead of a half-written page.
func render(w http.ResponseWriter, r *http.Request, fallback *slog.Logger, tmpl *template.Template, status int, data any) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		logger.FromContextOr(r.Context(), fallback).ErrorContext(r.Context(), "failed to render page",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
