package analyzer

import (
	"context"

	"github.com/utafrali/storefront-reviews/internal/domain"
)

// Noop returns a fixed analysis. Used for local development.
type Noop struct{}

func (Noop) AnalyzeComment(context.Context, string) (domain.Analysis, error) {
	return domain.Analysis{"provider": "noop"}, nil
}
