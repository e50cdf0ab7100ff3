package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/utafrali/storefront-reviews/internal/domain"
	apperrors "github.com/utafrali/storefront-reviews/pkg/errors"
	"github.com/utafrali/storefront-reviews/pkg/httpclient"
)

const remoteName = "analyzer"

type remoteRequest struct {
	Comment string `json:"comment"`
}

// Remote posts comments to an analysis service over HTTP behind a circuit
// breaker. The response body must be a JSON object.
type Remote struct {
	client *httpclient.CircuitBreakerClient
	url    string
}

func NewRemote(url string, cfg httpclient.Config, logger *slog.Logger) *Remote {
	cb := httpclient.NewCircuitBreakerClient(
		httpclient.New(cfg),
		httpclient.DefaultCircuitBreakerConfig("comment-analyzer"),
		logger,
	)
	return &Remote{client: cb, url: url}
}

func (a *Remote) AnalyzeComment(ctx context.Context, comment string) (domain.Analysis, error) {
	body, err := json.Marshal(remoteRequest{Comment: comment})
	if err != nil {
		return nil, fmt.Errorf("marshal analyzer request: %w", err)
	}

	resp, err := a.client.Post(ctx, a.url, "application/json", bytes.NewReader(body))
	if err != nil {
		if errors.Is(err, httpclient.ErrCircuitOpen) {
			return nil, apperrors.Unavailable("comment analyzer is unavailable", err)
		}
		return nil, apperrors.AnalysisFailed("comment analysis failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, httpclient.ParseResponseError(resp, remoteName)
	}
	defer func() { _ = resp.Body.Close() }()

	var analysis domain.Analysis
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&analysis); err != nil {
		return nil, apperrors.AnalysisFailed("comment analysis returned an invalid body", err)
	}
	if analysis == nil {
		analysis = domain.Analysis{}
	}
	return analysis, nil
}
