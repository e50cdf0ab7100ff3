package httpclient

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront-reviews/pkg/errors"
)

func newResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestParseResponseError(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		sentinel   error
		wantMsg    string
	}{
		{
			name:       "structured bad request",
			status:     http.StatusBadRequest,
			body:       `{"error":{"code":"INVALID_INPUT","message":"comment too long"}}`,
			wantStatus: http.StatusBadRequest,
			sentinel:   apperrors.ErrInvalidInput,
			wantMsg:    "analyzer: comment too long",
		},
		{
			name:       "unprocessable maps to invalid input",
			status:     http.StatusUnprocessableEntity,
			body:       `plain text`,
			wantStatus: http.StatusBadRequest,
			sentinel:   apperrors.ErrInvalidInput,
			wantMsg:    "analyzer: plain text",
		},
		{
			name:       "unauthorized",
			status:     http.StatusUnauthorized,
			body:       `{"error":{"code":"UNAUTHORIZED","message":"bad key"}}`,
			wantStatus: http.StatusUnauthorized,
			sentinel:   apperrors.ErrUnauthorized,
		},
		{
			name:       "rate limited is unavailable",
			status:     http.StatusTooManyRequests,
			body:       ``,
			wantStatus: http.StatusServiceUnavailable,
			sentinel:   apperrors.ErrServiceUnavail,
		},
		{
			name:       "server error is analysis failure",
			status:     http.StatusInternalServerError,
			body:       `boom`,
			wantStatus: http.StatusBadGateway,
			sentinel:   apperrors.ErrAnalysisFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseResponseError(newResponse(tt.status, tt.body), "analyzer")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.wantStatus, apperrors.HTTPStatus(err))

			if tt.wantMsg != "" {
				var appErr *apperrors.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, tt.wantMsg, appErr.Message)
			}
		})
	}
}
