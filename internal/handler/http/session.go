package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/storefront-reviews/pkg/logger"
	"github.com/utafrali/storefront-reviews/pkg/middleware"
)

const (
	SessionCookieName = "review_session"
	sessionIssuer     = "review-page"
)

type contextKey string

const sessionIDKey contextKey = "session_id"

// Sessions issues and verifies the anonymous shopper session cookie. The
// cookie holds an HS256 JWT whose subject is the session id.
type Sessions struct {
	secret []byte
	secure bool
	maxAge time.Duration
	now    func() time.Time
}

func NewSessions(secret string, secure bool, maxAge time.Duration) *Sessions {
	return &Sessions{secret: []byte(secret), secure: secure, maxAge: maxAge, now: time.Now}
}

func (s *Sessions) issue(sessionID string) (string, error) {
	now := s.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		Issuer:    sessionIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.maxAge)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

func (s *Sessions) parse(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(sessionIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("parse session token: %w", err)
	}
	if !parsed.Valid {
		return "", fmt.Errorf("invalid session token")
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", fmt.Errorf("invalid session subject: %w", err)
	}
	return claims.Subject, nil
}

// Middleware resolves the session from the cookie, starting a new one when
// the cookie is missing, expired or forged. The session id is stored in the
// context for handlers and for the request logger, and tagged on the
// request span.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sessionID string
		if c, err := r.Cookie(SessionCookieName); err == nil {
			sessionID, _ = s.parse(c.Value)
		}

		if sessionID == "" {
			sessionID = uuid.New().String()
			token, err := s.issue(sessionID)
			if err != nil {
				http.Error(w, "could not start a session", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   int(s.maxAge.Seconds()),
				HttpOnly: true,
				Secure:   s.secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("review.session_id", sessionID))

		ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
		ctx = logger.WithSessionID(ctx, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionKey is a middleware.KeyFunc bucketing requests by session, or by
// client IP outside the session middleware.
func SessionKey(r *http.Request) string {
	if id := sessionIDFromContext(r.Context()); id != "" {
		return "session:" + id
	}
	return "ip:" + middleware.ClientIP(r)
}

func sessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}
