package domain

import (
	"time"
)

// Analysis is the opaque result of analyzing a comment. It is stored
// verbatim alongside the review.
type Analysis map[string]any

// Review is a persisted shopper review. It is written once and never mutated.
type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	Analysis  Analysis  `json:"analysis"`
	CreatedAt time.Time `json:"created_at"`
}

// NewReview is what a repository appends. CreatedAt is left to the backend.
type NewReview struct {
	Rating   int
	Comment  string
	Analysis Analysis
}

// ReviewSubmittedEvent is published after a review has been stored.
type ReviewSubmittedEvent struct {
	ReviewID  string    `json:"review_id"`
	ProductID string    `json:"product_id"`
	Rating    int       `json:"rating"`
	Analysis  Analysis  `json:"analysis"`
	CreatedAt time.Time `json:"created_at"`
}
