package domain

import (
	"fmt"

	apperrors "github.com/utafrali/storefront-reviews/pkg/errors"
	"github.com/utafrali/storefront-reviews/pkg/validator"
)

const (
	MinRating = 0
	MaxRating = 5
)

// ReviewForm is the editable part of a review: the selected star rating and
// the comment text.
type ReviewForm struct {
	Rating  int    `json:"rating" form:"rating" validate:"gte=0,lte=5"`
	Comment string `json:"comment" form:"comment" validate:"required"`
}

// Star is one of the five rating controls.
type Star struct {
	Value       int
	Highlighted bool
}

// SelectStar sets the rating to exactly k. Zero clears the selection.
func (f *ReviewForm) SelectStar(k int) error {
	if k < MinRating || k > MaxRating {
		return apperrors.InvalidInput(fmt.Sprintf("star must be between %d and %d, got %d", MinRating, MaxRating, k))
	}
	f.Rating = k
	return nil
}

// EditComment replaces the comment text.
func (f *ReviewForm) EditComment(text string) {
	f.Comment = text
}

// Stars returns the five controls; star i is highlighted iff Rating >= i.
func (f ReviewForm) Stars() []Star {
	stars := make([]Star, 0, MaxRating)
	for i := 1; i <= MaxRating; i++ {
		stars = append(stars, Star{Value: i, Highlighted: f.Rating >= i})
	}
	return stars
}

// RatingLabel renders the rating as "1 Star" or "n Stars".
func (f ReviewForm) RatingLabel() string {
	if f.Rating == 1 {
		return "1 Star"
	}
	return fmt.Sprintf("%d Stars", f.Rating)
}

// Validate enforces a non-empty comment and the rating range. Whitespace and
// long comments pass as typed; a zero rating is accepted.
func (f ReviewForm) Validate() error {
	return validator.Validate(f)
}
