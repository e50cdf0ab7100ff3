package domain

import "time"

// Draft is one shopper's in-progress review of one product.
type Draft struct {
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	Submitting bool      `json:"submitting"`
	Submitted  bool      `json:"submitted"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DraftKey identifies a draft.
type DraftKey struct {
	SessionID string
	ProductID string
}

// Form returns the editable fields of the draft.
func (d Draft) Form() ReviewForm {
	return ReviewForm{Rating: d.Rating, Comment: d.Comment}
}

// WithForm copies the form's fields into the draft.
func (d Draft) WithForm(f ReviewForm) Draft {
	d.Rating = f.Rating
	d.Comment = f.Comment
	return d
}
