package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront-reviews/pkg/errors"
	"github.com/utafrali/storefront-reviews/pkg/validator"
)

var testProduct = &Product{ID: "p-1", ProductName: "Trail Runner", ImageURL: "https://img/p-1.png", Description: "Light shoe"}

// ============================================================================
// ReviewForm
// ============================================================================

func TestSelectStar_SetsExactRatingAndHighlightsPrefix(t *testing.T) {
	for k := 0; k <= 5; k++ {
		var f ReviewForm
		require.NoError(t, f.SelectStar(k))
		assert.Equal(t, k, f.Rating)

		stars := f.Stars()
		require.Len(t, stars, 5)
		for i, s := range stars {
			assert.Equal(t, i+1, s.Value)
			assert.Equal(t, i+1 <= k, s.Highlighted, "k=%d star=%d", k, i+1)
		}
	}
}

func TestSelectStar_Reselect(t *testing.T) {
	f := ReviewForm{Rating: 5}
	require.NoError(t, f.SelectStar(2))
	assert.Equal(t, 2, f.Rating)
}

func TestSelectStar_OutOfRange(t *testing.T) {
	f := ReviewForm{Rating: 3}
	for _, k := range []int{-1, 6, 100} {
		err := f.SelectStar(k)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	}
	assert.Equal(t, 3, f.Rating)
}

func TestRatingLabel(t *testing.T) {
	tests := map[int]string{0: "0 Stars", 1: "1 Star", 2: "2 Stars", 5: "5 Stars"}
	for rating, want := range tests {
		assert.Equal(t, want, ReviewForm{Rating: rating}.RatingLabel())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		form   ReviewForm
		fields map[string]string
	}{
		{"ok", ReviewForm{Rating: 4, Comment: "Great"}, nil},
		{"zero rating allowed", ReviewForm{Rating: 0, Comment: "meh"}, nil},
		{"empty comment", ReviewForm{Rating: 3}, map[string]string{"comment": "is required"}},
		{"whitespace comment kept as typed", ReviewForm{Rating: 3, Comment: "  \n\t"}, nil},
		{"long comment", ReviewForm{Rating: 3, Comment: strings.Repeat("a", 5001)}, nil},
		{"rating too high", ReviewForm{Rating: 6, Comment: "x"}, map[string]string{"rating": "must be less than or equal to 5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.form.Validate()
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			var ve *validator.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.fields, ve.Fields())
		})
	}
}

func TestEditComment(t *testing.T) {
	f := ReviewForm{Rating: 2, Comment: "old"}
	f.EditComment("new")
	assert.Equal(t, ReviewForm{Rating: 2, Comment: "new"}, f)
}

// ============================================================================
// ResolveView
// ============================================================================

func TestResolveView_LoadingWins(t *testing.T) {
	drafts := []Draft{{}, {Submitted: true}, {Submitting: true, Comment: "x"}}
	lookups := []ProductLookup{{Loading: true}, {Loading: true, Product: testProduct}}

	for _, l := range lookups {
		for _, d := range drafts {
			assert.Equal(t, LoadingView{}, ResolveView("p-1", l, d))
		}
	}
}

func TestResolveView_NotFound(t *testing.T) {
	v := ResolveView("missing", ProductLookup{}, Draft{Submitted: true})
	assert.Equal(t, NotFoundView{ProductID: "missing"}, v)
	assert.Equal(t, ViewNotFound, v.Kind())
}

func TestResolveView_Submitted(t *testing.T) {
	v := ResolveView("p-1", ProductLookup{Product: testProduct}, Draft{Submitted: true, Rating: 4})
	assert.Equal(t, SubmittedView{Product: testProduct}, v)
}

func TestResolveView_Editing(t *testing.T) {
	d := Draft{Rating: 3, Comment: "nice", Submitting: true}
	v := ResolveView("p-1", ProductLookup{Product: testProduct}, d)

	ev, ok := v.(EditingView)
	require.True(t, ok)
	assert.Equal(t, testProduct, ev.Product)
	assert.Equal(t, ReviewForm{Rating: 3, Comment: "nice"}, ev.Form)
	assert.True(t, ev.Submitting)
	assert.Equal(t, ViewEditing, ev.Kind())
}

func TestDraft_WithForm(t *testing.T) {
	d := Draft{Submitting: true}.WithForm(ReviewForm{Rating: 5, Comment: "c"})
	assert.Equal(t, 5, d.Rating)
	assert.Equal(t, "c", d.Comment)
	assert.True(t, d.Submitting)
}
