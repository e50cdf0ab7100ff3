package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reviewForm struct {
	Rating  int    `form:"rating" validate:"gte=0,lte=5"`
	Comment string `form:"comment" validate:"required"`
}

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(reviewForm{Rating: 0, Comment: "fine"}))
	assert.NoError(t, Validate(reviewForm{Rating: 5, Comment: "great"}))
}

func TestValidate_MissingComment_UsesFormName(t *testing.T) {
	err := Validate(reviewForm{Rating: 3})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, map[string]string{"comment": "is required"}, valErr.Fields())
	assert.Equal(t, "field 'comment' is required", valErr.Error())
}

func TestValidate_RequiredOnlyRejectsEmpty(t *testing.T) {
	assert.NoError(t, Validate(reviewForm{Rating: 3, Comment: "  \n\t "}))

	var valErr *ValidationError
	require.ErrorAs(t, Validate(reviewForm{Rating: 3, Comment: ""}), &valErr)
	assert.Equal(t, "is required", valErr.Fields()["comment"])
}

func TestValidate_RatingOutOfRange(t *testing.T) {
	err := Validate(reviewForm{Rating: 6, Comment: "ok"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be less than or equal to 5", valErr.Fields()["rating"])

	err = Validate(reviewForm{Rating: -1, Comment: "ok"})
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be greater than or equal to 0", valErr.Fields()["rating"])
}
