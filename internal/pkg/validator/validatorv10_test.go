package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scanInput struct {
	Token       string `validate:"required,qrtoken"`
	MeetingDate string `validate:"required,meetingdate"`
	GroupID     int64  `validate:"gte=0"`
}

func TestV10Validator_Validate(t *testing.T) {
	v, err := NewV10Validator()
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		err := v.Validate(scanInput{Token: strings.Repeat("ab", 32), MeetingDate: "2024-03-01"})
		assert.NoError(t, err)
	})

	t.Run("invalid fields", func(t *testing.T) {
		// Act
		err := v.Validate(scanInput{Token: strings.Repeat("AB", 32), MeetingDate: "2024-02-30", GroupID: -1})

		// Assert
		var ve ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "Token must be 64 lowercase hex characters", ve.Values()["token"])
		assert.Equal(t, "MeetingDate must be a date in YYYY-MM-DD format", ve.Values()["meeting_date"])
		assert.Contains(t, ve.Values(), "group_id")
		assert.Contains(t, ve.Error(), "meeting_date")
	})

	t.Run("required", func(t *testing.T) {
		err := v.Validate(scanInput{})

		var ve ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "Token is a required field", ve["token"])
	})

	t.Run("not a struct", func(t *testing.T) {
		assert.Error(t, v.Validate("nope"))
	})
}
