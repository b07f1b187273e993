package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransition(t *testing.T) {
	cases := []struct {
		from     Status
		decision Decision
		want     Status
		err      error
	}{
		{StatusPending, DecisionApprove, StatusApproved, nil},
		{StatusPending, DecisionReject, StatusRejected, nil},
		{StatusPending, "maybe", StatusPending, ErrInvalidDecision},
		{StatusApproved, DecisionReject, StatusApproved, ErrAlreadyReviewed},
		{StatusRejected, DecisionApprove, StatusRejected, ErrAlreadyReviewed},
		{StatusRejected, DecisionReject, StatusRejected, ErrAlreadyReviewed},
	}
	for _, tc := range cases {
		got, err := Transition(tc.from, tc.decision)
		assert.Equal(t, tc.want, got, "%s/%s", tc.from, tc.decision)
		if tc.err == nil {
			assert.NoError(t, err)
		} else {
			assert.ErrorIs(t, err, tc.err)
		}
	}
}

func TestParseDecisionAndStatus(t *testing.T) {
	d, err := ParseDecision(" APPROVE ")
	assert.NoError(t, err)
	assert.Equal(t, DecisionApprove, d)

	_, err = ParseDecision("defer")
	assert.ErrorIs(t, err, ErrInvalidDecision)

	s, err := ParseStatus("rejected")
	assert.NoError(t, err)
	assert.True(t, s.Terminal())
	assert.False(t, StatusPending.Terminal())
}
