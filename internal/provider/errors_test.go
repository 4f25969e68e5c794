package provider

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestMarkIfQuota(t *testing.T) {
	cases := []struct {
		name  string
		msg   string
		quota bool
	}{
		{"insufficient_quota code", "429: insufficient_quota, please check your plan", true},
		{"quota word", "You exceeded your current quota", true},
		{"mixed case", "QUOTA exceeded for metric", true},
		{"rate limit without quota", "rate limit reached, retry later", false},
		{"unrelated", "connection reset by peer", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := markIfQuota(errors.New(tc.msg))
			assert.Equal(t, tc.quota, IsQuota(err))
		})
	}

	assert.NoError(t, markIfQuota(nil))
}

func TestQuotaMarkSurvivesWrapping(t *testing.T) {
	err := markIfQuota(errors.New("insufficient_quota"))
	wrapped := errors.Wrap(err, "openai request failed")

	assert.True(t, IsQuota(wrapped))
	assert.False(t, IsRetriesExhausted(wrapped))
}
