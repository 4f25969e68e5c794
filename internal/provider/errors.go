package provider

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Sentinels for the provider error taxonomy. Callers branch with errors.Is.
var (
	// ErrQuotaExhausted marks terminal quota/billing failures. These are
	// never retried; the orchestrator may fall back to the local provider.
	ErrQuotaExhausted = errors.New("provider quota exhausted")

	// ErrRetriesExhausted marks a remote call that kept failing until the
	// attempt ceiling was hit.
	ErrRetriesExhausted = errors.New("provider retries exhausted")

	// ErrNotConfigured marks a request for a provider kind that has no
	// backend configured. A caller problem, not a generation failure.
	ErrNotConfigured = errors.New("provider not configured")
)

// IsQuota reports whether err is a terminal quota/billing failure.
func IsQuota(err error) bool {
	return errors.Is(err, ErrQuotaExhausted)
}

// IsRetriesExhausted reports whether err is an exhausted-retries failure.
func IsRetriesExhausted(err error) bool {
	return errors.Is(err, ErrRetriesExhausted)
}

// IsNotConfigured reports whether err is a request for an unconfigured
// provider kind.
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}

// markIfQuota tags err with ErrQuotaExhausted when its message indicates a
// quota/billing problem. The message scan matches the original service,
// which classified on the provider error string; structured checks in the
// backends run before this.
func markIfQuota(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "quota") || strings.Contains(msg, "insufficient_quota") {
		return errors.Mark(err, ErrQuotaExhausted)
	}
	return err
}
