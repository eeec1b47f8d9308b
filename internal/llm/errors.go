package llm

import (
	"context"
	"errors"
	"strings"
)

// Typed failures for the embedding and generation clients. Callers
// branch with errors.Is; orchestrators decide what is worth retrying,
// the wrappers only classify.
var (
	// ErrInvalidInput indicates the request was malformed (e.g. empty
	// text). Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited indicates the upstream service rejected the call
	// for quota reasons. Retryable with backoff.
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates the call exceeded its deadline. Retryable.
	ErrTimeout = errors.New("timeout")

	// ErrContentFiltered indicates the generation was blocked by the
	// upstream safety filter. Not retryable.
	ErrContentFiltered = errors.New("content filtered")

	// ErrUpstream indicates any other upstream failure, including a
	// malformed response. Retryable.
	ErrUpstream = errors.New("upstream error")
)

// Retryable reports whether err is worth retrying with backoff.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrUpstream)
}

// classify maps an SDK error onto the package sentinels. The Genkit
// plugins do not expose typed errors, so this falls back to substring
// matching the way upstream status text actually reads.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "rate limit", "quota", "resource_exhausted", "429"):
		return ErrRateLimited
	case containsAny(msg, "deadline", "timeout", "timed out"):
		return ErrTimeout
	case containsAny(msg, "safety", "blocked", "prohibited_content"):
		return ErrContentFiltered
	case containsAny(msg, "invalid argument", "invalid_argument", "400"):
		return ErrInvalidInput
	default:
		return ErrUpstream
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
