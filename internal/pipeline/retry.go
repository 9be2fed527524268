package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/biecho/mlsec-papers/internal/config"
	"github.com/biecho/mlsec-papers/internal/s2"
)

// checkpointEvery is how many completed papers trigger a mid-batch snapshot
// save, so a killed run loses little work.
const checkpointEvery = 25

// isRateLimited covers both providers: the graph API's 429 sentinel and the
// chat API's typed error.
func isRateLimited(err error) bool {
	if s2.IsRateLimited(err) {
		return true
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429
	}
	return false
}

// isTransient covers network failures and server-side errors on either
// provider.
func isTransient(err error) bool {
	if s2.IsTransient(err) {
		return true
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode >= 500
	}
	return false
}

// withRetry runs fn with bounded retries. Transient errors back off
// exponentially; a rate-limit response triggers the longer cooldown wait
// instead, pausing the calling worker rather than failing the paper. The
// last error is returned once attempts are exhausted or for any
// non-retryable error.
func withRetry(ctx context.Context, rc config.RetryConfig, op string, fn func() error) error {
	attempts := rc.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := time.Duration(rc.BackoffSeconds) * time.Second
	cooldown := time.Duration(rc.CooldownSeconds) * time.Second

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		var wait time.Duration
		switch {
		case isRateLimited(err):
			logrus.Warnf("%s: rate limited, cooling down %s", op, cooldown)
			wait = cooldown
		case isTransient(err):
			logrus.Debugf("%s: transient error (attempt %d/%d): %v", op, attempt, attempts, err)
			wait = backoff
			backoff *= 2
		default:
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}
