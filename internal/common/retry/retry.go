// internal/common/retry/retry.go
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/talentflow/intake-pipeline/internal/common/errors"
	"github.com/talentflow/intake-pipeline/internal/common/logger"
)

// Classifier decides whether an error is worth another attempt.
type Classifier func(error) bool

// Policy parameterizes a retryable operation.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Classify     Classifier
}

// DefaultPolicy retries transient errors up to three times with exponential
// backoff starting at two seconds.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		MaxDelay:     30 * time.Second,
		Classify:     errors.IsRetryable,
	}
}

// Do executes operation under the policy. Fatal errors (classifier returns
// false) are returned immediately; transient errors are retried with
// exponential backoff until attempts run out or the context is done.
func Do(ctx context.Context, name string, op func() error, p Policy, log logger.Logger) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Classify == nil {
		p.Classify = errors.IsRetryable
	}

	delay := p.InitialDelay
	var err error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err = op()
		if err == nil {
			return nil
		}

		if !p.Classify(err) {
			return err
		}

		if attempt == p.MaxAttempts {
			break
		}

		if log != nil {
			log.Warn(fmt.Sprintf("%s failed, retrying...", name), map[string]interface{}{
				"attempt":     attempt,
				"maxAttempts": p.MaxAttempts,
				"nextRetryIn": delay.String(),
				"error":       err.Error(),
			})
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", name, p.MaxAttempts, err)
}

// Always treats every error as transient. Used for infrastructure startup
// where the only failure mode worth distinguishing is exhaustion.
func Always(error) bool { return true }
