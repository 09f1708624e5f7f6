// internal/common/retry/retry_test.go
package retry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipeerrors "github.com/talentflow/intake-pipeline/internal/common/errors"
	"github.com/talentflow/intake-pipeline/internal/common/logger"
)

func fastPolicy(attempts int, classify Classifier) Policy {
	return Policy{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Classify:     classify,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "op", func() error {
		calls++
		return nil
	}, fastPolicy(3, Always), logger.NewNoOpLogger())

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransientUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "op", func() error {
		calls++
		if calls < 3 {
			return pipeerrors.NewMailboxUnavailableError(fmt.Errorf("imap: connection reset"))
		}
		return nil
	}, fastPolicy(5, nil), logger.NewNoOpLogger())

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_FatalErrorReturnsImmediately(t *testing.T) {
	calls := 0
	fatal := pipeerrors.NewDispatchRecipientInvalidError("bad@")
	err := Do(context.Background(), "op", func() error {
		calls++
		return fatal
	}, fastPolicy(5, nil), logger.NewNoOpLogger())

	require.Error(t, err)
	assert.Equal(t, 1, calls, "fatal errors must not be retried")
	assert.Equal(t, fatal, err)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "op", func() error {
		calls++
		return pipeerrors.NewMailboxUnavailableError(fmt.Errorf("imap: connection reset"))
	}, fastPolicy(3, nil), logger.NewNoOpLogger())

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Equal(t, pipeerrors.ErrCodeMailboxUnavailable, pipeerrors.CodeOf(err), "the last cause stays in the chain")
}

func TestDo_ContextCancelledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := Policy{MaxAttempts: 5, InitialDelay: time.Hour, Classify: Always}

	errCh := make(chan error, 1)
	go func() {
		errCh <- Do(ctx, "op", func() error {
			calls++
			return fmt.Errorf("still broken")
		}, p, logger.NewNoOpLogger())
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("Do did not observe cancellation")
	}
}

func TestDo_NonStandardErrorIsFatalByDefault(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "op", func() error {
		calls++
		return fmt.Errorf("plain error")
	}, fastPolicy(5, nil), logger.NewNoOpLogger())

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
