package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/leasing-assistant/pkg/logger"
	"github.com/capitalize-ai/leasing-assistant/pkg/metrics"
)

// ErrTimeout is returned when a completion call times out twice in a row.
var ErrTimeout = errors.New("completion request timed out")

type timeoutClient struct {
	Client
	timeout time.Duration
	logger  *logger.Logger
}

// WithTimeout bounds every Complete call on c by d. A call that times out is
// retried once; a second timeout fails with ErrTimeout. Other errors and
// cancellation of the caller's context are returned as they are.
func WithTimeout(c Client, d time.Duration, log *logger.Logger) Client {
	if d <= 0 {
		return c
	}
	if log == nil {
		log = logger.Nop()
	}
	return &timeoutClient{Client: c, timeout: d, logger: log}
}

// Complete sends a completion request with a per-attempt deadline.
func (c *timeoutClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	const attempts = 2
	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.Client.Complete(callCtx, req)
		timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
		cancel()

		if err == nil {
			return resp, nil
		}
		if !timedOut {
			return nil, err
		}
		if attempt < attempts {
			c.logger.Warn("completion timed out, retrying",
				zap.String("provider", c.Name()),
				zap.Duration("timeout", c.timeout),
			)
			metrics.LLMRetriesTotal.WithLabelValues(c.Name()).Inc()
		}
	}
	return nil, fmt.Errorf("%w after %d attempts of %s", ErrTimeout, attempts, c.timeout)
}
