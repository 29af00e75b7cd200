package sheets

import (
	"context"
	"fmt"
	"time"

	"quadra_financeiro/internal/apperr"

	"go.uber.org/zap"
)

// retryPolicy retries quota failures only, doubling the delay each time.
type retryPolicy struct {
	attempts int
	base     time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	log      *zap.Logger
}

func (p retryPolicy) do(ctx context.Context, op string, fn func(context.Context) error) error {
	attempts := max(p.attempts, 1)

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if apperr.KindOf(err) != apperr.KindQuota {
			return err
		}
		if attempt == attempts-1 {
			break
		}
		delay := p.base << attempt
		p.log.Warn("[SHEETS][RETRY] quota exceeded, backing off",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if serr := p.sleep(ctx, delay); serr != nil {
			return serr
		}
	}
	return fmt.Errorf("%s: gave up after %d attempts: %w", op, attempts, err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
