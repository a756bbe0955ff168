package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	domrepo "CoinChart/internal/domain/repository"
)

// ErrLayoutNotReady is returned when a pane has not laid out its data in time.
var ErrLayoutNotReady = errors.New("pane layout not ready")

// LayoutWaiter blocks until a surface reports its layout ready. Surfaces that
// expose a ready channel are awaited directly; the rest are polled with
// exponential backoff.
type LayoutWaiter struct {
	Budget       time.Duration
	InitialPoll  time.Duration
	MaxPollDelay time.Duration
}

func NewLayoutWaiter(budget time.Duration) LayoutWaiter {
	return LayoutWaiter{Budget: budget, InitialPoll: 10 * time.Millisecond, MaxPollDelay: 250 * time.Millisecond}
}

func (w LayoutWaiter) Wait(ctx context.Context, s domrepo.Surface) error {
	if s.LayoutReady() {
		return nil
	}
	budget := w.Budget
	if budget <= 0 {
		budget = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	if sig, ok := s.(domrepo.LayoutSignaler); ok {
		select {
		case <-sig.LayoutReadyC():
			return nil
		case <-ctx.Done():
			return fmt.Errorf("%w: %s after %v", ErrLayoutNotReady, s.ID(), budget)
		}
	}

	b := backoff.NewExponentialBackOff()
	if w.InitialPoll > 0 {
		b.InitialInterval = w.InitialPoll
	}
	if w.MaxPollDelay > 0 {
		b.MaxInterval = w.MaxPollDelay
	}
	b.MaxElapsedTime = budget
	err := backoff.Retry(func() error {
		if s.LayoutReady() {
			return nil
		}
		return ErrLayoutNotReady
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return fmt.Errorf("%w: %s after %v", ErrLayoutNotReady, s.ID(), budget)
	}
	return nil
}
