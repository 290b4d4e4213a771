// Package retry ограниченный повтор операции с фиксированной паузой между попытками.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidAttempts = errors.New("[retry] max attempts must be positive")

// Policy параметры повтора.
//   - MaxAttempts: общее число попыток, включая первую.
//   - Delay: фиксированная пауза между попытками.
//   - RetryIf: предикат, решающий, стоит ли повторять после ошибки. nil означает "повторять всегда".
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	RetryIf     func(err error) bool
	// OnRetry вызывается перед паузой, attempt начинается с 1.
	OnRetry func(attempt int, err error)
}

// Do выполняет fn, повторяя ее по правилам p. Возвращается ошибка последней попытки.
// Отмена контекста прерывает паузу и возвращает ошибку последней попытки, объединенную с ошибкой контекста.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	if p.MaxAttempts <= 0 {
		return ErrInvalidAttempts
	}

	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == p.MaxAttempts || (p.RetryIf != nil && !p.RetryIf(err)) {
			return err
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		if sleepErr := sleepWithContext(ctx, p.Delay); sleepErr != nil {
			return errors.Join(err, sleepErr)
		}
	}
	return err
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("retry interrupted: %w", ctx.Err())
	}
}
