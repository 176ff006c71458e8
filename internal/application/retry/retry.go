package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jhoicas/stockflow/internal/domain"
)

// Config reintentos ante domain.ErrConcurrencyConflict.
type Config struct {
	MaxRetries      int
	InitialInterval time.Duration
}

// Default 3 reintentos empezando en 20ms.
func Default() Config {
	return Config{MaxRetries: 3, InitialInterval: 20 * time.Millisecond}
}

// Do ejecuta fn y la repite con backoff exponencial mientras falle con un conflicto de
// concurrencia, hasta MaxRetries veces. Cualquier otro error se devuelve de inmediato.
// Con once=true no hay reintentos (el llamador fijó la versión esperada).
func Do(ctx context.Context, cfg Config, once bool, fn func(ctx context.Context) error) (attempts int, err error) {
	retries := cfg.MaxRetries
	if once || retries < 0 {
		retries = 0
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = cfg.InitialInterval
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)

	err = backoff.Retry(func() error {
		attempts++
		err := fn(ctx)
		if err == nil || domain.IsRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
	return attempts, err
}
