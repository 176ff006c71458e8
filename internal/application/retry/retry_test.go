package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stockflow/internal/application/retry"
	"github.com/jhoicas/stockflow/internal/domain"
)

func conflict() error {
	return domain.Errorf(domain.ErrConcurrencyConflict, "test", "versión distinta")
}

func TestDo(t *testing.T) {
	cfg := retry.Config{MaxRetries: 3, InitialInterval: time.Millisecond}
	other := errors.New("otro")

	tests := []struct {
		name     string
		once     bool
		failures int
		err      error
		want     int
		wantErr  error
	}{
		{"éxito directo", false, 0, nil, 1, nil},
		{"conflicto transitorio", false, 2, conflict(), 3, nil},
		{"conflicto persistente", false, 10, conflict(), 4, domain.ErrConcurrencyConflict},
		{"error no reintentable", false, 10, other, 1, other},
		{"sin reintento con versión esperada", true, 10, conflict(), 1, domain.ErrConcurrencyConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			left := tt.failures
			attempts, err := retry.Do(context.Background(), cfg, tt.once, func(context.Context) error {
				if left > 0 {
					left--
					return tt.err
				}
				return nil
			})
			assert.Equal(t, tt.want, attempts)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestDo_ContextoCancelado(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := retry.Config{MaxRetries: 100, InitialInterval: 50 * time.Millisecond}
	attempts, err := retry.Do(ctx, cfg, false, func(context.Context) error {
		cancel()
		return conflict()
	})
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}
