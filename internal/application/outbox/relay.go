package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/stockflow/internal/application/ports"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/pkg/logger"
)

// Publisher entrega un mensaje del outbox al broker.
type Publisher interface {
	Publish(ctx context.Context, msg *entity.OutboxMessage) error
	Close() error
}

// Config parámetros del relay.
type Config struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

// DefaultConfig sondeo cada segundo, lotes de 100, 10 intentos.
func DefaultConfig() Config {
	return Config{PollInterval: time.Second, BatchSize: 100, MaxAttempts: 10}
}

// Relay publica en segundo plano los eventos guardados en el outbox.
// Cada lote corre en una transacción que bloquea sus filas (SKIP LOCKED en PostgreSQL), así
// varias réplicas no toman el mismo mensaje. Entrega al menos una vez: si la transacción no
// confirma, el lote completo se reenvía.
type Relay struct {
	tx        ports.TxRunner
	publisher Publisher
	cfg       Config
	log       *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRelay construye el relay.
func NewRelay(tx ports.TxRunner, publisher Publisher, cfg Config, log *logger.Logger) *Relay {
	return &Relay{tx: tx, publisher: publisher, cfg: cfg, log: log.Named("outbox")}
}

// Start lanza el ciclo de sondeo.
func (r *Relay) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.wg.Add(1)
	go r.loop(ctx)
	r.log.Info().
		Int("batch_size", r.cfg.BatchSize).
		Dur("poll_interval", r.cfg.PollInterval).
		Msg("relay de outbox iniciado")
}

// Stop detiene el ciclo y espera a que termine el lote en curso.
func (r *Relay) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		r.log.Info().Msg("relay de outbox detenido")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Relay) loop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.ProcessBatch(ctx); err != nil && ctx.Err() == nil {
				r.log.Error().Err(err).Msg("no se pudo leer el outbox")
			}
		}
	}
}

// ProcessBatch publica un lote de mensajes pendientes y devuelve cuántos se publicaron.
func (r *Relay) ProcessBatch(ctx context.Context) (int, error) {
	published := 0
	err := r.tx.Run(ctx, func(repos ports.Repositories) error {
		published = 0
		pending, err := repos.Outbox.FetchPending(ctx, r.cfg.BatchSize, r.cfg.MaxAttempts)
		if err != nil {
			return err
		}
		for _, msg := range pending {
			if ctx.Err() != nil {
				break
			}
			if err := r.publisher.Publish(ctx, msg); err != nil {
				attempts := msg.Attempts + 1
				level := r.log.Warn
				if attempts >= r.cfg.MaxAttempts {
					level = r.log.Error
				}
				level().Err(err).
					Str("event_id", msg.ID).
					Str("event_type", msg.EventType).
					Int("attempts", attempts).
					Msg("publicación fallida")
				if uerr := repos.Outbox.MarkFailed(ctx, msg.ID, err.Error()); uerr != nil {
					return fmt.Errorf("registrar fallo de %s: %w", msg.ID, uerr)
				}
				continue
			}
			if err := repos.Outbox.MarkPublished(ctx, msg.ID); err != nil {
				return fmt.Errorf("marcar %s como publicado: %w", msg.ID, err)
			}
			published++
			r.log.Debug().Str("event_id", msg.ID).Str("event_type", msg.EventType).Msg("evento publicado")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return published, nil
}
