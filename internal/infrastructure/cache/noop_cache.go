package cache

import (
	"context"

	"github.com/jhoicas/stockflow/internal/application/ports"
)

var _ ports.ReportCache = NoopCache{}

// NoopCache se usa cuando REDIS_ADDR está vacío: nunca encuentra nada.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (NoopCache) Set(context.Context, string, any) error         { return nil }
func (NoopCache) InvalidateStock(context.Context) error          { return nil }
