package warehouse

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stockflow/internal/application/dto"
	"github.com/jhoicas/stockflow/internal/application/ports"
	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
	"github.com/jhoicas/stockflow/pkg/logger"
)

// UseCase casos de uso del registro de bodegas. Desactivar y eliminar verifican la existencia
// y escriben en la misma transacción, con la fila de la bodega bloqueada.
type UseCase struct {
	tx   ports.TxRunner
	repo repository.WarehouseRepository
	log  *logger.Logger
	now  func() time.Time
}

// NewUseCase construye el caso de uso.
func NewUseCase(tx ports.TxRunner, repo repository.WarehouseRepository, log *logger.Logger) *UseCase {
	return &UseCase{tx: tx, repo: repo, log: log.Named("warehouse"), now: func() time.Time { return time.Now().UTC() }}
}

// Create crea una bodega activa.
func (uc *UseCase) Create(ctx context.Context, in dto.CreateWarehouseRequest) (*dto.WarehouseResponse, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	name := strings.TrimSpace(in.Name)
	if code == "" || name == "" {
		return nil, domain.Errorf(domain.ErrInvalidInput, "warehouse.create", "código y nombre son requeridos")
	}
	if in.Capacity < 0 {
		return nil, domain.Errorf(domain.ErrInvalidInput, "warehouse.create", "la capacidad no puede ser negativa")
	}
	now := uc.now()
	w := &entity.Warehouse{
		ID:        uuid.New().String(),
		Code:      code,
		Name:      name,
		Address:   strings.TrimSpace(in.Address),
		Capacity:  in.Capacity,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, w); err != nil {
		return nil, err
	}
	uc.log.Info().Str("warehouse_id", w.ID).Str("code", w.Code).Msg("bodega creada")
	return toWarehouseResponse(w), nil
}

// GetByID obtiene una bodega por ID.
func (uc *UseCase) GetByID(ctx context.Context, id string) (*dto.WarehouseResponse, error) {
	w, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toWarehouseResponse(w), nil
}

// Update actualiza nombre, dirección o capacidad.
func (uc *UseCase) Update(ctx context.Context, id string, in dto.UpdateWarehouseRequest) (*dto.WarehouseResponse, error) {
	w, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.Errorf(domain.ErrInvalidInput, "warehouse.update", "el nombre no puede quedar vacío")
		}
		w.Name = name
	}
	if in.Address != nil {
		w.Address = strings.TrimSpace(*in.Address)
	}
	if in.Capacity != nil {
		if *in.Capacity < 0 {
			return nil, domain.Errorf(domain.ErrInvalidInput, "warehouse.update", "la capacidad no puede ser negativa")
		}
		w.Capacity = *in.Capacity
	}
	w.UpdatedAt = uc.now()
	if err := uc.repo.Update(ctx, w); err != nil {
		return nil, err
	}
	return toWarehouseResponse(w), nil
}

// List lista bodegas con paginación.
func (uc *UseCase) List(ctx context.Context, onlyActive bool, page dto.PageRequest) (*dto.WarehouseListResponse, error) {
	page.DefaultPage()
	list, total, err := uc.repo.List(ctx, onlyActive, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.WarehouseResponse, 0, len(list))
	for _, w := range list {
		items = append(items, *toWarehouseResponse(w))
	}
	return &dto.WarehouseListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}, nil
}

// Deactivate desactiva la bodega; falla con domain.ErrWarehouseHasStock si aún tiene existencia.
func (uc *UseCase) Deactivate(ctx context.Context, id string) (*dto.WarehouseResponse, error) {
	var out *entity.Warehouse
	err := uc.tx.Run(ctx, func(repos ports.Repositories) error {
		w, err := repos.Warehouses.LockForUpdate(ctx, id)
		if err != nil {
			return err
		}
		out = w
		if !w.IsActive {
			return nil
		}
		if err := uc.requireEmpty(ctx, repos.Warehouses, w); err != nil {
			return err
		}
		return uc.setActive(ctx, repos.Warehouses, w, false)
	})
	if err != nil {
		return nil, err
	}
	return toWarehouseResponse(out), nil
}

// Activate reactiva la bodega.
func (uc *UseCase) Activate(ctx context.Context, id string) (*dto.WarehouseResponse, error) {
	w, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !w.IsActive {
		if err := uc.setActive(ctx, uc.repo, w, true); err != nil {
			return nil, err
		}
	}
	return toWarehouseResponse(w), nil
}

// Delete elimina la bodega; mismas reglas que Deactivate.
func (uc *UseCase) Delete(ctx context.Context, id string) error {
	var code string
	err := uc.tx.Run(ctx, func(repos ports.Repositories) error {
		w, err := repos.Warehouses.LockForUpdate(ctx, id)
		if err != nil {
			return err
		}
		code = w.Code
		if err := uc.requireEmpty(ctx, repos.Warehouses, w); err != nil {
			return err
		}
		return repos.Warehouses.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	uc.log.Info().Str("warehouse_id", id).Str("code", code).Msg("bodega eliminada")
	return nil
}

// requireEmpty corre con la fila de la bodega bloqueada: ninguna escritura de existencia
// puede confirmarse entre la suma y el cambio de estado.
func (uc *UseCase) requireEmpty(ctx context.Context, repo repository.WarehouseRepository, w *entity.Warehouse) error {
	total, err := repo.StockTotal(ctx, w.ID)
	if err != nil {
		return err
	}
	if total > 0 {
		uc.log.Warn().Str("warehouse_id", w.ID).Int64("stock", total).Msg("bodega con existencia")
		return domain.ErrWarehouseHasStock
	}
	return nil
}

func (uc *UseCase) setActive(ctx context.Context, repo repository.WarehouseRepository, w *entity.Warehouse, active bool) error {
	now := uc.now()
	if err := repo.SetActive(ctx, w.ID, active, now); err != nil {
		return err
	}
	w.IsActive = active
	w.UpdatedAt = now
	return nil
}

func toWarehouseResponse(w *entity.Warehouse) *dto.WarehouseResponse {
	if w == nil {
		return nil
	}
	return &dto.WarehouseResponse{
		ID:        w.ID,
		Code:      w.Code,
		Name:      w.Name,
		Address:   w.Address,
		Capacity:  w.Capacity,
		IsActive:  w.IsActive,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}
