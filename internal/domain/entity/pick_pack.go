package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/shopspring/decimal"
)

// PickPackStatus estado de una unidad de alistamiento.
type PickPackStatus string

const (
	PickPackPending   PickPackStatus = "PENDING"
	PickPackPicking   PickPackStatus = "PICKING"
	PickPackPicked    PickPackStatus = "PICKED"
	PickPackPacking   PickPackStatus = "PACKING"
	PickPackPacked    PickPackStatus = "PACKED"
	PickPackShipped   PickPackStatus = "SHIPPED"
	PickPackCancelled PickPackStatus = "CANCELLED"
)

// IsTerminal SHIPPED y CANCELLED no admiten más cambios.
func (s PickPackStatus) IsTerminal() bool {
	return s == PickPackShipped || s == PickPackCancelled
}

// PickPackAction acción que dispara una transición.
type PickPackAction string

const (
	ActionStartPicking    PickPackAction = "start_picking"
	ActionCompletePicking PickPackAction = "complete_picking"
	ActionStartPacking    PickPackAction = "start_packing"
	ActionCompletePacking PickPackAction = "complete_packing"
	ActionShip            PickPackAction = "ship"
	ActionCancel          PickPackAction = "cancel"
)

var pickPackTransitions = map[PickPackStatus]map[PickPackAction]PickPackStatus{
	PickPackPending: {
		ActionStartPicking: PickPackPicking,
		ActionCancel:       PickPackCancelled,
	},
	PickPackPicking: {
		ActionCompletePicking: PickPackPicked,
		ActionCancel:          PickPackCancelled,
	},
	PickPackPicked: {
		ActionStartPacking: PickPackPacking,
		ActionCancel:       PickPackCancelled,
	},
	PickPackPacking: {
		ActionCompletePacking: PickPackPacked,
		ActionCancel:          PickPackCancelled,
	},
	PickPackPacked: {
		ActionShip:   PickPackShipped,
		ActionCancel: PickPackCancelled,
	},
}

// NextPickPackStatus busca la transición en la tabla.
func NextPickPackStatus(from PickPackStatus, action PickPackAction) (PickPackStatus, error) {
	if to, ok := pickPackTransitions[from][action]; ok {
		return to, nil
	}
	return from, domain.Errorf(domain.ErrInvalidStateTransition, "pickpack."+string(action),
		"no se puede ejecutar %s en estado %s", action, from)
}

// CompletionRules exige (o no) que todos los ítems estén marcados antes de completar.
type CompletionRules struct {
	RequireAllItemsPicked bool
	RequireAllItemsPacked bool
}

// PickPackItemState instantánea de un ítem.
type PickPackItemState struct {
	ID          string
	OrderItemID string
	ProductID   string
	Quantity    int64
	IsPicked    bool
	IsPacked    bool
	Location    string
}

// PickPackItem línea de la orden a alistar.
type PickPackItem struct {
	s PickPackItemState
}

func (i *PickPackItem) ID() string          { return i.s.ID }
func (i *PickPackItem) OrderItemID() string { return i.s.OrderItemID }
func (i *PickPackItem) ProductID() string   { return i.s.ProductID }
func (i *PickPackItem) Quantity() int64     { return i.s.Quantity }
func (i *PickPackItem) IsPicked() bool      { return i.s.IsPicked }
func (i *PickPackItem) IsPacked() bool      { return i.s.IsPacked }
func (i *PickPackItem) Location() string    { return i.s.Location }
func (i *PickPackItem) State() PickPackItemState {
	return i.s
}

// PickPackState instantánea persistible de la unidad.
type PickPackState struct {
	ID             string
	OrderID        string
	WarehouseID    string
	PackNumber     string
	Status         PickPackStatus
	PickedByUserID string
	PackedByUserID string
	PickedAt       *time.Time
	PackedAt       *time.Time
	ShippedAt      *time.Time
	Weight         decimal.Decimal
	Dimensions     string
	PackageCount   int
	Notes          string
	Items          []PickPackItemState
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

// PickPackUnit alistamiento de una orden desde una bodega.
type PickPackUnit struct {
	s     PickPackState
	items []*PickPackItem
}

// NewPickPackItemInput línea recibida del sistema de órdenes.
type NewPickPackItemInput struct {
	OrderItemID string
	ProductID   string
	Quantity    int64
	Location    string
}

// NewPickPackInput datos para crear la unidad.
type NewPickPackInput struct {
	OrderID     string
	WarehouseID string
	PackNumber  string
	Notes       string
	Items       []NewPickPackItemInput
}

// NewPickPackUnit crea una unidad en PENDING. Si no se envía número de empaque se genera uno.
func NewPickPackUnit(in NewPickPackInput, now time.Time) (*PickPackUnit, error) {
	const op = "pickpack.create"
	if strings.TrimSpace(in.OrderID) == "" || strings.TrimSpace(in.WarehouseID) == "" {
		return nil, domain.Errorf(domain.ErrInvalidInput, op, "orden y bodega son requeridas")
	}
	packNumber := strings.TrimSpace(in.PackNumber)
	if packNumber == "" {
		packNumber = GeneratePackNumber(now)
	}
	u := &PickPackUnit{s: PickPackState{
		ID:           uuid.New().String(),
		OrderID:      in.OrderID,
		WarehouseID:  in.WarehouseID,
		PackNumber:   packNumber,
		Status:       PickPackPending,
		PackageCount: 1,
		Weight:       decimal.Zero,
		Notes:        strings.TrimSpace(in.Notes),
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}}
	seen := make(map[string]struct{}, len(in.Items))
	for _, it := range in.Items {
		if strings.TrimSpace(it.OrderItemID) == "" || strings.TrimSpace(it.ProductID) == "" {
			return nil, domain.Errorf(domain.ErrInvalidInput, op, "cada ítem requiere order_item_id y product_id")
		}
		if it.Quantity <= 0 {
			return nil, domain.Errorf(domain.ErrInvalidInput, op, "ítem %s: la cantidad debe ser positiva", it.OrderItemID)
		}
		if _, dup := seen[it.OrderItemID]; dup {
			return nil, domain.Errorf(domain.ErrInvalidInput, op, "ítem %s repetido", it.OrderItemID)
		}
		seen[it.OrderItemID] = struct{}{}
		u.items = append(u.items, &PickPackItem{s: PickPackItemState{
			ID:          uuid.New().String(),
			OrderItemID: it.OrderItemID,
			ProductID:   it.ProductID,
			Quantity:    it.Quantity,
			Location:    strings.TrimSpace(it.Location),
		}})
	}
	return u, nil
}

// GeneratePackNumber PK-YYYYMMDD-XXXXXXXX.
func GeneratePackNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("PK-%s-%s", now.UTC().Format("20060102"), suffix)
}

// RestorePickPackUnit rehidrata desde persistencia.
func RestorePickPackUnit(s PickPackState) *PickPackUnit {
	u := &PickPackUnit{s: s}
	for _, is := range s.Items {
		u.items = append(u.items, &PickPackItem{s: is})
	}
	u.s.Items = nil
	return u
}

// State copia del estado incluyendo los ítems.
func (u *PickPackUnit) State() PickPackState {
	s := u.s
	s.Items = make([]PickPackItemState, 0, len(u.items))
	for _, it := range u.items {
		s.Items = append(s.Items, it.s)
	}
	return s
}

func (u *PickPackUnit) ID() string             { return u.s.ID }
func (u *PickPackUnit) OrderID() string        { return u.s.OrderID }
func (u *PickPackUnit) WarehouseID() string    { return u.s.WarehouseID }
func (u *PickPackUnit) PackNumber() string     { return u.s.PackNumber }
func (u *PickPackUnit) Status() PickPackStatus { return u.s.Status }
func (u *PickPackUnit) Version() int64         { return u.s.Version }
func (u *PickPackUnit) Items() []*PickPackItem { return u.items }
func (u *PickPackUnit) IsDeleted() bool        { return u.s.DeletedAt != nil }

// AdvanceVersion lo llaman los repositorios tras un compare-and-swap exitoso.
func (u *PickPackUnit) AdvanceVersion() { u.s.Version++ }

// StartPicking PENDING → PICKING.
func (u *PickPackUnit) StartPicking(pickedBy string, now time.Time) (PickPackStatusChanged, error) {
	if strings.TrimSpace(pickedBy) == "" {
		return PickPackStatusChanged{}, domain.Errorf(domain.ErrInvalidInput, "pickpack.start_picking", "el usuario que alista es requerido")
	}
	return u.transition(ActionStartPicking, now, func(time.Time) error {
		u.s.PickedByUserID = pickedBy
		return nil
	})
}

// CompletePicking PICKING → PICKED.
func (u *PickPackUnit) CompletePicking(rules CompletionRules, now time.Time) (PickPackStatusChanged, error) {
	return u.transition(ActionCompletePicking, now, func(at time.Time) error {
		if rules.RequireAllItemsPicked {
			if pending := u.countItems(func(it *PickPackItem) bool { return !it.s.IsPicked }); pending > 0 {
				return domain.Errorf(domain.ErrInvalidStateTransition, "pickpack.complete_picking", "%d ítems sin alistar", pending)
			}
		}
		u.s.PickedAt = timePtr(at)
		return nil
	})
}

// StartPacking PICKED → PACKING.
func (u *PickPackUnit) StartPacking(packedBy string, now time.Time) (PickPackStatusChanged, error) {
	if strings.TrimSpace(packedBy) == "" {
		return PickPackStatusChanged{}, domain.Errorf(domain.ErrInvalidInput, "pickpack.start_packing", "el usuario que empaca es requerido")
	}
	return u.transition(ActionStartPacking, now, func(time.Time) error {
		u.s.PackedByUserID = packedBy
		return nil
	})
}

// CompletePacking PACKING → PACKED con peso, dimensiones y número de paquetes.
func (u *PickPackUnit) CompletePacking(weight decimal.Decimal, dimensions string, packageCount int, rules CompletionRules, now time.Time) (PickPackStatusChanged, error) {
	const op = "pickpack.complete_packing"
	if !weight.IsPositive() {
		return PickPackStatusChanged{}, domain.Errorf(domain.ErrInvalidInput, op, "el peso debe ser positivo")
	}
	if packageCount < 1 {
		return PickPackStatusChanged{}, domain.Errorf(domain.ErrInvalidInput, op, "debe haber al menos un paquete")
	}
	return u.transition(ActionCompletePacking, now, func(at time.Time) error {
		if rules.RequireAllItemsPacked {
			if pending := u.countItems(func(it *PickPackItem) bool { return !it.s.IsPacked }); pending > 0 {
				return domain.Errorf(domain.ErrInvalidStateTransition, op, "%d ítems sin empacar", pending)
			}
		}
		u.s.PackedAt = timePtr(at)
		u.s.Weight = weight
		u.s.Dimensions = strings.TrimSpace(dimensions)
		u.s.PackageCount = packageCount
		return nil
	})
}

// Ship PACKED → SHIPPED. El descuento de inventario lo coordina el caso de uso.
func (u *PickPackUnit) Ship(now time.Time) (PickPackStatusChanged, error) {
	return u.transition(ActionShip, now, func(at time.Time) error {
		u.s.ShippedAt = timePtr(at)
		return nil
	})
}

// Cancel lleva la unidad a CANCELLED; el motivo se agrega a las notas.
func (u *PickPackUnit) Cancel(reason string, now time.Time) (PickPackStatusChanged, error) {
	return u.transition(ActionCancel, now, func(time.Time) error {
		if r := strings.TrimSpace(reason); r != "" {
			u.appendNote("Cancelado: " + r)
		}
		return nil
	})
}

// UpdateDetails cambia peso, dimensiones y paquetes sin cambiar el estado.
func (u *PickPackUnit) UpdateDetails(weight decimal.Decimal, dimensions string, packageCount int, now time.Time) error {
	const op = "pickpack.update_details"
	if err := u.requireOpen(op); err != nil {
		return err
	}
	if weight.IsNegative() {
		return domain.Errorf(domain.ErrInvalidInput, op, "el peso no puede ser negativo")
	}
	if packageCount < 1 {
		return domain.Errorf(domain.ErrInvalidInput, op, "debe haber al menos un paquete")
	}
	u.s.Weight = weight
	u.s.Dimensions = strings.TrimSpace(dimensions)
	u.s.PackageCount = packageCount
	u.stamp(now)
	return nil
}

// UpdateNotes reemplaza las notas.
func (u *PickPackUnit) UpdateNotes(notes string, now time.Time) error {
	if err := u.requireOpen("pickpack.update_notes"); err != nil {
		return err
	}
	u.s.Notes = strings.TrimSpace(notes)
	u.stamp(now)
	return nil
}

// MarkItemPicked marca un ítem como alistado y opcionalmente registra su ubicación.
func (u *PickPackUnit) MarkItemPicked(itemID, location string, now time.Time) error {
	it, err := u.openItem("pickpack.item_picked", itemID)
	if err != nil {
		return err
	}
	it.s.IsPicked = true
	if loc := strings.TrimSpace(location); loc != "" {
		it.s.Location = loc
	}
	u.stamp(now)
	return nil
}

// MarkItemPacked marca un ítem como empacado; debe estar alistado.
func (u *PickPackUnit) MarkItemPacked(itemID string, now time.Time) error {
	const op = "pickpack.item_packed"
	it, err := u.openItem(op, itemID)
	if err != nil {
		return err
	}
	if !it.s.IsPicked {
		return domain.Errorf(domain.ErrInvalidStateTransition, op, "el ítem %s no ha sido alistado", itemID)
	}
	it.s.IsPacked = true
	u.stamp(now)
	return nil
}

// MarkDeleted borrado lógico; no aplica a unidades despachadas.
func (u *PickPackUnit) MarkDeleted(now time.Time) error {
	if u.s.Status == PickPackShipped {
		return domain.Errorf(domain.ErrInvalidStateTransition, "pickpack.delete", "no se puede eliminar una unidad despachada")
	}
	if u.s.DeletedAt != nil {
		return domain.Errorf(domain.ErrNotFound, "pickpack.delete", "la unidad ya fue eliminada")
	}
	at := u.stamp(now)
	u.s.DeletedAt = timePtr(at)
	return nil
}

func (u *PickPackUnit) transition(action PickPackAction, now time.Time, apply func(at time.Time) error) (PickPackStatusChanged, error) {
	old := u.s.Status
	next, err := NextPickPackStatus(old, action)
	if err != nil {
		return PickPackStatusChanged{}, err
	}
	at := u.clamp(now)
	// apply valida antes de mutar; un error deja la unidad intacta.
	if err := apply(at); err != nil {
		return PickPackStatusChanged{}, err
	}
	u.s.Status = next
	u.s.UpdatedAt = at
	return PickPackStatusChanged{
		PickPackID: u.s.ID,
		OrderID:    u.s.OrderID,
		OldStatus:  old,
		NewStatus:  next,
		At:         at,
	}, nil
}

// clamp evita que una marca de tiempo quede antes de la última modificación.
func (u *PickPackUnit) clamp(now time.Time) time.Time {
	if now.Before(u.s.UpdatedAt) {
		return u.s.UpdatedAt
	}
	return now
}

func (u *PickPackUnit) stamp(now time.Time) time.Time {
	at := u.clamp(now)
	u.s.UpdatedAt = at
	return at
}

func (u *PickPackUnit) requireOpen(op string) error {
	if u.s.Status.IsTerminal() {
		return domain.Errorf(domain.ErrInvalidStateTransition, op, "la unidad está en estado %s", u.s.Status)
	}
	return nil
}

func (u *PickPackUnit) openItem(op, itemID string) (*PickPackItem, error) {
	if err := u.requireOpen(op); err != nil {
		return nil, err
	}
	for _, it := range u.items {
		if it.s.ID == itemID {
			return it, nil
		}
	}
	return nil, domain.Errorf(domain.ErrNotFound, op, "ítem %s no pertenece a la unidad", itemID)
}

func (u *PickPackUnit) countItems(match func(*PickPackItem) bool) int {
	n := 0
	for _, it := range u.items {
		if match(it) {
			n++
		}
	}
	return n
}

func (u *PickPackUnit) appendNote(line string) {
	if u.s.Notes == "" {
		u.s.Notes = line
		return
	}
	u.s.Notes += "\n" + line
}
