// Package pdf genera la hoja de empaque (packing slip) de una unidad de pick-pack.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: HOJA DE EMPAQUE       │  N° empaque + estado        │
//	│  ORDEN / BODEGA / fechas                                     │
//	│  TABLA: Ítem | Producto | Cant. | Ubicación | Alist. | Emp.  │
//	│  PAQUETE: peso, dimensiones, bultos                          │
//	│  QR del número de empaque + notas                            │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/stockflow/internal/application/fulfillment"
	"github.com/jhoicas/stockflow/internal/domain/entity"
)

var _ fulfillment.PackingSlipRenderer = (*PackingSlipRenderer)(nil)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

// PackingSlipRenderer implementa fulfillment.PackingSlipRenderer con Maroto v2.
type PackingSlipRenderer struct {
	company string
}

// NewPackingSlipRenderer company se imprime como autor del documento.
func NewPackingSlipRenderer(company string) *PackingSlipRenderer {
	return &PackingSlipRenderer{company: company}
}

// Render genera el PDF y devuelve sus bytes.
func (g *PackingSlipRenderer) Render(s entity.PickPackState) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Hoja de empaque "+s.PackNumber, true).
		WithAuthor(g.company, true).
		Build()

	m := maroto.New(cfg)
	m.AddRows(headerRow(s))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(orderRow(s))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(tableHeaderRow())
	m.AddRows(itemRows(s.Items)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(packageRow(s))
	m.AddRows(line.NewRow(3))
	m.AddRows(footerRow(s))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar hoja de empaque: %w", err)
	}
	return doc.GetBytes(), nil
}

func headerRow(s entity.PickPackState) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New("HOJA DE EMPAQUE", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Creada: "+s.CreatedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(s.PackNumber, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 1,
			}),
			text.New("Estado: "+string(s.Status), props.Text{
				Size: 8, Align: align.Right, Top: 9, Color: colorGray,
			}),
		),
	)
}

func orderRow(s entity.PickPackState) core.Row {
	return row.New(14).Add(
		col.New(12).Add(
			text.New(fmt.Sprintf("Orden: %s   |   Bodega: %s", s.OrderID, s.WarehouseID), props.Text{
				Style: fontstyle.Bold, Size: 9, Top: 1,
			}),
			text.New(fmt.Sprintf("Alistado: %s (%s)   |   Empacado: %s (%s)   |   Despachado: %s",
				formatTime(s.PickedAt), nonEmpty(s.PickedByUserID, "-"),
				formatTime(s.PackedAt), nonEmpty(s.PackedByUserID, "-"),
				formatTime(s.ShippedAt),
			), props.Text{Size: 8, Top: 8, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Ítem", 2, align.Left),
		h("Producto", 4, align.Left),
		h("Cant.", 1, align.Center),
		h("Ubicación", 3, align.Left),
		h("Alist.", 1, align.Center),
		h("Emp.", 1, align.Center),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

func itemRows(items []entity.PickPackItemState) []core.Row {
	result := make([]core.Row, 0, len(items))
	for _, it := range items {
		result = append(result, row.New(7).Add(
			col.New(2).Add(text.New(it.OrderItemID, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(4).Add(text.New(it.ProductID, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(1).Add(text.New(fmt.Sprint(it.Quantity), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(3).Add(text.New(nonEmpty(it.Location, "-"), props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(1).Add(text.New(check(it.IsPicked), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(1).Add(text.New(check(it.IsPacked), props.Text{Size: 8, Align: align.Center, Top: 1})),
		))
	}
	if len(result) == 0 {
		result = append(result, row.New(7).Add(col.New(12).Add(
			text.New("Sin ítems", props.Text{Size: 8, Align: align.Center, Top: 1, Color: colorGray}),
		)))
	}
	return result
}

func packageRow(s entity.PickPackState) core.Row {
	label := func(v string) core.Component {
		return text.New(v, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	value := func(v string) core.Component {
		return text.New(v, props.Text{Size: 9, Align: align.Left, Left: 1})
	}
	return row.New(18).Add(
		col.New(6),
		col.New(3).Add(label("Peso (kg):"), label("Dimensiones:"), label("Bultos:")),
		col.New(3).Add(
			value(s.Weight.StringFixed(3)),
			value(nonEmpty(s.Dimensions, "-")),
			value(fmt.Sprint(s.PackageCount)),
		),
	)
}

// footerRow QR con el número de empaque para escaneo en despacho, y notas.
func footerRow(s entity.PickPackState) core.Row {
	return row.New(45).Add(
		col.New(4).Add(code.NewQr(s.PackNumber, props.Rect{Percent: 95, Center: true})),
		col.New(8).Add(
			text.New("Notas", props.Text{Style: fontstyle.Bold, Size: 8, Top: 2, Left: 3, Color: colorPrimary}),
			text.New(nonEmpty(s.Notes, "-"), props.Text{Size: 8, Top: 8, Left: 3, Color: colorGray}),
		),
	)
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("02/01/2006 15:04")
}

func check(b bool) string {
	if b {
		return "X"
	}
	return ""
}
