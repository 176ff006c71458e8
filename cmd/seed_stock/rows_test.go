package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

const sample = `bodega;nombre_bodega;producto;cantidad;minimo;maximo;costo_unitario;ubicacion
MAIN;Bodega Principal;P-1;10;2;50;1.250,50;A-01
MAIN;;P-2;;;;;

SEC;Bodega Sur;P-1;5;0;0;3,5;B-02
`

func TestReadRows_UTF8(t *testing.T) {
	rows, err := readRows(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, stockRow{
		Line: 2, WarehouseCode: "MAIN", WarehouseName: "Bodega Principal", ProductID: "P-1",
		Quantity: 10, Minimum: 2, Maximum: 50, UnitCost: decimal.RequireFromString("1250.50"), Location: "A-01",
	}, rows[0])
	assert.Equal(t, "MAIN", rows[1].WarehouseName, "sin nombre se usa el código")
	assert.True(t, rows[1].UnitCost.IsZero())
	assert.Equal(t, int64(0), rows[1].Quantity)
	assert.Equal(t, "3.5", rows[2].UnitCost.String())
}

func TestReadRows_Latin1(t *testing.T) {
	src := "bodega;nombre_bodega;producto;cantidad;minimo;maximo;costo_unitario;ubicacion\nMED;Bodega Medellín;P-9;1;0;0;0;Pasillo Ñ\n"
	enc, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(src))
	require.NoError(t, err)

	rows, err := readRows(bytes.NewReader(enc))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Bodega Medellín", rows[0].WarehouseName)
	assert.Equal(t, "Pasillo Ñ", rows[0].Location)
}

func TestReadRows_Errores(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"vacío", "", "archivo vacío"},
		{"encabezado", "a;b;c\n", "encabezado esperado"},
		{"cantidad negativa", "bodega;nombre_bodega;producto;cantidad;minimo;maximo;costo_unitario;ubicacion\nM;;P;-1;0;0;0;\n", "cantidad inválido"},
		{"sin producto", "bodega;nombre_bodega;producto;cantidad;minimo;maximo;costo_unitario;ubicacion\nM;;;1;0;0;0;\n", "requeridos"},
		{"columnas", "bodega;nombre_bodega;producto;cantidad;minimo;maximo;costo_unitario;ubicacion\nM;X\n", "columnas"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readRows(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
