package main

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// stockRow una línea del archivo de carga inicial:
// bodega;nombre_bodega;producto;cantidad;minimo;maximo;costo_unitario;ubicacion
type stockRow struct {
	Line          int
	WarehouseCode string
	WarehouseName string
	ProductID     string
	Quantity      int64
	Minimum       int64
	Maximum       int64
	UnitCost      decimal.Decimal
	Location      string
}

var header = []string{"bodega", "nombre_bodega", "producto", "cantidad", "minimo", "maximo", "costo_unitario", "ubicacion"}

// readRows lee el CSV separado por ';'. Si el contenido no es UTF-8 se decodifica como ISO-8859-1,
// que es como lo exportan las hojas de cálculo locales.
func readRows(r io.Reader) ([]stockRow, error) {
	br := bufio.NewReader(r)
	peek, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("leer archivo: %w", err)
	}
	var src io.Reader = br
	if !validPrefix(peek, len(peek) == 4096) {
		src = transform.NewReader(br, charmap.ISO8859_1.NewDecoder())
	}

	cr := csv.NewReader(src)
	cr.Comma = ';'
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	first, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("archivo vacío")
	}
	if err != nil {
		return nil, fmt.Errorf("encabezado: %w", err)
	}
	if len(first) < len(header) || !strings.EqualFold(strings.TrimPrefix(strings.TrimSpace(first[0]), "\ufeff"), header[0]) {
		return nil, fmt.Errorf("encabezado esperado: %s", strings.Join(header, ";"))
	}

	var rows []stockRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("leer CSV: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		row, err := parseRow(line, rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRow(line int, rec []string) (stockRow, error) {
	if len(rec) < len(header) {
		return stockRow{}, fmt.Errorf("línea %d: se esperaban %d columnas, hay %d", line, len(header), len(rec))
	}
	field := func(i int) string { return strings.TrimSpace(rec[i]) }
	num := func(i int) (int64, error) {
		if field(i) == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(field(i), 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("línea %d: %s inválido %q", line, header[i], field(i))
		}
		return n, nil
	}

	row := stockRow{
		Line:          line,
		WarehouseCode: field(0),
		WarehouseName: field(1),
		ProductID:     field(2),
		Location:      field(7),
	}
	if row.WarehouseCode == "" || row.ProductID == "" {
		return stockRow{}, fmt.Errorf("línea %d: bodega y producto son requeridos", line)
	}
	if row.WarehouseName == "" {
		row.WarehouseName = row.WarehouseCode
	}
	var err error
	if row.Quantity, err = num(3); err != nil {
		return stockRow{}, err
	}
	if row.Minimum, err = num(4); err != nil {
		return stockRow{}, err
	}
	if row.Maximum, err = num(5); err != nil {
		return stockRow{}, err
	}
	// Costos con coma decimal: "1.250,50" -> 1250.50
	cost := strings.ReplaceAll(field(6), ".", "")
	cost = strings.ReplaceAll(cost, ",", ".")
	if cost == "" {
		cost = "0"
	}
	if row.UnitCost, err = decimal.NewFromString(cost); err != nil {
		return stockRow{}, fmt.Errorf("línea %d: costo_unitario inválido %q", line, field(6))
	}
	return row, nil
}

// validPrefix con truncated tolera una secuencia UTF-8 cortada al final del bloque leído.
func validPrefix(b []byte, truncated bool) bool {
	if !truncated {
		return utf8.Valid(b)
	}
	for i := 0; i < utf8.UTFMax && len(b) > 0; i++ {
		if utf8.Valid(b) {
			return true
		}
		b = b[:len(b)-1]
	}
	return utf8.Valid(b)
}
