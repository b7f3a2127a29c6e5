package h3mapper

import (
	"errors"
	"fmt"
	"sort"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/ppo-client/internal/core/model"
)

const (
	CellColumn = "h3Cell"
	latColumn  = "latitude"
	lngColumn  = "longitude"
)

type Mapper struct{}

func New() *Mapper { return &Mapper{} }

// CellForPoint returns the cell containing lat/lng at res.
func (m *Mapper) CellForPoint(lat, lng float64, res int) (string, error) {
	if err := validateRes(res); err != nil {
		return "", err
	}
	c, err := h3.LatLngToCell(h3.LatLng{Lat: lat, Lng: lng}, res)
	if err != nil {
		return "", fmt.Errorf("h3 cell: %w", err)
	}
	return c.String(), nil
}

// AnnotateCells appends an h3Cell column computed from each row's latitude and
// longitude. Rows without usable coordinates get an empty cell.
func (m *Mapper) AnnotateCells(t *model.Table, res int) error {
	if err := validateRes(res); err != nil {
		return err
	}
	if t.Empty() {
		return nil
	}
	if t.Index(latColumn) < 0 || t.Index(lngColumn) < 0 {
		return errors.New("table has no latitude/longitude columns")
	}

	cells := make([]string, t.Len())
	for i := range cells {
		lat, okLat := t.Float(i, latColumn)
		lng, okLng := t.Float(i, lngColumn)
		if !okLat || !okLng {
			continue
		}
		c, err := m.CellForPoint(lat, lng, res)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		cells[i] = c
	}
	return t.AddColumn(CellColumn, model.KindString, cells)
}

// CellCounts counts rows per cell of an annotated table. Rows with no cell
// are skipped.
func (m *Mapper) CellCounts(t *model.Table) (map[string]int, error) {
	out := map[string]int{}
	if t.Empty() {
		return out, nil
	}
	if t.Index(CellColumn) < 0 {
		return nil, fmt.Errorf("table has no %s column", CellColumn)
	}
	for i := 0; i < t.Len(); i++ {
		c, _ := t.Value(i, CellColumn)
		if c == "" {
			continue
		}
		out[c]++
	}
	return out, nil
}

// SortedCells returns the keys of counts in ascending order.
func SortedCells(counts map[string]int) []string {
	out := make([]string, 0, len(counts))
	for c := range counts {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// --- helpers ---

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}
