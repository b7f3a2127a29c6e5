// Package mapper attaches H3 cell ids to downloaded observations.
package mapper

import (
	"github.com/mohammed-shakir/ppo-client/internal/core/model"
)

type Interface interface {
	AnnotateCells(t *model.Table, res int) error
	CellCounts(t *model.Table) (map[string]int, error)
}
