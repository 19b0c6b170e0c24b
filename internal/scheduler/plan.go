package scheduler

import (
	"fmt"
	"sort"

	"github.com/mhemmati/statuswatch/internal/domain"
)

// Plan orders checks into levels so that a check always runs strictly
// after the check it depends on. Level 0 holds the independent checks;
// level n+1 holds checks whose dependency sits at level n.
func Plan(defs []domain.CheckDefinition) ([][]domain.CheckDefinition, error) {
	byID := make(map[string]domain.CheckDefinition, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
	}

	depth := make(map[string]int, len(defs))
	var resolve func(id string, chain map[string]bool) (int, error)
	resolve = func(id string, chain map[string]bool) (int, error) {
		if d, ok := depth[id]; ok {
			return d, nil
		}
		def, ok := byID[id]
		if !ok {
			return 0, fmt.Errorf("check %q depends on unknown check", id)
		}
		if def.DependsOn == "" {
			depth[id] = 0
			return 0, nil
		}
		if chain[id] {
			return 0, fmt.Errorf("dependency cycle through check %q", id)
		}
		chain[id] = true
		parent, err := resolve(def.DependsOn, chain)
		if err != nil {
			return 0, err
		}
		delete(chain, id)
		depth[id] = parent + 1
		return parent + 1, nil
	}

	maxDepth := 0
	for _, d := range defs {
		n, err := resolve(d.ID, map[string]bool{})
		if err != nil {
			return nil, err
		}
		if n > maxDepth {
			maxDepth = n
		}
	}

	levels := make([][]domain.CheckDefinition, maxDepth+1)
	for _, d := range defs {
		levels[depth[d.ID]] = append(levels[depth[d.ID]], d)
	}
	for _, lvl := range levels {
		sort.Slice(lvl, func(i, j int) bool { return lvl[i].ID < lvl[j].ID })
	}
	return levels, nil
}
