package solver

import (
	"context"
	"fmt"

	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/model"
)

const (
	// weightScale converts [0,1] scores to fixed-point integers so reduced
	// cost arithmetic stays exact and platform independent.
	weightScale = int64(1_000_000_000_000)

	// exitCost prices the private fallback seat every row holds. A real
	// edge costs exitCost-(w+1), so any scored seat beats sitting out.
	exitCost = 2 * weightScale

	// infCost marks edges the search must never traverse.
	infCost = int64(1) << 60

	// edgeForbidden marks (candidate, slot) pairs without a usable edge.
	edgeForbidden = int64(-1)
)

// seat is one unit of slot capacity. Reserved seats carry the category they
// are restricted to; open seats carry CategoryNone.
type seat struct {
	slot int
	cat  model.Category
}

// problem is one matching instance: candidate rows against expanded seats
// plus one private exit seat per row. Exit seats are indexed in reverse row
// order; together with the lowest-column rule in match this sends the
// later-submitted row to its exit whenever scores tie.
type problem struct {
	weights [][]int64 // candidate x slot, edgeForbidden where no edge
	rowCand []int     // local row -> candidate index
	rowCat  []model.Category
	seats   []seat
}

func (p *problem) rows() int { return len(p.rowCand) }

func (p *problem) cols() int { return len(p.seats) + len(p.rowCand) }

func (p *problem) exitCol(row int) int {
	return len(p.seats) + (len(p.rowCand) - 1 - row)
}

func (p *problem) cost(row, col int) int64 {
	if col >= len(p.seats) {
		if col == p.exitCol(row) {
			return exitCost
		}
		return infCost
	}
	st := p.seats[col]
	if st.cat != model.CategoryNone && p.rowCat[row] != st.cat {
		return infCost
	}
	w := p.weights[p.rowCand[row]][st.slot]
	if w < 0 {
		return infCost
	}
	return exitCost - (w + 1)
}

// match assigns every row a column by successive shortest augmenting paths
// over reduced costs (Jonker-Volgenant family). Among equal-length paths the
// lowest column index wins, which pins the outcome for tied weights. The
// returned slice maps each row to its column; exit columns mean unseated.
func (p *problem) match(ctx context.Context) ([]int, error) {
	rows, cols := p.rows(), p.cols()
	assigned := make([]int, rows)
	for i := range assigned {
		assigned[i] = -1
	}
	if rows == 0 {
		return assigned, nil
	}

	u := make([]int64, rows)
	v := make([]int64, cols+1)
	rowAt := make([]int, cols+1) // column -> occupying row, -1 free
	for j := range rowAt {
		rowAt[j] = -1
	}
	minv := make([]int64, cols+1)
	used := make([]bool, cols+1)
	way := make([]int, cols+1)

	for i := 0; i < rows; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("matching cancelled: %w", err)
		}

		for j := 0; j <= cols; j++ {
			minv[j] = infCost
			used[j] = false
			way[j] = cols
		}

		// The sentinel column at index cols hosts the row being placed.
		rowAt[cols] = i
		j0 := cols
		for rowAt[j0] != -1 {
			used[j0] = true
			i0 := rowAt[j0]
			delta := infCost
			j1 := -1
			for j := 0; j < cols; j++ {
				if used[j] {
					continue
				}
				if c := p.cost(i0, j); c < infCost {
					if cur := c - u[i0] - v[j]; cur < minv[j] {
						minv[j] = cur
						way[j] = j0
					}
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			if j1 < 0 {
				return nil, errNoPath
			}
			for j := 0; j <= cols; j++ {
				if used[j] {
					u[rowAt[j]] += delta
					v[j] -= delta
				} else if minv[j] < infCost {
					minv[j] -= delta
				}
			}
			j0 = j1
		}

		// Walk the alternating path back to the sentinel.
		for j0 != cols {
			j1 := way[j0]
			rowAt[j0] = rowAt[j1]
			j0 = j1
		}
	}

	for j := 0; j < cols; j++ {
		if rowAt[j] >= 0 {
			assigned[rowAt[j]] = j
		}
	}
	return assigned, nil
}
