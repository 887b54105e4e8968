package speaker

import (
	"fmt"
	"math"
	"sort"

	"github.com/teslashibe/go-venue-acoustics/pkg/acoustics"
	"github.com/teslashibe/go-venue-acoustics/pkg/vecmath"
	"github.com/teslashibe/go-venue-acoustics/pkg/venue"
)

// Grid is a row-major coverage map over the venue floor. Row r, column c
// covers the cell whose center is ((c+0.5)·Resolution, (r+0.5)·Resolution),
// clamped inside the venue.
type Grid struct {
	Resolution float64     `json:"resolution"`
	Cols       int         `json:"cols"`
	Rows       int         `json:"rows"`
	Height     float64     `json:"height"`
	Values     [][]float64 `json:"values"`
}

// Cell is one grid location.
type Cell struct {
	Row   int     `json:"row"`
	Col   int     `json:"col"`
	Value float64 `json:"value"`
}

// Index returns the row-major grid index.
func (g Grid) Index(row, col int) int {
	return row*g.Cols + col
}

// Center returns the cell center on the floor plane.
func (g Grid) Center(row, col int, d venue.Dimensions) (x, y float64) {
	x = math.Min((float64(col)+0.5)*g.Resolution, d.Width)
	y = math.Min((float64(row)+0.5)*g.Resolution, d.Depth)
	return x, y
}

// CoverageMap evaluates the field at every cell center at listener height
// and the reference frequency.
func (o *Optimizer) CoverageMap(v *venue.Venue, p *acoustics.Profile, resolution float64) (Grid, error) {
	if resolution <= 0 || math.IsNaN(resolution) {
		return Grid{}, fmt.Errorf("%w: resolution %v", ErrValidation, resolution)
	}
	d := v.Dimensions()
	g := Grid{
		Resolution: resolution,
		Cols:       int(math.Ceil(d.Width / resolution)),
		Rows:       int(math.Ceil(d.Depth / resolution)),
		Height:     math.Min(o.Config.ListenerHeight, d.Height),
	}
	g.Values = make([][]float64, g.Rows)
	for r := 0; r < g.Rows; r++ {
		g.Values[r] = make([]float64, g.Cols)
		for c := 0; c < g.Cols; c++ {
			x, y := g.Center(r, c, d)
			res, err := o.Evaluator.Query(vecmath.V(x, y, g.Height), o.Config.ReferenceFrequency, v, p, o.Crowd, o.Env)
			if err != nil {
				return Grid{}, err
			}
			g.Values[r][c] = res.Intensity
		}
	}
	return g, nil
}

// LocalMaxima returns the cells whose value is >= every 8-connected
// neighbour and strictly greater than every neighbour that precedes it in
// row-major order, so a plateau yields only its lowest-index cell. Results
// are ordered by value descending, ties by lowest grid index.
func LocalMaxima(g Grid) []Cell {
	var out []Cell
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			if isLocalMax(g, r, c) {
				out = append(out, Cell{Row: r, Col: c, Value: g.Values[r][c]})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return g.Index(out[i].Row, out[i].Col) < g.Index(out[j].Row, out[j].Col)
	})
	return out
}

func isLocalMax(g Grid, r, c int) bool {
	v := g.Values[r][c]
	self := g.Index(r, c)
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			nr, nc := r+dr, c+dc
			if nr < 0 || nr >= g.Rows || nc < 0 || nc >= g.Cols {
				continue
			}
			n := g.Values[nr][nc]
			if n > v {
				return false
			}
			if n == v && g.Index(nr, nc) < self {
				return false
			}
		}
	}
	return true
}
