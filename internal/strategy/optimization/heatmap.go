package optimization

import (
	"math"
	"sort"
)

// HeatmapCell is the mean score of the candidates sharing an (X, Y) pair.
type HeatmapCell struct {
	X     float64 `json:"x" yaml:"x"`
	Y     float64 `json:"y" yaml:"y"`
	Score float64 `json:"score" yaml:"score"`
	Count int     `json:"count" yaml:"count"`
}

// Heatmap projects candidate scores onto at most two parameters.
type Heatmap struct {
	XParam string        `json:"x_param" yaml:"x_param"`
	YParam string        `json:"y_param,omitempty" yaml:"y_param,omitempty"`
	Cells  []HeatmapCell `json:"cells" yaml:"cells"`
}

// BuildHeatmap groups candidates by two of the grid parameters. With more than
// two parameters it picks the two whose values correlate most strongly with
// the score; the rest are averaged out.
func BuildHeatmap(names []string, candidates []Candidate) Heatmap {
	if len(names) == 0 || len(candidates) == 0 {
		return Heatmap{}
	}
	axes := names
	if len(names) > 2 {
		axes = mostInfluential(names, candidates)
	}

	h := Heatmap{XParam: axes[0]}
	if len(axes) > 1 {
		h.YParam = axes[1]
	}

	type key struct{ x, y float64 }
	sums := make(map[key]*HeatmapCell)
	for _, c := range candidates {
		k := key{x: c.Values[h.XParam]}
		if h.YParam != "" {
			k.y = c.Values[h.YParam]
		}
		cell, ok := sums[k]
		if !ok {
			cell = &HeatmapCell{X: k.x, Y: k.y}
			sums[k] = cell
		}
		cell.Score += c.Score
		cell.Count++
	}

	h.Cells = make([]HeatmapCell, 0, len(sums))
	for _, cell := range sums {
		cell.Score /= float64(cell.Count)
		h.Cells = append(h.Cells, *cell)
	}
	sort.Slice(h.Cells, func(i, j int) bool {
		if h.Cells[i].X != h.Cells[j].X {
			return h.Cells[i].X < h.Cells[j].X
		}
		return h.Cells[i].Y < h.Cells[j].Y
	})
	return h
}

// mostInfluential returns the two names with the largest absolute Pearson
// correlation to the score, in declaration order on ties.
func mostInfluential(names []string, candidates []Candidate) []string {
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		scores[i] = c.Score
	}

	type ranked struct {
		name string
		r    float64
	}
	ranks := make([]ranked, len(names))
	for i, name := range names {
		values := make([]float64, len(candidates))
		for j, c := range candidates {
			values[j] = c.Values[name]
		}
		ranks[i] = ranked{name: name, r: math.Abs(pearson(values, scores))}
	}
	sort.SliceStable(ranks, func(i, j int) bool { return ranks[i].r > ranks[j].r })

	first, second := ranks[0].name, ranks[1].name
	// Keep declaration order on the axes.
	for _, n := range names {
		if n == second {
			return []string{second, first}
		}
		if n == first {
			break
		}
	}
	return []string{first, second}
}

// pearson returns the correlation of xs and ys, or 0 when either is constant.
func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	if n < 2 {
		return 0
	}
	var mx, my float64
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= n
	my /= n

	var cov, vx, vy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0
	}
	return cov / math.Sqrt(vx*vy)
}
