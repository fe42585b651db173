package optimization

import (
	"fmt"
	"math"
	"strings"

	"cryptoBacktester/internal/ports"
)

// ParameterRange defines a range for a parameter to optimize
type ParameterRange struct {
	Name  string  `mapstructure:"name" json:"name" yaml:"name"`
	Min   float64 `mapstructure:"min" json:"min" yaml:"min"`
	Max   float64 `mapstructure:"max" json:"max" yaml:"max"`
	Step  float64 `mapstructure:"step" json:"step" yaml:"step"`
	IsInt bool    `mapstructure:"int" json:"int" yaml:"int"`
}

// count returns how many values the range produces.
func (r ParameterRange) count() int {
	return int(math.Floor((r.Max-r.Min)/r.Step+1e-9)) + 1
}

// value returns the k-th value of the range. Values are computed from the
// index so no rounding error accumulates across steps.
func (r ParameterRange) value(k int) float64 {
	v := r.Min + float64(k)*r.Step
	if r.IsInt {
		return math.Round(v)
	}
	return math.Round(v*1e10) / 1e10
}

// Values lists every value of the range in ascending order.
func (r ParameterRange) Values() []float64 {
	out := make([]float64, r.count())
	for k := range out {
		out[k] = r.value(k)
	}
	return out
}

// Constraint rejects parameter combinations before they are backtested.
type Constraint struct {
	Name  string
	Allow func(values map[string]float64) bool
}

// WeightSumAtMost allows combinations whose named values sum to at most limit.
// Names missing from a combination count as zero.
func WeightSumAtMost(limit float64, names ...string) Constraint {
	return Constraint{
		Name: fmt.Sprintf("sum(%s) <= %g", strings.Join(names, ","), limit),
		Allow: func(values map[string]float64) bool {
			sum := 0.0
			for _, n := range names {
				sum += values[n]
			}
			return sum <= limit+1e-9
		},
	}
}

// LessThan allows combinations where a < b. It passes when either is absent.
func LessThan(a, b string) Constraint {
	return Constraint{
		Name: a + " < " + b,
		Allow: func(values map[string]float64) bool {
			va, okA := values[a]
			vb, okB := values[b]
			return !okA || !okB || va < vb
		},
	}
}

// Grid is a discretized parameter space with its constraints.
type Grid struct {
	ranges      []ParameterRange
	constraints []Constraint
}

// NewGrid validates the ranges. The declaration order fixes the enumeration
// order: the last range varies fastest.
func NewGrid(ranges []ParameterRange, constraints ...Constraint) (*Grid, error) {
	if len(ranges) == 0 {
		return nil, fmt.Errorf("grid has no parameters: %w", ports.ErrInvalidParameterSet)
	}
	var errs []string
	seen := make(map[string]bool, len(ranges))
	for _, r := range ranges {
		switch {
		case r.Name == "":
			errs = append(errs, "parameter name is required")
		case seen[r.Name]:
			errs = append(errs, fmt.Sprintf("duplicate parameter %q", r.Name))
		case r.Step <= 0:
			errs = append(errs, fmt.Sprintf("%s: step must be positive", r.Name))
		case r.Min > r.Max:
			errs = append(errs, fmt.Sprintf("%s: min %g exceeds max %g", r.Name, r.Min, r.Max))
		}
		seen[r.Name] = true
	}
	for _, c := range constraints {
		if c.Allow == nil {
			errs = append(errs, fmt.Sprintf("constraint %q has no predicate", c.Name))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("grid: %s: %w", strings.Join(errs, "; "), ports.ErrInvalidParameterSet)
	}
	return &Grid{
		ranges:      append([]ParameterRange(nil), ranges...),
		constraints: append([]Constraint(nil), constraints...),
	}, nil
}

// Names returns the parameter names in declaration order.
func (g *Grid) Names() []string {
	names := make([]string, len(g.ranges))
	for i, r := range g.ranges {
		names[i] = r.Name
	}
	return names
}

// Size returns the size of the full Cartesian product, before pruning.
func (g *Grid) Size() int {
	size := 1
	for _, r := range g.ranges {
		size *= r.count()
	}
	return size
}

// Iterator starts a new enumeration of the grid.
func (g *Grid) Iterator() *Iterator {
	return &Iterator{grid: g, indices: make([]int, len(g.ranges))}
}

// Combination is one point of the grid.
type Combination struct {
	Index  int // Position among the combinations that passed the constraints
	Values map[string]float64
}

// Iterator walks the grid like an odometer and skips combinations that
// violate a constraint without yielding them.
type Iterator struct {
	grid    *Grid
	indices []int
	done    bool
	yielded int
	pruned  int
}

// Next returns the next allowed combination, or false once exhausted.
func (it *Iterator) Next() (Combination, bool) {
	for !it.done {
		values := make(map[string]float64, len(it.indices))
		for i, r := range it.grid.ranges {
			values[r.Name] = r.value(it.indices[i])
		}
		it.advance()

		if !it.grid.allows(values) {
			it.pruned++
			continue
		}
		c := Combination{Index: it.yielded, Values: values}
		it.yielded++
		return c, true
	}
	return Combination{}, false
}

// Pruned returns how many combinations the constraints have rejected so far.
func (it *Iterator) Pruned() int {
	return it.pruned
}

func (it *Iterator) advance() {
	for i := len(it.indices) - 1; i >= 0; i-- {
		it.indices[i]++
		if it.indices[i] < it.grid.ranges[i].count() {
			return
		}
		it.indices[i] = 0
	}
	it.done = true
}

func (g *Grid) allows(values map[string]float64) bool {
	for _, c := range g.constraints {
		if !c.Allow(values) {
			return false
		}
	}
	return true
}
