package optimization

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoBacktester/internal/ports"
)

func collect(g *Grid) ([]map[string]float64, int) {
	it := g.Iterator()
	var out []map[string]float64
	for {
		c, ok := it.Next()
		if !ok {
			return out, it.Pruned()
		}
		out = append(out, c.Values)
	}
}

func TestParameterRange_Values(t *testing.T) {
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, ParameterRange{Name: "w", Min: 0.1, Max: 0.3, Step: 0.1}.Values())
	assert.Equal(t, []float64{5, 10, 15, 20}, ParameterRange{Name: "p", Min: 5, Max: 22, Step: 5, IsInt: true}.Values())
	assert.Equal(t, []float64{2}, ParameterRange{Name: "p", Min: 2, Max: 2, Step: 1}.Values())
}

func TestNewGrid_Validation(t *testing.T) {
	tests := []struct {
		name   string
		ranges []ParameterRange
	}{
		{"empty grid", nil},
		{"missing name", []ParameterRange{{Min: 1, Max: 2, Step: 1}}},
		{"zero step", []ParameterRange{{Name: "a", Min: 1, Max: 2}}},
		{"min above max", []ParameterRange{{Name: "a", Min: 3, Max: 2, Step: 1}}},
		{"duplicate", []ParameterRange{{Name: "a", Min: 1, Max: 2, Step: 1}, {Name: "a", Min: 1, Max: 2, Step: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGrid(tt.ranges)
			assert.ErrorIs(t, err, ports.ErrInvalidParameterSet)
		})
	}

	_, err := NewGrid([]ParameterRange{{Name: "a", Min: 1, Max: 2, Step: 1}}, Constraint{Name: "broken"})
	assert.ErrorIs(t, err, ports.ErrInvalidParameterSet)
}

func TestIterator_EnumerationOrder(t *testing.T) {
	g, err := NewGrid([]ParameterRange{
		{Name: "a", Min: 1, Max: 2, Step: 1, IsInt: true},
		{Name: "b", Min: 0.1, Max: 0.3, Step: 0.1},
	})
	require.NoError(t, err)
	assert.Equal(t, 6, g.Size())
	assert.Equal(t, []string{"a", "b"}, g.Names())

	got, pruned := collect(g)
	assert.Zero(t, pruned)
	assert.Equal(t, []map[string]float64{
		{"a": 1, "b": 0.1}, {"a": 1, "b": 0.2}, {"a": 1, "b": 0.3},
		{"a": 2, "b": 0.1}, {"a": 2, "b": 0.2}, {"a": 2, "b": 0.3},
	}, got)
}

func TestIterator_PrunesBeforeYielding(t *testing.T) {
	g, err := NewGrid([]ParameterRange{
		{Name: "fast", Min: 5, Max: 15, Step: 5, IsInt: true},
		{Name: "slow", Min: 10, Max: 20, Step: 5, IsInt: true},
	}, LessThan("fast", "slow"))
	require.NoError(t, err)

	got, pruned := collect(g)
	assert.Equal(t, 3, pruned)
	require.Len(t, got, 6)
	for _, v := range got {
		assert.Less(t, v["fast"], v["slow"])
	}

	it := g.Iterator()
	first, _ := it.Next()
	second, _ := it.Next()
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, 1, second.Index)
}

func TestWeightSumAtMost(t *testing.T) {
	g, err := NewGrid([]ParameterRange{
		{Name: "w1", Min: 0, Max: 1, Step: 0.1},
		{Name: "w2", Min: 0, Max: 1, Step: 0.1},
	}, WeightSumAtMost(1, "w1", "w2"))
	require.NoError(t, err)

	got, pruned := collect(g)
	// 66 pairs on or under the diagonal of an 11x11 grid
	assert.Len(t, got, 66)
	assert.Equal(t, 121-66, pruned)
	for _, v := range got {
		assert.LessOrEqual(t, v["w1"]+v["w2"], 1+1e-9)
	}

	c := WeightSumAtMost(0.5, "x", "missing")
	assert.True(t, c.Allow(map[string]float64{"x": 0.5}))
	assert.False(t, c.Allow(map[string]float64{"x": 0.6}))
}

func TestLoadGrid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.yaml")
	content := `parameters:
  - name: fast_period
    min: 5
    max: 15
    step: 5
    int: true
  - name: slow_period
    min: 10
    max: 20
    step: 10
    int: true
constraints:
  - type: less_than
    params: [fast_period, slow_period]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	g, err := LoadGrid(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"fast_period", "slow_period"}, g.Names())

	got, pruned := collect(g)
	assert.Equal(t, 2, pruned)
	assert.Len(t, got, 4)
}

func TestLoadGrid_Errors(t *testing.T) {
	_, err := LoadGrid(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "grid.json")
	content := `{"parameters":[{"name":"a","min":1,"max":2,"step":1}],"constraints":[{"type":"bogus"}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	_, err = LoadGrid(path)
	assert.ErrorIs(t, err, ports.ErrInvalidParameterSet)
}

func TestConstraintSpec_Build(t *testing.T) {
	c, err := ConstraintSpec{Type: "weight_sum", Params: []string{"a", "b"}}.Build()
	require.NoError(t, err)
	assert.True(t, c.Allow(map[string]float64{"a": 0.5, "b": 0.5}))
	assert.False(t, c.Allow(map[string]float64{"a": 0.6, "b": 0.5}))

	_, err = ConstraintSpec{Type: "less_than", Params: []string{"a"}}.Build()
	assert.ErrorIs(t, err, ports.ErrInvalidParameterSet)
	_, err = ConstraintSpec{Type: "weight_sum"}.Build()
	assert.ErrorIs(t, err, ports.ErrInvalidParameterSet)
}
