package optimization

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"cryptoBacktester/internal/ports"
)

// GridFile is the on-disk layout of a parameter grid.
//
//	parameters:
//	  - {name: fast_period, min: 5, max: 20, step: 5, int: true}
//	constraints:
//	  - {type: less_than, params: [fast_period, slow_period]}
//	  - {type: weight_sum, limit: 1, params: [ma_weight, rsi_weight]}
type GridFile struct {
	Parameters  []ParameterRange `mapstructure:"parameters"`
	Constraints []ConstraintSpec `mapstructure:"constraints"`
}

// ConstraintSpec declares a constraint by type.
type ConstraintSpec struct {
	Type   string   `mapstructure:"type"`
	Params []string `mapstructure:"params"`
	Limit  float64  `mapstructure:"limit"`
}

// Build converts the declaration into a Constraint.
func (s ConstraintSpec) Build() (Constraint, error) {
	switch strings.ToLower(s.Type) {
	case "weight_sum":
		if len(s.Params) == 0 {
			return Constraint{}, fmt.Errorf("weight_sum constraint needs params: %w", ports.ErrInvalidParameterSet)
		}
		limit := s.Limit
		if limit == 0 {
			limit = 1
		}
		return WeightSumAtMost(limit, s.Params...), nil
	case "less_than":
		if len(s.Params) != 2 {
			return Constraint{}, fmt.Errorf("less_than constraint needs exactly two params: %w", ports.ErrInvalidParameterSet)
		}
		return LessThan(s.Params[0], s.Params[1]), nil
	}
	return Constraint{}, fmt.Errorf("unknown constraint type %q: %w", s.Type, ports.ErrInvalidParameterSet)
}

// LoadGrid reads a grid definition from a YAML, JSON or TOML file.
func LoadGrid(path string) (*Grid, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading grid file %s: %w", path, err)
	}

	var file GridFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("unmarshaling grid file %s: %w", path, err)
	}

	constraints := make([]Constraint, 0, len(file.Constraints))
	for _, decl := range file.Constraints {
		c, err := decl.Build()
		if err != nil {
			return nil, err
		}
		constraints = append(constraints, c)
	}
	return NewGrid(file.Parameters, constraints...)
}
