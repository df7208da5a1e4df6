package content

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Condition gates effects, choices, events and arc stages. Authored either as
// a bare expression string or as a boolean combinator mapping with all/any/not
// keys. A nil or zero condition is always true.
type Condition struct {
	Expr string
	All  []Condition
	Any  []Condition
	Not  *Condition
}

// IsZero reports whether the condition is the vacuous "always".
func (c *Condition) IsZero() bool {
	return c == nil || (c.Expr == "" && len(c.All) == 0 && len(c.Any) == 0 && c.Not == nil)
}

func (c *Condition) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			*c = Condition{}
			return nil
		}
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		if s == "always" {
			s = ""
		}
		*c = Condition{Expr: s}
		return nil
	case yaml.MappingNode:
		var aux struct {
			All []Condition `yaml:"all"`
			Any []Condition `yaml:"any"`
			Not *Condition  `yaml:"not"`
		}
		if err := value.Decode(&aux); err != nil {
			return err
		}
		*c = Condition{All: aux.All, Any: aux.Any, Not: aux.Not}
		return nil
	default:
		return fmt.Errorf("condition must be a string or a mapping, got %v", value.Kind)
	}
}

func (c Condition) MarshalYAML() (any, error) {
	switch {
	case len(c.All) > 0 || len(c.Any) > 0 || c.Not != nil:
		out := map[string]any{}
		if len(c.All) > 0 {
			out["all"] = c.All
		}
		if len(c.Any) > 0 {
			out["any"] = c.Any
		}
		if c.Not != nil {
			out["not"] = c.Not
		}
		return out, nil
	default:
		return c.Expr, nil
	}
}
