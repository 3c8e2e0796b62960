package modsynth

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

type (
	// Value is a parameter value: a number, or the name of a choice for
	// enumerated parameters such as waveforms. The zero Value is the number
	// 0.
	Value struct {
		Number float64
		Enum   string
	}

	// ParamChange sets one parameter. A partial parameter update is a list
	// of ParamChanges.
	ParamChange struct {
		Name  string
		Value Value
	}
)

func Number(f float64) Value { return Value{Number: f} }
func Enum(s string) Value    { return Value{Enum: s} }

// Set returns a change of a numeric parameter.
func Set(name string, v float64) ParamChange {
	return ParamChange{Name: name, Value: Number(v)}
}

// SetEnum returns a change of an enumerated parameter.
func SetEnum(name, choice string) ParamChange {
	return ParamChange{Name: name, Value: Enum(choice)}
}

func (v Value) IsEnum() bool { return v.Enum != "" }

func (v Value) String() string {
	if v.IsEnum() {
		return v.Enum
	}
	return strconv.FormatFloat(v.Number, 'g', -1, 64)
}

func (v Value) MarshalYAML() (interface{}, error) {
	if v.IsEnum() {
		return v.Enum, nil
	}
	return v.Number, nil
}

func (v *Value) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: parameter value must be a scalar", n.Line)
	}
	switch n.ShortTag() {
	case "!!int", "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return err
		}
		*v = Number(f)
	default:
		*v = Enum(n.Value)
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsEnum() {
		return json.Marshal(v.Enum)
	}
	return json.Marshal(v.Number)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*v = Number(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("parameter value must be a number or a string: %w", err)
	}
	*v = Enum(s)
	return nil
}
