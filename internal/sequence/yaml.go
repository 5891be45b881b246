package sequence

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ErrBadStatement is returned for statement entries that are not exactly one
// of constructor, method, value or set.
var ErrBadStatement = errors.New("invalid statement")

type yamlFile struct {
	Sequences []yamlSequence `yaml:"sequences"`
}

type yamlSequence struct {
	Name       string          `yaml:"name"`
	Statements []yamlStatement `yaml:"statements"`
}

type yamlStatement struct {
	Constructor *int     `yaml:"constructor,omitempty"`
	Method      *int     `yaml:"method,omitempty"`
	Call        string   `yaml:"call,omitempty"`
	Receiver    *int     `yaml:"receiver,omitempty"`
	Inputs      []int    `yaml:"inputs,omitempty"`
	External    string   `yaml:"external,omitempty"`
	Expected    *Value   `yaml:"expected,omitempty"`
	Value       *Value   `yaml:"value,omitempty"`
	Set         *yamlSet `yaml:"set,omitempty"`
}

type yamlSet struct {
	Array int `yaml:"array"`
	Index int `yaml:"index"`
	Value int `yaml:"value"`
}

// LoadYAML reads sequence specifications from a document of the form
//
//	sequences:
//	  - name: push-pop
//	    statements:
//	      - constructor: 0
//	      - value: {type: int, literal: 1}
//	      - {method: 0, receiver: 0, inputs: [1]}
//	      - {call: size, receiver: 0, expected: {literal: 1}}
func LoadYAML(r io.Reader) ([]*Specification, error) {
	var doc yamlFile

	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}

		return nil, fmt.Errorf("decode sequences: %w", err)
	}

	specs := make([]*Specification, 0, len(doc.Sequences))

	for i, ys := range doc.Sequences {
		name := ys.Name
		if name == "" {
			name = fmt.Sprintf("sequence-%d", i)
		}

		spec := &Specification{Name: name}

		for j, st := range ys.Statements {
			stmt, err := st.statement()
			if err != nil {
				return nil, fmt.Errorf("%s: statement %d: %w", name, j, err)
			}

			spec.Statements = append(spec.Statements, stmt)
		}

		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		specs = append(specs, spec)
	}

	return specs, nil
}

func (y yamlStatement) statement() (Statement, error) {
	kinds := 0

	for _, set := range []bool{y.Constructor != nil, y.Method != nil || y.Call != "" || y.External != "", y.Value != nil, y.Set != nil} {
		if set {
			kinds++
		}
	}

	if kinds != 1 {
		return nil, fmt.Errorf("%w: want exactly one of constructor, method, value, set", ErrBadStatement)
	}

	switch {
	case y.Constructor != nil:
		return &ConstructorCall{Constructor: *y.Constructor, Args: y.Inputs}, nil
	case y.Value != nil:
		return y.Value, nil
	case y.Set != nil:
		return &ArraySet{Array: y.Set.Array, Index: y.Set.Index, Value: y.Set.Value}, nil
	}

	call := &MethodCall{Method: -1, Name: y.Call, Receiver: -1, Args: y.Inputs, External: y.External, Expected: y.Expected}

	if y.Method != nil {
		call.Method = *y.Method
	}

	if y.Receiver != nil {
		call.Receiver = *y.Receiver
	}

	return call, nil
}
