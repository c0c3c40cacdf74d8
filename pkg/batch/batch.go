// Package batch runs files of expressions, optionally checking each result
// against an expected value.
//
// A batch file is YAML (or JSON), either a sequence of entries or a mapping
// with an "expressions" sequence:
//
//	- name: precedence
//	  expr: 2 + 3 * 4
//	  want: 14
//	- expr: 1 / 0
package batch

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/lemonberrylabs/calc/pkg/calc"
)

// Tolerance is the relative difference below which a result matches want.
const Tolerance = 1e-9

// Entry is one expression of a batch file.
type Entry struct {
	Name string   `yaml:"name"`
	Expr string   `yaml:"expr"`
	Want *float64 `yaml:"want,omitempty"`
}

// File is a parsed batch file.
type File struct {
	Entries []Entry
}

// Outcome is the result of running one entry.
type Outcome struct {
	Name   string   `yaml:"name"`
	Expr   string   `yaml:"expr"`
	Result *float64 `yaml:"result,omitempty"`
	Want   *float64 `yaml:"want,omitempty"`
	Error  string   `yaml:"error,omitempty"`
	OK     bool     `yaml:"ok"`
}

// Parse decodes and validates a batch document.
func Parse(source []byte) (*File, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(source, &root); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("empty batch file")
	}

	list := root.Content[0]
	if list.Kind == yaml.MappingNode {
		list = lookup(list, "expressions")
		if list == nil {
			return nil, fmt.Errorf("batch mapping must have an 'expressions' key")
		}
	}
	if list.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: batch must be a list of expressions", list.Line)
	}

	f := &File{Entries: make([]Entry, 0, len(list.Content))}
	for i, item := range list.Content {
		var e Entry
		switch item.Kind {
		case yaml.ScalarNode:
			e.Expr = item.Value
		case yaml.MappingNode:
			if err := item.Decode(&e); err != nil {
				return nil, fmt.Errorf("line %d: entry %d: %w", item.Line, i, err)
			}
		default:
			return nil, fmt.Errorf("line %d: entry %d must be a string or a mapping", item.Line, i)
		}
		if e.Expr == "" {
			return nil, fmt.Errorf("line %d: entry %d: 'expr' is required", item.Line, i)
		}
		if e.Name == "" {
			e.Name = fmt.Sprintf("#%d", i)
		}
		f.Entries = append(f.Entries, e)
	}
	return f, nil
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// Run evaluates every entry in order. strict rejects tokens left after an
// expression.
func Run(f *File, strict bool) []Outcome {
	eval := calc.Eval
	if strict {
		eval = calc.EvalAll
	}

	outcomes := make([]Outcome, len(f.Entries))
	for i, e := range f.Entries {
		out := Outcome{Name: e.Name, Expr: e.Expr, Want: e.Want}
		v, err := eval(e.Expr)
		switch {
		case err != nil:
			out.Error = err.Error()
		case e.Want != nil && !Matches(v, *e.Want):
			out.Result = &v
			out.Error = fmt.Sprintf("got %s, want %s", calc.FormatResult(v), calc.FormatResult(*e.Want))
		default:
			out.Result = &v
			out.OK = true
		}
		outcomes[i] = out
	}
	return outcomes
}

// Failed counts outcomes that are not OK.
func Failed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if !o.OK {
			n++
		}
	}
	return n
}

// Matches reports whether got equals want within Tolerance, relative to the
// larger magnitude.
func Matches(got, want float64) bool {
	if got == want {
		return true
	}
	if math.IsNaN(got) || math.IsNaN(want) {
		return math.IsNaN(got) && math.IsNaN(want)
	}
	if math.IsInf(got, 0) || math.IsInf(want, 0) {
		return false
	}
	diff := math.Abs(got - want)
	scale := math.Max(math.Abs(got), math.Abs(want))
	if scale < 1 {
		scale = 1
	}
	return diff <= Tolerance*scale
}

// Encode renders outcomes as a YAML document.
func Encode(outcomes []Outcome) ([]byte, error) {
	return yaml.Marshal(outcomes)
}
