// Package formula provides the numeric values attached to entries and effect
// templates: constants, uniform ranges, dice rolls and Lua expressions.
package formula

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cory-johannsen/lootweight/internal/game/dice"
	"github.com/cory-johannsen/lootweight/internal/game/subject"
	"github.com/cory-johannsen/lootweight/internal/scripting"
)

// Formula evaluates to a number for a subject.
//
// Implementations MUST be safe for concurrent use.
type Formula interface {
	Evaluate(s subject.Subject) float64
}

// Constant is a Formula that ignores the subject.
type Constant float64

// Evaluate implements Formula.
func (c Constant) Evaluate(subject.Subject) float64 { return float64(c) }

// Range is uniform over [Min, Max].
type Range struct {
	Min, Max float64
	src      dice.Source
}

// Evaluate implements Formula.
func (r Range) Evaluate(subject.Subject) float64 {
	return r.Min + r.src.Float64()*(r.Max-r.Min)
}

// Dice rolls a dice expression.
type Dice struct {
	Expr dice.Expression
	src  dice.Source
}

// Evaluate implements Formula.
func (d Dice) Evaluate(subject.Subject) float64 {
	return float64(dice.Roll(d.Expr, d.src).Total())
}

// Script is a Lua numeric expression. A runtime error evaluates to 0.
type Script struct {
	scripts *scripting.Manager
	script  *scripting.Script
}

// Evaluate implements Formula.
func (f Script) Evaluate(s subject.Subject) float64 {
	v, err := f.scripts.EvalNumber(f.script, s, nil)
	if err != nil {
		return 0
	}
	return v
}

// LuaPrefix marks a formula string as a Lua expression.
const LuaPrefix = "lua:"

// Compiler turns content values into Formulas.
type Compiler struct {
	src     dice.Source
	scripts *scripting.Manager
}

// NewCompiler returns a Compiler whose random formulas draw from src.
//
// Precondition: src must be non-nil. scripts may be nil, which disables "lua:" formulas.
func NewCompiler(src dice.Source, scripts *scripting.Manager) *Compiler {
	return &Compiler{src: src, scripts: scripts}
}

// Compile parses raw as one of:
//
//	"3.5"            constant
//	"1~3"            uniform range [1, 3]
//	"2d6+1"          dice roll
//	"lua:<expr>"     Lua expression
//
// Postcondition: Returns a Formula or a descriptive error.
func (c *Compiler) Compile(raw string) (Formula, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("formula: empty value")
	}
	if expr, ok := strings.CutPrefix(s, LuaPrefix); ok {
		if c.scripts == nil {
			return nil, fmt.Errorf("formula: %q: scripting is disabled", raw)
		}
		script, err := c.scripts.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("formula: %w", err)
		}
		return Script{scripts: c.scripts, script: script}, nil
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return Constant(n), nil
	}
	if lo, hi, ok := strings.Cut(s, "~"); ok {
		low, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
		if err != nil {
			return nil, fmt.Errorf("formula: invalid range lower bound in %q: %w", raw, err)
		}
		high, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
		if err != nil {
			return nil, fmt.Errorf("formula: invalid range upper bound in %q: %w", raw, err)
		}
		if low > high {
			return nil, fmt.Errorf("formula: range %q has lower bound above upper bound", raw)
		}
		return Range{Min: low, Max: high, src: c.src}, nil
	}
	if expr, err := dice.Parse(s); err == nil {
		return Dice{Expr: expr, src: c.src}, nil
	}
	return nil, fmt.Errorf("formula: cannot parse %q", raw)
}

// CompileValue accepts a decoded content scalar: a number, or a string for Compile.
func (c *Compiler) CompileValue(v any) (Formula, error) {
	switch n := v.(type) {
	case int:
		return Constant(n), nil
	case int64:
		return Constant(n), nil
	case float64:
		return Constant(n), nil
	case string:
		return c.Compile(n)
	case nil:
		return nil, fmt.Errorf("formula: missing value")
	default:
		return nil, fmt.Errorf("formula: unsupported value of type %T", v)
	}
}

// Or returns f, or Constant(fallback) when f is nil.
func Or(f Formula, fallback float64) Formula {
	if f == nil {
		return Constant(fallback)
	}
	return f
}
