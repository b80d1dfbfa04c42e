// Package modifier defines weight modifiers, the atomic unit of weight change,
// and the registry that builds them from content declarations.
//
// How a modifier treats the previous weight decides how independent rule
// trees compose for the same entry:
//
//	weight "+n" "-n" "*n" "/n" "%n"   uses prev: trees stack
//	weight "=n"                        discards prev: last write wins
//	cap n / floor n                    uses prev: clamps what earlier trees produced
//	formula <lua>                      whatever the expression does with `weight`
package modifier

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/cory-johannsen/lootweight/internal/game/subject"
	"github.com/cory-johannsen/lootweight/internal/scripting"
)

// Fn maps a previous weight to a new weight.
//
// Implementations MUST be pure and safe for concurrent use. Callers clamp the
// result to >= 0.
type Fn interface {
	Apply(s subject.Subject, prev float64) float64
}

// Func adapts a plain function to Fn.
type Func func(s subject.Subject, prev float64) float64

// Apply implements Fn.
func (f Func) Apply(s subject.Subject, prev float64) float64 { return f(s, prev) }

// Constructor builds an Fn from the argument string of a declaration.
type Constructor interface {
	New(arg string) (Fn, error)
}

// ConstructorFunc adapts a plain function to Constructor.
type ConstructorFunc func(arg string) (Fn, error)

// New implements Constructor.
func (f ConstructorFunc) New(arg string) (Fn, error) { return f(arg) }

// DefaultType is the modifier type used when a declaration names none.
const DefaultType = "weight"

// Registry maps modifier type names to constructors.
//
// Registry is not safe for concurrent Register; populate it before loading content.
type Registry struct {
	ctors map[string]Constructor
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// DefaultRegistry returns a Registry holding weight, cap, floor and, when
// scripts is non-nil, formula.
func DefaultRegistry(scripts *scripting.Manager) *Registry {
	r := NewRegistry()
	_ = r.Register(DefaultType, ConstructorFunc(ParseArithmetic))
	_ = r.Register("cap", ConstructorFunc(func(arg string) (Fn, error) {
		n, err := parseOperand(arg)
		if err != nil {
			return nil, err
		}
		return Cap(n), nil
	}))
	_ = r.Register("floor", ConstructorFunc(func(arg string) (Fn, error) {
		n, err := parseOperand(arg)
		if err != nil {
			return nil, err
		}
		return Floor(n), nil
	}))
	if scripts != nil {
		_ = r.Register("formula", ConstructorFunc(func(arg string) (Fn, error) {
			return NewScript(scripts, arg)
		}))
	}
	return r
}

// Register adds c under typeName.
//
// Postcondition: returns error if typeName is empty or already registered.
func (r *Registry) Register(typeName string, c Constructor) error {
	if typeName == "" {
		return errors.New("modifier: Registry.Register: type name must not be empty")
	}
	if _, exists := r.ctors[typeName]; exists {
		return fmt.Errorf("modifier: Registry.Register: type %q already registered", typeName)
	}
	r.ctors[typeName] = c
	return nil
}

// Build constructs an Fn of the named type. An empty typeName means DefaultType.
func (r *Registry) Build(typeName, arg string) (Fn, error) {
	if typeName == "" {
		typeName = DefaultType
	}
	c, ok := r.ctors[typeName]
	if !ok {
		return nil, fmt.Errorf("modifier: unknown modifier type %q", typeName)
	}
	fn, err := c.New(arg)
	if err != nil {
		return nil, fmt.Errorf("modifier: building %q from %q: %w", typeName, arg, err)
	}
	return fn, nil
}

// Types returns the registered type names in sorted order.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Arithmetic applies Op with Operand to the previous weight.
type Arithmetic struct {
	Op      byte // one of + - * / % =
	Operand float64
}

// Apply implements Fn. Division or modulo by zero returns prev unchanged.
func (a Arithmetic) Apply(_ subject.Subject, prev float64) float64 {
	switch a.Op {
	case '+':
		return prev + a.Operand
	case '-':
		return prev - a.Operand
	case '*':
		return prev * a.Operand
	case '/':
		if a.Operand == 0 {
			return prev
		}
		return prev / a.Operand
	case '%':
		if a.Operand == 0 {
			return prev
		}
		return math.Mod(prev, a.Operand)
	case '=':
		return a.Operand
	}
	return prev
}

// String renders a as it is written in content, e.g. "*1.5".
func (a Arithmetic) String() string {
	return string(a.Op) + strconv.FormatFloat(a.Operand, 'g', -1, 64)
}

// ParseArithmetic parses "+n", "-n", "*n", "/n", "%n" or "=n". A bare number
// is shorthand for "+n".
func ParseArithmetic(arg string) (Fn, error) {
	s := strings.TrimSpace(arg)
	if s == "" {
		return nil, errors.New("empty weight operation")
	}
	op := s[0]
	switch op {
	case '+', '-', '*', '/', '%', '=':
		s = s[1:]
	default:
		op = '+'
	}
	n, err := parseOperand(s)
	if err != nil {
		return nil, err
	}
	return Arithmetic{Op: op, Operand: n}, nil
}

func parseOperand(s string) (float64, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid operand %q", s)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("operand %q must be finite", s)
	}
	return n, nil
}

// Cap limits the previous weight to at most n.
type Cap float64

// Apply implements Fn.
func (c Cap) Apply(_ subject.Subject, prev float64) float64 { return math.Min(prev, float64(c)) }

// Floor raises the previous weight to at least n.
type Floor float64

// Apply implements Fn.
func (f Floor) Apply(_ subject.Subject, prev float64) float64 { return math.Max(prev, float64(f)) }

// Script evaluates a Lua expression with the previous weight bound to the
// global `weight`. A runtime error leaves the weight unchanged.
type Script struct {
	scripts *scripting.Manager
	script  *scripting.Script
}

// NewScript compiles src into a Script modifier.
func NewScript(scripts *scripting.Manager, src string) (Script, error) {
	script, err := scripts.Compile(src)
	if err != nil {
		return Script{}, err
	}
	return Script{scripts: scripts, script: script}, nil
}

// Apply implements Fn.
func (m Script) Apply(s subject.Subject, prev float64) float64 {
	v, err := m.scripts.EvalNumber(m.script, s, map[string]float64{"weight": prev})
	if err != nil {
		return prev
	}
	return v
}
