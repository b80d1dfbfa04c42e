package condition

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/lootweight/internal/game/subject"
	"github.com/cory-johannsen/lootweight/internal/scripting"
)

// DefaultRegistry returns a Registry with the builtin requirement types:
//
//	tag   {tag: rain}                       subject has the tag
//	stat  {stat: level, min: 10, max: 20}   stat present and within [min, max]
//	var   {var: biome, values: [ocean]}     var present and equal to one of values
//	expr  {expr: "stat('level') > 3"}       Lua boolean expression
//
// expr is only registered when scripts is non-nil.
func DefaultRegistry(scripts *scripting.Manager) *Registry {
	r := NewRegistry()
	_ = r.Register("tag", FactoryFunc(newTag))
	_ = r.Register("stat", FactoryFunc(newStat))
	_ = r.Register("var", FactoryFunc(newVar))
	if scripts != nil {
		_ = r.Register("expr", FactoryFunc(func(p Params) (Requirement, error) {
			return newExpr(scripts, p)
		}))
	}
	return r
}

func newTag(p Params) (Requirement, error) {
	tag, err := p.str("tag")
	if err != nil {
		return nil, err
	}
	return Func(func(s subject.Subject) bool { return s.HasTag(tag) }), nil
}

// StatRange is satisfied when the named stat exists and lies within the
// optional inclusive bounds.
type StatRange struct {
	Stat   string
	Min    float64
	Max    float64
	HasMin bool
	HasMax bool
}

// Satisfied implements Requirement.
func (r StatRange) Satisfied(s subject.Subject) bool {
	v, ok := s.Stat(r.Stat)
	if !ok {
		return false
	}
	if r.HasMin && v < r.Min {
		return false
	}
	if r.HasMax && v > r.Max {
		return false
	}
	return true
}

func newStat(p Params) (Requirement, error) {
	name, err := p.str("stat")
	if err != nil {
		return nil, err
	}
	r := StatRange{Stat: name}
	if r.Min, r.HasMin, err = p.number("min"); err != nil {
		return nil, err
	}
	if r.Max, r.HasMax, err = p.number("max"); err != nil {
		return nil, err
	}
	if r.HasMin && r.HasMax && r.Min > r.Max {
		return nil, fmt.Errorf("min (%g) must be <= max (%g)", r.Min, r.Max)
	}
	return r, nil
}

func newVar(p Params) (Requirement, error) {
	name, err := p.str("var")
	if err != nil {
		return nil, err
	}
	values, err := p.strings("values")
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errors.New(`"values" must not be empty`)
	}
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[v] = struct{}{}
	}
	return Func(func(s subject.Subject) bool {
		v, ok := s.Var(name)
		if !ok {
			return false
		}
		_, ok = allowed[v]
		return ok
	}), nil
}

// Expr is a Lua boolean expression. A runtime error counts as unsatisfied.
type Expr struct {
	scripts *scripting.Manager
	script  *scripting.Script
}

// Satisfied implements Requirement.
func (e Expr) Satisfied(s subject.Subject) bool {
	ok, err := e.scripts.EvalBool(e.script, s, nil)
	return err == nil && ok
}

func newExpr(scripts *scripting.Manager, p Params) (Requirement, error) {
	src, err := p.str("expr")
	if err != nil {
		return nil, err
	}
	script, err := scripts.Compile(src)
	if err != nil {
		return nil, err
	}
	return Expr{scripts: scripts, script: script}, nil
}
