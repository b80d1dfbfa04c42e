package scripting

import (
	"fmt"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"go.uber.org/zap"

	"github.com/cory-johannsen/lootweight/internal/game/subject"
)

// Script is a compiled Lua expression or chunk.
//
// Invariant: a Script is immutable and may be evaluated concurrently.
type Script struct {
	Source string
	proto  *lua.FunctionProto
}

// Manager compiles and evaluates Scripts on a pool of sandboxed states.
//
// Manager is safe for concurrent use. Each evaluation takes a state from the
// pool (allocating one when the pool is empty), so evaluations never wait on
// each other.
type Manager struct {
	pool      sync.Pool
	instLimit int
	logger    *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: logger must be non-nil; instLimit <= 0 uses DefaultInstructionLimit.
func NewManager(instLimit int, logger *zap.Logger) *Manager {
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}
	m := &Manager{instLimit: instLimit, logger: logger}
	m.pool.New = func() any { return newVM() }
	return m
}

// Compile compiles src. Expressions ("stat('level') >= 10") are compiled as
// "return <src>"; anything that does not parse that way is compiled as a
// chunk, which must return its own value.
//
// Postcondition: Returns a Script or a syntax error.
func (m *Manager) Compile(src string) (*Script, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("scripting: empty script")
	}
	stmts, err := parse.Parse(strings.NewReader("return "+src), src)
	if err != nil {
		var blockErr error
		stmts, blockErr = parse.Parse(strings.NewReader(src), src)
		if blockErr != nil {
			return nil, fmt.Errorf("scripting: compiling %q: %w", src, err)
		}
	}
	proto, err := lua.Compile(stmts, src)
	if err != nil {
		return nil, fmt.Errorf("scripting: compiling %q: %w", src, err)
	}
	return &Script{Source: src, proto: proto}, nil
}

// Eval runs s with subj bound and each entry of vars set as a numeric global.
// Each evaluation gets its own global table, so globals a script assigns are
// gone by the next call. Runtime errors, including an exhausted instruction budget, are logged at
// Warn level and returned.
//
// Precondition: s must come from Compile.
// Postcondition: Returns the script's first return value, or LNil with an error.
func (m *Manager) Eval(s *Script, subj subject.Subject, vars map[string]float64) (lua.LValue, error) {
	v := m.pool.Get().(*vm)
	fn := v.L.NewFunctionFromProto(s.proto)
	fn.Env = v.env(subj, vars)
	detach := withBudget(v.L, m.instLimit)
	v.L.Push(fn)
	err := v.L.PCall(0, 1, nil)
	detach()
	v.release()
	if err != nil {
		// A state that raised mid-call may hold a dirty stack; drop it.
		v.L.Close()
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("script", s.Source),
			zap.Error(err),
		)
		return lua.LNil, fmt.Errorf("scripting: evaluating %q: %w", s.Source, err)
	}
	ret := v.L.Get(-1)
	v.L.Pop(1)
	m.pool.Put(v)
	return ret, nil
}

// EvalBool evaluates s and converts the result with Lua truthiness.
func (m *Manager) EvalBool(s *Script, subj subject.Subject, vars map[string]float64) (bool, error) {
	ret, err := m.Eval(s, subj, vars)
	if err != nil {
		return false, err
	}
	return lua.LVAsBool(ret), nil
}

// EvalNumber evaluates s and requires a numeric result.
//
// Postcondition: Returns an error when the script yields a non-number.
func (m *Manager) EvalNumber(s *Script, subj subject.Subject, vars map[string]float64) (float64, error) {
	ret, err := m.Eval(s, subj, vars)
	if err != nil {
		return 0, err
	}
	n, ok := ret.(lua.LNumber)
	if !ok {
		return 0, fmt.Errorf("scripting: %q returned %s, want number", s.Source, ret.Type())
	}
	return float64(n), nil
}
