// Package scripting provides a sandboxed GopherLua environment for the
// expression-valued requirements, formulas, and weight modifiers found in
// content files. It has no dependency on the resolution packages; callers
// hand it a subject.Subject and get a Lua value back.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the maximum number of Lua opcodes allowed per
// expression evaluation when no override is configured.
const DefaultInstructionLimit = 100_000

// sandboxLibs are the only standard libraries a content expression can reach.
var sandboxLibs = []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath}

// strippedGlobals are removed after OpenBase. The first five reach the
// filesystem or the loader; the rest reach tables shared between evaluations.
var strippedGlobals = []string{
	"dofile", "loadfile", "load", "collectgarbage", "require",
	"getfenv", "setfenv", "getmetatable",
}

// opBudget is a context that cancels itself once Done has been polled more
// than its budget allows. GopherLua polls Done once per opcode, so the budget
// is an exact instruction count.
type opBudget struct {
	context.Context
	cancel context.CancelFunc
	left   atomic.Int64
}

func (b *opBudget) Done() <-chan struct{} {
	if b.left.Add(-1) <= 0 {
		b.cancel()
	}
	return b.Context.Done()
}

// withBudget attaches a fresh budget of ops opcodes to L and returns the
// function that detaches it.
//
// Precondition: ops > 0.
func withBudget(L *lua.LState, ops int) (release func()) {
	b := &opBudget{}
	b.Context, b.cancel = context.WithCancel(context.Background())
	b.left.Store(int64(ops))
	L.SetContext(b)
	return func() {
		b.cancel()
		L.RemoveContext()
	}
}

// NewSandboxedState returns a state with only the base, table, string and
// math libraries and without any loader globals. It carries no instruction
// budget; Manager attaches one around every evaluation so pooled states can
// be reused.
//
// Postcondition: Returns a non-nil LState. The caller owns it and must Close it.
func NewSandboxedState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, open := range sandboxLibs {
		open(L)
	}
	for _, name := range strippedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}
