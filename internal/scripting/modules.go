package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/lootweight/internal/game/subject"
)

// binding is the per-state slot the registered globals read the current
// subject from. It is only touched by the goroutine holding the state.
type binding struct {
	subj subject.Subject
}

// sharedLibs are the library tables each evaluation sees through a fresh
// proxy, so assignments like math.floor = nil stay inside that evaluation.
var sharedLibs = []string{"math", "string", "table"}

// vm pairs a sandboxed LState with its subject binding.
type vm struct {
	L *lua.LState
	b *binding
	// globalsMeta and libMeta are the metatables of the per-call env and
	// library proxies. Scripts cannot reach them: getmetatable is stripped.
	globalsMeta *lua.LTable
	libMeta     map[string]*lua.LTable
}

// newVM creates a sandboxed state and registers the subject accessors:
//
//	id              -> subject id (string), set per call
//	tag(name)       -> boolean
//	stat(name)      -> number, 0 when absent
//	has_stat(name)  -> boolean
//	var(name)       -> string, nil when absent
//
// math.random and math.randomseed are removed so every expression is a pure
// function of its inputs.
func newVM() *vm {
	L := NewSandboxedState()
	b := &binding{}

	if m, ok := L.GetGlobal("math").(*lua.LTable); ok {
		m.RawSetString("random", lua.LNil)
		m.RawSetString("randomseed", lua.LNil)
	}

	L.SetGlobal("tag", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(lua.LBool(b.subj != nil && b.subj.HasTag(name)))
		return 1
	}))
	L.SetGlobal("stat", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		var v float64
		if b.subj != nil {
			v, _ = b.subj.Stat(name)
		}
		L.Push(lua.LNumber(v))
		return 1
	}))
	L.SetGlobal("has_stat", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		ok := false
		if b.subj != nil {
			_, ok = b.subj.Stat(name)
		}
		L.Push(lua.LBool(ok))
		return 1
	}))
	L.SetGlobal("var", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if b.subj != nil {
			if v, ok := b.subj.Var(name); ok {
				L.Push(lua.LString(v))
				return 1
			}
		}
		L.Push(lua.LNil)
		return 1
	}))
	v := &vm{L: L, b: b, globalsMeta: L.NewTable(), libMeta: make(map[string]*lua.LTable, len(sharedLibs))}
	v.globalsMeta.RawSetString("__index", L.G.Global)
	for _, name := range sharedLibs {
		meta := L.NewTable()
		meta.RawSetString("__index", L.GetGlobal(name))
		v.libMeta[name] = meta
	}
	return v
}

// env binds s and returns a fresh global table for one evaluation. Reads
// fall through to the shared globals; every write, including _G.x and
// math.x, lands in tables that are dropped after the call.
func (v *vm) env(s subject.Subject, vars map[string]float64) *lua.LTable {
	v.b.subj = s
	env := v.L.CreateTable(0, len(vars)+len(sharedLibs)+2)
	v.L.SetMetatable(env, v.globalsMeta)
	env.RawSetString("_G", env)
	for _, name := range sharedLibs {
		proxy := v.L.NewTable()
		v.L.SetMetatable(proxy, v.libMeta[name])
		env.RawSetString(name, proxy)
	}
	if s != nil {
		env.RawSetString("id", lua.LString(s.ID()))
	}
	for k, n := range vars {
		env.RawSetString(k, lua.LNumber(n))
	}
	return env
}

// release drops the subject binding.
func (v *vm) release() {
	v.b.subj = nil
}
