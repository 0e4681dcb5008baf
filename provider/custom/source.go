// Package custom provides a bridge between the Go core and Lua-based source scripts.
package custom

import (
	"fmt"
	"sync"

	"github.com/romsan-app/romsan/source"
	lua "github.com/yuin/gopher-lua"
)

type luaSource struct {
	desc  *source.SourceDescriptor
	state *lua.LState

	// LState is not safe for concurrent use; link fan-outs may hit the same
	// instance from several goroutines.
	mu sync.Mutex
}

// ID returns the source id.
func (s *luaSource) ID() string {
	return s.desc.ID
}

// Name returns the source display name.
func (s *luaSource) Name() string {
	return s.desc.Name
}

func newLuaSource(desc *source.SourceDescriptor, state *lua.LState) *luaSource {
	return &luaSource{
		desc:  desc,
		state: state,
	}
}

// call executes a global Lua function safely.
func (s *luaSource) call(fn string, retType lua.LValueType, args ...lua.LValue) (lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	luaFn := s.state.GetGlobal(fn)
	if luaFn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("function %s is not defined", fn)
	}

	err := s.state.CallByParam(lua.P{
		Fn:      luaFn,
		NRet:    1,
		Protect: true,
	}, args...)

	if err != nil {
		return nil, err
	}

	retval := s.state.Get(-1)
	s.state.Pop(1) // Clean stack

	if retval.Type() == lua.LTNil {
		return retval, nil
	}

	if retval.Type() != retType {
		return nil, fmt.Errorf("%s returned %s, expected %s", fn, retval.Type(), retType)
	}

	return retval, nil
}
