// Package custom provides a bridge between the Go core and Lua-based source scripts.
package custom

import (
	"fmt"
	"path/filepath"

	"github.com/romsan-app/romsan/constant"
	"github.com/romsan-app/romsan/internal/scraper"
	"github.com/romsan-app/romsan/source"
	libs "github.com/metafates/mangal-lua-libs"
	lua "github.com/yuin/gopher-lua"
)

// LoadSource initializes a new source.Source instance by executing and validating
// the Lua script declared by an installed descriptor.
func LoadSource(desc *source.SourceDescriptor) (source.Source, error) {
	state := lua.NewState()
	libs.Preload(state)
	registerTLSClient(state) // Injected from wrapper_tls.go

	scriptPath := filepath.Join(desc.InstallPath, desc.ScriptPath)

	// Load and compile the Lua script (using cache if available).
	err := scraper.PreCompileAndLoad(state, scriptPath)
	if err != nil {
		return nil, err
	}

	// Validation
	required := []string{
		constant.SearchRomsFn,
		constant.GetRomFn,
		constant.RegionsFn,
	}

	for _, fn := range required {
		if state.GetGlobal(fn).Type() != lua.LTFunction {
			return nil, fmt.Errorf("function %s is required but not defined in %s", fn, desc.ID)
		}
	}

	return newLuaSource(desc, state), nil
}
