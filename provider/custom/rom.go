// Package custom provides a bridge between the Go core and Lua-based source scripts.
package custom

import (
	"context"

	"github.com/romsan-app/romsan/constant"
	"github.com/romsan-app/romsan/source"
	"github.com/samber/mo"
	lua "github.com/yuin/gopher-lua"
)

// GetRom calls the script's GetRom(slug, includeLinks) global. The script
// returns a rom table, or nil when it has no entry for the slug.
func (s *luaSource) GetRom(ctx context.Context, slug string, includeLinks bool) (mo.Option[*source.Rom], error) {
	if err := ctx.Err(); err != nil {
		return mo.None[*source.Rom](), err
	}

	val, err := s.call(constant.GetRomFn, lua.LTTable,
		lua.LString(slug),
		lua.LBool(includeLinks),
	)
	if err != nil {
		return mo.None[*source.Rom](), err
	}

	if val.Type() == lua.LTNil {
		return mo.None[*source.Rom](), nil
	}

	rom, err := romFromTable(val.(*lua.LTable), s.ID())
	if err != nil {
		return mo.None[*source.Rom](), err
	}

	if !includeLinks {
		rom.Links = nil
	}

	return mo.Some(rom), nil
}

// Regions calls the script's Regions() global, which returns a code → name table.
func (s *luaSource) Regions(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	val, err := s.call(constant.RegionsFn, lua.LTTable)
	if err != nil {
		return nil, err
	}

	regions := make(map[string]string)
	if val.Type() == lua.LTNil {
		return regions, nil
	}

	val.(*lua.LTable).ForEach(func(k, v lua.LValue) {
		if k.Type() == lua.LTString && v.Type() == lua.LTString {
			regions[k.String()] = v.String()
		}
	})

	return regions, nil
}
