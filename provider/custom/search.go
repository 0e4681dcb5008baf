// Package custom provides a bridge between the Go core and Lua-based source scripts.
package custom

import (
	"context"
	"fmt"
	"strings"

	"github.com/romsan-app/romsan/constant"
	"github.com/romsan-app/romsan/internal/cache"
	"github.com/romsan-app/romsan/source"
	lua "github.com/yuin/gopher-lua"
)

// Search calls the script's SearchRoms(query, platforms, regions, pageSize, pageNumber)
// global, which must return an array of rom tables.
func (s *luaSource) Search(ctx context.Context, filters source.Filters, page source.Page) ([]*source.Rom, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cacheKey := cache.GenerateKey(searchFingerprint(filters, page), s.ID())
	var cachedRoms []*source.Rom
	if cache.Read(cacheKey, &cachedRoms) {
		return cachedRoms, nil
	}

	val, err := s.call(constant.SearchRomsFn, lua.LTTable,
		lua.LString(filters.Query),
		lua.LString(strings.Join(filters.Platforms, ",")),
		lua.LString(strings.Join(filters.Regions, ",")),
		lua.LNumber(page.Size),
		lua.LNumber(page.Number),
	)
	if err != nil {
		return nil, err
	}

	if val.Type() == lua.LTNil {
		return nil, nil
	}

	var (
		roms []*source.Rom
		errs []error
	)
	forEachTable(val.(*lua.LTable), func(t *lua.LTable) {
		rom, err := romFromTable(t, s.ID())
		if err != nil {
			errs = append(errs, err)
			return
		}
		roms = append(roms, rom)
	})

	if len(roms) == 0 && len(errs) > 0 {
		return nil, errs[0]
	}

	if len(roms) > 0 {
		// Search results never carry links, so the cached form is safe.
		_ = cache.Write(cacheKey, roms)
	}

	return roms, nil
}

func searchFingerprint(filters source.Filters, page source.Page) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d",
		filters.Query,
		strings.Join(filters.Platforms, ","),
		strings.Join(filters.Regions, ","),
		page.Size,
		page.Number,
	)
}
