// Package custom provides a bridge between the Go core and Lua-based source scripts.
package custom

import (
	"fmt"
	"strings"

	"github.com/romsan-app/romsan/source"
	"github.com/samber/lo"
	lua "github.com/yuin/gopher-lua"
)

// Helper to get string from table with default
func getString(table *lua.LTable, key string) string {
	val := table.RawGetString(key)
	if val.Type() == lua.LTString {
		return val.String()
	}
	return ""
}

func getBool(table *lua.LTable, key string) bool {
	val := table.RawGetString(key)
	if val.Type() == lua.LTBool {
		return bool(val.(lua.LBool))
	}
	return false
}

func getInt(table *lua.LTable, key string) int {
	val := table.RawGetString(key)
	if val.Type() == lua.LTNumber {
		return int(val.(lua.LNumber))
	}
	return 0
}

// Helper to get string list from table (comma-separated or table)
func getStringList(table *lua.LTable, key string) []string {
	val := table.RawGetString(key)
	if val.Type() == lua.LTString {
		return lo.Map(strings.Split(val.String(), ","), func(s string, _ int) string {
			return strings.TrimSpace(s)
		})
	}
	if val.Type() == lua.LTTable {
		var list []string
		val.(*lua.LTable).ForEach(func(_, v lua.LValue) {
			if v.Type() == lua.LTString {
				list = append(list, v.String())
			}
		})
		return list
	}
	return nil
}

// forEachTable visits the table-typed elements of a Lua array table.
func forEachTable(table *lua.LTable, visit func(*lua.LTable)) {
	table.ForEach(func(k, v lua.LValue) {
		if k.Type() != lua.LTNumber || v.Type() != lua.LTTable {
			return // Skip invalid entries
		}
		visit(v.(*lua.LTable))
	})
}

func romFromTable(table *lua.LTable, sourceID string) (*source.Rom, error) {
	slug := getString(table, "slug")
	title := getString(table, "title")

	if slug == "" || title == "" {
		return nil, fmt.Errorf("rom must have slug and title")
	}

	rom := &source.Rom{
		Slug:     slug,
		Title:    title,
		CoverURL: getString(table, "cover"),
		SourceID: sourceID,
	}

	rom.CoverURLs = getStringList(table, "covers")
	if rom.CoverURL != "" && !lo.Contains(rom.CoverURLs, rom.CoverURL) {
		rom.CoverURLs = append([]string{rom.CoverURL}, rom.CoverURLs...)
	}

	platformTbl := table.RawGetString("platform")
	if platformTbl.Type() == lua.LTTable {
		rom.Platform = platformFromTable(platformTbl.(*lua.LTable), sourceID)
	}

	regionsTbl := table.RawGetString("regions")
	if regionsTbl.Type() == lua.LTTable {
		forEachTable(regionsTbl.(*lua.LTable), func(t *lua.LTable) {
			if region, err := regionFromTable(t); err == nil {
				rom.Regions = append(rom.Regions, region)
			}
		})
	}

	linksTbl := table.RawGetString("links")
	if linksTbl.Type() == lua.LTTable {
		forEachTable(linksTbl.(*lua.LTable), func(t *lua.LTable) {
			if link, err := linkFromTable(t); err == nil {
				rom.Links = append(rom.Links, link)
			}
		})
	}

	return rom, nil
}

func platformFromTable(table *lua.LTable, sourceID string) source.Platform {
	return source.Platform{
		Code:         getString(table, "code"),
		Name:         getString(table, "name"),
		Manufacturer: getString(table, "manufacturer"),
		ImagePath:    getString(table, "image"),
		Description:  getString(table, "description"),
		SourceID:     sourceID,
	}
}

func regionFromTable(table *lua.LTable) (source.Region, error) {
	code := getString(table, "code")
	if code == "" {
		return source.Region{}, fmt.Errorf("region must have code")
	}

	return source.Region{
		Code: code,
		Name: getString(table, "name"),
	}, nil
}

func linkFromTable(table *lua.LTable) (*source.DownloadLink, error) {
	url := getString(table, "url")
	if url == "" {
		return nil, fmt.Errorf("link must have url")
	}

	return &source.DownloadLink{
		Name:          getString(table, "name"),
		URL:           url,
		Size:          getString(table, "size"),
		Host:          getString(table, "host"),
		NeedsResolver: getBool(table, "needs_resolver"),
		DelaySeconds:  getInt(table, "delay"),
	}, nil
}
