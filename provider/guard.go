package provider

import (
	"context"
	"fmt"

	"github.com/romsan-app/romsan/source"
	"github.com/samber/mo"
)

// Guard wraps a backend so every failure, including a panic inside backend
// code, is returned as a *source.Error carrying the source identity. One
// misbehaving source must never abort a fan-out across the others.
func Guard(inner source.Source) source.Source {
	return &guarded{inner: inner}
}

type guarded struct {
	inner source.Source
}

func (g *guarded) ID() string   { return g.inner.ID() }
func (g *guarded) Name() string { return g.inner.Name() }

func (g *guarded) Search(ctx context.Context, filters source.Filters, page source.Page) (roms []*source.Rom, err error) {
	defer g.recover("search", &err)
	roms, err = g.inner.Search(ctx, filters, page)
	err = source.WrapErr(g.ID(), "search", err)
	return
}

func (g *guarded) GetRom(ctx context.Context, slug string, includeLinks bool) (rom mo.Option[*source.Rom], err error) {
	defer g.recover("get_rom", &err)
	rom, err = g.inner.GetRom(ctx, slug, includeLinks)
	err = source.WrapErr(g.ID(), "get_rom", err)
	return
}

func (g *guarded) Regions(ctx context.Context) (regions map[string]string, err error) {
	defer g.recover("regions", &err)
	regions, err = g.inner.Regions(ctx)
	err = source.WrapErr(g.ID(), "regions", err)
	return
}

func (g *guarded) recover(op string, err *error) {
	if r := recover(); r != nil {
		*err = source.WrapErr(g.ID(), op, fmt.Errorf("backend panic: %v", r))
	}
}
