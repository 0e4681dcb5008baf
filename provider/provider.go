// Package provider manages installation, registration and construction of source plugins.
package provider

import (
	"fmt"

	"github.com/romsan-app/romsan/provider/api"
	"github.com/romsan-app/romsan/provider/custom"
	"github.com/romsan-app/romsan/source"
)

// Provider couples an installed source descriptor with a factory building its
// execution backend. One backend instance is built per invocation.
type Provider struct {
	Descriptor   *source.SourceDescriptor
	CreateSource func() (source.Source, error)
}

func (p *Provider) String() string {
	return p.Descriptor.Name
}

// New builds a provider dispatching on the descriptor's declared backend kind.
// Whatever the backend, the returned source is wrapped so that failures and
// panics surface as *source.Error instead of crashing a fan-out.
func New(desc *source.SourceDescriptor) *Provider {
	create := func() (source.Source, error) {
		var (
			s   source.Source
			err error
		)

		switch desc.Kind {
		case source.BackendScript:
			s, err = custom.LoadSource(desc)
		case source.BackendAPI:
			s, err = api.LoadSource(desc)
		case source.BackendModule:
			factory, ok := moduleFactory(desc.EntryPoint)
			if !ok {
				return nil, fmt.Errorf("native module %q is not registered", desc.EntryPoint)
			}
			s, err = factory(desc)
		default:
			return nil, fmt.Errorf("unsupported backend kind %q", desc.Kind)
		}

		if err != nil {
			return nil, source.WrapErr(desc.ID, "load", err)
		}

		return Guard(s), nil
	}

	return &Provider{Descriptor: desc, CreateSource: create}
}

// Enabled returns providers for every enabled installed source.
func Enabled() ([]*Provider, error) {
	descriptors, err := ListEnabled()
	if err != nil {
		return nil, err
	}

	providers := make([]*Provider, 0, len(descriptors))
	for _, desc := range descriptors {
		providers = append(providers, New(desc))
	}

	return providers, nil
}

// Get finds an installed provider by source id.
func Get(id string) (*Provider, bool) {
	desc, err := GetDescriptor(id)
	if err != nil || desc == nil {
		return nil, false
	}
	return New(desc), true
}
