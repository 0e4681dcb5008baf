package provider

import (
	"sync"

	"github.com/romsan-app/romsan/source"
)

// Factory builds a native-module backend for an installed descriptor.
type Factory func(desc *source.SourceDescriptor) (source.Source, error)

var modules sync.Map // entry point identifier → Factory

// RegisterModule makes an in-process native backend available under the given
// entry-point identifier. Descriptors of kind "module" reference it through
// their entry_point field; installation of such a descriptor fails validation
// until the module is registered.
func RegisterModule(entryPoint string, factory Factory) {
	modules.Store(entryPoint, factory)
}

func moduleFactory(entryPoint string) (Factory, bool) {
	v, ok := modules.Load(entryPoint)
	if !ok {
		return nil, false
	}
	return v.(Factory), true
}

// ModuleRegistered reports whether a native module is registered for the identifier.
func ModuleRegistered(entryPoint string) bool {
	_, ok := moduleFactory(entryPoint)
	return ok
}
