package loader

import "context"

// ModuleHandle is a live, instantiated plugin module. Teardown runs the
// module's own cleanup path (if it exposes one) and releases the resources
// backing the realm. A handle is torn down at most once.
type ModuleHandle interface {
	Teardown(ctx context.Context) error
}

// ModuleRuntime turns a plugin source location into a live module.
// Implementations own resolution (filesystem, registry pull) and realm
// construction; the loader only manages identity slots and lifecycle order.
type ModuleRuntime interface {
	Instantiate(ctx context.Context, sourceLocation string) (ModuleHandle, error)
}

// SourceResolver maps a plugin source location to the module bytes backing
// it. The plugin service implements this over its resolution chain; DirSource
// implements it for plain local directories.
type SourceResolver interface {
	Resolve(ctx context.Context, sourceLocation string) ([]byte, error)
}
