package completion

import "github.com/kilianp07/evslot/core/factory"

var registry = factory.NewRegistry[Index]()

func init() {
	_ = Register("memory", func(map[string]any) (Index, error) {
		return NewMemoryIndex(), nil
	})
}

// Register makes an index backend available under name.
func Register(name string, f factory.Factory[Index]) error {
	return registry.Register(name, f)
}

// Open creates the index backend selected by cfg.Type.
func Open(cfg factory.ModuleConfig) (Index, error) {
	return registry.Create(cfg)
}

// Backends lists the registered backend names.
func Backends() []string { return registry.Names() }
