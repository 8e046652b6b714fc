package ledger

import "github.com/kilianp07/evslot/core/factory"

var registry = factory.NewRegistry[Ledger]()

func init() {
	_ = Register("memory", func(map[string]any) (Ledger, error) {
		return NewMemoryLedger(), nil
	})
}

// Register makes a ledger backend available under name.
func Register(name string, f factory.Factory[Ledger]) error {
	return registry.Register(name, f)
}

// Open creates the ledger backend selected by cfg.Type.
func Open(cfg factory.ModuleConfig) (Ledger, error) {
	return registry.Create(cfg)
}

// Backends lists the registered backend names.
func Backends() []string { return registry.Names() }
