// Package factory provides a small generic registry used to select storage
// and metrics backends from configuration. A backend is named by a type string
// and receives a map of raw settings that its factory decodes into a typed
// struct.
//
// Example usage:
//
//	reg := factory.NewRegistry[ledger.Ledger]()
//	reg.Register("sqlite", func(conf map[string]any) (ledger.Ledger, error) {
//	    var c struct{ DSN string `json:"dsn"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return sqlledger.Open("sqlite", c.DSN)
//	})
//	l, err := reg.Create(factory.ModuleConfig{Type: "sqlite", Conf: map[string]any{"dsn": "slots.db"}})
package factory
