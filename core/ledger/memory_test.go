package ledger_test

import (
	"testing"

	"github.com/kilianp07/evslot/core/ledger"
	"github.com/kilianp07/evslot/core/ledger/ledgertest"
)

func TestMemoryLedger(t *testing.T) {
	ledgertest.Run(t, func(*testing.T) ledger.Ledger { return ledger.NewMemoryLedger() })
}
