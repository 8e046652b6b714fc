package sqlledger

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evslot/core/ledger"
	"github.com/kilianp07/evslot/core/ledger/ledgertest"
	"github.com/kilianp07/evslot/test/util"
)

// TestPostgresLedger runs the ledger suite against a disposable PostgreSQL
// container.
func TestPostgresLedger(t *testing.T) {
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	ctx := context.Background()
	dsn, cleanup, err := util.StartPostgres(ctx)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	n := 0
	ledgertest.Run(t, func(t *testing.T) ledger.Ledger {
		n++
		schema := fmt.Sprintf("suite_%d", n)
		admin, err := Open(ctx, "postgres", Config{DSN: dsn})
		require.NoError(t, err)
		_, err = admin.db.ExecContext(ctx, "CREATE SCHEMA "+schema)
		require.NoError(t, err)
		require.NoError(t, admin.Close())

		openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		l, err := Open(openCtx, "postgres", Config{DSN: dsn + "&search_path=" + schema})
		require.NoError(t, err)
		return l
	})
}
