package inventory_test

import (
	"database/sql"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ShopLedger/internal/inventory"
)

func TestJournal_EmitAfterCloseIsDropped(t *testing.T) {
	// sql.Open is lazy; no connection is made in this test.
	db, err := sql.Open("pgx", "postgres://localhost:1/shopledger")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	j := inventory.NewJournal(db, zap.NewNop())
	j.Close()
	j.Close() // idempotent

	require.NotPanics(t, func() {
		j.Emit(inventory.ProductRefunded{ID: 0})
	})
}
