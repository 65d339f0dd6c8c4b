package sqlstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/aretw0/waypoint/pkg/adapters/sqlstore"
	"github.com/aretw0/waypoint/pkg/ports"
	"github.com/stretchr/testify/require"
)

// Set WAYPOINT_TEST_MYSQL_DSN, e.g. "root:secret@tcp(localhost:3306)/waypoint_test", to run.
func TestMySQLStore_Contract(t *testing.T) {
	dsn := os.Getenv("WAYPOINT_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("Skipping MySQL integration test: set WAYPOINT_TEST_MYSQL_DSN to run")
	}

	store, err := sqlstore.OpenMySQL(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ports.RunWorkflowStoreContract(t, store)
}
