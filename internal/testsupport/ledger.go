package testsupport

import (
	"testing"

	"sdportal/internal/config"
	"sdportal/internal/ledger"
)

// MustOpenLedger opens the ledger at the config's path and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
