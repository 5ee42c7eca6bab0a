package integrity

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"evalgo.org/qosd/internal/config"
	"evalgo.org/qosd/internal/qos"
	"evalgo.org/qosd/internal/store"
	"evalgo.org/qosd/models"
)

func newTestService(t *testing.T, mutate func(*config.Config)) (*Service, *store.Store) {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		Store: config.StoreConfig{
			Path:    filepath.Join(dir, "qosd.db"),
			Timeout: time.Second,
		},
		Integrity: config.IntegrityConfig{
			AuditPath:   filepath.Join(dir, "audit"),
			MaxFailures: 10,
		},
	}
	if mutate != nil {
		mutate(cfg)
	}

	st, err := store.New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	svc, err := NewService(st, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	return svc, st
}

// bootstrap runs the full QoS bootstrap in one committed transaction.
func bootstrap(t *testing.T, st *store.Store) {
	t.Helper()

	b := qos.NewBootstrapper(qos.NewProfileStore(nil), nil)
	require.NoError(t, st.Update(func(txn *store.Txn) error {
		sys, err := txn.EnsureSystem()
		if err != nil {
			return err
		}
		return b.Run(txn, sys)
	}))
}

func system(t *testing.T, st *store.Store) *models.System {
	t.Helper()

	var sys *models.System
	require.NoError(t, st.View(func(txn *store.Txn) error {
		var err error
		sys, err = txn.System()
		return err
	}))
	return sys
}

func issuesOfType(report *ScanReport, typ IssueType) []Issue {
	var out []Issue
	for _, issue := range report.IssuesFound {
		if issue.Type == typ {
			out = append(out, issue)
		}
	}
	return out
}
