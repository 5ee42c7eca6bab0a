package qos

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"evalgo.org/qosd/internal/config"
	"evalgo.org/qosd/internal/store"
	"evalgo.org/qosd/models"
)

// newTestTxn opens a fresh store and returns a writable transaction plus the
// system record. The transaction is rolled back when the test ends.
func newTestTxn(t *testing.T) (*store.Txn, *models.System) {
	t.Helper()

	cfg := &config.Config{
		Store: config.StoreConfig{
			Path:    filepath.Join(t.TempDir(), "qosd.db"),
			Timeout: time.Second,
		},
	}
	st, err := store.New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	txn, err := st.Begin(true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = txn.Rollback() })

	sys, err := txn.EnsureSystem()
	require.NoError(t, err)
	return txn, sys
}

func newTestBootstrapper() *Bootstrapper {
	return NewBootstrapper(NewProfileStore(nil), nil)
}

func count(t *testing.T, txn Txn, kind models.Kind) int {
	t.Helper()
	refs, err := txn.Records(kind)
	require.NoError(t, err)
	return len(refs)
}

var errInjected = errors.New("injected failure")

// faultyTxn wraps a Txn and fails or hides selected kinds.
type faultyTxn struct {
	Txn

	failInsert map[models.Kind]bool
	hide       map[models.Kind]bool
}

func (f *faultyTxn) Insert(kind models.Kind, doc models.Document) (models.Ref, error) {
	if f.failInsert[kind] {
		return "", errInjected
	}
	return f.Txn.Insert(kind, doc)
}

func (f *faultyTxn) Records(kind models.Kind) ([]models.Ref, error) {
	if f.hide[kind] {
		return nil, nil
	}
	return f.Txn.Records(kind)
}
