// Package store provides the switch configuration store for qosd on top of
// a bbolt database file.
//
// Every record kind lives in its own bucket. Records are JSON documents keyed
// by their Ref; since refs are time-ordered, iterating a bucket yields records
// in creation order. All reads and writes go through a Txn, and a Txn is
// either read-only or the single read-write transaction bbolt allows at a
// time, so writers are serialized by the database itself.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"evalgo.org/qosd/internal/config"
	"evalgo.org/qosd/internal/logging"
	"evalgo.org/qosd/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the bbolt-backed configuration store.
type Store struct {
	db     *bolt.DB
	config *config.Config
	logger *slog.Logger
}

// New opens (or creates) the database file named by cfg.Store.Path and makes
// sure a bucket exists for every record kind.
func New(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	if dir := filepath.Dir(cfg.Store.Path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := bolt.Open(cfg.Store.Path, 0600, &bolt.Options{Timeout: cfg.Store.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", cfg.Store.Path, err)
	}

	s := &Store{
		db:     db,
		config: cfg,
		logger: logger.With("component", "store"),
	}

	if err := s.initializeSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize store schema: %w", err)
	}

	s.logger.Debug("store opened", "path", cfg.Store.Path)
	return s, nil
}

// initializeSchema creates one bucket per record kind.
func (s *Store) initializeSchema() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, kind := range models.Kinds() {
			if _, err := tx.CreateBucketIfNotExists([]byte(kind)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", kind, err)
			}
		}
		return nil
	})
}

// Close closes the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.db.Path()
}

// Begin starts a transaction. The caller owns it and must end it with
// Commit or Rollback. Only one writable transaction can be open at a time;
// a second Begin(true) blocks until the first one ends.
func (s *Store) Begin(writable bool) (*Txn, error) {
	tx, err := s.db.Begin(writable)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Txn{tx: tx}, nil
}

// Update runs fn in a read-write transaction, committing if fn returns nil
// and rolling back otherwise.
func (s *Store) Update(fn func(*Txn) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(&Txn{tx: tx})
	})
}

// View runs fn in a read-only transaction.
func (s *Store) View(fn func(*Txn) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return fn(&Txn{tx: tx})
	})
}

// Txn is a transaction on the store. It implements the record operations
// the QoS engine needs: insert, whole-record get and put, and iteration.
type Txn struct {
	tx *bolt.Tx
}

// Commit commits a writable transaction.
func (t *Txn) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback discards the transaction. Rolling back an already closed
// transaction is not an error, so Rollback can be deferred after Commit.
func (t *Txn) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, bolt.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// Writable reports whether the transaction can write.
func (t *Txn) Writable() bool {
	return t.tx.Writable()
}

func (t *Txn) bucket(kind models.Kind) (*bolt.Bucket, error) {
	b := t.tx.Bucket([]byte(kind))
	if b == nil {
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
	return b, nil
}

// Insert stores doc as a new record of the given kind and returns its ref.
// The document's identity fields are set before it is written.
func (t *Txn) Insert(kind models.Kind, doc models.Document) (models.Ref, error) {
	ref := models.NewRef(kind)
	doc.SetIdentity(kind, ref)

	if err := t.write(kind, ref, doc); err != nil {
		return "", err
	}
	return ref, nil
}

// Get decodes the record ref of the given kind into out.
func (t *Txn) Get(kind models.Kind, ref models.Ref, out interface{}) error {
	data, err := t.Raw(kind, ref)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", kind, ref, err)
	}
	return nil
}

// Raw returns the stored JSON of a record.
func (t *Txn) Raw(kind models.Kind, ref models.Ref) ([]byte, error) {
	b, err := t.bucket(kind)
	if err != nil {
		return nil, err
	}
	data := b.Get([]byte(ref))
	if data == nil {
		return nil, fmt.Errorf("%s %s: %w", kind, ref, ErrNotFound)
	}
	// bbolt memory is only valid for the life of the transaction
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Put replaces the whole record ref of the given kind with doc. The record
// must already exist.
func (t *Txn) Put(kind models.Kind, ref models.Ref, doc interface{}) error {
	b, err := t.bucket(kind)
	if err != nil {
		return err
	}
	if b.Get([]byte(ref)) == nil {
		return fmt.Errorf("%s %s: %w", kind, ref, ErrNotFound)
	}
	return t.write(kind, ref, doc)
}

// Delete removes a record. Deleting a missing record returns ErrNotFound.
func (t *Txn) Delete(kind models.Kind, ref models.Ref) error {
	b, err := t.bucket(kind)
	if err != nil {
		return err
	}
	if b.Get([]byte(ref)) == nil {
		return fmt.Errorf("%s %s: %w", kind, ref, ErrNotFound)
	}
	if err := b.Delete([]byte(ref)); err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", kind, ref, err)
	}
	return nil
}

// Records lists the refs of every record of the given kind in creation order.
func (t *Txn) Records(kind models.Kind) ([]models.Ref, error) {
	b, err := t.bucket(kind)
	if err != nil {
		return nil, err
	}
	refs := []models.Ref{}
	err = b.ForEach(func(k, _ []byte) error {
		refs = append(refs, models.Ref(k))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s records: %w", kind, err)
	}
	return refs, nil
}

func (t *Txn) write(kind models.Kind, ref models.Ref, doc interface{}) error {
	b, err := t.bucket(kind)
	if err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", kind, ref, err)
	}
	if err := b.Put([]byte(ref), data); err != nil {
		return fmt.Errorf("failed to write %s %s: %w", kind, ref, err)
	}
	return nil
}
