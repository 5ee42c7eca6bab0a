package store

import (
	"fmt"

	"evalgo.org/qosd/models"
)

// EnsureSystem returns the switch-wide system record, creating an empty one
// on a fresh store. When several system records exist the first one wins;
// the integrity scan reports the extras.
func (t *Txn) EnsureSystem() (*models.System, error) {
	sys, err := t.System()
	if err == nil {
		return sys, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	sys = &models.System{QoSConfig: map[string]string{}}
	if _, err := t.Insert(models.KindSystem, sys); err != nil {
		return nil, fmt.Errorf("failed to create system record: %w", err)
	}
	return sys, nil
}

// System returns the switch-wide system record, or ErrNotFound on a fresh
// store.
func (t *Txn) System() (*models.System, error) {
	refs, err := t.Records(models.KindSystem)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("system record: %w", ErrNotFound)
	}

	var sys models.System
	if err := t.Get(models.KindSystem, refs[0], &sys); err != nil {
		return nil, err
	}
	return &sys, nil
}
