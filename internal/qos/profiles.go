package qos

import (
	"errors"
	"fmt"
	"log/slog"

	"evalgo.org/qosd/internal/assoc"
	"evalgo.org/qosd/internal/logging"
	"evalgo.org/qosd/internal/qos/defaults"
	"evalgo.org/qosd/internal/validation"
	"evalgo.org/qosd/models"
)

// ProfileStore finds, creates and edits scheduling and queue mapping
// profiles.
type ProfileStore struct {
	validator *validation.Validator
	logger    *slog.Logger
}

// NewProfileStore creates a ProfileStore. A nil logger discards output.
func NewProfileStore(logger *slog.Logger) *ProfileStore {
	if logger == nil {
		logger = logging.Discard()
	}
	return &ProfileStore{
		validator: validation.New(),
		logger:    logger.With("component", "profiles"),
	}
}

// FindProfile returns the profile of the given kind named name. Names are
// matched exactly. When several profiles share the name the first one
// created wins.
func (s *ProfileStore) FindProfile(txn Txn, kind models.Kind, name string) (*models.Profile, error) {
	if _, ok := entryKind(kind); !ok {
		return nil, fmt.Errorf("%w: %s is not a profile kind", ErrInvalidEntry, kind)
	}

	refs, err := txn.Records(kind)
	if err != nil {
		return nil, err
	}

	for _, ref := range refs {
		var p models.Profile
		if err := txn.Get(kind, ref, &p); err != nil {
			return nil, err
		}
		if p.Name == name {
			return &p, nil
		}
	}

	return nil, fmt.Errorf("%s %q: %w", kind, name, ErrProfileNotFound)
}

// GetOrCreateProfile returns the named profile, creating an empty,
// non-hw_default one if it does not exist yet.
func (s *ProfileStore) GetOrCreateProfile(txn Txn, kind models.Kind, name string) (*models.Profile, error) {
	p, err := s.FindProfile(txn, kind, name)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return nil, err
	}

	p = &models.Profile{Name: name}
	if _, err := txn.Insert(kind, p); err != nil {
		return nil, fmt.Errorf("failed to create %s %q: %w", kind, name, err)
	}

	s.logger.Debug("profile created", "kind", kind, "name", name, "id", p.ID)
	return p, nil
}

// SetQueueEntry sets the scheduling of one queue of the named scheduling
// profile, creating the queue entry when needed. Algorithm and weight are
// overwritten as a whole: strict clears the weight, wrr requires a positive
// weight.
func (s *ProfileStore) SetQueueEntry(txn Txn, profileName string, queue int, algorithm models.Algorithm, weight int) error {
	if err := checkQueue(queue); err != nil {
		return err
	}

	want := models.QueueEntry{Algorithm: algorithm}
	if algorithm == models.AlgorithmWRR {
		want.Weight = models.IntPtr(weight)
	}
	if result := s.validator.ValidateRecord(&want); !result.Valid {
		return fmt.Errorf("%w: queue %d: %s", ErrInvalidEntry, queue, result.String())
	}

	profile, err := s.findForUpdate(txn, models.KindScheduleProfile, profileName)
	if err != nil {
		return err
	}

	ref, created, err := assoc.Upsert(profile.Entries, queue,
		func() (models.Ref, error) {
			entry := want
			return txn.Insert(models.KindQueue, &entry)
		},
		s.replaceEntries(txn, models.KindScheduleProfile, profile),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert queue %d of %q: %w", queue, profileName, err)
	}
	if created {
		return nil
	}

	var entry models.QueueEntry
	if err := txn.Get(models.KindQueue, ref, &entry); err != nil {
		return err
	}
	entry.Algorithm = want.Algorithm
	entry.Weight = want.Weight
	return txn.Put(models.KindQueue, ref, &entry)
}

// AddLocalPriority maps a local priority to one queue of the named queue
// mapping profile, creating the queue entry when needed. Adding a priority
// that is already mapped is a no-op.
func (s *ProfileStore) AddLocalPriority(txn Txn, profileName string, queue, priority int) error {
	if err := checkQueue(queue); err != nil {
		return err
	}
	if priority < 0 || priority > defaults.MaxLocalPriority {
		return fmt.Errorf("%w: local priority %d out of range 0-%d", ErrInvalidEntry, priority, defaults.MaxLocalPriority)
	}

	profile, err := s.findForUpdate(txn, models.KindQueueProfile, profileName)
	if err != nil {
		return err
	}

	ref, _, err := assoc.Upsert(profile.Entries, queue,
		func() (models.Ref, error) {
			return txn.Insert(models.KindQueueProfileEntry, &models.PriorityEntry{})
		},
		s.replaceEntries(txn, models.KindQueueProfile, profile),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert queue %d of %q: %w", queue, profileName, err)
	}

	var entry models.PriorityEntry
	if err := txn.Get(models.KindQueueProfileEntry, ref, &entry); err != nil {
		return err
	}
	if entry.HasLocalPriority(priority) {
		return nil
	}

	next := make([]int, len(entry.LocalPriorities), len(entry.LocalPriorities)+1)
	copy(next, entry.LocalPriorities)
	entry.LocalPriorities = append(next, priority)
	return txn.Put(models.KindQueueProfileEntry, ref, &entry)
}

// QueueEntries returns the queue entries of the named scheduling profile,
// keyed by queue number.
func (s *ProfileStore) QueueEntries(txn Txn, profileName string) (*models.Profile, map[int]*models.QueueEntry, error) {
	profile, err := s.FindProfile(txn, models.KindScheduleProfile, profileName)
	if err != nil {
		return nil, nil, err
	}

	entries := make(map[int]*models.QueueEntry, profile.Entries.Len())
	for _, pair := range profile.Entries {
		var e models.QueueEntry
		if err := txn.Get(models.KindQueue, pair.Value, &e); err != nil {
			return nil, nil, err
		}
		entries[pair.Key] = &e
	}
	return profile, entries, nil
}

// PriorityEntries returns the entries of the named queue mapping profile,
// keyed by queue number.
func (s *ProfileStore) PriorityEntries(txn Txn, profileName string) (*models.Profile, map[int]*models.PriorityEntry, error) {
	profile, err := s.FindProfile(txn, models.KindQueueProfile, profileName)
	if err != nil {
		return nil, nil, err
	}

	entries := make(map[int]*models.PriorityEntry, profile.Entries.Len())
	for _, pair := range profile.Entries {
		var e models.PriorityEntry
		if err := txn.Get(models.KindQueueProfileEntry, pair.Value, &e); err != nil {
			return nil, nil, err
		}
		entries[pair.Key] = &e
	}
	return profile, entries, nil
}

// SetHWDefault marks the named profile and every one of its entries as
// factory defaults.
func (s *ProfileStore) SetHWDefault(txn Txn, kind models.Kind, profileName string) error {
	profile, err := s.FindProfile(txn, kind, profileName)
	if err != nil {
		return err
	}

	for _, pair := range profile.Entries {
		if err := markEntryHWDefault(txn, kind, pair.Value); err != nil {
			return fmt.Errorf("failed to mark queue %d of %q: %w", pair.Key, profileName, err)
		}
	}

	if profile.HWDefault {
		return nil
	}
	profile.HWDefault = true
	return txn.Put(kind, profile.ID, profile)
}

// RestoreProfile resets the entries of the named profile to the values of
// the factory-default profile of the same kind. Factory-default profiles
// themselves are read-only.
func (s *ProfileStore) RestoreProfile(txn Txn, kind models.Kind, profileName string) error {
	target, err := s.FindProfile(txn, kind, profileName)
	if err != nil {
		return err
	}
	if target.HWDefault {
		return fmt.Errorf("%w: profile %q is a factory default and cannot be modified", ErrInvalidEntry, profileName)
	}

	switch kind {
	case models.KindScheduleProfile:
		_, factory, err := s.QueueEntries(txn, defaults.ProfileFactoryDefault)
		if err != nil {
			return err
		}
		for queue, e := range factory {
			weight := 0
			if e.Weight != nil {
				weight = *e.Weight
			}
			if err := s.SetQueueEntry(txn, profileName, queue, e.Algorithm, weight); err != nil {
				return err
			}
		}

	case models.KindQueueProfile:
		_, factory, err := s.PriorityEntries(txn, defaults.ProfileFactoryDefault)
		if err != nil {
			return err
		}
		for queue, e := range factory {
			if err := s.setLocalPriorities(txn, profileName, queue, e.LocalPriorities); err != nil {
				return err
			}
		}
	}

	s.logger.Info("profile restored to factory defaults", "kind", kind, "name", profileName)
	return nil
}

// setLocalPriorities replaces the local priorities mapped to one queue.
func (s *ProfileStore) setLocalPriorities(txn Txn, profileName string, queue int, priorities []int) error {
	profile, err := s.findForUpdate(txn, models.KindQueueProfile, profileName)
	if err != nil {
		return err
	}

	ref, _, err := assoc.Upsert(profile.Entries, queue,
		func() (models.Ref, error) {
			return txn.Insert(models.KindQueueProfileEntry, &models.PriorityEntry{})
		},
		s.replaceEntries(txn, models.KindQueueProfile, profile),
	)
	if err != nil {
		return err
	}

	var entry models.PriorityEntry
	if err := txn.Get(models.KindQueueProfileEntry, ref, &entry); err != nil {
		return err
	}
	entry.LocalPriorities = append([]int(nil), priorities...)
	if result := s.validator.ValidateRecord(&entry); !result.Valid {
		return fmt.Errorf("%w: queue %d: %s", ErrInvalidEntry, queue, result.String())
	}
	return txn.Put(models.KindQueueProfileEntry, ref, &entry)
}

// findForUpdate looks up a profile that must exist before entries are set
// on it. A missing profile is a sequencing error and is always logged.
func (s *ProfileStore) findForUpdate(txn Txn, kind models.Kind, name string) (*models.Profile, error) {
	profile, err := s.FindProfile(txn, kind, name)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			s.logger.Error("profile not found", "kind", kind, "name", name)
		}
		return nil, err
	}
	return profile, nil
}

// replaceEntries returns the whole-field writer handed to assoc.Upsert.
func (s *ProfileStore) replaceEntries(txn Txn, kind models.Kind, profile *models.Profile) func(assoc.Association[int, models.Ref]) error {
	return func(next assoc.Association[int, models.Ref]) error {
		updated := *profile
		updated.Entries = next
		if err := txn.Put(kind, profile.ID, &updated); err != nil {
			return err
		}
		*profile = updated
		return nil
	}
}

func markEntryHWDefault(txn Txn, profileKind models.Kind, ref models.Ref) error {
	switch profileKind {
	case models.KindScheduleProfile:
		var e models.QueueEntry
		if err := txn.Get(models.KindQueue, ref, &e); err != nil {
			return err
		}
		e.HWDefault = true
		return txn.Put(models.KindQueue, ref, &e)
	case models.KindQueueProfile:
		var e models.PriorityEntry
		if err := txn.Get(models.KindQueueProfileEntry, ref, &e); err != nil {
			return err
		}
		e.HWDefault = true
		return txn.Put(models.KindQueueProfileEntry, ref, &e)
	}
	return fmt.Errorf("%w: %s is not a profile kind", ErrInvalidEntry, profileKind)
}

func checkQueue(queue int) error {
	if queue < 0 || queue > defaults.MaxQueue {
		return fmt.Errorf("%w: queue %d out of range 0-%d", ErrInvalidEntry, queue, defaults.MaxQueue)
	}
	return nil
}
