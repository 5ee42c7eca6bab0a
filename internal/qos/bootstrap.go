package qos

import (
	"errors"
	"fmt"
	"log/slog"

	"evalgo.org/qosd/internal/logging"
	"evalgo.org/qosd/internal/qos/defaults"
	"evalgo.org/qosd/models"
)

// Bootstrapper creates the default QoS configuration of the switch from the
// factory tables.
type Bootstrapper struct {
	profiles *ProfileStore
	logger   *slog.Logger
}

// NewBootstrapper creates a Bootstrapper. A nil logger discards output.
func NewBootstrapper(profiles *ProfileStore, logger *slog.Logger) *Bootstrapper {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Bootstrapper{
		profiles: profiles,
		logger:   logger.With("component", "bootstrap"),
	}
}

// Profiles returns the ProfileStore the bootstrapper writes through.
func (b *Bootstrapper) Profiles() *ProfileStore {
	return b.profiles
}

// Run executes every bootstrap step in order: trust mode, CoS map, DSCP map,
// scheduling profile and queue mapping profile. A failing step is logged and
// the remaining steps still run. The returned error joins every step
// failure; the switch is QoS-ready only when Run returns nil.
func (b *Bootstrapper) Run(txn Txn, sys *models.System) error {
	steps := []struct {
		name string
		fn   func(Txn, *models.System) error
	}{
		{"trust", b.InitTrust},
		{"cos-map", b.InitCosMap},
		{"dscp-map", b.InitDscpMap},
		{"schedule-profile", b.InitSchedulingProfile},
		{"queue-profile", b.InitQueueMappingProfile},
	}

	var errs []error
	for _, step := range steps {
		if err := step.fn(txn, sys); err != nil {
			b.logger.Error("bootstrap step failed", "step", step.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
			continue
		}
		b.logger.Info("bootstrap step completed", "step", step.name)
	}
	return errors.Join(errs...)
}

// InitSchedulingProfile creates the "default" scheduling profile from the
// factory layout, makes it the active one, and creates the read-only
// "factory-default" copy.
func (b *Bootstrapper) InitSchedulingProfile(txn Txn, sys *models.System) error {
	fill := func(name string) error {
		for _, q := range defaults.Schedule() {
			if err := b.profiles.SetQueueEntry(txn, name, q.Queue, q.Algorithm, q.Weight); err != nil {
				return err
			}
		}
		return nil
	}

	active, err := b.initProfile(txn, models.KindScheduleProfile, defaults.ProfileDefault, fill)
	if err != nil {
		return err
	}
	if err := SetActiveScheduleProfile(txn, sys, active.ID); err != nil {
		return err
	}

	if _, err := b.initProfile(txn, models.KindScheduleProfile, defaults.ProfileFactoryDefault, fill); err != nil {
		return err
	}
	return b.profiles.SetHWDefault(txn, models.KindScheduleProfile, defaults.ProfileFactoryDefault)
}

// InitQueueMappingProfile creates the "default" queue mapping profile from
// the factory layout, makes it the active one, and creates the read-only
// "factory-default" copy.
func (b *Bootstrapper) InitQueueMappingProfile(txn Txn, sys *models.System) error {
	fill := func(name string) error {
		for _, m := range defaults.QueueMappings() {
			for _, p := range m.LocalPriorities {
				if err := b.profiles.AddLocalPriority(txn, name, m.Queue, p); err != nil {
					return err
				}
			}
		}
		return nil
	}

	active, err := b.initProfile(txn, models.KindQueueProfile, defaults.ProfileDefault, fill)
	if err != nil {
		return err
	}
	if err := SetActiveQueueProfile(txn, sys, active.ID); err != nil {
		return err
	}

	if _, err := b.initProfile(txn, models.KindQueueProfile, defaults.ProfileFactoryDefault, fill); err != nil {
		return err
	}
	return b.profiles.SetHWDefault(txn, models.KindQueueProfile, defaults.ProfileFactoryDefault)
}

// initProfile gets or creates a profile and fills its entries. A profile
// that cannot be found right after creation aborts the work on it.
func (b *Bootstrapper) initProfile(txn Txn, kind models.Kind, name string, fill func(string) error) (*models.Profile, error) {
	if _, err := b.profiles.GetOrCreateProfile(txn, kind, name); err != nil {
		return nil, err
	}

	if err := fill(name); err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			b.logger.Error("profile missing after creation", "kind", kind, "name", name)
			return nil, fmt.Errorf("%w: %s %q missing after creation", ErrInvariantViolation, kind, name)
		}
		return nil, err
	}

	profile, err := b.profiles.FindProfile(txn, kind, name)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			b.logger.Error("profile missing after creation", "kind", kind, "name", name)
			return nil, fmt.Errorf("%w: %s %q missing after creation", ErrInvariantViolation, kind, name)
		}
		return nil, err
	}
	return profile, nil
}

// InitCosMap creates a fresh row for every factory CoS map entry and makes
// them the live CoS map. Rows from a previous run are not reused.
func (b *Bootstrapper) InitCosMap(txn Txn, sys *models.System) error {
	rows := defaults.CosMap()
	refs := make([]models.Ref, 0, len(rows))

	for _, row := range rows {
		ref, err := txn.Insert(models.KindCosMapEntry, &models.CosMapEntry{
			CodePoint:     row.CodePoint,
			LocalPriority: row.LocalPriority,
			Color:         row.Color,
			Description:   row.Description,
			HWDefaults:    row.HWDefaults(),
		})
		if err != nil {
			return fmt.Errorf("failed to create cos map entry %d: %w", row.CodePoint, err)
		}
		refs = append(refs, ref)
	}

	return SetCosMapEntries(txn, sys, refs)
}

// InitDscpMap creates a fresh row for every factory DSCP map entry and makes
// them the live DSCP map. Rows from a previous run are not reused.
func (b *Bootstrapper) InitDscpMap(txn Txn, sys *models.System) error {
	rows := defaults.DscpMap()
	refs := make([]models.Ref, 0, len(rows))

	for _, row := range rows {
		ref, err := txn.Insert(models.KindDscpMapEntry, &models.DscpMapEntry{
			CodePoint:         row.CodePoint,
			LocalPriority:     row.LocalPriority,
			PriorityCodePoint: models.IntPtr(row.PriorityCodePoint),
			Color:             row.Color,
			Description:       row.Description,
			HWDefaults:        row.HWDefaults(),
		})
		if err != nil {
			return fmt.Errorf("failed to create dscp map entry %d: %w", row.CodePoint, err)
		}
		refs = append(refs, ref)
	}

	return SetDscpMapEntries(txn, sys, refs)
}

// InitTrust sets the trust mode to its default, keeping every other QoS
// config key.
func (b *Bootstrapper) InitTrust(txn Txn, sys *models.System) error {
	return b.SetTrust(txn, sys, defaults.TrustDefault)
}

// SetTrust sets the trust mode, keeping every other QoS config key.
func (b *Bootstrapper) SetTrust(txn Txn, sys *models.System, mode string) error {
	if !defaults.ValidTrustMode(mode) {
		return fmt.Errorf("%w: unknown trust mode %q", ErrInvalidEntry, mode)
	}

	cfg := make(map[string]string, len(sys.QoSConfig)+1)
	for k, v := range sys.QoSConfig {
		cfg[k] = v
	}
	cfg[defaults.TrustKey] = mode

	if err := SetQoSConfig(txn, sys, cfg); err != nil {
		return err
	}
	b.logger.Debug("trust mode set", "mode", mode)
	return nil
}
