package qos

import (
	"fmt"

	"evalgo.org/qosd/models"
)

// SetActiveScheduleProfile points the system at a scheduling profile.
func SetActiveScheduleProfile(txn Txn, sys *models.System, ref models.Ref) error {
	return updateSystem(txn, sys, func(next *models.System) {
		next.ScheduleProfile = ref
	})
}

// SetActiveQueueProfile points the system at a queue mapping profile.
func SetActiveQueueProfile(txn Txn, sys *models.System, ref models.Ref) error {
	return updateSystem(txn, sys, func(next *models.System) {
		next.QueueProfile = ref
	})
}

// SetCosMapEntries replaces the live CoS map rows of the system.
func SetCosMapEntries(txn Txn, sys *models.System, refs []models.Ref) error {
	return updateSystem(txn, sys, func(next *models.System) {
		next.CosMapEntries = append([]models.Ref(nil), refs...)
	})
}

// SetDscpMapEntries replaces the live DSCP map rows of the system.
func SetDscpMapEntries(txn Txn, sys *models.System, refs []models.Ref) error {
	return updateSystem(txn, sys, func(next *models.System) {
		next.DscpMapEntries = append([]models.Ref(nil), refs...)
	})
}

// SetQoSConfig replaces the free-form QoS config map of the system.
func SetQoSConfig(txn Txn, sys *models.System, cfg map[string]string) error {
	return updateSystem(txn, sys, func(next *models.System) {
		next.QoSConfig = make(map[string]string, len(cfg))
		for k, v := range cfg {
			next.QoSConfig[k] = v
		}
	})
}

// updateSystem writes a modified copy of the system record and only updates
// sys once the write succeeded.
func updateSystem(txn Txn, sys *models.System, modify func(*models.System)) error {
	if sys == nil || sys.ID == "" {
		return fmt.Errorf("%w: system record has no identity", ErrInvalidEntry)
	}

	next := *sys
	modify(&next)

	if err := txn.Put(models.KindSystem, sys.ID, &next); err != nil {
		return fmt.Errorf("failed to update system record: %w", err)
	}
	*sys = next
	return nil
}
