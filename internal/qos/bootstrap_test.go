package qos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/qosd/internal/qos/defaults"
	"evalgo.org/qosd/models"
)

func TestInitSchedulingProfile_FactoryDefaultFlags(t *testing.T) {
	txn, sys := newTestTxn(t)
	b := newTestBootstrapper()

	require.NoError(t, b.InitSchedulingProfile(txn, sys))

	factory, entries, err := b.Profiles().QueueEntries(txn, defaults.ProfileFactoryDefault)
	require.NoError(t, err)
	assert.True(t, factory.HWDefault)
	require.Len(t, entries, defaults.QueueCount)
	for q, e := range entries {
		assert.True(t, e.HWDefault, "factory queue %d", q)
	}

	active, entries, err := b.Profiles().QueueEntries(txn, defaults.ProfileDefault)
	require.NoError(t, err)
	assert.False(t, active.HWDefault)
	require.Len(t, entries, defaults.QueueCount)
	for q, e := range entries {
		assert.False(t, e.HWDefault, "default queue %d", q)
	}

	assert.Equal(t, active.ID, sys.ScheduleProfile)
	assert.NotEqual(t, factory.ID, sys.ScheduleProfile)
}

func TestInitQueueMappingProfile_FactoryDefaultFlags(t *testing.T) {
	txn, sys := newTestTxn(t)
	b := newTestBootstrapper()

	require.NoError(t, b.InitQueueMappingProfile(txn, sys))

	factory, entries, err := b.Profiles().PriorityEntries(txn, defaults.ProfileFactoryDefault)
	require.NoError(t, err)
	assert.True(t, factory.HWDefault)
	for q, e := range entries {
		assert.True(t, e.HWDefault, "factory queue %d", q)
		assert.Equal(t, []int{q}, e.LocalPriorities)
	}

	active, err := b.Profiles().FindProfile(txn, models.KindQueueProfile, defaults.ProfileDefault)
	require.NoError(t, err)
	assert.False(t, active.HWDefault)
	assert.Equal(t, active.ID, sys.QueueProfile)
}

func TestRun_EndToEnd(t *testing.T) {
	txn, sys := newTestTxn(t)
	b := newTestBootstrapper()

	require.NoError(t, b.Run(txn, sys))

	// Reload the system record from the store
	var stored models.System
	require.NoError(t, txn.Get(models.KindSystem, sys.ID, &stored))

	// Scheduling profile
	var schedule models.Profile
	require.NoError(t, txn.Get(models.KindScheduleProfile, stored.ScheduleProfile, &schedule))
	assert.Equal(t, defaults.ProfileDefault, schedule.Name)
	_, queues, err := b.Profiles().QueueEntries(txn, defaults.ProfileDefault)
	require.NoError(t, err)
	assert.Equal(t, models.AlgorithmStrict, queues[7].Algorithm)
	assert.Nil(t, queues[7].Weight)
	for q := 0; q < 7; q++ {
		assert.Equal(t, models.AlgorithmWRR, queues[q].Algorithm, "queue %d", q)
		require.NotNil(t, queues[q].Weight, "queue %d", q)
		assert.Equal(t, q+1, *queues[q].Weight, "queue %d", q)
	}

	// Queue mapping profile
	var mapping models.Profile
	require.NoError(t, txn.Get(models.KindQueueProfile, stored.QueueProfile, &mapping))
	assert.Equal(t, defaults.ProfileDefault, mapping.Name)
	_, priorities, err := b.Profiles().PriorityEntries(txn, defaults.ProfileDefault)
	require.NoError(t, err)
	for q := 0; q <= 7; q++ {
		assert.Equal(t, []int{q}, priorities[q].LocalPriorities, "queue %d", q)
	}

	// CoS map
	require.Len(t, stored.CosMapEntries, defaults.CosMapEntryCount)
	var voice *models.CosMapEntry
	for _, ref := range stored.CosMapEntries {
		var e models.CosMapEntry
		require.NoError(t, txn.Get(models.KindCosMapEntry, ref, &e))
		if e.CodePoint == 5 {
			voice = &e
		}
	}
	require.NotNil(t, voice)
	assert.Equal(t, 5, voice.LocalPriority)
	assert.Equal(t, models.ColorGreen, voice.Color)
	assert.Equal(t, "Voice", voice.Description)
	assert.Equal(t, "Voice", voice.HWDefaults[models.HWDefaultDescriptionKey])

	// DSCP map
	require.Len(t, stored.DscpMapEntries, defaults.DscpMapEntryCount)
	var ef *models.DscpMapEntry
	for _, ref := range stored.DscpMapEntries {
		var e models.DscpMapEntry
		require.NoError(t, txn.Get(models.KindDscpMapEntry, ref, &e))
		if e.CodePoint == 46 {
			ef = &e
		}
	}
	require.NotNil(t, ef)
	assert.Equal(t, 5, ef.LocalPriority)
	require.NotNil(t, ef.PriorityCodePoint)
	assert.Equal(t, 5, *ef.PriorityCodePoint)
	assert.Equal(t, "EF", ef.Description)
	assert.Equal(t, "5", ef.HWDefaults[models.HWDefaultPriorityCodePointKey])

	// Trust
	assert.Equal(t, "none", stored.QoSConfig[defaults.TrustKey])
}

func TestRun_TwiceDoesNotDuplicateProfiles(t *testing.T) {
	txn, sys := newTestTxn(t)
	b := newTestBootstrapper()

	require.NoError(t, b.Run(txn, sys))
	firstSchedule := sys.ScheduleProfile
	firstMapping := sys.QueueProfile

	require.NoError(t, b.Run(txn, sys))

	assert.Equal(t, firstSchedule, sys.ScheduleProfile)
	assert.Equal(t, firstMapping, sys.QueueProfile)
	assert.Equal(t, 2, count(t, txn, models.KindScheduleProfile))
	assert.Equal(t, 2, count(t, txn, models.KindQueueProfile))
	assert.Equal(t, 2*defaults.QueueCount, count(t, txn, models.KindQueue))
	assert.Equal(t, 2*defaults.QueueCount, count(t, txn, models.KindQueueProfileEntry))

	_, priorities, err := b.Profiles().PriorityEntries(txn, defaults.ProfileDefault)
	require.NoError(t, err)
	for q, e := range priorities {
		assert.Equal(t, []int{q}, e.LocalPriorities)
	}
}

// Re-running the map bootstrap creates new rows every time; the system
// points at the latest batch only and the earlier rows are left behind.
func TestInitCosAndDscpMap_TwiceReferencesSecondBatch(t *testing.T) {
	txn, sys := newTestTxn(t)
	b := newTestBootstrapper()

	require.NoError(t, b.InitCosMap(txn, sys))
	require.NoError(t, b.InitDscpMap(txn, sys))
	firstCos := append([]models.Ref(nil), sys.CosMapEntries...)
	firstDscp := append([]models.Ref(nil), sys.DscpMapEntries...)

	require.NoError(t, b.InitCosMap(txn, sys))
	require.NoError(t, b.InitDscpMap(txn, sys))

	var stored models.System
	require.NoError(t, txn.Get(models.KindSystem, sys.ID, &stored))

	assert.Len(t, stored.CosMapEntries, defaults.CosMapEntryCount)
	assert.Len(t, stored.DscpMapEntries, defaults.DscpMapEntryCount)
	for _, ref := range firstCos {
		assert.NotContains(t, stored.CosMapEntries, ref)
	}
	for _, ref := range firstDscp {
		assert.NotContains(t, stored.DscpMapEntries, ref)
	}

	assert.Equal(t, 2*defaults.CosMapEntryCount, count(t, txn, models.KindCosMapEntry))
	assert.Equal(t, 2*defaults.DscpMapEntryCount, count(t, txn, models.KindDscpMapEntry))
}

func TestInitTrust_PreservesOtherKeys(t *testing.T) {
	txn, sys := newTestTxn(t)
	b := newTestBootstrapper()

	require.NoError(t, SetQoSConfig(txn, sys, map[string]string{
		"cos_override": "3",
		"qos_trust":    "dscp",
	}))

	require.NoError(t, b.InitTrust(txn, sys))

	var stored models.System
	require.NoError(t, txn.Get(models.KindSystem, sys.ID, &stored))
	assert.Equal(t, map[string]string{"cos_override": "3", "qos_trust": "none"}, stored.QoSConfig)
}

func TestSetTrust(t *testing.T) {
	txn, sys := newTestTxn(t)
	b := newTestBootstrapper()

	for _, mode := range defaults.TrustModes() {
		require.NoError(t, b.SetTrust(txn, sys, mode))
		assert.Equal(t, mode, sys.QoSConfig[defaults.TrustKey])
	}

	err := b.SetTrust(txn, sys, "ip-precedence")
	assert.ErrorIs(t, err, ErrInvalidEntry)
	assert.Equal(t, defaults.TrustDscpCos, sys.QoSConfig[defaults.TrustKey])
}

func TestRun_InvariantViolationKeepsSiblingSteps(t *testing.T) {
	base, sys := newTestTxn(t)
	txn := &faultyTxn{
		Txn:  base,
		hide: map[models.Kind]bool{models.KindScheduleProfile: true},
	}
	b := newTestBootstrapper()

	err := b.Run(txn, sys)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvariantViolation)
	assert.Contains(t, err.Error(), "schedule-profile")

	// Sibling steps still ran
	assert.Empty(t, sys.ScheduleProfile)
	assert.NotEmpty(t, sys.QueueProfile)
	assert.Len(t, sys.CosMapEntries, defaults.CosMapEntryCount)
	assert.Len(t, sys.DscpMapEntries, defaults.DscpMapEntryCount)
	assert.Equal(t, "none", sys.QoSConfig[defaults.TrustKey])
}

func TestRun_StoreErrorsArePropagated(t *testing.T) {
	base, sys := newTestTxn(t)
	txn := &faultyTxn{
		Txn:        base,
		failInsert: map[models.Kind]bool{models.KindCosMapEntry: true},
	}
	b := newTestBootstrapper()

	err := b.Run(txn, sys)
	require.Error(t, err)
	assert.ErrorIs(t, err, errInjected)
	assert.Contains(t, err.Error(), "cos-map")
	assert.NotContains(t, err.Error(), "dscp-map")

	assert.Empty(t, sys.CosMapEntries)
	assert.Len(t, sys.DscpMapEntries, defaults.DscpMapEntryCount)
	assert.NotEmpty(t, sys.ScheduleProfile)
}

func TestSystemSetters_RequireIdentity(t *testing.T) {
	txn, _ := newTestTxn(t)

	err := SetActiveScheduleProfile(txn, &models.System{}, "qos:1")
	assert.ErrorIs(t, err, ErrInvalidEntry)
}
