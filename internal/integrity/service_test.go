package integrity

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/qosd/internal/config"
	"evalgo.org/qosd/internal/qos"
	"evalgo.org/qosd/internal/qos/defaults"
	"evalgo.org/qosd/internal/store"
	"evalgo.org/qosd/models"
)

func TestNewService_RequiresStore(t *testing.T) {
	_, err := NewService(nil, nil, nil)
	assert.Error(t, err)
}

func TestBuildConfig(t *testing.T) {
	cfg := buildConfig(nil)
	assert.Equal(t, StrategyKeepActive, cfg.DefaultStrategy)
	assert.Equal(t, 10, cfg.MaxFailures)
	assert.False(t, cfg.Audit.Enabled)

	cfg = buildConfig(&config.Config{Integrity: config.IntegrityConfig{
		AuditEnabled: true,
		AuditPath:    "/tmp/audit",
		MaxFailures:  3,
	}})
	assert.Equal(t, 3, cfg.MaxFailures)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, "/tmp/audit", cfg.Audit.LogPath)
}

func TestScan_EmptyStore(t *testing.T) {
	svc, _ := newTestService(t, nil)

	report, err := svc.Scan(context.Background(), DefaultScanOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, report.DocumentsScanned)
	assert.Empty(t, report.IssuesFound)
	assert.Equal(t, 100, report.Summary.HealthScore)
}

func TestScan_CleanAfterBootstrap(t *testing.T) {
	svc, st := newTestService(t, nil)
	bootstrap(t, st)

	report, err := svc.Scan(context.Background(), DefaultScanOptions())
	require.NoError(t, err)

	stats, err := st.GetStatistics()
	require.NoError(t, err)
	assert.Equal(t, stats.Total, report.DocumentsScanned)
	assert.Empty(t, report.IssuesFound)
	assert.Equal(t, 100, report.Summary.HealthScore)
}

func TestScan_SecondBootstrapLeavesOrphanedMapRows(t *testing.T) {
	svc, st := newTestService(t, nil)
	bootstrap(t, st)
	bootstrap(t, st)

	report, err := svc.Scan(context.Background(), DefaultScanOptions())
	require.NoError(t, err)

	orphans := issuesOfType(report, IssueTypeOrphaned)
	assert.Len(t, orphans, defaults.CosMapEntryCount+defaults.DscpMapEntryCount)
	assert.Equal(t, len(orphans), report.Summary.TotalIssues)

	sys := system(t, st)
	live := make(map[models.Ref]bool)
	for _, ref := range append(sys.CosMapEntries, sys.DscpMapEntries...) {
		live[ref] = true
	}
	for _, issue := range orphans {
		assert.Equal(t, SeverityLow, issue.Severity)
		assert.False(t, live[issue.DocumentID], "live row %s reported as orphan", issue.DocumentID)
		require.NotNil(t, issue.SuggestedResolution)
		require.Len(t, issue.SuggestedResolution.Operations, 1)
		assert.Equal(t, OpDeleteOrphaned, issue.SuggestedResolution.Operations[0].Type)
	}

	assert.Equal(t, 100-len(orphans), report.Summary.HealthScore)
}

func TestScan_KindsFilter(t *testing.T) {
	svc, st := newTestService(t, nil)
	bootstrap(t, st)
	bootstrap(t, st)

	options := DefaultScanOptions()
	options.Kinds = []models.Kind{models.KindCosMapEntry}

	report, err := svc.Scan(context.Background(), options)
	require.NoError(t, err)
	assert.Len(t, report.IssuesFound, defaults.CosMapEntryCount)
	for _, issue := range report.IssuesFound {
		assert.Equal(t, models.KindCosMapEntry, issue.DocumentType)
	}
}

func TestScan_DuplicateProfileKeepsActive(t *testing.T) {
	svc, st := newTestService(t, nil)
	bootstrap(t, st)

	var dup models.Ref
	require.NoError(t, st.Update(func(txn *store.Txn) error {
		var err error
		dup, err = txn.Insert(models.KindScheduleProfile, &models.Profile{Name: defaults.ProfileDefault})
		if err != nil {
			return err
		}
		sys, err := txn.System()
		if err != nil {
			return err
		}
		return qos.SetActiveScheduleProfile(txn, sys, dup)
	}))

	report, err := svc.Scan(context.Background(), DefaultScanOptions())
	require.NoError(t, err)

	dups := issuesOfType(report, IssueTypeDuplicate)
	require.Len(t, dups, 1)
	issue := dups[0]
	assert.Equal(t, SeverityHigh, issue.Severity)
	assert.Equal(t, dup, issue.DocumentID)
	require.NotNil(t, issue.SuggestedResolution)
	assert.Equal(t, StrategyKeepActive, issue.SuggestedResolution.Strategy)
	require.Len(t, issue.SuggestedResolution.Operations, 1)

	op := issue.SuggestedResolution.Operations[0]
	assert.Equal(t, OpDeleteDuplicate, op.Type)
	assert.NotEqual(t, dup, op.DocumentID)
	assert.Equal(t, RiskMedium, op.Risk)
}

func TestScan_MultipleSystemRecords(t *testing.T) {
	svc, st := newTestService(t, nil)
	bootstrap(t, st)
	require.NoError(t, st.Update(func(txn *store.Txn) error {
		_, err := txn.Insert(models.KindSystem, &models.System{})
		return err
	}))

	report, err := svc.Scan(context.Background(), DefaultScanOptions())
	require.NoError(t, err)

	dups := issuesOfType(report, IssueTypeDuplicate)
	require.Len(t, dups, 1)
	assert.Equal(t, models.KindSystem, dups[0].DocumentType)
	assert.Equal(t, StrategyManual, dups[0].SuggestedResolution.Strategy)
	assert.Empty(t, dups[0].SuggestedResolution.Operations)
}

func TestScan_BrokenReference(t *testing.T) {
	svc, st := newTestService(t, nil)
	bootstrap(t, st)

	sys := system(t, st)
	missing := sys.CosMapEntries[3]
	require.NoError(t, st.Update(func(txn *store.Txn) error {
		return txn.Delete(models.KindCosMapEntry, missing)
	}))

	report, err := svc.Scan(context.Background(), DefaultScanOptions())
	require.NoError(t, err)

	broken := issuesOfType(report, IssueTypeInvalidReference)
	require.Len(t, broken, 1)
	assert.Equal(t, SeverityCritical, broken[0].Severity)
	assert.Equal(t, sys.ID, broken[0].DocumentID)
	assert.Equal(t, missing, broken[0].Details["target_id"])
	assert.Equal(t, 80, report.Summary.HealthScore)

	health, err := svc.CheckHealth(context.Background())
	require.NoError(t, err)
	assert.False(t, health.QoSReady)
}

func TestScan_InvalidSchema(t *testing.T) {
	svc, st := newTestService(t, nil)
	bootstrap(t, st)

	var broken models.Ref
	require.NoError(t, st.Update(func(txn *store.Txn) error {
		refs, err := txn.Records(models.KindQueue)
		if err != nil {
			return err
		}
		broken = refs[0]
		var entry models.QueueEntry
		if err := txn.Get(models.KindQueue, broken, &entry); err != nil {
			return err
		}
		entry.Algorithm = "dwrr"
		return txn.Put(models.KindQueue, broken, &entry)
	}))

	report, err := svc.Scan(context.Background(), DefaultScanOptions())
	require.NoError(t, err)

	invalid := issuesOfType(report, IssueTypeInvalidSchema)
	require.Len(t, invalid, 1)
	assert.Equal(t, broken, invalid[0].DocumentID)
	assert.Equal(t, SeverityMedium, invalid[0].Severity)
	assert.Contains(t, invalid[0].Description, "algorithm")
}

func TestScan_CancelledContext(t *testing.T) {
	svc, _ := newTestService(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Scan(ctx, DefaultScanOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckHealth(t *testing.T) {
	svc, st := newTestService(t, nil)

	health, err := svc.CheckHealth(context.Background())
	require.NoError(t, err)
	assert.False(t, health.QoSReady)
	assert.NotEmpty(t, health.Recommendations)

	bootstrap(t, st)

	health, err = svc.CheckHealth(context.Background())
	require.NoError(t, err)
	assert.True(t, health.QoSReady)
	assert.Equal(t, 100, health.HealthScore)
	assert.Greater(t, health.DatabaseSize, int64(0))
	assert.Empty(t, health.Recommendations)
}

func TestAudit_WritesJSONLines(t *testing.T) {
	svc, st := newTestService(t, func(cfg *config.Config) {
		cfg.Integrity.AuditEnabled = true
	})
	bootstrap(t, st)

	_, err := svc.Scan(context.Background(), DefaultScanOptions())
	require.NoError(t, err)
	_, err = svc.CheckHealth(context.Background())
	require.NoError(t, err)

	path := svc.audit.Path()
	require.NotEmpty(t, path)
	require.NoError(t, svc.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var types []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry AuditEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		types = append(types, entry.OperationType)
	}
	require.NoError(t, scanner.Err())

	// CheckHealth runs its own scan before recording the health check
	assert.Equal(t, []string{"scan", "scan", "health_check"}, types)
}
