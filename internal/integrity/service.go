// Package integrity provides integrity checking, validation, and automated
// repair capabilities for the qosd configuration store.
//
// The integrity service helps maintain data consistency and health by:
//   - Scanning for duplicate profiles sharing a name
//   - Finding CoS/DSCP rows and profile entries nothing references
//   - Validating references from the system record and profiles
//   - Checking every record against its schema
//   - Generating repair plans for detected issues
//   - Executing repairs with configurable risk levels
//   - Maintaining audit logs of all operations
//
// Every CoS/DSCP map bootstrap creates a fresh batch of rows and leaves the
// previous batch behind, so orphaned rows are expected after each re-run of
// qosd init. Duplicate profiles only appear when two writers raced through
// the find-then-create sequence of the profile store.
//
// Example usage:
//
//	service, err := integrity.NewService(st, cfg, logger)
//	if err != nil {
//	    return err
//	}
//	defer service.Close()
//
//	report, err := service.Scan(ctx, integrity.DefaultScanOptions())
//	plan, err := service.CreateRepairPlan(report, integrity.StrategyKeepActive,
//	    []integrity.RiskLevel{integrity.RiskLow})
//
//	// Execute repairs (dry-run first)
//	result, err := service.ExecutePlan(ctx, plan)
package integrity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"evalgo.org/qosd/internal/config"
	"evalgo.org/qosd/internal/logging"
	"evalgo.org/qosd/internal/qos/defaults"
	"evalgo.org/qosd/internal/store"
	"evalgo.org/qosd/internal/validation"
	"evalgo.org/qosd/models"
)

// Service provides store integrity checking and repair capabilities.
type Service struct {
	store     *store.Store
	config    *Config
	logger    *slog.Logger
	audit     *AuditLogger
	validator *validation.Validator
}

// Config contains configuration for the integrity service.
type Config struct {
	// DefaultStrategy is used when a plan is created without one
	DefaultStrategy ResolutionStrategy

	// MaxFailures aborts a repair after this many failed operations
	MaxFailures int

	// Audit logging
	Audit AuditConfig
}

// AuditConfig controls audit logging.
type AuditConfig struct {
	// Enabled determines if audit logging is active
	Enabled bool

	// LogPath where to store audit logs
	LogPath string
}

// NewService creates a new integrity service.
func NewService(st *store.Store, appConfig *config.Config, logger *slog.Logger) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}

	if logger == nil {
		logger = logging.Discard()
	}

	cfg := buildConfig(appConfig)

	audit, err := NewAuditLogger(cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit logger: %w", err)
	}

	return &Service{
		store:     st,
		config:    cfg,
		logger:    logger.With("component", "integrity"),
		audit:     audit,
		validator: validation.New(),
	}, nil
}

// buildConfig constructs integrity config from app config.
func buildConfig(appConfig *config.Config) *Config {
	cfg := &Config{
		DefaultStrategy: StrategyKeepActive,
		MaxFailures:     10,
		Audit: AuditConfig{
			Enabled: false,
			LogPath: "./logs/integrity/",
		},
	}

	if appConfig == nil {
		return cfg
	}

	if appConfig.Integrity.MaxFailures > 0 {
		cfg.MaxFailures = appConfig.Integrity.MaxFailures
	}
	cfg.Audit.Enabled = appConfig.Integrity.AuditEnabled
	if appConfig.Integrity.AuditPath != "" {
		cfg.Audit.LogPath = appConfig.Integrity.AuditPath
	}

	return cfg
}

// ScanOptions configures what to scan for.
type ScanOptions struct {
	// ScanDuplicates checks for duplicate profiles
	ScanDuplicates bool

	// ScanOrphans checks for records nothing references
	ScanOrphans bool

	// ScanReferences checks referential integrity
	ScanReferences bool

	// ScanSchemas validates every record against its schema
	ScanSchemas bool

	// Kinds limits reported issues to specific record kinds (empty = all)
	Kinds []models.Kind
}

// DefaultScanOptions enables every check.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		ScanDuplicates: true,
		ScanOrphans:    true,
		ScanReferences: true,
		ScanSchemas:    true,
	}
}

func (o ScanOptions) includes(kind models.Kind) bool {
	if len(o.Kinds) == 0 {
		return true
	}
	for _, k := range o.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Scan performs an integrity scan of the store on one consistent snapshot.
func (s *Service) Scan(ctx context.Context, options ScanOptions) (*ScanReport, error) {
	s.logger.Info("starting integrity scan",
		"duplicates", options.ScanDuplicates,
		"orphans", options.ScanOrphans,
		"references", options.ScanReferences,
		"schemas", options.ScanSchemas)

	startTime := time.Now()

	report := &ScanReport{
		ID:          models.GenerateID("scan"),
		Timestamp:   startTime,
		IssuesFound: []Issue{},
		Summary: ScanSummary{
			ByType:     make(map[IssueType]int),
			BySeverity: make(map[Severity]int),
		},
	}

	snap, err := s.loadSnapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to read store: %w", err)
	}
	report.DocumentsScanned = snap.total()

	scanners := []struct {
		enabled bool
		name    string
		fn      func(*snapshot) []Issue
	}{
		{options.ScanDuplicates, "duplicates", s.scanDuplicates},
		{options.ScanOrphans, "orphans", s.scanOrphans},
		{options.ScanReferences, "references", s.scanReferences},
		{options.ScanSchemas, "schemas", s.scanSchemas},
	}

	for _, scanner := range scanners {
		if !scanner.enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, issue := range scanner.fn(snap) {
			if options.includes(issue.DocumentType) {
				report.IssuesFound = append(report.IssuesFound, issue)
			}
		}
	}

	report.Summary.TotalIssues = len(report.IssuesFound)
	for _, issue := range report.IssuesFound {
		report.Summary.ByType[issue.Type]++
		report.Summary.BySeverity[issue.Severity]++
	}

	report.Summary.HealthScore = s.calculateHealthScore(report)
	report.Duration = time.Since(startTime)

	if err := s.audit.LogScan(report); err != nil {
		s.logger.Warn("failed to log scan to audit", "error", err)
	}

	s.logger.Info("scan completed",
		"issues", report.Summary.TotalIssues,
		"records", report.DocumentsScanned,
		"duration", report.Duration)

	return report, nil
}

// calculateHealthScore computes a 0-100 health score based on issues found.
func (s *Service) calculateHealthScore(report *ScanReport) int {
	score := 100

	for severity, count := range report.Summary.BySeverity {
		switch severity {
		case SeverityCritical:
			score -= count * 20
		case SeverityHigh:
			score -= count * 10
		case SeverityMedium:
			score -= count * 3
		case SeverityLow:
			score -= count * 1
		}
	}

	if score < 0 {
		score = 0
	}

	return score
}

// CheckHealth scans the store and summarizes its health.
func (s *Service) CheckHealth(ctx context.Context) (*DatabaseHealth, error) {
	s.logger.Debug("checking store health")

	health := &DatabaseHealth{
		Timestamp:        time.Now(),
		IssuesByType:     make(map[IssueType]int),
		IssuesBySeverity: make(map[Severity]int),
		Recommendations:  []string{},
	}

	report, err := s.Scan(ctx, ScanOptions{
		ScanDuplicates: true,
		ScanOrphans:    true,
		ScanReferences: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan for health check: %w", err)
	}

	health.TotalDocuments = report.DocumentsScanned
	health.IssueCount = report.Summary.TotalIssues
	health.IssuesByType = report.Summary.ByType
	health.IssuesBySeverity = report.Summary.BySeverity
	health.HealthScore = report.Summary.HealthScore

	if info, err := os.Stat(s.store.Path()); err == nil {
		health.DatabaseSize = info.Size()
	}

	ready, err := s.qosReady()
	if err != nil {
		return nil, err
	}
	health.QoSReady = ready && health.IssuesByType[IssueTypeInvalidReference] == 0

	if health.HealthScore < 50 {
		health.Recommendations = append(health.Recommendations,
			"Critical: Store health is poor. Run an integrity scan and repairs.")
	} else if health.HealthScore < 80 {
		health.Recommendations = append(health.Recommendations,
			"Warning: Store has integrity issues. Schedule maintenance.")
	}

	if !health.QoSReady {
		health.Recommendations = append(health.Recommendations,
			"QoS configuration is incomplete. Run 'qosd init'.")
	}

	if health.IssuesByType[IssueTypeDuplicate] > 0 {
		health.Recommendations = append(health.Recommendations,
			"Duplicate profiles detected. Run 'qosd integrity repair --risk medium'.")
	}

	if health.IssuesByType[IssueTypeOrphaned] > 0 {
		health.Recommendations = append(health.Recommendations,
			"Orphaned records from earlier bootstraps. Run 'qosd integrity repair --risk low'.")
	}

	if err := s.audit.LogHealthCheck(health); err != nil {
		s.logger.Warn("failed to log health check to audit", "error", err)
	}

	return health, nil
}

// qosReady reports whether the system record points at the default profiles
// and complete CoS/DSCP maps, and carries a trust mode.
func (s *Service) qosReady() (bool, error) {
	ready := false
	err := s.store.View(func(txn *store.Txn) error {
		sys, err := txn.System()
		if err != nil {
			return nil
		}
		if sys.ScheduleProfile == "" || sys.QueueProfile == "" {
			return nil
		}
		if len(sys.CosMapEntries) != defaults.CosMapEntryCount || len(sys.DscpMapEntries) != defaults.DscpMapEntryCount {
			return nil
		}
		if _, ok := sys.QoSConfig[defaults.TrustKey]; !ok {
			return nil
		}
		ready = true
		return nil
	})
	return ready, err
}

// Close cleans up service resources.
func (s *Service) Close() error {
	if s.audit != nil {
		return s.audit.Close()
	}
	return nil
}

// snapshot is a consistent copy of every record in the store.
type snapshot struct {
	refs     map[models.Kind][]models.Ref
	raw      map[models.Kind]map[models.Ref][]byte
	profiles map[models.Kind][]*models.Profile
	system   *models.System
	systems  []models.Ref
}

func (s *Service) loadSnapshot() (*snapshot, error) {
	snap := &snapshot{
		refs:     make(map[models.Kind][]models.Ref),
		raw:      make(map[models.Kind]map[models.Ref][]byte),
		profiles: make(map[models.Kind][]*models.Profile),
	}

	err := s.store.View(func(txn *store.Txn) error {
		for _, kind := range models.Kinds() {
			refs, err := txn.Records(kind)
			if err != nil {
				return err
			}
			snap.refs[kind] = refs
			snap.raw[kind] = make(map[models.Ref][]byte, len(refs))

			for _, ref := range refs {
				data, err := txn.Raw(kind, ref)
				if err != nil {
					return err
				}
				snap.raw[kind][ref] = data
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Undecodable records are left to the schema scan
	for _, kind := range []models.Kind{models.KindScheduleProfile, models.KindQueueProfile} {
		for _, ref := range snap.refs[kind] {
			var p models.Profile
			if err := json.Unmarshal(snap.raw[kind][ref], &p); err != nil {
				continue
			}
			p.ID = ref
			snap.profiles[kind] = append(snap.profiles[kind], &p)
		}
	}

	snap.systems = snap.refs[models.KindSystem]
	if len(snap.systems) > 0 {
		var sys models.System
		if err := json.Unmarshal(snap.raw[models.KindSystem][snap.systems[0]], &sys); err == nil {
			sys.ID = snap.systems[0]
			snap.system = &sys
		}
	}

	return snap, nil
}

func (snap *snapshot) total() int {
	n := 0
	for _, refs := range snap.refs {
		n += len(refs)
	}
	return n
}

func (snap *snapshot) exists(kind models.Kind, ref models.Ref) bool {
	_, ok := snap.raw[kind][ref]
	return ok
}
