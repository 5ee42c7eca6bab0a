package integrity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"evalgo.org/qosd/internal/store"
	"evalgo.org/qosd/models"
)

// errStillReferenced is returned when a record scheduled for deletion became
// reachable again after the scan.
var errStillReferenced = errors.New("record is still referenced")

// CreateRepairPlan turns the suggested resolutions of a scan report into a
// plan. Only issues whose resolution uses the given strategy and whose risk
// passes riskFilter (empty = any risk) contribute operations. Plans always
// start as a dry run.
func (s *Service) CreateRepairPlan(report *ScanReport, strategy ResolutionStrategy, riskFilter []RiskLevel) (*RepairPlan, error) {
	if report == nil {
		return nil, fmt.Errorf("scan report is required")
	}
	if strategy == "" {
		strategy = s.config.DefaultStrategy
	}

	s.logger.Info("creating repair plan", "scan_id", report.ID, "strategy", strategy)

	plan := &RepairPlan{
		ID:         models.GenerateID("plan"),
		Timestamp:  time.Now(),
		ScanID:     report.ID,
		Strategy:   strategy,
		Operations: []RepairOperation{},
		DryRun:     true,
		RiskFilter: riskFilter,
	}

	for _, issue := range report.IssuesFound {
		resolution := issue.SuggestedResolution
		if resolution == nil || resolution.Strategy != strategy {
			continue
		}
		if !riskAllowed(resolution.Risk, riskFilter) {
			s.logger.Debug("skipping issue due to risk filter", "issue", issue.ID, "risk", resolution.Risk)
			continue
		}
		plan.Operations = append(plan.Operations, resolution.Operations...)
	}

	// Rough estimate: 10ms per operation
	plan.EstimatedDuration = int64(len(plan.Operations) * 10)

	s.logger.Info("generated repair plan", "plan_id", plan.ID, "operations", len(plan.Operations))

	return plan, nil
}

func riskAllowed(risk RiskLevel, filter []RiskLevel) bool {
	if len(filter) == 0 {
		return true
	}
	for _, allowed := range filter {
		if risk == allowed {
			return true
		}
	}
	return false
}

// ExecutePlan executes a repair plan. Each operation commits on its own, so
// an aborted plan leaves every completed operation in place.
func (s *Service) ExecutePlan(ctx context.Context, plan *RepairPlan) (*RepairResult, error) {
	if plan == nil {
		return nil, fmt.Errorf("repair plan is required")
	}

	s.logger.Info("executing repair plan", "plan_id", plan.ID, "dry_run", plan.DryRun)

	result := &RepairResult{
		PlanID:      plan.ID,
		ExecutionID: models.GenerateID("exec"),
		StartTime:   time.Now(),
		Operations:  []OperationResult{},
		DryRun:      plan.DryRun,
	}

	for i, op := range plan.Operations {
		if err := ctx.Err(); err != nil {
			result.Aborted = true
			result.AbortReason = err.Error()
			break
		}

		s.logger.Debug("executing operation",
			"index", i+1, "total", len(plan.Operations), "type", op.Type, "id", op.DocumentID)

		opResult := s.executeOperation(op, plan.DryRun)
		result.Operations = append(result.Operations, opResult)

		if opResult.Success {
			result.SuccessCount++
		} else {
			result.FailureCount++
			s.logger.Warn("operation failed", "id", op.DocumentID, "error", opResult.Error)
		}

		if err := s.audit.LogOperation(result.ExecutionID, opResult); err != nil {
			s.logger.Warn("failed to log operation to audit", "error", err)
		}

		if !plan.DryRun && result.FailureCount >= s.config.MaxFailures {
			result.Aborted = true
			result.AbortReason = fmt.Sprintf("too many failures (%d), aborting", result.FailureCount)
			s.logger.Error("aborting execution", "reason", result.AbortReason)
			break
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	if err := s.audit.LogExecution(result); err != nil {
		s.logger.Warn("failed to log execution to audit", "error", err)
	}

	s.logger.Info("execution completed",
		"succeeded", result.SuccessCount,
		"failed", result.FailureCount,
		"duration", result.Duration)

	return result, nil
}

func (s *Service) executeOperation(op RepairOperation, dryRun bool) OperationResult {
	result := OperationResult{
		Operation: op,
		StartTime: time.Now(),
		DryRun:    dryRun,
		Changes:   make(map[string]interface{}),
	}

	if dryRun {
		result.Success = true
		result.EndTime = time.Now()
		result.Changes["action"] = "simulated"
		return result
	}

	var err error
	switch op.Type {
	case OpDeleteDuplicate:
		var deleted []models.Ref
		deleted, err = s.deleteDuplicateProfile(op.DocumentType, op.DocumentID)
		if err == nil {
			result.Changes["deleted"] = op.DocumentID
			result.Changes["deleted_entries"] = deleted
		}
	case OpDeleteOrphaned:
		err = s.deleteOrphan(op.DocumentType, op.DocumentID)
		if err == nil {
			result.Changes["deleted"] = op.DocumentID
		}
	default:
		err = fmt.Errorf("unknown operation type: %s", op.Type)
	}

	if err != nil {
		result.Error = err.Error()
	} else {
		result.Success = true
	}
	result.EndTime = time.Now()
	return result
}

// deleteDuplicateProfile removes a profile the system record does not point
// at, together with the entries it owns.
func (s *Service) deleteDuplicateProfile(kind models.Kind, ref models.Ref) ([]models.Ref, error) {
	var deleted []models.Ref

	err := s.store.Update(func(txn *store.Txn) error {
		if sys, err := txn.System(); err == nil {
			if sys.ScheduleProfile == ref || sys.QueueProfile == ref {
				return fmt.Errorf("%s %s is active: %w", kind, ref, errStillReferenced)
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		var p models.Profile
		if err := txn.Get(kind, ref, &p); err != nil {
			return err
		}

		entryKind := models.KindQueue
		if kind == models.KindQueueProfile {
			entryKind = models.KindQueueProfileEntry
		}

		if err := txn.Delete(kind, ref); err != nil {
			return err
		}

		for _, entry := range p.Entries.Values() {
			shared, err := profileReferences(txn, kind, entry)
			if err != nil {
				return err
			}
			if shared {
				continue
			}
			if err := txn.Delete(entryKind, entry); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					continue
				}
				return err
			}
			deleted = append(deleted, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("deleted duplicate profile", "kind", kind, "id", ref, "entries", len(deleted))
	return deleted, nil
}

// deleteOrphan removes a record after checking nothing points at it anymore.
func (s *Service) deleteOrphan(kind models.Kind, ref models.Ref) error {
	err := s.store.Update(func(txn *store.Txn) error {
		referenced, err := isReferenced(txn, kind, ref)
		if err != nil {
			return err
		}
		if referenced {
			return fmt.Errorf("%s %s: %w", kind, ref, errStillReferenced)
		}
		return txn.Delete(kind, ref)
	})
	if err != nil {
		return err
	}

	s.logger.Info("deleted orphaned record", "kind", kind, "id", ref)
	return nil
}

func isReferenced(txn *store.Txn, kind models.Kind, ref models.Ref) (bool, error) {
	switch kind {
	case models.KindCosMapEntry, models.KindDscpMapEntry:
		sys, err := txn.System()
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		rows := sys.CosMapEntries
		if kind == models.KindDscpMapEntry {
			rows = sys.DscpMapEntries
		}
		for _, r := range rows {
			if r == ref {
				return true, nil
			}
		}
		return false, nil
	case models.KindQueue:
		return profileReferences(txn, models.KindScheduleProfile, ref)
	case models.KindQueueProfileEntry:
		return profileReferences(txn, models.KindQueueProfile, ref)
	}
	return false, fmt.Errorf("orphan repair does not support %s", kind)
}

// profileReferences reports whether any remaining profile of kind holds ref.
func profileReferences(txn *store.Txn, kind models.Kind, ref models.Ref) (bool, error) {
	refs, err := txn.Records(kind)
	if err != nil {
		return false, err
	}
	for _, pref := range refs {
		var p models.Profile
		if err := txn.Get(kind, pref, &p); err != nil {
			return false, err
		}
		for _, v := range p.Entries.Values() {
			if v == ref {
				return true, nil
			}
		}
	}
	return false, nil
}

// SavePlanToFile saves a repair plan to a JSON file.
func SavePlanToFile(plan *RepairPlan, filename string) error {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}

	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create plan directory: %w", err)
		}
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}

	return nil
}

// LoadPlanFromFile loads a repair plan from a JSON file.
func LoadPlanFromFile(filename string) (*RepairPlan, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}

	var plan RepairPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}

	return &plan, nil
}
