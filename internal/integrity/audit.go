package integrity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditLogger records scans, health checks and repairs as JSON lines.
type AuditLogger struct {
	config    AuditConfig
	file      *os.File
	mu        sync.Mutex
	buffer    []AuditEntry
	flushSize int
}

// NewAuditLogger creates a new audit logger. A disabled logger accepts and
// drops every entry.
func NewAuditLogger(config AuditConfig) (*AuditLogger, error) {
	if !config.Enabled {
		return &AuditLogger{
			config:    config,
			flushSize: 100,
		}, nil
	}

	if err := os.MkdirAll(config.LogPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	filename := filepath.Join(config.LogPath, fmt.Sprintf("integrity-audit-%s.jsonl",
		time.Now().Format("2006-01-02")))

	file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	return &AuditLogger{
		config:    config,
		file:      file,
		buffer:    make([]AuditEntry, 0, 100),
		flushSize: 100,
	}, nil
}

// Path returns the audit log file, or "" when auditing is disabled.
func (a *AuditLogger) Path() string {
	if a.file == nil {
		return ""
	}
	return a.file.Name()
}

// LogScan records a scan operation.
func (a *AuditLogger) LogScan(report *ScanReport) error {
	if !a.config.Enabled {
		return nil
	}

	return a.writeEntry(AuditEntry{
		ID:            uuid.New().String(),
		Timestamp:     time.Now(),
		OperationType: "scan",
		ScanID:        report.ID,
		Success:       true,
		Details: map[string]interface{}{
			"duration_ms":       report.Duration.Milliseconds(),
			"documents_scanned": report.DocumentsScanned,
			"issues_found":      report.Summary.TotalIssues,
			"health_score":      report.Summary.HealthScore,
		},
	})
}

// LogExecution records a repair execution.
func (a *AuditLogger) LogExecution(result *RepairResult) error {
	if !a.config.Enabled {
		return nil
	}

	entry := AuditEntry{
		ID:            uuid.New().String(),
		Timestamp:     time.Now(),
		OperationType: "execution",
		PlanID:        result.PlanID,
		ExecutionID:   result.ExecutionID,
		Success:       !result.Aborted && result.FailureCount == 0,
		Error:         result.AbortReason,
		Details: map[string]interface{}{
			"duration_ms":   result.Duration.Milliseconds(),
			"success_count": result.SuccessCount,
			"failure_count": result.FailureCount,
			"dry_run":       result.DryRun,
			"aborted":       result.Aborted,
		},
	}

	changes := make([]AuditChange, 0)
	for _, opResult := range result.Operations {
		if opResult.Success && !result.DryRun {
			changes = append(changes, AuditChange{
				DocumentID: opResult.Operation.DocumentID,
				Field:      "record",
				OldValue:   opResult.Operation.OldValue,
				NewValue:   opResult.Operation.NewValue,
				Operation:  string(opResult.Operation.Type),
			})
		}
	}
	entry.Changes = changes

	return a.writeEntry(entry)
}

// LogOperation records a single repair operation.
func (a *AuditLogger) LogOperation(executionID string, opResult OperationResult) error {
	if !a.config.Enabled {
		return nil
	}

	entry := AuditEntry{
		ID:            uuid.New().String(),
		Timestamp:     time.Now(),
		OperationType: "operation",
		ExecutionID:   executionID,
		Success:       opResult.Success,
		Error:         opResult.Error,
		Details: map[string]interface{}{
			"operation_type": opResult.Operation.Type,
			"document_id":    opResult.Operation.DocumentID,
			"document_type":  opResult.Operation.DocumentType,
			"risk":           opResult.Operation.Risk,
			"dry_run":        opResult.DryRun,
		},
	}

	if opResult.Success && !opResult.DryRun {
		entry.Changes = []AuditChange{{
			DocumentID: opResult.Operation.DocumentID,
			Field:      "record",
			OldValue:   opResult.Operation.OldValue,
			NewValue:   opResult.Operation.NewValue,
			Operation:  string(opResult.Operation.Type),
		}}
	}

	return a.writeEntry(entry)
}

// LogHealthCheck records a health check operation.
func (a *AuditLogger) LogHealthCheck(health *DatabaseHealth) error {
	if !a.config.Enabled {
		return nil
	}

	return a.writeEntry(AuditEntry{
		ID:            uuid.New().String(),
		Timestamp:     time.Now(),
		OperationType: "health_check",
		Success:       true,
		Details: map[string]interface{}{
			"health_score":    health.HealthScore,
			"issue_count":     health.IssueCount,
			"total_documents": health.TotalDocuments,
			"database_size":   health.DatabaseSize,
			"qos_ready":       health.QoSReady,
		},
	})
}

func (a *AuditLogger) writeEntry(entry AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.buffer = append(a.buffer, entry)

	if len(a.buffer) >= a.flushSize {
		return a.flushLocked()
	}

	return nil
}

// Flush writes all buffered entries to disk.
func (a *AuditLogger) Flush() error {
	if !a.config.Enabled {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	return a.flushLocked()
}

// flushLocked must be called with a.mu held.
func (a *AuditLogger) flushLocked() error {
	if len(a.buffer) == 0 {
		return nil
	}

	for _, entry := range a.buffer {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal audit entry: %w", err)
		}

		if _, err := fmt.Fprintf(a.file, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write audit entry: %w", err)
		}
	}

	if err := a.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync audit log: %w", err)
	}

	a.buffer = a.buffer[:0]

	return nil
}

// Close flushes any remaining entries and closes the log file.
func (a *AuditLogger) Close() error {
	if !a.config.Enabled || a.file == nil {
		return nil
	}

	if err := a.Flush(); err != nil {
		return err
	}

	return a.file.Close()
}
