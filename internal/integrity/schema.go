package integrity

import (
	"time"

	"github.com/google/uuid"

	"evalgo.org/qosd/models"
)

// scanSchemas validates the stored JSON of every record.
func (s *Service) scanSchemas(snap *snapshot) []Issue {
	s.logger.Debug("scanning for schema violations")

	issues := []Issue{}

	for _, kind := range models.Kinds() {
		for _, ref := range snap.refs[kind] {
			result, err := s.validator.ValidateDocument(kind, snap.raw[kind][ref])
			if err != nil {
				s.logger.Warn("failed to validate record", "kind", kind, "id", ref, "error", err)
				continue
			}
			if result.Valid {
				continue
			}

			issues = append(issues, Issue{
				ID:           uuid.New().String(),
				Type:         IssueTypeInvalidSchema,
				Severity:     SeverityMedium,
				DocumentID:   ref,
				DocumentType: kind,
				Description:  result.String(),
				DetectedAt:   time.Now(),
				Details: map[string]interface{}{
					"errors": result.Errors,
				},
				SuggestedResolution: &Resolution{
					Strategy:         StrategyManual,
					Risk:             RiskHigh,
					Description:      "Fix or restore the record by hand",
					Operations:       []RepairOperation{},
					RequiresApproval: true,
				},
			})
		}
	}

	s.logger.Debug("schema scan done", "invalid", len(issues))
	return issues
}
