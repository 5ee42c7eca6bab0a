package integrity

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"evalgo.org/qosd/models"
)

// scanReferences validates that the system record and every profile only
// point at records that exist.
func (s *Service) scanReferences(snap *snapshot) []Issue {
	s.logger.Debug("scanning for reference integrity issues")

	issues := []Issue{}

	if sys := snap.system; sys != nil {
		check := func(field string, kind models.Kind, ref models.Ref) {
			if ref != "" && !snap.exists(kind, ref) {
				issues = append(issues, createBrokenReferenceIssue(models.KindSystem, sys.ID, field, kind, ref))
			}
		}

		check("qos", models.KindScheduleProfile, sys.ScheduleProfile)
		check("q_profile", models.KindQueueProfile, sys.QueueProfile)
		for _, ref := range sys.CosMapEntries {
			check("qos_cos_map_entries", models.KindCosMapEntry, ref)
		}
		for _, ref := range sys.DscpMapEntries {
			check("qos_dscp_map_entries", models.KindDscpMapEntry, ref)
		}
	}

	for _, kind := range []models.Kind{models.KindScheduleProfile, models.KindQueueProfile} {
		entryKind := models.KindQueue
		if kind == models.KindQueueProfile {
			entryKind = models.KindQueueProfileEntry
		}
		for _, p := range snap.profiles[kind] {
			for _, pair := range p.Entries {
				if !snap.exists(entryKind, pair.Value) {
					field := fmt.Sprintf("entries[%d]", pair.Key)
					issues = append(issues, createBrokenReferenceIssue(kind, p.ID, field, entryKind, pair.Value))
				}
			}
		}
	}

	s.logger.Debug("reference scan done", "broken", len(issues))
	return issues
}

func createBrokenReferenceIssue(kind models.Kind, ref models.Ref, field string, targetKind models.Kind, target models.Ref) Issue {
	return Issue{
		ID:           uuid.New().String(),
		Type:         IssueTypeInvalidReference,
		Severity:     SeverityCritical,
		DocumentID:   ref,
		DocumentType: kind,
		Description:  fmt.Sprintf("%s %s field %s points at missing %s %s", kind, ref, field, targetKind, target),
		DetectedAt:   time.Now(),
		Details: map[string]interface{}{
			"field":       field,
			"target_id":   target,
			"target_type": targetKind,
		},
		SuggestedResolution: &Resolution{
			Strategy:         StrategyManual,
			Risk:             RiskHigh,
			Description:      "Re-run 'qosd init' to recreate the default profiles and maps",
			Operations:       []RepairOperation{},
			RequiresApproval: true,
		},
	}
}
