package integrity

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"evalgo.org/qosd/models"
)

// scanOrphans finds records nothing points at: CoS/DSCP rows left behind by
// an earlier map bootstrap, and queue entries no profile references.
func (s *Service) scanOrphans(snap *snapshot) []Issue {
	s.logger.Debug("scanning for orphaned records")

	referenced := referencedRecords(snap)
	issues := []Issue{}

	for _, kind := range []models.Kind{
		models.KindCosMapEntry,
		models.KindDscpMapEntry,
		models.KindQueue,
		models.KindQueueProfileEntry,
	} {
		for _, ref := range snap.refs[kind] {
			if referenced[kind][ref] {
				continue
			}
			issues = append(issues, createOrphanIssue(kind, ref))
		}
	}

	s.logger.Debug("orphan scan done", "orphans", len(issues))
	return issues
}

func createOrphanIssue(kind models.Kind, ref models.Ref) Issue {
	return Issue{
		ID:           uuid.New().String(),
		Type:         IssueTypeOrphaned,
		Severity:     SeverityLow,
		DocumentID:   ref,
		DocumentType: kind,
		Description:  fmt.Sprintf("%s %s is not referenced by any record", kind, ref),
		DetectedAt:   time.Now(),
		SuggestedResolution: &Resolution{
			Strategy:    StrategyKeepActive,
			Risk:        RiskLow,
			Description: "Delete the orphaned record",
			Operations: []RepairOperation{
				{
					ID:           uuid.New().String(),
					Type:         OpDeleteOrphaned,
					DocumentID:   ref,
					DocumentType: kind,
					Action:       fmt.Sprintf("Delete orphaned %s", kind),
					Risk:         RiskLow,
				},
			},
		},
	}
}

// referencedRecords collects every ref reachable from the system record or
// from any profile, keyed by the kind of the referenced record.
func referencedRecords(snap *snapshot) map[models.Kind]map[models.Ref]bool {
	referenced := map[models.Kind]map[models.Ref]bool{
		models.KindCosMapEntry:       {},
		models.KindDscpMapEntry:      {},
		models.KindQueue:             {},
		models.KindQueueProfileEntry: {},
	}

	if snap.system != nil {
		for _, ref := range snap.system.CosMapEntries {
			referenced[models.KindCosMapEntry][ref] = true
		}
		for _, ref := range snap.system.DscpMapEntries {
			referenced[models.KindDscpMapEntry][ref] = true
		}
	}

	for _, p := range snap.profiles[models.KindScheduleProfile] {
		for _, ref := range p.Entries.Values() {
			referenced[models.KindQueue][ref] = true
		}
	}
	for _, p := range snap.profiles[models.KindQueueProfile] {
		for _, ref := range p.Entries.Values() {
			referenced[models.KindQueueProfileEntry][ref] = true
		}
	}

	return referenced
}
