package integrity

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"evalgo.org/qosd/models"
)

// scanDuplicates finds profiles of one kind sharing a name. Profile lookup
// by name returns the oldest match, so every younger duplicate is dead
// configuration unless the system record points at it.
func (s *Service) scanDuplicates(snap *snapshot) []Issue {
	s.logger.Debug("scanning for duplicate profiles")

	issues := []Issue{}

	for _, kind := range []models.Kind{models.KindScheduleProfile, models.KindQueueProfile} {
		// Map: profile name -> profiles in creation order
		byName := make(map[string][]*models.Profile)
		var names []string
		for _, p := range snap.profiles[kind] {
			if _, seen := byName[p.Name]; !seen {
				names = append(names, p.Name)
			}
			byName[p.Name] = append(byName[p.Name], p)
		}

		for _, name := range names {
			if group := byName[name]; len(group) > 1 {
				issues = append(issues, s.createDuplicateIssue(snap, kind, name, group))
			}
		}
	}

	if len(snap.systems) > 1 {
		issues = append(issues, Issue{
			ID:           uuid.New().String(),
			Type:         IssueTypeDuplicate,
			Severity:     SeverityHigh,
			DocumentID:   snap.systems[0],
			DocumentType: models.KindSystem,
			Description:  fmt.Sprintf("Found %d system records; only the first one is used", len(snap.systems)),
			DetectedAt:   time.Now(),
			Details: map[string]interface{}{
				"document_count": len(snap.systems),
				"document_ids":   snap.systems,
			},
			SuggestedResolution: &Resolution{
				Strategy:         StrategyManual,
				Risk:             RiskHigh,
				Description:      "Review the extra system records and remove them by hand",
				Operations:       []RepairOperation{},
				RequiresApproval: true,
			},
		})
	}

	s.logger.Debug("duplicate scan done", "groups", len(issues))
	return issues
}

// createDuplicateIssue creates an Issue for a group of same-named profiles.
func (s *Service) createDuplicateIssue(snap *snapshot, kind models.Kind, name string, group []*models.Profile) Issue {
	keep := selectProfileToKeep(snap, kind, group)

	ids := make([]models.Ref, len(group))
	for i, p := range group {
		ids[i] = p.ID
	}

	issue := Issue{
		ID:           uuid.New().String(),
		Type:         IssueTypeDuplicate,
		Severity:     SeverityHigh,
		DocumentID:   keep.ID,
		DocumentType: kind,
		Description:  fmt.Sprintf("Found %d %s records named '%s'", len(group), kind, name),
		DetectedAt:   time.Now(),
		Details: map[string]interface{}{
			"name":           name,
			"document_count": len(group),
			"document_ids":   ids,
			"keep":           keep.ID,
		},
	}

	operations := make([]RepairOperation, 0, len(group)-1)
	for _, p := range group {
		if p.ID == keep.ID {
			continue
		}
		operations = append(operations, RepairOperation{
			ID:           uuid.New().String(),
			Type:         OpDeleteDuplicate,
			DocumentID:   p.ID,
			DocumentType: kind,
			Action:       fmt.Sprintf("Delete duplicate profile and its %d entries (keeping %s)", p.Entries.Len(), keep.ID),
			OldValue:     p,
			Risk:         RiskMedium,
		})
	}

	issue.SuggestedResolution = &Resolution{
		Strategy: StrategyKeepActive,
		Risk:     RiskMedium,
		Description: fmt.Sprintf(
			"Keep %s and delete %d duplicate '%s' profiles",
			keep.ID, len(operations), name,
		),
		Operations:       operations,
		RequiresApproval: false,
	}

	return issue
}

// selectProfileToKeep picks the profile the system record points at, or the
// oldest one when none of the group is active.
func selectProfileToKeep(snap *snapshot, kind models.Kind, group []*models.Profile) *models.Profile {
	if snap.system != nil {
		active := snap.system.ScheduleProfile
		if kind == models.KindQueueProfile {
			active = snap.system.QueueProfile
		}
		for _, p := range group {
			if p.ID == active {
				return p
			}
		}
	}
	return group[0]
}
