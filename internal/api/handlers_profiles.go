package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"evalgo.org/qosd/internal/store"
	"evalgo.org/qosd/models"
)

// listScheduleProfiles handles GET /api/v1/profiles/schedule
func (s *Server) listScheduleProfiles(c echo.Context) error {
	return s.listProfiles(c, models.KindScheduleProfile)
}

// listQueueProfiles handles GET /api/v1/profiles/queue
func (s *Server) listQueueProfiles(c echo.Context) error {
	return s.listProfiles(c, models.KindQueueProfile)
}

func (s *Server) listProfiles(c echo.Context, kind models.Kind) error {
	var summaries []ProfileSummary

	err := s.store.View(func(txn *store.Txn) error {
		active, err := activeProfile(txn, kind)
		if err != nil {
			return err
		}

		refs, err := txn.Records(kind)
		if err != nil {
			return err
		}

		summaries = make([]ProfileSummary, 0, len(refs))
		for _, ref := range refs {
			var p models.Profile
			if err := txn.Get(kind, ref, &p); err != nil {
				return err
			}
			summaries = append(summaries, ProfileSummary{
				ID:        p.ID,
				Name:      p.Name,
				HWDefault: p.HWDefault,
				Active:    p.ID == active,
				Queues:    p.Entries.Keys(),
			})
		}
		return nil
	})
	if err != nil {
		return InternalError("Failed to list profiles", err.Error())
	}

	return c.JSON(http.StatusOK, ListResponse[ProfileSummary]{
		Count: len(summaries),
		Total: len(summaries),
		Limit: len(summaries),
		Items: summaries,
	})
}

// getScheduleProfile handles GET /api/v1/profiles/schedule/:name
func (s *Server) getScheduleProfile(c echo.Context) error {
	name := c.Param("name")

	var resp ScheduleProfileResponse
	err := s.store.View(func(txn *store.Txn) error {
		profile, entries, err := s.profiles.QueueEntries(txn, name)
		if err != nil {
			return err
		}
		active, err := activeProfile(txn, models.KindScheduleProfile)
		if err != nil {
			return err
		}
		resp = ScheduleProfileResponse{Profile: profile, Active: profile.ID == active, Queues: entries}
		return nil
	})
	if err != nil {
		return storeError(err, "Schedule profile", name)
	}

	return c.JSON(http.StatusOK, resp)
}

// getQueueProfile handles GET /api/v1/profiles/queue/:name
func (s *Server) getQueueProfile(c echo.Context) error {
	name := c.Param("name")

	var resp QueueProfileResponse
	err := s.store.View(func(txn *store.Txn) error {
		profile, entries, err := s.profiles.PriorityEntries(txn, name)
		if err != nil {
			return err
		}
		active, err := activeProfile(txn, models.KindQueueProfile)
		if err != nil {
			return err
		}
		resp = QueueProfileResponse{Profile: profile, Active: profile.ID == active, Queues: entries}
		return nil
	})
	if err != nil {
		return storeError(err, "Queue profile", name)
	}

	return c.JSON(http.StatusOK, resp)
}

// activeProfile returns the profile of kind the system record points at, or
// "" before the first bootstrap.
func activeProfile(txn *store.Txn, kind models.Kind) (models.Ref, error) {
	sys, err := txn.System()
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if kind == models.KindQueueProfile {
		return sys.QueueProfile, nil
	}
	return sys.ScheduleProfile, nil
}
