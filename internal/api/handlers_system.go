package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"evalgo.org/qosd/internal/qos/defaults"
	"evalgo.org/qosd/internal/store"
	"evalgo.org/qosd/models"
)

// getSystem handles GET /api/v1/system
func (s *Server) getSystem(c echo.Context) error {
	var sys *models.System
	err := s.store.View(func(txn *store.Txn) error {
		var err error
		sys, err = txn.System()
		return err
	})
	if err != nil {
		return storeError(err, "System record", "")
	}

	return c.JSON(http.StatusOK, SystemResponse{
		System: sys,
		Trust:  sys.QoSConfig[defaults.TrustKey],
	})
}

// getStatistics handles GET /api/v1/stats
func (s *Server) getStatistics(c echo.Context) error {
	stats, err := s.store.GetStatistics()
	if err != nil {
		return InternalError("Failed to get statistics", err.Error())
	}

	return c.JSON(http.StatusOK, stats)
}
