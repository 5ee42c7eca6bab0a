package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"evalgo.org/qosd/internal/integrity"
	"evalgo.org/qosd/models"
)

// IntegrityScanRequest contains options for scanning.
type IntegrityScanRequest struct {
	ScanDuplicates bool          `json:"scan_duplicates"`
	ScanOrphans    bool          `json:"scan_orphans"`
	ScanReferences bool          `json:"scan_references"`
	ScanSchemas    bool          `json:"scan_schemas"`
	Kinds          []models.Kind `json:"kinds,omitempty"`
}

func (r IntegrityScanRequest) options() (integrity.ScanOptions, *APIError) {
	options := integrity.ScanOptions{
		ScanDuplicates: r.ScanDuplicates,
		ScanOrphans:    r.ScanOrphans,
		ScanReferences: r.ScanReferences,
		ScanSchemas:    r.ScanSchemas,
		Kinds:          r.Kinds,
	}

	// Default to scanning everything if nothing specified
	if !r.ScanDuplicates && !r.ScanOrphans && !r.ScanReferences && !r.ScanSchemas {
		options = integrity.DefaultScanOptions()
		options.Kinds = r.Kinds
	}

	for _, kind := range r.Kinds {
		if !kind.Valid() {
			return options, ValidationError("Invalid scan request", map[string]string{
				"kinds": "unknown record kind " + string(kind),
			})
		}
	}

	return options, nil
}

// scanIntegrity handles POST /api/v1/integrity/scan
func (s *Server) scanIntegrity(c echo.Context) error {
	var req IntegrityScanRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestError("Invalid request body", "Failed to parse JSON: "+err.Error())
	}

	options, apiErr := req.options()
	if apiErr != nil {
		return apiErr
	}

	if s.integrity == nil {
		return InternalError("Integrity service not available", "Service not initialized")
	}

	report, err := s.integrity.Scan(c.Request().Context(), options)
	if err != nil {
		return InternalError("Integrity scan failed", err.Error())
	}

	return c.JSON(http.StatusOK, report)
}

// getHealth handles GET /api/v1/integrity/health
func (s *Server) getHealth(c echo.Context) error {
	if s.integrity == nil {
		return InternalError("Integrity service not available", "Service not initialized")
	}

	health, err := s.integrity.CheckHealth(c.Request().Context())
	if err != nil {
		return InternalError("Failed to get health status", err.Error())
	}

	return c.JSON(http.StatusOK, health)
}

// CreateRepairPlanRequest contains options for creating a repair plan.
type CreateRepairPlanRequest struct {
	Strategy   integrity.ResolutionStrategy `json:"strategy"`
	RiskFilter []integrity.RiskLevel        `json:"risk_filter"`
}

// createRepairPlan handles POST /api/v1/integrity/plan
// The API only computes plans; executing one is left to 'qosd integrity repair'.
func (s *Server) createRepairPlan(c echo.Context) error {
	var req CreateRepairPlanRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestError("Invalid request body", "Failed to parse JSON: "+err.Error())
	}

	fieldErrors := map[string]string{}
	switch req.Strategy {
	case "", integrity.StrategyKeepActive, integrity.StrategyManual:
	default:
		fieldErrors["strategy"] = "must be one of: keep_active, manual"
	}
	for _, risk := range req.RiskFilter {
		switch risk {
		case integrity.RiskLow, integrity.RiskMedium, integrity.RiskHigh:
		default:
			fieldErrors["risk_filter"] = "must contain only: low, medium, high"
		}
	}
	if len(fieldErrors) > 0 {
		return ValidationError("Invalid repair plan request", fieldErrors)
	}

	if s.integrity == nil {
		return InternalError("Integrity service not available", "Service not initialized")
	}

	report, err := s.integrity.Scan(c.Request().Context(), integrity.DefaultScanOptions())
	if err != nil {
		return InternalError("Integrity scan failed", err.Error())
	}

	plan, err := s.integrity.CreateRepairPlan(report, req.Strategy, req.RiskFilter)
	if err != nil {
		return InternalError("Failed to create repair plan", err.Error())
	}

	return c.JSON(http.StatusOK, plan)
}
