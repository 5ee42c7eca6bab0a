package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/qosd/internal/config"
	"evalgo.org/qosd/internal/integrity"
	"evalgo.org/qosd/internal/qos"
	"evalgo.org/qosd/internal/qos/defaults"
	"evalgo.org/qosd/internal/store"
	"evalgo.org/qosd/internal/version"
	"evalgo.org/qosd/models"
)

func setupTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *store.Store) {
	t.Helper()

	cfg := &config.Config{
		Store: config.StoreConfig{
			Path:    filepath.Join(t.TempDir(), "qosd.db"),
			Timeout: time.Second,
		},
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 8096,
		},
	}
	if mutate != nil {
		mutate(cfg)
	}

	st, err := store.New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	svc, err := integrity.NewService(st, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	return New(cfg, st, svc, nil), st
}

func bootstrap(t *testing.T, st *store.Store) {
	t.Helper()

	b := qos.NewBootstrapper(qos.NewProfileStore(nil), nil)
	require.NoError(t, st.Update(func(txn *store.Txn) error {
		sys, err := txn.EnsureSystem()
		if err != nil {
			return err
		}
		return b.Run(txn, sys)
	}))
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

func TestHealthCheck(t *testing.T) {
	s, st := setupTestServer(t, nil)
	bootstrap(t, st)

	rec := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "qosd", body["service"])
	assert.Equal(t, version.Version, body["version"])
	assert.Greater(t, body["records"], float64(0))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestGetSystem(t *testing.T) {
	s, st := setupTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/api/v1/system", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	bootstrap(t, st)

	rec = do(t, s, http.MethodGet, "/api/v1/system", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body SystemResponse
	decode(t, rec, &body)
	assert.Equal(t, defaults.TrustNone, body.Trust)
	require.NotNil(t, body.System)
	assert.Len(t, body.System.CosMapEntries, defaults.CosMapEntryCount)
	assert.Len(t, body.System.DscpMapEntries, defaults.DscpMapEntryCount)
	assert.NotEmpty(t, body.System.ScheduleProfile)
	assert.NotEmpty(t, body.System.QueueProfile)
}

func TestGetStatistics(t *testing.T) {
	s, st := setupTestServer(t, nil)
	bootstrap(t, st)

	rec := do(t, s, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats store.Statistics
	decode(t, rec, &stats)
	assert.Equal(t, defaults.DscpMapEntryCount, stats.Records[models.KindDscpMapEntry])
	assert.Equal(t, 2, stats.Records[models.KindScheduleProfile])
	assert.Equal(t, 1, stats.Records[models.KindSystem])
}

func TestListScheduleProfiles(t *testing.T) {
	s, st := setupTestServer(t, nil)
	bootstrap(t, st)

	rec := do(t, s, http.MethodGet, "/api/v1/profiles/schedule", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body ListResponse[ProfileSummary]
	decode(t, rec, &body)
	require.Equal(t, 2, body.Count)

	byName := map[string]ProfileSummary{}
	for _, p := range body.Items {
		byName[p.Name] = p
	}
	assert.True(t, byName[defaults.ProfileDefault].Active)
	assert.False(t, byName[defaults.ProfileDefault].HWDefault)
	assert.False(t, byName[defaults.ProfileFactoryDefault].Active)
	assert.True(t, byName[defaults.ProfileFactoryDefault].HWDefault)
	assert.Len(t, byName[defaults.ProfileDefault].Queues, defaults.QueueCount)
}

func TestGetScheduleProfile(t *testing.T) {
	s, st := setupTestServer(t, nil)
	bootstrap(t, st)

	rec := do(t, s, http.MethodGet, "/api/v1/profiles/schedule/default", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body ScheduleProfileResponse
	decode(t, rec, &body)
	assert.True(t, body.Active)
	require.Len(t, body.Queues, defaults.QueueCount)
	assert.Equal(t, models.AlgorithmStrict, body.Queues[7].Algorithm)
	assert.Nil(t, body.Queues[7].Weight)
	assert.Equal(t, models.AlgorithmWRR, body.Queues[2].Algorithm)
	require.NotNil(t, body.Queues[2].Weight)
	assert.Equal(t, 3, *body.Queues[2].Weight)
}

func TestGetQueueProfile(t *testing.T) {
	s, st := setupTestServer(t, nil)
	bootstrap(t, st)

	rec := do(t, s, http.MethodGet, "/api/v1/profiles/queue/factory-default", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body QueueProfileResponse
	decode(t, rec, &body)
	assert.False(t, body.Active)
	assert.True(t, body.Profile.HWDefault)
	require.Len(t, body.Queues, defaults.QueueCount)
	assert.Equal(t, []int{3}, body.Queues[3].LocalPriorities)

	rec = do(t, s, http.MethodGet, "/api/v1/profiles/queue/gold", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/profiles/queue/"+strings.Repeat("x", 65), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListCosMap(t *testing.T) {
	s, st := setupTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/api/v1/maps/cos", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var empty ListResponse[models.CosMapEntry]
	decode(t, rec, &empty)
	assert.Zero(t, empty.Total)

	bootstrap(t, st)
	// A second bootstrap leaves the first batch behind; only live rows show.
	bootstrap(t, st)

	rec = do(t, s, http.MethodGet, "/api/v1/maps/cos", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body ListResponse[models.CosMapEntry]
	decode(t, rec, &body)
	require.Equal(t, defaults.CosMapEntryCount, body.Total)
	for i, row := range body.Items {
		assert.Equal(t, i, row.CodePoint)
		assert.NotEmpty(t, row.HWDefaults)
	}
}

func TestListDscpMap_Pagination(t *testing.T) {
	s, st := setupTestServer(t, nil)
	bootstrap(t, st)

	rec := do(t, s, http.MethodGet, "/api/v1/maps/dscp?limit=10&offset=60", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body ListResponse[models.DscpMapEntry]
	decode(t, rec, &body)
	assert.Equal(t, defaults.DscpMapEntryCount, body.Total)
	assert.Equal(t, 4, body.Count)
	assert.Equal(t, 60, body.Items[0].CodePoint)

	rec = do(t, s, http.MethodGet, "/api/v1/maps/dscp?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIntegrityEndpoints(t *testing.T) {
	s, st := setupTestServer(t, nil)
	bootstrap(t, st)

	rec := do(t, s, http.MethodGet, "/api/v1/integrity/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var health integrity.DatabaseHealth
	decode(t, rec, &health)
	assert.True(t, health.QoSReady)
	assert.Equal(t, 100, health.HealthScore)

	bootstrap(t, st)

	rec = do(t, s, http.MethodPost, "/api/v1/integrity/scan", `{"kinds":["CosMapEntry"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var report integrity.ScanReport
	decode(t, rec, &report)
	assert.Equal(t, defaults.CosMapEntryCount, report.Summary.TotalIssues)

	rec = do(t, s, http.MethodPost, "/api/v1/integrity/scan", `{"kinds":["Bogus"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/v1/integrity/plan", `{"risk_filter":["low"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var plan integrity.RepairPlan
	decode(t, rec, &plan)
	assert.True(t, plan.DryRun)
	assert.Len(t, plan.Operations, defaults.CosMapEntryCount+defaults.DscpMapEntryCount)

	rec = do(t, s, http.MethodPost, "/api/v1/integrity/plan", `{"strategy":"newest"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRejectsNonJSONAccept(t *testing.T) {
	s, _ := setupTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit(t *testing.T) {
	s, _ := setupTestServer(t, func(cfg *config.Config) {
		cfg.Security.RateLimit = 1
	})

	first := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, first.Code)

	second := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
