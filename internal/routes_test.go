package internal

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msd/internal/controllers"
	"msd/internal/providers"
	"msd/internal/services"
	"msd/internal/structures"
)

// --- minimal mocks for routes test ---

type routeTestLogger struct{}

func (m *routeTestLogger) Errorf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *routeTestLogger) Warnf(_ providers.TypeEnum, _ string, _ ...interface{})  {}
func (m *routeTestLogger) Debugf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *routeTestLogger) Infof(_ providers.TypeEnum, _ string, _ ...interface{})  {}
func (m *routeTestLogger) Fatalf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *routeTestLogger) Close()                                                  {}

type routeTestCache struct{}

func (m *routeTestCache) Get(_ string) ([]byte, bool) { return nil, false }
func (m *routeTestCache) Set(_ string, _ []byte)      {}

func routeTestController() *controllers.ApiController {
	conf := &structures.Config{
		Migration: structures.MigrationConfig{FinalDay: 7},
	}
	svc := services.NewMigrationService(conf)
	reports := services.NewReportService(svc)
	return controllers.NewApiController(&routeTestLogger{}, svc, reports, &routeTestCache{})
}

func TestInitRoutes_RegistersAllRoutes(t *testing.T) {
	conf := &structures.Config{
		Migration: structures.MigrationConfig{FinalDay: 7},
	}
	router := InitRoutes(routeTestController(), conf)
	routes := router.GetRoutes()

	require.Len(t, routes, 13)

	urls := make([]string, len(routes))
	for i, r := range routes {
		urls[i] = r.Url
	}

	assert.Contains(t, urls, "/migrations")
	assert.Contains(t, urls, "/migrations/transition")
	assert.Contains(t, urls, "/migrations/snapshots")
	assert.Contains(t, urls, "/migrations/tracks")
	assert.Contains(t, urls, "/migrations/complete")
	assert.Contains(t, urls, "/migrations/transfer")
	assert.Contains(t, urls, "/people")
	assert.Contains(t, urls, "/adoption")
	assert.Contains(t, urls, "/overview")
	assert.Contains(t, urls, "/daily")
	assert.Contains(t, urls, "/pending")
	assert.Contains(t, urls, "/matrix")
	assert.Contains(t, urls, "/migration")
}

func TestInitRoutes_MethodEnforcement(t *testing.T) {
	conf := &structures.Config{
		Migration: structures.MigrationConfig{FinalDay: 7},
	}
	router := InitRoutes(routeTestController(), conf)

	mux := http.NewServeMux()
	for _, r := range router.GetRoutes() {
		mux.Handle(r.Url, r.Handler)
	}

	// GET /overview with POST should fail
	req := httptest.NewRequest(http.MethodPost, "/overview", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	// POST /migrations with GET should fail
	req = httptest.NewRequest(http.MethodGet, "/migrations", nil)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
