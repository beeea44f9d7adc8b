package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/JungesAngebot/platform-connectors/internal/mapping"
	"github.com/JungesAngebot/platform-connectors/internal/platform"
	"github.com/JungesAngebot/platform-connectors/internal/registry"
	"github.com/JungesAngebot/platform-connectors/internal/workflow"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestHandle_UnknownRegistryIDReturnsError(t *testing.T) {
	runner := &workflow.Runner{
		Registry: registry.NewMemoryStore(),
		Mapping:  mapping.NewMemoryStore(),
		Router:   platform.NewRouter(nil, nil, nil, true),
	}
	router := NewRouter(runner, 0)

	req := httptest.NewRequest(http.MethodPost, "/registry/missing/update", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"status":"error"}`, rec.Body.String())
}

func TestHandle_KnownRegistryIDInTestModeSucceeds(t *testing.T) {
	reg := registry.NewMemoryStore()
	entry := &registry.Entry{
		RegistryID:     "r1",
		Status:         registry.StatusActive,
		MappingID:      "m1",
		TargetPlatform: registry.PlatformFacebook,
	}
	require.NoError(t, reg.Save(context.Background(), entry))

	runner := &workflow.Runner{
		Registry: reg,
		Mapping:  mapping.NewMemoryStore(&mapping.Record{MappingID: "m1", TargetID: "token", TargetPlatform: "facebook"}),
		Router:   platform.NewRouter(nil, nil, nil, true),
	}
	router := NewRouter(runner, 0)

	req := httptest.NewRequest(http.MethodPost, "/registry/r1/unpublish", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success"}`, rec.Body.String())
}
