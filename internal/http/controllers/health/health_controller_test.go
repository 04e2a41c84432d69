package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	dto "github.com/dropDatabas3/holoauth/internal/http/dto/health"
)

type stubService struct{ status string }

func (s stubService) Check(context.Context) dto.HealthResponse {
	return dto.HealthResponse{Status: s.status}
}

func TestReadyz(t *testing.T) {
	for status, code := range map[string]int{
		"ready":       http.StatusOK,
		"degraded":    http.StatusOK,
		"unavailable": http.StatusServiceUnavailable,
	} {
		rec := httptest.NewRecorder()
		NewHealthController(stubService{status}).Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		require.Equal(t, code, rec.Code, status)
		require.Contains(t, rec.Body.String(), status)
	}
}
