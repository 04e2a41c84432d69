// Package health contiene el controller de readiness.
package health

import (
	"net/http"

	"github.com/dropDatabas3/holoauth/internal/http/helpers"
	svc "github.com/dropDatabas3/holoauth/internal/http/services/health"
)

type HealthController struct {
	service svc.HealthService
}

func NewHealthController(s svc.HealthService) *HealthController {
	return &HealthController{service: s}
}

// Readyz: 200 si ready o degraded, 503 si unavailable.
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	resp := c.service.Check(r.Context())
	status := http.StatusOK
	if resp.Status == "unavailable" {
		status = http.StatusServiceUnavailable
	}
	helpers.WriteJSON(w, status, resp)
}

// Livez sólo confirma que el proceso atiende.
func (c *HealthController) Livez(w http.ResponseWriter, _ *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
