// Package notify contiene los DTOs del endpoint de notificación de resultados.
package notify

type NotifyRequest struct {
	Email   string `json:"email"`
	Success bool   `json:"success"`
	Data    string `json:"data"`
	// Alias fuerza un template; vacío => se clasifica Data.
	Alias string `json:"alias,omitempty"`
}

type NotifyResponse struct {
	Status string `json:"status"`
	Alias  string `json:"alias"`
}
