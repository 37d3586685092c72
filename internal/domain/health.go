package domain

// ============================================================
// Health API Responses
// ============================================================

// HealthStatus is returned by GET /readyz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	Error       string `json:"error,omitempty"`
	LastChecked string `json:"lastChecked"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

// AffectedResponse is returned by bulk admin operations.
type AffectedResponse struct {
	Affected int `json:"affected"`
}
