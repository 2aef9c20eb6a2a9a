package models

// HealthStatus reports the state of the engine's collaborators.
// The assisting model never makes the engine unhealthy.
type HealthStatus struct {
	Status         string `json:"status"`
	Database       string `json:"database"`
	AssistingModel string `json:"assisting_model"`
	Error          string `json:"error,omitempty"`
}

// UnconfiguredHealth is the status of an engine with no collaborators wired.
func UnconfiguredHealth() HealthStatus {
	return HealthStatus{Status: "ok", Database: "not_configured", AssistingModel: "disabled"}
}
