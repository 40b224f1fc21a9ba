package model

// HealthStatus is the body of the health check endpoint
type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
	Repos   int    `json:"repos"`
}
