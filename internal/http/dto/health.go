package dto

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type Error struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlationId,omitempty"`
}
