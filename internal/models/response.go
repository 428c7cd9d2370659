package models

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string       `json:"status"`
	LastCycle *CycleResult `json:"last_cycle,omitempty"`
	Timestamp int64        `json:"timestamp"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// ResendRequest identifies a ledger commit to notify again
type ResendRequest struct {
	ID string `json:"id" validate:"required,max=128,printascii"`
}

// ResendResponse represents the response after a resend
type ResendResponse struct {
	Status    string `json:"status"`
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
}

// CycleResult summarises one poll cycle
type CycleResult struct {
	ID         string `json:"id"`
	StartedAt  int64  `json:"started_at"`
	Fetched    int    `json:"fetched"`
	New        int    `json:"new"`
	Delivered  int    `json:"delivered"`
	Failed     int    `json:"failed"`
	Persisted  bool   `json:"persisted"`
	LedgerSize int    `json:"ledger_size"`
	Skipped    bool   `json:"skipped,omitempty"`
}
