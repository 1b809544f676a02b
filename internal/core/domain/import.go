package domain

// ImportCandidate is one parsed record of a bulk import payload.
type ImportCandidate struct {
	Name        string `json:"name" validate:"required"`
	Quantity    int    `json:"quantity" validate:"gte=0"`
	Description string `json:"description"`
	Valid       bool   `json:"-"`
}

type ImportFailure struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Message           string          `json:"message"`
	SuccessfulImports int             `json:"successful_imports"`
	FailedImports     int             `json:"failed_imports"`
	Failures          []ImportFailure `json:"failures,omitempty"`
}
