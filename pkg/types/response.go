package types

// ErrorBody is the JSON document written for every failed request.
type ErrorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	Retryable bool   `json:"retryable"`
}
