package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// FlatError is the error body of the payment functions: a message plus, for declined
// captures, the processor status.
type FlatError struct {
	Error  string `json:"error"`
	Status string `json:"status,omitempty"`
}
