package transport

import "encoding/json"

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Envelope wraps every API response. Success payloads carry Data, failures
// carry Code and Error; Meta is free-form in both cases.
type Envelope struct {
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  interface{} `json:"error,omitempty"`
	Meta   interface{} `json:"meta,omitempty"`
}

// NewSuccess builds a success envelope around the given payload.
func NewSuccess(data interface{}, meta interface{}) Envelope {
	return Envelope{Status: statusSuccess, Data: data, Meta: meta}
}

// NewError builds a failure envelope carrying a machine-readable code.
func NewError(code string, err interface{}, meta interface{}) Envelope {
	return Envelope{Status: statusError, Code: code, Error: err, Meta: meta}
}

// String renders the envelope as JSON for log lines.
func (e Envelope) String() string {
	out, err := json.Marshal(e)
	if err != nil {
		return "{}"
	}
	return string(out)
}
