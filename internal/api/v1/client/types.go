package client

import "encoding/json"

// envelope mirrors handlers.Response with the data left undecoded
type envelope struct {
	Slug  string          `json:"slug"`
	Error string          `json:"error"`
	Data  json.RawMessage `json:"data"`
}

// RunFailedError is returned by PublishEvent when the server ran the workflow and it failed
type RunFailedError struct {
	RunID   string
	Message string
}

func (e *RunFailedError) Error() string {
	return "run " + e.RunID + " failed: " + e.Message
}
