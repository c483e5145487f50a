// Package handlers provides HTTP request handling
package handlers

// Slug classifies a response
type Slug string

// Response slugs
const (
	SuccessSlug      Slug = "success"
	ErrorSlug        Slug = "error"
	InvalidInputSlug Slug = "invalid-input"
	NotFoundSlug     Slug = "not-found"
	UnavailableSlug  Slug = "unavailable"
	ServerErrorSlug  Slug = "server-error"
)

// Response is the envelope of every API response
type Response struct {
	Slug  Slug        `json:"slug"`
	Error string      `json:"error,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

// RunFailure is the data of a failed run response
type RunFailure struct {
	RunID string `json:"run_id"`
}

func success(data interface{}) Response {
	return Response{Slug: SuccessSlug, Data: data}
}

func errInvalidInput(msg string) Response {
	return Response{Slug: InvalidInputSlug, Error: msg}
}

func errNotFound(msg string) Response {
	return Response{Slug: NotFoundSlug, Error: msg}
}

func errUnavailable(msg string) Response {
	return Response{Slug: UnavailableSlug, Error: msg}
}

func errServer(msg string, data interface{}) Response {
	return Response{Slug: ServerErrorSlug, Error: msg, Data: data}
}
