package compute

import (
	"errors"
	"net/http"

	"github.com/digitalocean/godo"
	"google.golang.org/api/googleapi"

	"github.com/anudishu/promote-cleanup/internal/compute/types"
)

// notFounder is implemented by errors that know whether they describe a missing resource
type notFounder interface {
	NotFound() bool
}

// IsNotFound returns true if err, or any error it wraps, means the addressed resource is absent
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, types.ErrNotFound) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound
	}

	var doErr *godo.ErrorResponse
	if errors.As(err, &doErr) {
		return doErr.Response != nil && doErr.Response.StatusCode == http.StatusNotFound
	}

	var nf notFounder
	if errors.As(err, &nf) {
		return nf.NotFound()
	}
	return false
}
