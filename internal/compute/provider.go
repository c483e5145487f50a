// Package compute provides the compute backends the promotion workflow can drive
package compute

import (
	"context"
	"fmt"

	"github.com/anudishu/promote-cleanup/internal/compute/types"
	"github.com/anudishu/promote-cleanup/test/mocks"
)

// ProviderID identifies a compute backend
type ProviderID string

// Supported providers
const (
	ProviderGCP          ProviderID = "gcp"
	ProviderDigitalOcean ProviderID = "digitalocean"
	// ProviderMock is an in-memory backend for local runs and tests
	ProviderMock ProviderID = "mock"
)

// String implements the fmt.Stringer interface
func (p ProviderID) String() string {
	return string(p)
}

// IsValidProvider checks whether the given provider ID is supported.
func IsValidProvider(provider ProviderID) bool {
	_, ok := validProviders[provider]
	return ok
}

var validProviders = map[ProviderID]struct{}{
	ProviderGCP: {}, ProviderDigitalOcean: {}, "do": {}, ProviderMock: {},
}

// NewComputeProvider creates a new compute provider based on the provider name
func NewComputeProvider(ctx context.Context, provider ProviderID, project, zone string) (types.Compute, error) {
	switch provider {
	case ProviderGCP:
		return NewGCPProvider(ctx, project, zone)
	case ProviderDigitalOcean, "do":
		return NewDigitalOceanProvider()
	case ProviderMock:
		return mocks.NewMockCompute(), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}
