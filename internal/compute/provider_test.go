package compute

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anudishu/promote-cleanup/internal/constants"
	"github.com/anudishu/promote-cleanup/test/mocks"
)

func TestIsValidProvider(t *testing.T) {
	for _, p := range []ProviderID{ProviderGCP, ProviderDigitalOcean, "do", ProviderMock} {
		assert.True(t, IsValidProvider(p), p.String())
	}
	assert.False(t, IsValidProvider("aws"))
	assert.False(t, IsValidProvider(""))
}

func TestNewComputeProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("mock", func(t *testing.T) {
		c, err := NewComputeProvider(ctx, ProviderMock, "p", "z")
		require.NoError(t, err)
		assert.IsType(t, &mocks.MockCompute{}, c)
	})

	t.Run("digitalocean needs a token", func(t *testing.T) {
		t.Setenv(constants.EnvDigitalOceanToken, "")
		_, err := NewComputeProvider(ctx, ProviderDigitalOcean, "", "")
		assert.Error(t, err)

		t.Setenv(constants.EnvDigitalOceanToken, "dop_v1_test")
		c, err := NewComputeProvider(ctx, "do", "", "")
		require.NoError(t, err)
		assert.IsType(t, &DigitalOceanProvider{}, c)
	})

	t.Run("gcp validates project and zone", func(t *testing.T) {
		_, err := NewComputeProvider(ctx, ProviderGCP, "", "us-central1-a")
		assert.Error(t, err)
		_, err = NewComputeProvider(ctx, ProviderGCP, "p", "")
		assert.Error(t, err)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := NewComputeProvider(ctx, "aws", "p", "z")
		assert.ErrorContains(t, err, "unsupported provider")
	})
}
