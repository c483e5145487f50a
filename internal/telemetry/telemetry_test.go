package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_RequiresEndpoint(t *testing.T) {
	t.Setenv(EnvEndpoint, "")

	shutdown, err := Init(context.Background(), "promote-cleanup")
	assert.ErrorIs(t, err, ErrNoEndpoint)
	assert.Nil(t, shutdown)
}

func TestInit_RequiresServiceName(t *testing.T) {
	t.Setenv(EnvEndpoint, "http://localhost:4318")

	_, err := Init(context.Background(), "")
	assert.Error(t, err)
}

func TestExporterOptions(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		wantLen  int
		wantErr  bool
	}{
		{name: "http url is insecure", endpoint: "http://collector:4318", wantLen: 2},
		{name: "https url with path", endpoint: "https://collector.example.com/otlp/v1/traces", wantLen: 2},
		{name: "bare host port", endpoint: "collector:4318", wantLen: 2},
		{name: "scheme without host", endpoint: "http://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := exporterOptions(tt.endpoint)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, opts, tt.wantLen)
		})
	}
}
