package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), "xauth", "", false)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
