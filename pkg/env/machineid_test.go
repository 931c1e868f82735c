package env

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGatewayID(t *testing.T) {
	id := GatewayID()
	require.NotEmpty(t, id)
	require.Equal(t, id, GatewayID())
	if mid, err := MachineID(); err == nil {
		require.Equal(t, mid, id)
	}
}
