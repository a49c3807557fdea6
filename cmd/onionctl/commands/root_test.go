package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SWAI-Ltd/onionmesh/internal/mesh"
	"github.com/SWAI-Ltd/onionmesh/internal/proto"
)

func TestTarget(t *testing.T) {
	ports = mesh.DefaultPorts

	addr, err := target("relay", []string{"2"})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:4002", addr)

	addr, err = target("user", []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:3001", addr)

	addr, err = target("registry", nil)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", addr)

	_, err = target("relay", nil)
	assert.Error(t, err)
	_, err = target("relay", []string{"-1"})
	assert.Error(t, err)
	_, err = target("bridge", []string{"1"})
	assert.Error(t, err)
}

func TestRootCmd_RejectsUnknownKind(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"status", "bridge", "1"})
	assert.Error(t, root.Execute())
}

func TestPrintJSON_RelayPeers(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, &proto.StateFrame{Role: "relay", NodeID: 2, Peers: []string{"10.0.0.3:4003"}}))
	assert.Contains(t, buf.String(), `"peers": [`)
	assert.Contains(t, buf.String(), `"10.0.0.3:4003"`)

	buf.Reset()
	require.NoError(t, printJSON(&buf, &proto.StateFrame{Role: "user", NodeID: 1}))
	assert.NotContains(t, buf.String(), "peers")
}
