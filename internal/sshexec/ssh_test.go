package sshexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresUser(t *testing.T) {
	_, err := NewClient(Config{PrivateKey: []byte("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user")
}

func TestNewClient_RequiresPrivateKey(t *testing.T) {
	_, err := NewClient(Config{User: "root"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private key")
}

func TestNewClient_RejectsMalformedKey(t *testing.T) {
	_, err := NewClient(Config{User: "root", PrivateKey: []byte("not a key")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse private key")
}

func TestNewClient_DefaultsPort(t *testing.T) {
	key := testPrivateKey(t)
	c, err := NewClient(Config{User: "root", PrivateKey: key})
	require.NoError(t, err)
	assert.Equal(t, defaultPort, c.cfg.Port)
}
