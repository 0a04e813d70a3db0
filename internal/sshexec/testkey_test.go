package sshexec

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/require"
)

// testPrivateKey generates a throwaway RSA key PEM-encoded in the
// PKCS1 format ssh.ParsePrivateKey accepts, purely so construction
// tests can exercise NewClient's parse-key-once path without a
// fixture checked into the repo.
func testPrivateKey(t *testing.T) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der := x509.MarshalPKCS1PrivateKey(key)
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: der}
	return pem.EncodeToMemory(block)
}
