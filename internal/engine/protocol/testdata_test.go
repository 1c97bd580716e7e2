package protocol

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func be16(v int) []byte { return []byte{byte(v >> 8), byte(v)} }
func be24(v int) []byte { return []byte{byte(v >> 16), byte(v >> 8), byte(v)} }

func tlsRecord(contentType byte, body []byte) []byte {
	out := []byte{contentType, 0x03, 0x01}
	out = append(out, be16(len(body))...)
	return append(out, body...)
}

func handshake(msgType byte, body []byte) []byte {
	out := []byte{msgType}
	out = append(out, be24(len(body))...)
	return append(out, body...)
}

func extension(extType int, data []byte) []byte {
	out := be16(extType)
	out = append(out, be16(len(data))...)
	return append(out, data...)
}

// buildClientHello returns a single-record ClientHello.
func buildClientHello(version uint16, serverName string, supported ...uint16) []byte {
	body := be16(int(version))
	body = append(body, make([]byte, 32)...) // random
	body = append(body, 0)                   // session id
	body = append(body, be16(2)...)
	body = append(body, 0x00, 0x2f) // TLS_RSA_WITH_AES_128_CBC_SHA
	body = append(body, 1, 0)       // null compression

	var exts []byte
	if serverName != "" {
		entry := append([]byte{0}, be16(len(serverName))...)
		entry = append(entry, serverName...)
		exts = append(exts, extension(int(extServerName), append(be16(len(entry)), entry...))...)
	}
	if len(supported) > 0 {
		data := []byte{byte(2 * len(supported))}
		for _, v := range supported {
			data = append(data, be16(int(v))...)
		}
		exts = append(exts, extension(int(extSupportedVersions), data)...)
	}
	body = append(body, be16(len(exts))...)
	body = append(body, exts...)

	return tlsRecord(0x16, handshake(handshakeClientHello, body))
}

// buildCertificate returns a Certificate handshake record carrying a
// self-signed certificate for commonName.
func buildCertificate(t *testing.T, commonName string) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	certs := append(be24(len(der)), der...)
	body := append(be24(len(certs)), certs...)
	return tlsRecord(0x16, handshake(handshakeCertificate, body))
}
