package protocol

import (
	"Go2AdversaryLab/internal/model"
	"Go2AdversaryLab/internal/store"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClientHello(t *testing.T) {
	ch, err := ParseClientHello(buildClientHello(0x0303, "example.org"))
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0303), ch.Version)
	assert.Equal(t, "example.org", ch.ServerName)
	assert.True(t, ch.IsTLS12())

	ch, err = ParseClientHello(buildClientHello(0x0303, "", 0x0304, 0x0303))
	require.NoError(t, err)
	assert.Empty(t, ch.ServerName)
	assert.Equal(t, []uint16{0x0304, 0x0303}, ch.SupportedVersions)
	assert.False(t, ch.IsTLS12())
}

func TestDetect(t *testing.T) {
	kind, ok := Detect(buildClientHello(0x0303, "example.org"))
	assert.True(t, ok)
	assert.Equal(t, KnownTLS12, kind)

	_, ok = Detect(buildClientHello(0x0301, "example.org"))
	assert.False(t, ok, "TLS 1.0 is not fingerprinted")

	_, ok = Detect([]byte("GET / HTTP/1.1\r\n\r\n"))
	assert.False(t, ok)

	_, ok = Detect(nil)
	assert.False(t, ok)

	hello := buildClientHello(0x0303, "example.org")
	_, ok = Detect(hello[:20])
	assert.False(t, ok, "truncated record")
}

func TestParseCertificateCommonName(t *testing.T) {
	cn, err := ParseCertificateCommonName(buildCertificate(t, "blocked.example"))
	require.NoError(t, err)
	assert.Equal(t, "blocked.example", cn)

	_, err = ParseCertificateCommonName(buildClientHello(0x0303, "x"))
	assert.Error(t, err)
}

func TestProcess(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore(4)
	conn := model.ObservedConnection{ID: "c1", Class: model.Blocked}
	require.NoError(t, s.SetField(ctx, model.PacketsKey(conn.Class, model.Outgoing), conn.ID, buildClientHello(0x0303, "example.org")))
	require.NoError(t, s.SetField(ctx, model.PacketsKey(conn.Class, model.Incoming), conn.ID, buildCertificate(t, "cdn.example")))

	kind, ok, err := DetectConnection(ctx, s, conn)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, Process(ctx, s, conn, kind))

	v, ok, err := s.Score(ctx, conn.Table(model.Outgoing, model.FeatureTLSServerName), "example.org")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)

	v, ok, err = s.Score(ctx, conn.Table(model.Incoming, model.FeatureTLSCommonName), "cdn.example")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)
}

func TestProcess_MissingIncomingIsSkipped(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore(4)
	conn := model.ObservedConnection{ID: "c2", Class: model.Allowed}
	require.NoError(t, s.SetField(ctx, model.PacketsKey(conn.Class, model.Outgoing), conn.ID, buildClientHello(0x0303, "a.example")))

	require.NoError(t, Process(ctx, s, conn, KnownTLS12))

	n, err := s.Count(ctx, conn.Table(model.Incoming, model.FeatureTLSCommonName))
	require.NoError(t, err)
	assert.Zero(t, n)
}
