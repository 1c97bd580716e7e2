package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	var buf bytes.Buffer
	n, err := generate(&buf, options{
		Connections: 3, ServerPort: 443, OutSize: 100, InSize: 200,
		DelayMs: 20, Seed: 1, StartTime: time.Unix(1700000000, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	r, err := pcapgo.NewReader(&buf)
	require.NoError(t, err)
	source := gopacket.NewPacketSource(r, layers.LinkTypeEthernet)

	var sizes []int
	for packet := range source.Packets() {
		tcp := packet.Layer(layers.LayerTypeTCP).(*layers.TCP)
		if len(tcp.Payload) > 0 {
			sizes = append(sizes, len(tcp.Payload))
		}
	}
	assert.Equal(t, []int{100, 200, 100, 200, 100, 200}, sizes)
}
