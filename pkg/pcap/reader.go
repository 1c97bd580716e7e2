package pcap

import (
	"Go2AdversaryLab/internal/engine/protocol"
	"Go2AdversaryLab/internal/model"
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/sirupsen/logrus"
)

// Reader reads packets from a pcap or pcapng file without libpcap.
type Reader struct {
	file     *os.File
	source   gopacket.PacketDataSource
	linkType layers.LinkType
	logger   *logrus.Logger
}

// NewReader opens filePath as classic pcap and falls back to pcapng.
func NewReader(filePath string, logger *logrus.Logger) (*Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}

	r := &Reader{file: file, logger: logger}
	if pr, err := pcapgo.NewReader(bufio.NewReader(file)); err == nil {
		r.source, r.linkType = pr, pr.LinkType()
		return r, nil
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, err
	}
	ng, err := pcapgo.NewNgReader(bufio.NewReader(file), pcapgo.DefaultNgReaderOptions)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%s is neither pcap nor pcapng: %w", filePath, err)
	}
	r.source, r.linkType = ng, ng.LinkType()
	return r, nil
}

// LinkType returns the link layer of the capture.
func (r *Reader) LinkType() layers.LinkType {
	return r.linkType
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// ReadPackets reads all packets from the file and sends the parsed
// PacketInfo to the provided channel. It closes the channel when done.
func (r *Reader) ReadPackets(ctx context.Context, out chan<- *model.PacketInfo) {
	defer close(out)

	packetSource := gopacket.NewPacketSource(r.source, r.linkType)
	for packet := range packetSource.Packets() {
		info, err := protocol.ParsePacket(packet)
		if err != nil {
			// Unsupported or corrupt packets are skipped.
			r.logger.Debugf("Error parsing packet: %v", err)
			continue
		}
		select {
		case out <- info:
		case <-ctx.Done():
			return
		}
	}
}
