package main

import (
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/sirupsen/logrus"
)

// options describe the synthetic connections of one capture.
type options struct {
	Connections int
	ServerPort  uint16
	// Outgoing and incoming payload sizes are drawn from [Size, Size+Jitter].
	OutSize   int
	InSize    int
	Jitter    int
	DelayMs   float64
	Seed      uint64
	StartTime time.Time
}

var (
	clientMAC = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	serverMAC = net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA}
)

func main() {
	outputFile := flag.String("o", "lab.pcap", "Output pcap file path")
	opts := options{StartTime: time.Now()}
	flag.IntVar(&opts.Connections, "c", 100, "Number of connections to generate")
	port := flag.Uint("port", 443, "Server port")
	flag.IntVar(&opts.OutSize, "out", 517, "Outgoing payload size")
	flag.IntVar(&opts.InSize, "in", 1400, "Incoming payload size")
	flag.IntVar(&opts.Jitter, "jitter", 0, "Random extra bytes added to each payload")
	flag.Float64Var(&opts.DelayMs, "delay", 20, "Milliseconds between the outgoing and the incoming payload")
	flag.Uint64Var(&opts.Seed, "seed", 1, "Random seed")
	flag.Parse()
	opts.ServerPort = uint16(*port)

	f, err := os.Create(*outputFile)
	if err != nil {
		logrus.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	logrus.Infof("Generating %d connections into %s...", opts.Connections, *outputFile)
	packets, err := generate(f, opts)
	if err != nil {
		logrus.Fatalf("Failed to generate capture: %v", err)
	}
	logrus.Infof("Successfully wrote %d packets into %s.", packets, *outputFile)
}

// generate writes a handshake, one client payload and one server payload per
// connection and returns the number of packets written.
func generate(out io.Writer, opts options) (int, error) {
	w := pcapgo.NewWriter(out)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		return 0, fmt.Errorf("failed to write pcap header: %w", err)
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	size := func(base int) int {
		if opts.Jitter <= 0 {
			return base
		}
		return base + rng.IntN(opts.Jitter+1)
	}

	written := 0
	at := opts.StartTime
	for i := 0; i < opts.Connections; i++ {
		client := net.IP{10, 0, byte(i >> 8), byte(i)}
		server := net.IP{192, 0, 2, 1}
		clientPort := layers.TCPPort(40000 + i%20000)
		serverPort := layers.TCPPort(opts.ServerPort)

		steps := []struct {
			fromClient bool
			syn, ack   bool
			payload    int
			delay      time.Duration
		}{
			{true, true, false, 0, 0},
			{false, true, true, 0, time.Millisecond},
			{true, false, true, size(opts.OutSize), time.Millisecond},
			{false, false, true, size(opts.InSize), time.Duration(opts.DelayMs * float64(time.Millisecond))},
		}
		for _, step := range steps {
			at = at.Add(step.delay)
			eth := &layers.Ethernet{SrcMAC: clientMAC, DstMAC: serverMAC, EthernetType: layers.EthernetTypeIPv4}
			ip := &layers.IPv4{Version: 4, TTL: 64, Protocol: layers.IPProtocolTCP, SrcIP: client, DstIP: server}
			tcp := &layers.TCP{SrcPort: clientPort, DstPort: serverPort, SYN: step.syn, ACK: step.ack, Window: 14600}
			if !step.fromClient {
				eth.SrcMAC, eth.DstMAC = serverMAC, clientMAC
				ip.SrcIP, ip.DstIP = server, client
				tcp.SrcPort, tcp.DstPort = serverPort, clientPort
			}
			if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
				return written, err
			}

			payload := make([]byte, step.payload)
			for j := range payload {
				payload[j] = byte(rng.UintN(256))
			}

			buf := gopacket.NewSerializeBuffer()
			serializeOpts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
			if err := gopacket.SerializeLayers(buf, serializeOpts, eth, ip, tcp, gopacket.Payload(payload)); err != nil {
				return written, fmt.Errorf("failed to serialize layers: %w", err)
			}
			ci := gopacket.CaptureInfo{Timestamp: at, CaptureLength: len(buf.Bytes()), Length: len(buf.Bytes())}
			if err := w.WritePacket(ci, buf.Bytes()); err != nil {
				return written, fmt.Errorf("failed to write packet: %w", err)
			}
			written++
		}
		at = at.Add(10 * time.Millisecond)
	}
	return written, nil
}
