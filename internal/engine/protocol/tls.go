package protocol

import (
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Handshake message types.
const (
	handshakeClientHello uint8 = 1
	handshakeCertificate uint8 = 11
)

// TLS extension types.
const (
	extServerName        uint16 = 0
	extSupportedVersions uint16 = 43
)

const (
	versionTLS12 uint16 = 0x0303
	versionTLS13 uint16 = 0x0304
)

var errTruncated = errors.New("truncated handshake message")

// ClientHello holds the fields of a ClientHello the lab counts.
type ClientHello struct {
	Version           uint16
	ServerName        string
	SupportedVersions []uint16
}

// handshakeMessages returns the handshake messages carried by the TLS records
// at the start of payload. Record framing is validated by gopacket; fragments
// of a message split across records are joined.
func handshakeMessages(payload []byte) ([][]byte, error) {
	var tls layers.TLS
	if err := tls.DecodeFromBytes(payload, gopacket.NilDecodeFeedback); err != nil {
		return nil, fmt.Errorf("failed to decode TLS records: %w", err)
	}
	if len(tls.Handshake) == 0 {
		return nil, fmt.Errorf("no handshake record")
	}

	var stream []byte
	for pos := 0; pos+5 <= len(payload); {
		length := int(payload[pos+3])<<8 | int(payload[pos+4])
		end := min(pos+5+length, len(payload))
		if layers.TLSType(payload[pos]) == layers.TLSHandshake {
			stream = append(stream, payload[pos+5:end]...)
		}
		pos = end
	}

	var messages [][]byte
	for len(stream) >= 4 {
		length := int(stream[1])<<16 | int(stream[2])<<8 | int(stream[3])
		if 4+length > len(stream) {
			break
		}
		messages = append(messages, stream[:4+length])
		stream = stream[4+length:]
	}
	return messages, nil
}

// ParseClientHello finds and parses the ClientHello in an outgoing payload.
func ParseClientHello(payload []byte) (*ClientHello, error) {
	messages, err := handshakeMessages(payload)
	if err != nil {
		return nil, err
	}
	for _, msg := range messages {
		if msg[0] == handshakeClientHello {
			return parseClientHello(msg)
		}
	}
	return nil, fmt.Errorf("no client hello")
}

func parseClientHello(data []byte) (*ClientHello, error) {
	// type(1) length(3) version(2) random(32)
	if len(data) < 38 {
		return nil, errTruncated
	}
	ch := &ClientHello{Version: uint16(data[4])<<8 | uint16(data[5])}
	pos := 38

	if pos >= len(data) {
		return nil, errTruncated
	}
	pos += 1 + int(data[pos]) // session id

	if pos+2 > len(data) {
		return nil, errTruncated
	}
	pos += 2 + (int(data[pos])<<8 | int(data[pos+1])) // cipher suites

	if pos >= len(data) {
		return nil, errTruncated
	}
	pos += 1 + int(data[pos]) // compression methods

	if pos+2 > len(data) {
		// No extensions.
		return ch, nil
	}
	end := min(pos+2+(int(data[pos])<<8|int(data[pos+1])), len(data))
	pos += 2

	for pos+4 <= end {
		extType := uint16(data[pos])<<8 | uint16(data[pos+1])
		extLen := int(data[pos+2])<<8 | int(data[pos+3])
		pos += 4
		if pos+extLen > end {
			break
		}
		ext := data[pos : pos+extLen]
		switch extType {
		case extServerName:
			ch.ServerName = parseServerName(ext)
		case extSupportedVersions:
			ch.SupportedVersions = parseSupportedVersions(ext)
		}
		pos += extLen
	}
	return ch, nil
}

// parseServerName returns the first host_name entry of a server_name extension.
func parseServerName(ext []byte) string {
	if len(ext) < 2 {
		return ""
	}
	end := min(2+(int(ext[0])<<8|int(ext[1])), len(ext))
	for pos := 2; pos+3 <= end; {
		nameType := ext[pos]
		nameLen := int(ext[pos+1])<<8 | int(ext[pos+2])
		pos += 3
		if pos+nameLen > end {
			return ""
		}
		if nameType == 0 {
			return string(ext[pos : pos+nameLen])
		}
		pos += nameLen
	}
	return ""
}

func parseSupportedVersions(ext []byte) []uint16 {
	if len(ext) < 1 {
		return nil
	}
	end := min(1+int(ext[0]), len(ext))
	var versions []uint16
	for pos := 1; pos+2 <= end; pos += 2 {
		versions = append(versions, uint16(ext[pos])<<8|uint16(ext[pos+1]))
	}
	return versions
}

// IsTLS12 reports whether the hello negotiates TLS 1.2 and does not offer 1.3.
func (ch *ClientHello) IsTLS12() bool {
	if ch.Version != versionTLS12 {
		return false
	}
	for _, v := range ch.SupportedVersions {
		if v == versionTLS13 {
			return false
		}
	}
	return true
}

// ParseCertificateCommonName returns the subject CommonName of the first
// certificate in the server's Certificate handshake message.
func ParseCertificateCommonName(payload []byte) (string, error) {
	messages, err := handshakeMessages(payload)
	if err != nil {
		return "", err
	}
	for _, msg := range messages {
		if msg[0] != handshakeCertificate {
			continue
		}
		// type(1) length(3) certificates_length(3) cert_length(3)
		if len(msg) < 10 {
			return "", errTruncated
		}
		certLen := int(msg[7])<<16 | int(msg[8])<<8 | int(msg[9])
		if 10+certLen > len(msg) {
			return "", errTruncated
		}
		cert, err := x509.ParseCertificate(msg[10 : 10+certLen])
		if err != nil {
			return "", fmt.Errorf("failed to parse certificate: %w", err)
		}
		return cert.Subject.CommonName, nil
	}
	return "", fmt.Errorf("no certificate message")
}
