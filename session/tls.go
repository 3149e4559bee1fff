package session

import (
	"crypto/tls"
	"fmt"

	"github.com/timzifer/kvbridge/connreq"
)

// buildTLSConfig returns nil for plain TCP. The server name is left empty so
// the dialer derives it from each node address.
func buildTLSConfig(mode connreq.TLSMode) (*tls.Config, error) {
	switch mode {
	case connreq.TLSModeNone:
		return nil, nil
	case connreq.TLSModeSecure:
		return &tls.Config{MinVersion: tls.VersionTLS12}, nil
	case connreq.TLSModeInsecure:
		return &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: true}, nil // #nosec G402 -- requested by the host
	default:
		return nil, fmt.Errorf("session: unknown tls mode %d", mode)
	}
}
