// Package connreq decodes the serialized connection request a host passes to
// create_client.
//
// The buffer is protobuf encoded and length delimited. Decoding never reads
// past the end of the slice it is given and never assumes a terminator; the
// slice length is authoritative.
package connreq

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// TLSMode selects transport security.
type TLSMode uint32

const (
	TLSModeNone     TLSMode = 0
	TLSModeSecure   TLSMode = 1
	TLSModeInsecure TLSMode = 2
)

// ReadFrom selects the node class serving read-only commands in cluster mode.
type ReadFrom uint32

const (
	ReadFromPrimary       ReadFrom = 0
	ReadFromPreferReplica ReadFrom = 1
	ReadFromLowestLatency ReadFrom = 2
	ReadFromAZAffinity    ReadFrom = 3
)

// ProtocolVersion selects the RESP version negotiated with the server.
type ProtocolVersion uint32

const (
	ProtocolRESP3 ProtocolVersion = 0
	ProtocolRESP2 ProtocolVersion = 1
)

// NodeAddress is one seed endpoint.
type NodeAddress struct {
	Host string
	Port uint32
}

// String renders host:port.
func (a NodeAddress) String() string {
	return net.JoinHostPort(a.Host, strconv.FormatUint(uint64(a.Port), 10))
}

// AuthenticationInfo carries optional credentials.
type AuthenticationInfo struct {
	Password string
	Username string
}

// RetryStrategy controls reconnect attempts while establishing the session.
// The delay before attempt n (1-based) is Factor * ExponentBase^n milliseconds.
type RetryStrategy struct {
	NumberOfRetries uint32
	Factor          uint32
	ExponentBase    uint32
}

// Delay returns the wait before retry attempt n.
func (s RetryStrategy) Delay(attempt int) time.Duration {
	if attempt <= 0 || s.Factor == 0 {
		return 0
	}
	base := s.ExponentBase
	if base < 1 {
		base = 1
	}
	delay := float64(s.Factor)
	for i := 0; i < attempt; i++ {
		delay *= float64(base)
		if delay > float64(time.Hour/time.Millisecond) {
			return time.Hour
		}
	}
	return time.Duration(delay) * time.Millisecond
}

// ConnectionRequest is the decoded connection configuration.
type ConnectionRequest struct {
	Addresses          []NodeAddress
	TLSMode            TLSMode
	ClusterModeEnabled bool
	// RequestTimeout in milliseconds; zero selects the runtime default.
	RequestTimeout     uint32
	ReadFrom           ReadFrom
	RetryStrategy      *RetryStrategy
	Authentication     *AuthenticationInfo
	DatabaseID         uint32
	Protocol           ProtocolVersion
	ClientName         string
}

// RequestTimeoutDuration converts RequestTimeout, falling back to def.
func (r *ConnectionRequest) RequestTimeoutDuration(def time.Duration) time.Duration {
	if r == nil || r.RequestTimeout == 0 {
		return def
	}
	return time.Duration(r.RequestTimeout) * time.Millisecond
}

// Validate checks the semantic constraints the wire format cannot express.
func (r *ConnectionRequest) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: request is nil", ErrInvalid)
	}
	if len(r.Addresses) == 0 {
		return fmt.Errorf("%w: at least one address is required", ErrInvalid)
	}
	for i, addr := range r.Addresses {
		if strings.TrimSpace(addr.Host) == "" {
			return fmt.Errorf("%w: address %d: host is required", ErrInvalid, i)
		}
		if addr.Port == 0 || addr.Port > 65535 {
			return fmt.Errorf("%w: address %d: port %d out of range", ErrInvalid, i, addr.Port)
		}
	}
	if r.TLSMode > TLSModeInsecure {
		return fmt.Errorf("%w: unknown tls mode %d", ErrInvalid, r.TLSMode)
	}
	if r.ReadFrom > ReadFromAZAffinity {
		return fmt.Errorf("%w: unknown read_from %d", ErrInvalid, r.ReadFrom)
	}
	if r.Protocol > ProtocolRESP2 {
		return fmt.Errorf("%w: unknown protocol %d", ErrInvalid, r.Protocol)
	}
	if r.ReadFrom != ReadFromPrimary && !r.ClusterModeEnabled {
		return fmt.Errorf("%w: read_from requires cluster mode", ErrInvalid)
	}
	if r.ClusterModeEnabled && r.DatabaseID != 0 {
		return fmt.Errorf("%w: database_id requires standalone mode", ErrInvalid)
	}
	return nil
}

// Parse decodes and validates buf.
func Parse(buf []byte) (*ConnectionRequest, error) {
	req, err := Decode(buf)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}
