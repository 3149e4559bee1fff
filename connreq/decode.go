package connreq

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

var (
	// ErrMalformed reports a buffer that is not a valid encoding.
	ErrMalformed = errors.New("connreq: malformed connection request")
	// ErrInvalid reports a well formed request with invalid content.
	ErrInvalid = errors.New("connreq: invalid connection request")
)

// Field numbers of the connection request schema.
const (
	fieldAddresses      protowire.Number = 1
	fieldTLSMode        protowire.Number = 2
	fieldClusterMode    protowire.Number = 3
	fieldRequestTimeout protowire.Number = 4
	fieldReadFrom       protowire.Number = 5
	fieldRetryStrategy  protowire.Number = 6
	fieldAuthentication protowire.Number = 7
	fieldDatabaseID     protowire.Number = 8
	fieldProtocol       protowire.Number = 9
	fieldClientName     protowire.Number = 10

	fieldAddressHost protowire.Number = 1
	fieldAddressPort protowire.Number = 2

	fieldAuthPassword protowire.Number = 1
	fieldAuthUsername protowire.Number = 2

	fieldRetryCount    protowire.Number = 1
	fieldRetryFactor   protowire.Number = 2
	fieldRetryExponent protowire.Number = 3
)

// fieldFunc consumes the value of one field from b and returns the bytes read.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

// walk iterates over the fields of one message. Unknown fields are skipped.
func walk(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: tag: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]
		used, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if used == 0 {
			used = protowire.ConsumeFieldValue(num, typ, b)
			if used < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(used))
			}
		}
		b = b[used:]
	}
	return nil
}

func expect(num protowire.Number, got, want protowire.Type) error {
	if got != want {
		return fmt.Errorf("%w: field %d: wire type %d, want %d", ErrMalformed, num, got, want)
	}
	return nil
}

func varint(num protowire.Number, typ protowire.Type, b []byte) (uint64, int, error) {
	if err := expect(num, typ, protowire.VarintType); err != nil {
		return 0, 0, err
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
	}
	return v, n, nil
}

func uint32Field(num protowire.Number, typ protowire.Type, b []byte, dst *uint32) (int, error) {
	v, n, err := varint(num, typ, b)
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("%w: field %d: value %d overflows uint32", ErrMalformed, num, v)
	}
	*dst = uint32(v)
	return n, nil
}

func bytesField(num protowire.Number, typ protowire.Type, b []byte) ([]byte, int, error) {
	if err := expect(num, typ, protowire.BytesType); err != nil {
		return nil, 0, err
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
	}
	return v, n, nil
}

// Decode parses buf without validating its content. The returned request
// holds copies, never references into buf.
func Decode(buf []byte) (*ConnectionRequest, error) {
	req := &ConnectionRequest{}
	err := walk(buf, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldAddresses:
			raw, n, err := bytesField(num, typ, b)
			if err != nil {
				return 0, err
			}
			addr, err := decodeAddress(raw)
			if err != nil {
				return 0, err
			}
			req.Addresses = append(req.Addresses, addr)
			return n, nil
		case fieldTLSMode:
			return uint32Field(num, typ, b, (*uint32)(&req.TLSMode))
		case fieldClusterMode:
			v, n, err := varint(num, typ, b)
			if err != nil {
				return 0, err
			}
			req.ClusterModeEnabled = protowire.DecodeBool(v)
			return n, nil
		case fieldRequestTimeout:
			return uint32Field(num, typ, b, &req.RequestTimeout)
		case fieldReadFrom:
			return uint32Field(num, typ, b, (*uint32)(&req.ReadFrom))
		case fieldRetryStrategy:
			raw, n, err := bytesField(num, typ, b)
			if err != nil {
				return 0, err
			}
			strategy, err := decodeRetryStrategy(raw)
			if err != nil {
				return 0, err
			}
			req.RetryStrategy = strategy
			return n, nil
		case fieldAuthentication:
			raw, n, err := bytesField(num, typ, b)
			if err != nil {
				return 0, err
			}
			auth, err := decodeAuthentication(raw)
			if err != nil {
				return 0, err
			}
			req.Authentication = auth
			return n, nil
		case fieldDatabaseID:
			return uint32Field(num, typ, b, &req.DatabaseID)
		case fieldProtocol:
			return uint32Field(num, typ, b, (*uint32)(&req.Protocol))
		case fieldClientName:
			raw, n, err := bytesField(num, typ, b)
			if err != nil {
				return 0, err
			}
			req.ClientName = string(raw)
			return n, nil
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func decodeAddress(b []byte) (NodeAddress, error) {
	var addr NodeAddress
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldAddressHost:
			raw, n, err := bytesField(num, typ, b)
			if err != nil {
				return 0, err
			}
			addr.Host = string(raw)
			return n, nil
		case fieldAddressPort:
			return uint32Field(num, typ, b, &addr.Port)
		}
		return 0, nil
	})
	if err != nil {
		return NodeAddress{}, fmt.Errorf("address: %w", err)
	}
	return addr, nil
}

func decodeAuthentication(b []byte) (*AuthenticationInfo, error) {
	auth := &AuthenticationInfo{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldAuthPassword:
			raw, n, err := bytesField(num, typ, b)
			if err != nil {
				return 0, err
			}
			auth.Password = string(raw)
			return n, nil
		case fieldAuthUsername:
			raw, n, err := bytesField(num, typ, b)
			if err != nil {
				return 0, err
			}
			auth.Username = string(raw)
			return n, nil
		}
		return 0, nil
	})
	if err != nil {
		return nil, fmt.Errorf("authentication_info: %w", err)
	}
	return auth, nil
}

func decodeRetryStrategy(b []byte) (*RetryStrategy, error) {
	strategy := &RetryStrategy{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldRetryCount:
			return uint32Field(num, typ, b, &strategy.NumberOfRetries)
		case fieldRetryFactor:
			return uint32Field(num, typ, b, &strategy.Factor)
		case fieldRetryExponent:
			return uint32Field(num, typ, b, &strategy.ExponentBase)
		}
		return 0, nil
	})
	if err != nil {
		return nil, fmt.Errorf("connection_retry_strategy: %w", err)
	}
	return strategy, nil
}
