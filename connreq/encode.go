package connreq

import "google.golang.org/protobuf/encoding/protowire"

// Encode serializes r the way a host does before calling create_client.
// Zero valued scalar fields are omitted, as proto3 requires.
func Encode(r *ConnectionRequest) []byte {
	if r == nil {
		return nil
	}
	var b []byte
	for _, addr := range r.Addresses {
		b = protowire.AppendTag(b, fieldAddresses, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeAddress(addr))
	}
	b = appendUint32(b, fieldTLSMode, uint32(r.TLSMode))
	if r.ClusterModeEnabled {
		b = protowire.AppendTag(b, fieldClusterMode, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	b = appendUint32(b, fieldRequestTimeout, r.RequestTimeout)
	b = appendUint32(b, fieldReadFrom, uint32(r.ReadFrom))
	if r.RetryStrategy != nil {
		var nested []byte
		nested = appendUint32(nested, fieldRetryCount, r.RetryStrategy.NumberOfRetries)
		nested = appendUint32(nested, fieldRetryFactor, r.RetryStrategy.Factor)
		nested = appendUint32(nested, fieldRetryExponent, r.RetryStrategy.ExponentBase)
		b = protowire.AppendTag(b, fieldRetryStrategy, protowire.BytesType)
		b = protowire.AppendBytes(b, nested)
	}
	if r.Authentication != nil {
		var nested []byte
		nested = appendString(nested, fieldAuthPassword, r.Authentication.Password)
		nested = appendString(nested, fieldAuthUsername, r.Authentication.Username)
		b = protowire.AppendTag(b, fieldAuthentication, protowire.BytesType)
		b = protowire.AppendBytes(b, nested)
	}
	b = appendUint32(b, fieldDatabaseID, r.DatabaseID)
	b = appendUint32(b, fieldProtocol, uint32(r.Protocol))
	b = appendString(b, fieldClientName, r.ClientName)
	return b
}

func encodeAddress(addr NodeAddress) []byte {
	var b []byte
	b = appendString(b, fieldAddressHost, addr.Host)
	b = appendUint32(b, fieldAddressPort, addr.Port)
	return b
}

func appendUint32(b []byte, num protowire.Number, v uint32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}
