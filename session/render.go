package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// ErrUnsupportedReply reports a reply value that has no textual rendering.
var ErrUnsupportedReply = errors.New("session: unsupported reply type")

// Render converts a decoded reply into the message handed to the success
// callback. Scalars are rendered as text, aggregates as JSON. A nil value
// renders as a nil slice; an empty string as an empty, non-nil one.
func Render(value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return append([]byte{}, v...), nil
	case []byte:
		return append([]byte{}, v...), nil
	case int64:
		return strconv.AppendInt(nil, v, 10), nil
	case float64:
		return []byte(formatFloat(v)), nil
	case bool:
		return strconv.AppendBool(nil, v), nil
	case *big.Int:
		return []byte(v.String()), nil
	}
	normalized, err := normalize(value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(normalized)
}

func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return decimal.NewFromFloat(v).String()
}

// normalize turns a reply tree into values encoding/json can marshal.
func normalize(value any) (any, error) {
	switch v := value.(type) {
	case nil, string, int64, bool:
		return v, nil
	case []byte:
		return string(v), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return formatFloat(v), nil
		}
		return json.Number(formatFloat(v)), nil
	case *big.Int:
		return json.Number(v.String()), nil
	case redis.Error:
		return map[string]string{"error": v.Error()}, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			k, err := mapKey(key)
			if err != nil {
				return nil, err
			}
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[key] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedReply, value)
	}
}

func mapKey(key any) (string, error) {
	switch k := key.(type) {
	case string, int64, float64, bool, []byte, *big.Int:
		raw, err := Render(k)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	default:
		return "", fmt.Errorf("%w: map key %T", ErrUnsupportedReply, key)
	}
}
