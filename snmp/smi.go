package snmp

import (
	"fmt"
	"math"
	"net"
)

// SMI type mapping between host values and wire types.

// InferType returns the default SMI type for a host value: strings map to
// OCTET STRING, negative integers to INTEGER, non-negative integers to
// Gauge32, OIDs to OBJECT IDENTIFIER, nil to NULL, byte sequences to
// Opaque.
func InferType(value interface{}) BERType {
	switch v := value.(type) {
	case nil:
		return TypeNull
	case string:
		return TypeOctetString
	case []byte:
		return TypeOpaque
	case OID:
		return TypeObjectIdentifier
	case net.IP:
		return TypeIPAddress
	case int:
		if v < 0 {
			return TypeInteger
		}
		return TypeGauge32
	case int32:
		if v < 0 {
			return TypeInteger
		}
		return TypeGauge32
	case int64:
		if v < 0 {
			return TypeInteger
		}
		if v > math.MaxUint32 {
			return TypeCounter64
		}
		return TypeGauge32
	case uint, uint32:
		return TypeGauge32
	case uint64:
		if v > math.MaxUint32 {
			return TypeCounter64
		}
		return TypeGauge32
	default:
		return TypeOctetString
	}
}

// Coerce validates and converts a host value to the representation the
// encoder accepts for the given SMI type.
func Coerce(value interface{}, t BERType) (interface{}, error) {
	switch t {
	case TypeNull:
		return nil, nil

	case TypeInteger:
		n, err := toInt64(value)
		if err != nil {
			return nil, err
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("%w: INTEGER out of 32-bit range: %d", ErrInvalidValue, n)
		}
		return int(n), nil

	case TypeOctetString:
		switch v := value.(type) {
		case string:
			return v, nil
		case []byte:
			return v, nil
		default:
			return nil, fmt.Errorf("%w: OCTET STRING requires string or bytes, got %T", ErrInvalidValue, value)
		}

	case TypeObjectIdentifier:
		switch v := value.(type) {
		case OID:
			return v, nil
		case string:
			return ParseOID(v)
		default:
			return nil, fmt.Errorf("%w: OBJECT IDENTIFIER requires OID or string, got %T", ErrInvalidValue, value)
		}

	case TypeIPAddress:
		b, err := ipv4Bytes(value)
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("%d.%d.%d.%d", b[0], b[1], b[2], b[3]), nil

	case TypeCounter32, TypeGauge32, TypeTimeTicks, TypeUInteger32:
		n, err := toUint64(value)
		if err != nil {
			return nil, err
		}
		if n > math.MaxUint32 {
			return nil, fmt.Errorf("%w: %s out of 32-bit range: %d", ErrInvalidValue, t, n)
		}
		return uint32(n), nil

	case TypeCounter64:
		return toUint64(value)

	case TypeOpaque:
		switch v := value.(type) {
		case []byte:
			return v, nil
		case string:
			return []byte(v), nil
		default:
			return nil, fmt.Errorf("%w: Opaque requires bytes, got %T", ErrInvalidValue, value)
		}

	default:
		return nil, fmt.Errorf("%w: cannot coerce to %s", ErrInvalidValue, t)
	}
}

func toInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows signed range", ErrInvalidValue, v)
		}
		return int64(v), nil
	default:
		return 0, fmt.Errorf("%w: integer required, got %T", ErrInvalidValue, value)
	}
}

func toUint64(value interface{}) (uint64, error) {
	switch v := value.(type) {
	case int:
		if v < 0 {
			return 0, fmt.Errorf("%w: negative value %d", ErrInvalidValue, v)
		}
		return uint64(v), nil
	case int32:
		if v < 0 {
			return 0, fmt.Errorf("%w: negative value %d", ErrInvalidValue, v)
		}
		return uint64(v), nil
	case int64:
		if v < 0 {
			return 0, fmt.Errorf("%w: negative value %d", ErrInvalidValue, v)
		}
		return uint64(v), nil
	case uint:
		return uint64(v), nil
	case uint32:
		return uint64(v), nil
	case uint64:
		return v, nil
	default:
		return 0, fmt.Errorf("%w: unsigned integer required, got %T", ErrInvalidValue, value)
	}
}

// ipv4Bytes converts a dotted-quad string, net.IP, or 4-byte slice to the
// four octets the wire format carries.
func ipv4Bytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case net.IP:
		ip4 := v.To4()
		if ip4 == nil {
			return nil, fmt.Errorf("%w: not an IPv4 address: %v", ErrInvalidValue, v)
		}
		return ip4, nil
	case string:
		ip := net.ParseIP(v)
		if ip == nil {
			return nil, fmt.Errorf("%w: invalid IP address %q", ErrInvalidValue, v)
		}
		ip4 := ip.To4()
		if ip4 == nil {
			return nil, fmt.Errorf("%w: not an IPv4 address %q", ErrInvalidValue, v)
		}
		return ip4, nil
	case []byte:
		if len(v) != 4 {
			return nil, fmt.Errorf("%w: IpAddress requires 4 octets, got %d", ErrInvalidValue, len(v))
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: IpAddress requires string or 4 octets, got %T", ErrInvalidValue, value)
	}
}

// SecondsToTimeTicks converts seconds to TimeTicks (centiseconds).
func SecondsToTimeTicks(seconds float64) uint32 {
	return uint32(seconds * 100)
}

// TimeTicksToSeconds converts TimeTicks to seconds.
func TimeTicksToSeconds(ticks uint32) float64 {
	return float64(ticks) / 100
}

// FormatTimeTicks renders TimeTicks as a human-readable duration.
func FormatTimeTicks(ticks uint32) string {
	totalSeconds := ticks / 100
	days := totalSeconds / 86400
	hours := (totalSeconds % 86400) / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60
	centiseconds := ticks % 100

	if days > 0 {
		return fmt.Sprintf("%d days, %02d:%02d:%02d.%02d", days, hours, minutes, seconds, centiseconds)
	}
	return fmt.Sprintf("%02d:%02d:%02d.%02d", hours, minutes, seconds, centiseconds)
}
