package snmp

import (
	"bytes"
	"fmt"
	"io"
)

// BER encoding/decoding primitives for the SNMP subset. The codec is the
// only place raw tag bytes are produced or consumed; malformed input
// yields a ParseError naming the offending field, never a panic.

const maxMessageSize = 65535

// encodeLength encodes a BER length (short form < 128, long form with up
// to 4 length bytes).
func encodeLength(length int) []byte {
	if length < 128 {
		return []byte{byte(length)}
	}

	buf := make([]byte, 0, 5)
	temp := length
	for temp > 0 {
		buf = append([]byte{byte(temp & 0xff)}, buf...)
		temp >>= 8
	}
	return append([]byte{byte(0x80 | len(buf))}, buf...)
}

// decodeLength decodes a BER length from a reader.
func decodeLength(r *bytes.Reader) (int, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, NewParseError("length", -1)
	}

	if b < 128 {
		return int(b), nil
	}

	numBytes := int(b & 0x7f)
	if numBytes == 0 || numBytes > 4 {
		return 0, NewParseError("invalid_length", -1)
	}

	length := 0
	for i := 0; i < numBytes; i++ {
		lb, err := r.ReadByte()
		if err != nil {
			return 0, NewParseError("invalid_length", -1)
		}
		length = (length << 8) | int(lb)
	}

	if length < 0 || length > maxMessageSize {
		return 0, NewParseError("invalid_length", -1)
	}
	return length, nil
}

// encodeInteger encodes a signed integer as two's-complement minimal
// bytes, with a leading 0x00 when needed to preserve sign.
func encodeInteger(value int64) []byte {
	var buf []byte

	switch {
	case value == 0:
		buf = []byte{0}
	case value > 0:
		temp := value
		for temp > 0 {
			buf = append([]byte{byte(temp & 0xff)}, buf...)
			temp >>= 8
		}
		if buf[0]&0x80 != 0 {
			buf = append([]byte{0}, buf...)
		}
	default:
		temp := value
		for temp < -1 || (temp == -1 && len(buf) == 0) {
			buf = append([]byte{byte(temp & 0xff)}, buf...)
			temp >>= 8
		}
		if len(buf) > 0 && buf[0]&0x80 == 0 {
			buf = append([]byte{0xff}, buf...)
		}
	}

	return buf
}

// decodeInteger decodes a BER two's-complement integer.
func decodeInteger(data []byte) int64 {
	if len(data) == 0 {
		return 0
	}

	var value int64
	if data[0]&0x80 != 0 {
		value = -1
	}
	for _, b := range data {
		value = (value << 8) | int64(b)
	}
	return value
}

// encodeUnsignedInteger encodes an unsigned integer with a leading zero
// when the high bit is set.
func encodeUnsignedInteger(value uint64) []byte {
	if value == 0 {
		return []byte{0}
	}

	var buf []byte
	temp := value
	for temp > 0 {
		buf = append([]byte{byte(temp & 0xff)}, buf...)
		temp >>= 8
	}

	if buf[0]&0x80 != 0 {
		buf = append([]byte{0}, buf...)
	}
	return buf
}

// decodeUnsignedInteger decodes a BER unsigned integer.
func decodeUnsignedInteger(data []byte) uint64 {
	var value uint64
	for _, b := range data {
		value = (value << 8) | uint64(b)
	}
	return value
}

// encodeOID encodes an OID. The first two sub-ids merge as first*40 +
// second; the rest are base-128 with the continuation bit on all but the
// last byte.
func encodeOID(oid OID) ([]byte, error) {
	if len(oid) < 2 {
		return nil, fmt.Errorf("%w: need at least two arcs", ErrInvalidOID)
	}

	buf := []byte{byte(oid[0]*40 + oid[1])}
	for i := 2; i < len(oid); i++ {
		buf = append(buf, encodeBase128(oid[i])...)
	}
	return buf, nil
}

// encodeBase128 encodes a single sub-identifier.
func encodeBase128(value uint32) []byte {
	if value < 128 {
		return []byte{byte(value)}
	}

	var buf []byte
	temp := value
	for temp > 0 {
		buf = append([]byte{byte(temp & 0x7f)}, buf...)
		temp >>= 7
	}
	for i := 0; i < len(buf)-1; i++ {
		buf[i] |= 0x80
	}
	return buf
}

// decodeOID decodes a BER-encoded OID.
func decodeOID(data []byte) (OID, error) {
	if len(data) == 0 {
		return nil, NewParseError("empty_oid", -1)
	}

	oid := OID{uint32(data[0] / 40), uint32(data[0] % 40)}

	var current uint64
	for i := 1; i < len(data); i++ {
		current = (current << 7) | uint64(data[i]&0x7f)
		if current > 0xFFFFFFFF {
			return nil, NewParseError("oid_component_overflow", i)
		}
		if data[i]&0x80 == 0 {
			oid = append(oid, uint32(current))
			current = 0
		}
	}
	if len(data) > 1 && data[len(data)-1]&0x80 != 0 {
		return nil, NewParseError("truncated_oid", len(data)-1)
	}

	return oid, nil
}

// encodeTLV encodes a tag-length-value element.
func encodeTLV(tag BERType, value []byte) []byte {
	length := encodeLength(len(value))
	result := make([]byte, 1+len(length)+len(value))
	result[0] = byte(tag)
	copy(result[1:], length)
	copy(result[1+len(length):], value)
	return result
}

// decodeTLV decodes a tag-length-value element.
func decodeTLV(r *bytes.Reader) (BERType, []byte, error) {
	tagByte, err := r.ReadByte()
	if err != nil {
		return 0, nil, NewParseError("tag", -1)
	}
	tag := BERType(tagByte)

	length, err := decodeLength(r)
	if err != nil {
		return 0, nil, err
	}

	if length > r.Len() {
		return 0, nil, NewParseError("invalid_length", -1)
	}

	value := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, value); err != nil {
			return 0, nil, NewParseError("truncated_value", -1)
		}
	}

	return tag, value, nil
}

// encodeVariable encodes a single varbind as SEQUENCE { OID, value }.
func encodeVariable(v *Variable) ([]byte, error) {
	var buf bytes.Buffer

	oidBytes, err := encodeOID(v.OID)
	if err != nil {
		return nil, err
	}
	buf.Write(encodeTLV(TypeObjectIdentifier, oidBytes))

	switch v.Type {
	case TypeNull, TypeNoSuchObject, TypeNoSuchInstance, TypeEndOfMibView:
		buf.Write(encodeTLV(v.Type, nil))

	case TypeInteger:
		val, ok := v.AsInt()
		if !ok {
			return nil, fmt.Errorf("%w: integer value %v", ErrEncoding, v.Value)
		}
		buf.Write(encodeTLV(TypeInteger, encodeInteger(val)))

	case TypeOctetString:
		var data []byte
		switch val := v.Value.(type) {
		case []byte:
			data = val
		case string:
			data = []byte(val)
		default:
			return nil, fmt.Errorf("%w: octet string value %v", ErrEncoding, v.Value)
		}
		buf.Write(encodeTLV(TypeOctetString, data))

	case TypeObjectIdentifier:
		oid, ok := v.Value.(OID)
		if !ok {
			return nil, fmt.Errorf("%w: OID value %v", ErrEncoding, v.Value)
		}
		inner, err := encodeOID(oid)
		if err != nil {
			return nil, err
		}
		buf.Write(encodeTLV(TypeObjectIdentifier, inner))

	case TypeIPAddress:
		ip, err := ipv4Bytes(v.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(encodeTLV(TypeIPAddress, ip))

	case TypeCounter32, TypeGauge32, TypeTimeTicks, TypeUInteger32, TypeCounter64:
		val, ok := v.AsUint()
		if !ok {
			return nil, fmt.Errorf("%w: unsigned value %v", ErrEncoding, v.Value)
		}
		buf.Write(encodeTLV(v.Type, encodeUnsignedInteger(val)))

	case TypeOpaque:
		data, ok := v.Value.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: opaque value %v", ErrEncoding, v.Value)
		}
		buf.Write(encodeTLV(TypeOpaque, data))

	default:
		raw, ok := v.Value.(RawValue)
		if !ok {
			return nil, fmt.Errorf("%w: unsupported type %s", ErrEncoding, v.Type)
		}
		buf.Write(encodeTLV(raw.Tag, raw.Bytes))
	}

	return encodeTLV(TypeSequence, buf.Bytes()), nil
}

// decodeVarbindValue maps wire bytes to the canonical host value for the
// tag. Unknown tags are preserved as RawValue.
func decodeVarbindValue(tag BERType, data []byte) (interface{}, error) {
	switch tag {
	case TypeNull, TypeNoSuchObject, TypeNoSuchInstance, TypeEndOfMibView:
		return nil, nil

	case TypeInteger:
		return int(decodeInteger(data)), nil

	case TypeOctetString:
		return data, nil

	case TypeObjectIdentifier:
		return decodeOID(data)

	case TypeIPAddress:
		if len(data) != 4 {
			return nil, NewParseError("ip_address_length", -1)
		}
		return fmt.Sprintf("%d.%d.%d.%d", data[0], data[1], data[2], data[3]), nil

	case TypeCounter32, TypeGauge32, TypeTimeTicks, TypeUInteger32:
		return uint32(decodeUnsignedInteger(data)), nil

	case TypeCounter64:
		return decodeUnsignedInteger(data), nil

	case TypeOpaque:
		return data, nil

	default:
		return RawValue{Tag: tag, Bytes: data}, nil
	}
}

// decodeVariable decodes one varbind SEQUENCE from a reader.
func decodeVariable(r *bytes.Reader) (Variable, error) {
	vbType, vbData, err := decodeTLV(r)
	if err != nil {
		return Variable{}, err
	}
	if vbType != TypeSequence {
		return Variable{}, NewParseError("varbind_sequence", -1)
	}

	vbReader := bytes.NewReader(vbData)

	oidType, oidData, err := decodeTLV(vbReader)
	if err != nil {
		return Variable{}, err
	}
	if oidType != TypeObjectIdentifier {
		return Variable{}, NewParseError("varbind_oid", -1)
	}
	oid, err := decodeOID(oidData)
	if err != nil {
		return Variable{}, err
	}

	valType, valData, err := decodeTLV(vbReader)
	if err != nil {
		return Variable{}, err
	}

	value, err := decodeVarbindValue(valType, valData)
	if err != nil {
		return Variable{}, err
	}

	return Variable{OID: oid, Type: valType, Value: value}, nil
}

// encodeVariableBindings encodes a varbind list.
func encodeVariableBindings(variables []Variable) ([]byte, error) {
	var buf bytes.Buffer

	for i := range variables {
		vbBytes, err := encodeVariable(&variables[i])
		if err != nil {
			return nil, err
		}
		buf.Write(vbBytes)
	}

	return encodeTLV(TypeSequence, buf.Bytes()), nil
}

// decodeVariables decodes a varbind list.
func decodeVariables(data []byte) ([]Variable, error) {
	r := bytes.NewReader(data)

	seqType, seqData, err := decodeTLV(r)
	if err != nil {
		return nil, err
	}
	if seqType != TypeSequence {
		return nil, NewParseError("varbind_list", -1)
	}

	var variables []Variable
	seqReader := bytes.NewReader(seqData)
	for seqReader.Len() > 0 {
		v, err := decodeVariable(seqReader)
		if err != nil {
			return nil, err
		}
		variables = append(variables, v)
	}

	return variables, nil
}
