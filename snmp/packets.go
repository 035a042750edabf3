package snmp

import (
	"bytes"
	"io"
)

// PDU represents an SNMP Protocol Data Unit.
type PDU struct {
	Type        PDUType
	RequestID   int32
	ErrorStatus ErrorStatus
	ErrorIndex  int
	Variables   []Variable

	// GetBulk specific
	NonRepeaters   int
	MaxRepetitions int
}

// Encode encodes the PDU to bytes.
func (p *PDU) Encode() ([]byte, error) {
	var buf bytes.Buffer

	buf.Write(encodeTLV(TypeInteger, encodeInteger(int64(p.RequestID))))

	if p.Type == PDUGetBulkRequest {
		// GetBulk carries non-repeaters and max-repetitions in place of
		// error-status and error-index.
		buf.Write(encodeTLV(TypeInteger, encodeInteger(int64(p.NonRepeaters))))
		buf.Write(encodeTLV(TypeInteger, encodeInteger(int64(p.MaxRepetitions))))
	} else {
		buf.Write(encodeTLV(TypeInteger, encodeInteger(int64(p.ErrorStatus))))
		buf.Write(encodeTLV(TypeInteger, encodeInteger(int64(p.ErrorIndex))))
	}

	varbinds, err := encodeVariableBindings(p.Variables)
	if err != nil {
		return nil, err
	}
	buf.Write(varbinds)

	return encodeTLV(BERType(p.Type), buf.Bytes()), nil
}

// DecodePDU decodes a PDU from BER data.
func DecodePDU(data []byte) (*PDU, error) {
	r := bytes.NewReader(data)
	return decodePDU(r)
}

func decodePDU(r *bytes.Reader) (*PDU, error) {
	pduType, pduData, err := decodeTLV(r)
	if err != nil {
		return nil, err
	}

	switch pduType {
	case TypeGetRequest, TypeGetNextRequest, TypeGetResponse, TypeSetRequest, TypeGetBulkRequest:
	default:
		return nil, NewParseError("pdu_type", -1)
	}

	pdu := &PDU{
		Type: PDUType(pduType),
	}

	pduReader := bytes.NewReader(pduData)

	reqType, requestIDData, err := decodeTLV(pduReader)
	if err != nil {
		return nil, err
	}
	if reqType != TypeInteger {
		return nil, NewParseError("request_id", -1)
	}
	pdu.RequestID = int32(decodeInteger(requestIDData))

	_, errStatusData, err := decodeTLV(pduReader)
	if err != nil {
		return nil, err
	}
	if pduType == TypeGetBulkRequest {
		pdu.NonRepeaters = int(decodeInteger(errStatusData))
	} else {
		pdu.ErrorStatus = ErrorStatus(decodeInteger(errStatusData))
	}

	_, errIndexData, err := decodeTLV(pduReader)
	if err != nil {
		return nil, err
	}
	if pduType == TypeGetBulkRequest {
		pdu.MaxRepetitions = int(decodeInteger(errIndexData))
	} else {
		pdu.ErrorIndex = int(decodeInteger(errIndexData))
	}

	remaining := make([]byte, pduReader.Len())
	if _, err := io.ReadFull(pduReader, remaining); err != nil {
		return nil, NewParseError("varbind_list", -1)
	}
	pdu.Variables, err = decodeVariables(remaining)
	if err != nil {
		return nil, err
	}

	return pdu, nil
}

// Message represents a complete SNMP message.
type Message struct {
	Version   SNMPVersion
	Community string
	PDU       *PDU
}

// Encode encodes the SNMP message to bytes.
func (m *Message) Encode() ([]byte, error) {
	var buf bytes.Buffer

	buf.Write(encodeTLV(TypeInteger, encodeInteger(int64(m.Version))))
	buf.Write(encodeTLV(TypeOctetString, []byte(m.Community)))

	pduBytes, err := m.PDU.Encode()
	if err != nil {
		return nil, err
	}
	buf.Write(pduBytes)

	return encodeTLV(TypeSequence, buf.Bytes()), nil
}

// DecodeMessage decodes an SNMP message from bytes.
func DecodeMessage(data []byte) (*Message, error) {
	r := bytes.NewReader(data)

	seqType, seqData, err := decodeTLV(r)
	if err != nil {
		return nil, err
	}
	if seqType != TypeSequence {
		return nil, NewParseError("message_sequence", -1)
	}

	seqReader := bytes.NewReader(seqData)
	msg := &Message{}

	verType, versionData, err := decodeTLV(seqReader)
	if err != nil {
		return nil, err
	}
	if verType != TypeInteger {
		return nil, NewParseError("version", -1)
	}
	msg.Version = SNMPVersion(decodeInteger(versionData))

	commType, communityData, err := decodeTLV(seqReader)
	if err != nil {
		return nil, err
	}
	if commType != TypeOctetString {
		return nil, NewParseError("community", -1)
	}
	msg.Community = string(communityData)

	msg.PDU, err = decodePDU(seqReader)
	if err != nil {
		return nil, err
	}

	return msg, nil
}

// NewGetRequest creates a new GET request PDU.
func NewGetRequest(requestID int32, oids ...OID) *PDU {
	return &PDU{
		Type:      PDUGetRequest,
		RequestID: requestID,
		Variables: nullVariables(oids),
	}
}

// NewGetNextRequest creates a new GET-NEXT request PDU.
func NewGetNextRequest(requestID int32, oids ...OID) *PDU {
	return &PDU{
		Type:      PDUGetNextRequest,
		RequestID: requestID,
		Variables: nullVariables(oids),
	}
}

// NewGetBulkRequest creates a new GET-BULK request PDU (v2c only).
func NewGetBulkRequest(requestID int32, nonRepeaters, maxRepetitions int, oids ...OID) *PDU {
	return &PDU{
		Type:           PDUGetBulkRequest,
		RequestID:      requestID,
		NonRepeaters:   nonRepeaters,
		MaxRepetitions: maxRepetitions,
		Variables:      nullVariables(oids),
	}
}

// NewSetRequest creates a new SET request PDU.
func NewSetRequest(requestID int32, variables ...Variable) *PDU {
	return &PDU{
		Type:      PDUSetRequest,
		RequestID: requestID,
		Variables: variables,
	}
}

func nullVariables(oids []OID) []Variable {
	variables := make([]Variable, len(oids))
	for i, oid := range oids {
		variables[i] = Variable{
			OID:   oid,
			Type:  TypeNull,
			Value: nil,
		}
	}
	return variables
}
