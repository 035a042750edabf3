// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package snmp

import (
	"errors"
	"fmt"
)

// Transport errors.
var (
	ErrTimeout            = errors.New("snmp: operation timed out")
	ErrHostUnreachable    = errors.New("snmp: host unreachable")
	ErrNetworkUnreachable = errors.New("snmp: network unreachable")
	ErrConnectionRefused  = errors.New("snmp: connection refused")
	ErrSendFailed         = errors.New("snmp: send failed")
	ErrReceiveFailed      = errors.New("snmp: receive failed")
)

// Codec and validation errors.
var (
	ErrInvalidOID       = errors.New("snmp: invalid OID")
	ErrInvalidPDU       = errors.New("snmp: invalid PDU")
	ErrInvalidPort      = errors.New("snmp: invalid port")
	ErrInvalidCommunity = errors.New("snmp: invalid community string")
	ErrInvalidValue     = errors.New("snmp: invalid value")
	ErrEncoding         = errors.New("snmp: encoding error")
	ErrBulkRequiresV2c  = errors.New("snmp: GetBulk requires SNMPv2c")
)

// Exception sentinels. These surface as errors from single-value calls
// and as varbind values during walks.
var (
	ErrNoSuchObject   = errors.New("snmp: no such object")
	ErrNoSuchInstance = errors.New("snmp: no such instance")
	ErrEndOfMIB       = errors.New("snmp: end of MIB view")
)

// Resilience-layer errors.
var (
	ErrCircuitOpen        = errors.New("snmp: circuit open")
	ErrNoHealthyEngine    = errors.New("snmp: no healthy engine")
	ErrMaxRetriesExceeded = errors.New("snmp: max retries exceeded")
	ErrPoolExhausted      = errors.New("snmp: pool exhausted")
	ErrQueueFull          = errors.New("snmp: batch queue full")
	ErrEngineClosed       = errors.New("snmp: engine closed")
)

// ProtocolError represents an SNMP protocol error carried in a response
// PDU's error-status field.
type ProtocolError struct {
	Status     ErrorStatus
	Index      int
	RequestOID OID
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.RequestOID != nil {
		return fmt.Sprintf("snmp: %s at index %d (OID: %s)", e.Status, e.Index, e.RequestOID)
	}
	return fmt.Sprintf("snmp: %s at index %d", e.Status, e.Index)
}

// NewProtocolError creates a new protocol error.
func NewProtocolError(status ErrorStatus, index int, oid OID) *ProtocolError {
	return &ProtocolError{
		Status:     status,
		Index:      index,
		RequestOID: oid,
	}
}

// ErrorStatusToError converts an error status to an error.
func ErrorStatusToError(status ErrorStatus, index int, oid OID) error {
	if status == NoError {
		return nil
	}
	return NewProtocolError(status, index, oid)
}

// ParseError represents a packet decoding error. Field names the
// offending element.
type ParseError struct {
	Field  string
	Offset int
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("snmp: decode error at offset %d: %s", e.Offset, e.Field)
	}
	return fmt.Sprintf("snmp: decode error: %s", e.Field)
}

// NewParseError creates a new parse error.
func NewParseError(field string, offset int) *ParseError {
	return &ParseError{
		Field:  field,
		Offset: offset,
	}
}

// IsTimeout returns true if the error is a timeout error.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsEndOfMIB returns true if the error indicates end of MIB view.
func IsEndOfMIB(err error) bool {
	return errors.Is(err, ErrEndOfMIB)
}

// IsNoSuchObject returns true if the error indicates no such object.
func IsNoSuchObject(err error) bool {
	return errors.Is(err, ErrNoSuchObject)
}

// IsNoSuchInstance returns true if the error indicates no such instance.
func IsNoSuchInstance(err error) bool {
	return errors.Is(err, ErrNoSuchInstance)
}

// IsCircuitOpen returns true if the error indicates an open breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// Recoverable reports whether a failed request may be retried. Timeouts,
// transient transport failures, and tooBig/genErr protocol statuses are
// retryable; SNMP data errors and unreachable hosts are terminal.
func Recoverable(err error) bool {
	if err == nil {
		return false
	}

	var perr *ProtocolError
	if errors.As(err, &perr) {
		switch perr.Status {
		case TooBig, GenErr:
			return true
		default:
			return false
		}
	}

	switch {
	case errors.Is(err, ErrTimeout),
		errors.Is(err, ErrSendFailed),
		errors.Is(err, ErrReceiveFailed),
		errors.Is(err, ErrNetworkUnreachable),
		errors.Is(err, ErrConnectionRefused):
		return true
	}
	return false
}

// Terminal reports whether an error should never be retried and, under a
// breaker configured to ignore data errors, should not count against
// target health.
func Terminal(err error) bool {
	if err == nil {
		return false
	}

	var perr *ProtocolError
	if errors.As(err, &perr) {
		switch perr.Status {
		case NoSuchName, BadValue, ReadOnly, NoAccess, NotWritable, WrongType:
			return true
		}
		return false
	}

	switch {
	case errors.Is(err, ErrHostUnreachable),
		errors.Is(err, ErrInvalidOID),
		errors.Is(err, ErrBulkRequiresV2c),
		errors.Is(err, ErrInvalidCommunity):
		return true
	}
	return false
}
