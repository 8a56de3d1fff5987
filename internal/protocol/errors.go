package protocol

import "fmt"

// ErrorCode is a stable machine-readable code for protocol faults. Codes
// travel inside http:error messages, so values must never be renumbered.
type ErrorCode uint16

const (
	ErrCodeUnknown ErrorCode = 0

	// Message level
	ErrCodeBadMessage ErrorCode = 1001
	ErrCodeBadPayload ErrorCode = 1002

	// Stream level
	ErrCodeUnknownStream  ErrorCode = 3001
	ErrCodeStreamOpen     ErrorCode = 3002
	ErrCodeChunkGap       ErrorCode = 3003
	ErrCodeDuplicateChunk ErrorCode = 3004
)

// String returns the wire name of the code, used as the code field of
// http:error messages.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeBadMessage:
		return "bad_message"
	case ErrCodeBadPayload:
		return "bad_payload"
	case ErrCodeUnknownStream:
		return "unknown_stream"
	case ErrCodeStreamOpen:
		return "stream_already_open"
	case ErrCodeChunkGap:
		return "chunk_gap"
	case ErrCodeDuplicateChunk:
		return "duplicate_chunk"
	default:
		return "unknown"
	}
}

// ProtocolError is the only error type the protocol layer returns for
// wire and stream violations.
type ProtocolError struct {
	Code ErrorCode
	Msg  string
}

func (e *ProtocolError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("protocol error (%s)", e.Code)
	}
	return fmt.Sprintf("protocol error (%s): %s", e.Code, e.Msg)
}

func NewProtocolError(code ErrorCode, msg string) *ProtocolError {
	return &ProtocolError{Code: code, Msg: msg}
}

// AsProtocolError unwraps err into a *ProtocolError when possible.
func AsProtocolError(err error) (*ProtocolError, bool) {
	if err == nil {
		return nil, false
	}
	pe, ok := err.(*ProtocolError)
	return pe, ok
}

// HTTPErrorEnvelope maps a protocol violation onto the http:error message
// the relay returns for the affected exchange. Non-protocol errors map to
// the unknown code; the status falls back to DefaultErrorStatus.
func HTTPErrorEnvelope(requestID string, err error) *Envelope {
	code := ErrCodeUnknown
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	if pe, ok := AsProtocolError(err); ok {
		code = pe.Code
	}
	return NewHTTPError(requestID, msg, code.String(), DefaultErrorStatus)
}
