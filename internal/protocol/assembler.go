package protocol

import (
	"encoding/base64"
	"fmt"
	"sync"
)

// Assembler is the receiving side of the chunk contract. It reconstructs
// streamed response bodies strictly in index order and surfaces every
// sequence violation instead of dropping it: an index gap, a duplicate
// index, or a chunk/end for a requestId that was never opened or has
// already ended are all errors the relay maps to http:error.
//
// Chunk size is deliberately not checked: the sender is expected to honor
// MaxChunkSize, but a receiver must not assume it does.
type Assembler struct {
	mu      sync.Mutex
	streams map[string]*streamState
}

type streamState struct {
	next int
	body []byte
}

func NewAssembler() *Assembler {
	return &Assembler{streams: make(map[string]*streamState)}
}

// Begin opens a stream for requestID, normally on receipt of a streaming
// http:response header. Opening an already-open stream is a violation.
func (a *Assembler) Begin(requestID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.streams[requestID]; ok {
		return NewProtocolError(ErrCodeStreamOpen, fmt.Sprintf("stream %s already open", requestID))
	}
	a.streams[requestID] = &streamState{}
	return nil
}

// Chunk appends one base64 fragment. The index must be exactly the next
// expected one: behind is a duplicate, ahead is a gap.
func (a *Assembler) Chunk(requestID string, index int, chunk string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	st, ok := a.streams[requestID]
	if !ok {
		return NewProtocolError(ErrCodeUnknownStream, fmt.Sprintf("chunk for unknown or ended stream %s", requestID))
	}
	switch {
	case index < st.next:
		return NewProtocolError(ErrCodeDuplicateChunk, fmt.Sprintf("stream %s: chunk %d already received", requestID, index))
	case index > st.next:
		return NewProtocolError(ErrCodeChunkGap, fmt.Sprintf("stream %s: expected chunk %d, got %d", requestID, st.next, index))
	}
	raw, err := base64.StdEncoding.DecodeString(chunk)
	if err != nil {
		return NewProtocolError(ErrCodeBadPayload, fmt.Sprintf("stream %s: chunk %d is not valid base64", requestID, index))
	}
	st.body = append(st.body, raw...)
	st.next++
	return nil
}

// End closes the stream and returns the reassembled body. The stream is
// forgotten afterwards, so a second End for the same requestID is an
// unknown-stream violation.
func (a *Assembler) End(requestID string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	st, ok := a.streams[requestID]
	if !ok {
		return nil, NewProtocolError(ErrCodeUnknownStream, fmt.Sprintf("end for unknown or ended stream %s", requestID))
	}
	delete(a.streams, requestID)
	return st.body, nil
}

// Abort drops any partial state for requestID. It exists for caller-side
// cancellation; the wire defines no cancel message, so aborting is purely
// local and idempotent.
func (a *Assembler) Abort(requestID string) {
	a.mu.Lock()
	delete(a.streams, requestID)
	a.mu.Unlock()
}

// Open reports whether requestID has an open stream.
func (a *Assembler) Open(requestID string) bool {
	a.mu.Lock()
	_, ok := a.streams[requestID]
	a.mu.Unlock()
	return ok
}

// Handle feeds one parsed envelope through the stream state machine.
// It returns (body, true, nil) when env ends a stream, (nil, false, nil)
// when env was consumed (streaming header or in-order chunk) or is not a
// stream message at all, and a violation error otherwise.
func (a *Assembler) Handle(env *Envelope) ([]byte, bool, error) {
	if env == nil {
		return nil, false, nil
	}
	switch p := env.Payload.(type) {
	case *HTTPResponse:
		if !p.Streaming {
			return nil, false, nil
		}
		return nil, false, a.Begin(p.RequestID)
	case *HTTPResponseChunk:
		return nil, false, a.Chunk(p.RequestID, p.Index, p.Chunk)
	case *HTTPResponseEnd:
		body, err := a.End(p.RequestID)
		if err != nil {
			return nil, false, err
		}
		return body, true, nil
	default:
		return nil, false, nil
	}
}
