package protocol

// Chunk is one bounded-size ordered fragment of a payload.
type Chunk struct {
	Index int
	Bytes []byte
}

// Chunker splits a byte payload into ordered, size-bounded chunks, pulled
// on demand. Nothing is buffered ahead: the consumer controls pacing
// entirely, which lets a transport writer pause between sends without the
// chunker knowing about flow control.
//
// Chunk bytes alias the original payload; callers that retain a chunk
// past the next mutation of the payload must copy it.
type Chunker struct {
	payload []byte
	size    int
	offset  int
	index   int
}

// NewChunker returns a chunker over payload with the given bound. The
// bound must be positive; MaxChunkSize is the conventional value for
// http:response:chunk sequences.
func NewChunker(payload []byte, size int) (*Chunker, error) {
	if size <= 0 {
		return nil, NewProtocolError(ErrCodeBadPayload, "chunk size must be positive")
	}
	return &Chunker{payload: payload, size: size}, nil
}

// Next returns the next chunk in index order. The second result is false
// once the payload is exhausted; an empty payload yields no chunks at all.
func (c *Chunker) Next() (Chunk, bool) {
	if c.offset >= len(c.payload) {
		return Chunk{}, false
	}
	end := c.offset + c.size
	if end > len(c.payload) {
		end = len(c.payload)
	}
	chunk := Chunk{Index: c.index, Bytes: c.payload[c.offset:end]}
	c.offset = end
	c.index++
	return chunk, true
}

// Reset restarts the sequence from index 0.
func (c *Chunker) Reset() {
	c.offset = 0
	c.index = 0
}

// Count is the total number of chunks the full sequence produces.
func (c *Chunker) Count() int {
	return (len(c.payload) + c.size - 1) / c.size
}

// NextEnvelope pulls the next chunk already framed as an
// http:response:chunk message for requestID.
func (c *Chunker) NextEnvelope(requestID string) (*Envelope, bool) {
	chunk, ok := c.Next()
	if !ok {
		return nil, false
	}
	return NewHTTPResponseChunk(requestID, chunk.Index, chunk.Bytes), true
}
