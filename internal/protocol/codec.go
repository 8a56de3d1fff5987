package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// DefaultErrorStatus is the fallback HTTP status the relay returns to the
// public caller when a tunneled exchange fails.
const DefaultErrorStatus = 502

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// EncodeBody encodes a body for the wire. A nil body yields (nil, nil) so
// the envelope carries body:null, bodyEncoding:null; anything else is
// base64-encoded with the encoding tag set.
func EncodeBody(body []byte) (*string, *string) {
	if body == nil {
		return nil, nil
	}
	b := base64.StdEncoding.EncodeToString(body)
	enc := BodyEncodingBase64
	return &b, &enc
}

// DecodeBody is the exact inverse of EncodeBody. A missing encoding tag
// defaults to base64.
func DecodeBody(body, encoding *string) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	if encoding != nil && *encoding != BodyEncodingBase64 {
		return nil, NewProtocolError(ErrCodeBadPayload, fmt.Sprintf("unsupported body encoding %q", *encoding))
	}
	raw, err := base64.StdEncoding.DecodeString(*body)
	if err != nil {
		return nil, NewProtocolError(ErrCodeBadPayload, "body is not valid base64")
	}
	return raw, nil
}

// NewTunnelRegister builds the registration request a client sends to
// claim a subdomain for its local port.
func NewTunnelRegister(subdomain string, localPort int, authToken string) *Envelope {
	return &Envelope{Type: TypeTunnelRegister, Payload: &TunnelRegister{
		Subdomain: subdomain,
		LocalPort: localPort,
		AuthToken: authToken,
		Timestamp: nowMillis(),
	}}
}

// NewTunnelRegistered builds the relay's registration confirmation.
func NewTunnelRegistered(tunnelID, publicURL, subdomain string) *Envelope {
	return &Envelope{Type: TypeTunnelRegistered, Payload: &TunnelRegistered{
		TunnelID:  tunnelID,
		PublicURL: publicURL,
		Subdomain: subdomain,
		Timestamp: nowMillis(),
	}}
}

// NewTunnelClose builds a teardown request. Reason may be empty.
func NewTunnelClose(tunnelID, reason string) *Envelope {
	return &Envelope{Type: TypeTunnelClose, Payload: &TunnelClose{
		TunnelID:  tunnelID,
		Reason:    reason,
		Timestamp: nowMillis(),
	}}
}

// NewTunnelClosed builds the teardown acknowledgement.
func NewTunnelClosed(tunnelID string) *Envelope {
	return &Envelope{Type: TypeTunnelClosed, Payload: &TunnelClosed{
		TunnelID:  tunnelID,
		Timestamp: nowMillis(),
	}}
}

// NewHTTPRequest frames one forwarded HTTP request. A nil body means the
// request has no body at all; pass an empty non-nil slice for a present
// but empty body.
func NewHTTPRequest(requestID, method, path string, headers map[string]string, body []byte, query map[string]string) *Envelope {
	b, enc := EncodeBody(body)
	return &Envelope{Type: TypeHTTPRequest, Payload: &HTTPRequest{
		RequestID:    requestID,
		Method:       method,
		Path:         path,
		Headers:      headers,
		Body:         b,
		BodyEncoding: enc,
		Query:        query,
		Timestamp:    nowMillis(),
	}}
}

// NewHTTPResponse frames a unary response carrying the full body inline.
func NewHTTPResponse(requestID string, statusCode int, headers map[string]string, body []byte) *Envelope {
	b, enc := EncodeBody(body)
	return &Envelope{Type: TypeHTTPResponse, Payload: &HTTPResponse{
		RequestID:    requestID,
		StatusCode:   statusCode,
		Headers:      headers,
		Body:         b,
		BodyEncoding: enc,
		Timestamp:    nowMillis(),
	}}
}

// NewStreamingHTTPResponse frames the header-only response that opens a
// chunked stream. The body follows as chunk messages and one end message.
func NewStreamingHTTPResponse(requestID string, statusCode int, headers map[string]string) *Envelope {
	return &Envelope{Type: TypeHTTPResponse, Payload: &HTTPResponse{
		RequestID:  requestID,
		StatusCode: statusCode,
		Headers:    headers,
		Streaming:  true,
		Timestamp:  nowMillis(),
	}}
}

// NewHTTPResponseChunk frames one ordered body fragment.
func NewHTTPResponseChunk(requestID string, index int, chunk []byte) *Envelope {
	return &Envelope{Type: TypeHTTPResponseChunk, Payload: &HTTPResponseChunk{
		RequestID: requestID,
		Chunk:     base64.StdEncoding.EncodeToString(chunk),
		Index:     index,
		Timestamp: nowMillis(),
	}}
}

// NewHTTPResponseEnd frames the stream terminator.
func NewHTTPResponseEnd(requestID string) *Envelope {
	return &Envelope{Type: TypeHTTPResponseEnd, Payload: &HTTPResponseEnd{
		RequestID: requestID,
		Timestamp: nowMillis(),
	}}
}

// NewHTTPError frames a failed exchange. A non-positive statusCode falls
// back to DefaultErrorStatus.
func NewHTTPError(requestID, message, code string, statusCode int) *Envelope {
	if statusCode <= 0 {
		statusCode = DefaultErrorStatus
	}
	return &Envelope{Type: TypeHTTPError, Payload: &HTTPError{
		RequestID:  requestID,
		Error:      message,
		Code:       code,
		StatusCode: statusCode,
		Timestamp:  nowMillis(),
	}}
}

// NewPing builds a heartbeat probe.
func NewPing() *Envelope {
	return &Envelope{Type: TypePing, Payload: &Ping{Timestamp: nowMillis()}}
}

// NewPong answers a probe, echoing its timestamp.
func NewPong(pingTimestamp int64) *Envelope {
	return &Envelope{Type: TypePong, Payload: &Pong{
		PingTimestamp: pingTimestamp,
		Timestamp:     nowMillis(),
	}}
}

// NewErrorMessage builds a connection-scope error.
func NewErrorMessage(message, code string) *Envelope {
	return &Envelope{Type: TypeError, Payload: &ErrorMessage{
		Error:     message,
		Code:      code,
		Timestamp: nowMillis(),
	}}
}

// NewInspectRequest records a forwarded request for inspector clients.
func NewInspectRequest(requestID, method, path string, headers map[string]string, body []byte, query map[string]string) *Envelope {
	b, enc := EncodeBody(body)
	return &Envelope{Type: TypeInspectRequest, Payload: &InspectRequest{
		RequestID:    requestID,
		Method:       method,
		Path:         path,
		Headers:      headers,
		Body:         b,
		BodyEncoding: enc,
		Query:        query,
		Timestamp:    nowMillis(),
	}}
}

// NewInspectResponse records the paired response for inspector clients.
func NewInspectResponse(requestID string, statusCode int, headers map[string]string, body []byte, durationMs int64) *Envelope {
	b, enc := EncodeBody(body)
	return &Envelope{Type: TypeInspectResponse, Payload: &InspectResponse{
		RequestID:    requestID,
		StatusCode:   statusCode,
		Headers:      headers,
		Body:         b,
		BodyEncoding: enc,
		DurationMs:   durationMs,
		Timestamp:    nowMillis(),
	}}
}

// NewReplayRequest asks the relay to re-issue the recorded exchange.
func NewReplayRequest(requestID string) *Envelope {
	return &Envelope{Type: TypeReplayRequest, Payload: &ReplayRequest{
		RequestID: requestID,
		Timestamp: nowMillis(),
	}}
}

// NewReplayResponse reports the replay outcome. replayID identifies the
// re-issued exchange when accepted; errMsg explains a refusal.
func NewReplayResponse(requestID, replayID string, accepted bool, errMsg string) *Envelope {
	return &Envelope{Type: TypeReplayResponse, Payload: &ReplayResponse{
		RequestID: requestID,
		ReplayID:  replayID,
		Accepted:  accepted,
		Error:     errMsg,
		Timestamp: nowMillis(),
	}}
}

type wireEnvelope struct {
	Type    MessageType `json:"type"`
	Payload Payload     `json:"payload"`
}

// Serialize renders an envelope as its wire string. It is the exact
// inverse of Parse. The only error paths are a nil envelope/payload or a
// type outside the catalogue; transports treat either as a caller bug.
func Serialize(env *Envelope) (string, error) {
	if env == nil || env.Payload == nil {
		return "", NewProtocolError(ErrCodeBadMessage, "nil envelope")
	}
	if !env.Type.Known() {
		return "", NewProtocolError(ErrCodeBadMessage, fmt.Sprintf("unknown message type %q", env.Type))
	}
	raw, err := json.Marshal(wireEnvelope{Type: env.Type, Payload: env.Payload})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Parse decodes one wire message. It never returns an error: malformed
// JSON, a missing or unknown type, or a payload that does not decode into
// the type's record all yield (nil, false), and the caller discards the
// input. Raw frames from the transport arrive as text or bytes; both are
// accepted here as a byte slice.
func Parse(raw []byte) (*Envelope, bool) {
	var head struct {
		Type    MessageType     `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, false
	}
	if head.Type == "" {
		return nil, false
	}
	payload := newPayload(head.Type)
	if payload == nil {
		return nil, false
	}
	if len(head.Payload) > 0 {
		if err := json.Unmarshal(head.Payload, payload); err != nil {
			return nil, false
		}
	}
	return &Envelope{Type: head.Type, Payload: payload}, true
}

// ParseString is Parse for transports that deliver text frames.
func ParseString(raw string) (*Envelope, bool) {
	return Parse([]byte(raw))
}
