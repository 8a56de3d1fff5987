// Package protocol defines the wire format spoken between a Passage relay
// and its tunnel clients.
//
// Every message is one JSON object {type, payload}. The payload shape is
// fixed per type; all payloads carry a millisecond timestamp that is
// diagnostic only and never used for ordering.
package protocol

// MessageType is the closed enumeration of wire message kinds.
type MessageType string

const (
	TypeTunnelRegister    MessageType = "tunnel:register"
	TypeTunnelRegistered  MessageType = "tunnel:registered"
	TypeTunnelClose       MessageType = "tunnel:close"
	TypeTunnelClosed      MessageType = "tunnel:closed"
	TypeHTTPRequest       MessageType = "http:request"
	TypeHTTPResponse      MessageType = "http:response"
	TypeHTTPResponseChunk MessageType = "http:response:chunk"
	TypeHTTPResponseEnd   MessageType = "http:response:end"
	TypeHTTPError         MessageType = "http:error"
	TypePing              MessageType = "ping"
	TypePong              MessageType = "pong"
	TypeError             MessageType = "error"
	TypeInspectRequest    MessageType = "inspect:request"
	TypeInspectResponse   MessageType = "inspect:response"
	TypeReplayRequest     MessageType = "replay:request"
	TypeReplayResponse    MessageType = "replay:response"
)

// MaxChunkSize is the largest chunk payload a sender may put into a single
// http:response:chunk message. Receivers stay permissive on size and strict
// on index contiguity.
const MaxChunkSize = 64 * 1024

// BodyEncodingBase64 is the only body encoding the protocol produces.
const BodyEncodingBase64 = "base64"

// Payload is implemented by every per-type payload record, making Envelope
// a tagged union over the message catalogue.
type Payload interface {
	isPayload()
}

// Envelope is the {type, payload} wire unit.
type Envelope struct {
	Type    MessageType
	Payload Payload
}

// TunnelRegister asks the relay to map a public subdomain to the client's
// local port. AuthToken is an API key validated by the session authority.
type TunnelRegister struct {
	Subdomain string `json:"subdomain"`
	LocalPort int    `json:"localPort"`
	AuthToken string `json:"authToken"`
	Timestamp int64  `json:"timestamp"`
}

// TunnelRegistered confirms a registration and carries the public URL the
// tunnel is reachable at.
type TunnelRegistered struct {
	TunnelID  string `json:"tunnelId"`
	PublicURL string `json:"publicUrl"`
	Subdomain string `json:"subdomain"`
	Timestamp int64  `json:"timestamp"`
}

// TunnelClose is sent by either side to tear a tunnel down.
type TunnelClose struct {
	TunnelID  string `json:"tunnelId"`
	Reason    string `json:"reason,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// TunnelClosed acknowledges a TunnelClose.
type TunnelClosed struct {
	TunnelID  string `json:"tunnelId"`
	Timestamp int64  `json:"timestamp"`
}

// HTTPRequest forwards one public HTTP request to the tunnel client.
// Body is base64 when present; a request without a body carries
// body:null, bodyEncoding:null.
type HTTPRequest struct {
	RequestID    string            `json:"requestId"`
	Method       string            `json:"method"`
	Path         string            `json:"path"`
	Headers      map[string]string `json:"headers"`
	Body         *string           `json:"body"`
	BodyEncoding *string           `json:"bodyEncoding"`
	Query        map[string]string `json:"query"`
	Timestamp    int64             `json:"timestamp"`
}

// HTTPResponse carries a response back to the relay. Two framings exist:
// unary (full base64 body inline) and streaming (Streaming=true, no body,
// followed by chunk messages and exactly one end message).
type HTTPResponse struct {
	RequestID    string            `json:"requestId"`
	StatusCode   int               `json:"statusCode"`
	Headers      map[string]string `json:"headers"`
	Body         *string           `json:"body,omitempty"`
	BodyEncoding *string           `json:"bodyEncoding,omitempty"`
	Streaming    bool              `json:"streaming,omitempty"`
	Timestamp    int64             `json:"timestamp"`
}

// HTTPResponseChunk is one ordered fragment of a streamed response body.
// Indices start at 0 and are contiguous per requestId.
type HTTPResponseChunk struct {
	RequestID string `json:"requestId"`
	Chunk     string `json:"chunk"`
	Index     int    `json:"index"`
	Timestamp int64  `json:"timestamp"`
}

// HTTPResponseEnd terminates a streamed response. Exactly one follows the
// last chunk of a stream.
type HTTPResponseEnd struct {
	RequestID string `json:"requestId"`
	Timestamp int64  `json:"timestamp"`
}

// HTTPError reports a failed exchange. StatusCode is the fallback status
// the relay returns to the public caller (default 502).
type HTTPError struct {
	RequestID  string `json:"requestId"`
	Error      string `json:"error"`
	Code       string `json:"code"`
	StatusCode int    `json:"statusCode"`
	Timestamp  int64  `json:"timestamp"`
}

// Ping is the heartbeat probe.
type Ping struct {
	Timestamp int64 `json:"timestamp"`
}

// Pong echoes the probe's timestamp so either side can measure RTT.
type Pong struct {
	PingTimestamp int64 `json:"pingTimestamp"`
	Timestamp     int64 `json:"timestamp"`
}

// ErrorMessage is a connection-scope error with no request correlation.
type ErrorMessage struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Timestamp int64  `json:"timestamp"`
}

// InspectRequest pushes a recorded request to inspector clients. It
// mirrors the HTTPRequest field set it was recorded from.
type InspectRequest struct {
	RequestID    string            `json:"requestId"`
	Method       string            `json:"method"`
	Path         string            `json:"path"`
	Headers      map[string]string `json:"headers"`
	Body         *string           `json:"body"`
	BodyEncoding *string           `json:"bodyEncoding"`
	Query        map[string]string `json:"query"`
	Timestamp    int64             `json:"timestamp"`
}

// InspectResponse is the paired response record, with the measured
// upstream duration.
type InspectResponse struct {
	RequestID    string            `json:"requestId"`
	StatusCode   int               `json:"statusCode"`
	Headers      map[string]string `json:"headers"`
	Body         *string           `json:"body"`
	BodyEncoding *string           `json:"bodyEncoding"`
	DurationMs   int64             `json:"durationMs"`
	Timestamp    int64             `json:"timestamp"`
}

// ReplayRequest asks the relay to re-issue a recorded exchange.
type ReplayRequest struct {
	RequestID string `json:"requestId"`
	Timestamp int64  `json:"timestamp"`
}

// ReplayResponse tells the requester whether the replay was accepted and,
// if so, the requestId of the re-issued exchange.
type ReplayResponse struct {
	RequestID string `json:"requestId"`
	ReplayID  string `json:"replayId,omitempty"`
	Accepted  bool   `json:"accepted"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func (*TunnelRegister) isPayload() {}
func (*TunnelRegistered) isPayload() {}
func (*TunnelClose) isPayload() {}
func (*TunnelClosed) isPayload() {}
func (*HTTPRequest) isPayload() {}
func (*HTTPResponse) isPayload() {}
func (*HTTPResponseChunk) isPayload() {}
func (*HTTPResponseEnd) isPayload() {}
func (*HTTPError) isPayload() {}
func (*Ping) isPayload() {}
func (*Pong) isPayload() {}
func (*ErrorMessage) isPayload() {}
func (*InspectRequest) isPayload() {}
func (*InspectResponse) isPayload() {}
func (*ReplayRequest) isPayload() {}
func (*ReplayResponse) isPayload() {}

// Known reports whether t is part of the message catalogue.
func (t MessageType) Known() bool {
	return newPayload(t) != nil
}

// newPayload returns a zero value of the payload record for t, or nil when
// t is outside the catalogue.
func newPayload(t MessageType) Payload {
	switch t {
	case TypeTunnelRegister:
		return &TunnelRegister{}
	case TypeTunnelRegistered:
		return &TunnelRegistered{}
	case TypeTunnelClose:
		return &TunnelClose{}
	case TypeTunnelClosed:
		return &TunnelClosed{}
	case TypeHTTPRequest:
		return &HTTPRequest{}
	case TypeHTTPResponse:
		return &HTTPResponse{}
	case TypeHTTPResponseChunk:
		return &HTTPResponseChunk{}
	case TypeHTTPResponseEnd:
		return &HTTPResponseEnd{}
	case TypeHTTPError:
		return &HTTPError{}
	case TypePing:
		return &Ping{}
	case TypePong:
		return &Pong{}
	case TypeError:
		return &ErrorMessage{}
	case TypeInspectRequest:
		return &InspectRequest{}
	case TypeInspectResponse:
		return &InspectResponse{}
	case TypeReplayRequest:
		return &ReplayRequest{}
	case TypeReplayResponse:
		return &ReplayResponse{}
	default:
		return nil
	}
}
