package connection

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/staminal/host/internal/manifest"
)

// Intent is the client-declared purpose of a connection, per spec §4.10.
type Intent string

const (
	IntentMain            Intent = "main"
	IntentOneShotRequest   Intent = "OneShotRequest"
)

// Frame is the wire envelope exchanged over the stam:// transport, adapted
// from the teacher's universal core.Packet (kernel/internal/core/packet.go)
// — there, a WASM/Input/Result/Cost tuple for off-loading compute; here, a
// tagged handshake/control message with a JSON body instead of raw WASM
// bytes, since the connection driver speaks structured protocol messages,
// not executable payloads.
type Frame struct {
	Kind          string          `json:"kind"` // "DeclareIntent" | "Welcome" | "LoginSuccess" | "Error" | ...
	CorrelationID string          `json:"correlation_id"`
	Body          json.RawMessage `json:"body"`
}

// newFrame builds a Frame stamped with a fresh correlation id, so a server
// reply can be matched back to the request that prompted it.
func newFrame(kind string, body json.RawMessage) Frame {
	return Frame{Kind: kind, CorrelationID: uuid.NewString(), Body: body}
}

// DeclareIntentBody is the client's opening message.
type DeclareIntentBody struct {
	Intent Intent `json:"intent"`
	Query  string `json:"query,omitempty"`
}

// LoginSuccessBody carries the server's mod list on a successful main
// handshake.
type LoginSuccessBody struct {
	Mods []ModSummary `json:"mods"`
}

// ModSummary is the wire shape of one server-advertised mod.
type ModSummary struct {
	ID       string `json:"id"`
	Version  string `json:"version"`
	URL      string `json:"url"`
	SHA512   string `json:"sha512"`
	Priority int    `json:"priority"`
}

// EnvVersions is an alias of manifest.EnvVersions for the handshake's
// version negotiation; it is the same type, not a separate wire copy.
type EnvVersions = manifest.EnvVersions
