// Package runtime implements the Runtime Adapter API (C8) and Runtime
// Manager (C9): a per-language adapter interface plus the dispatcher that
// routes by file extension and drives the three-pass lifecycle (alias ->
// load -> bootstrap), per spec §4.8/§4.9.
package runtime

import (
	"github.com/staminal/host/internal/staminalerr"
)

// ReturnValue is an adapter's marshalled call result, matching spec §4.8's
// closed set {None, String, Bool, Int}.
type ReturnValue struct {
	Kind string // "none" | "string" | "bool" | "int"
	Str  string
	B    bool
	I    int64
}

var NoneValue = ReturnValue{Kind: "none"}

// Globals is the set of shared singletons every adapter is injected with so
// that every runtime observes identical state, per spec §4.8.
type Globals struct {
	System   interface{}
	Graphic  interface{}
	World    interface{}
	Network  interface{}
	Locale   interface{}
	Process  interface{}
	File     interface{}
	Resource interface{}
}

// Adapter is implemented once per scripting language. The sole state an
// adapter owns is its script environment; every long-lived resource is
// shared via Globals.
type Adapter interface {
	LoadMod(modID, absolutePath string) error
	CallFunction(modID, functionName string) error
	CallFunctionWithReturn(modID, functionName string) (ReturnValue, error)
	RunEventLoop() error
}

// Side is the execution environment, reused from the dependency resolver's
// notion of client/server.
type Side string

const (
	Client Side = "client"
	Server Side = "server"
)

// SideOnly builds the exact error message shape spec §4.8 requires for a
// method invoked on the wrong side: "<method>() is not available on the
// <actual>. This method is <required>-only."
func SideOnly(method string, actual, required Side) error {
	return staminalerr.SideOnlyf(method, string(actual), string(required))
}

// graphicRestrictedTo is the one side-restricted global spec §4.8 names:
// rendering only ever happens on the client.
const graphicRestrictedTo = Client

// ScopeGlobals returns a copy of g fit for side: any field spec §4.8
// restricts to the other side is replaced with the SideOnly error a mod
// gets back instead of a working singleton. An Adapter that blindly hands
// Globals to guest code this way surfaces the spec-mandated message rather
// than a nil-pointer panic when a mod reaches for a global its side
// doesn't own.
func ScopeGlobals(side Side, g Globals) Globals {
	if side != graphicRestrictedTo && g.Graphic != nil {
		g.Graphic = SideOnly("graphic", side, graphicRestrictedTo)
	}
	return g
}

// extensionKind maps a source file extension to its runtime kind name, per
// spec §4.9's dispatch table.
var extensionKind = map[string]string{
	".js":  "javascript",
	".lua": "lua",
	".cs":  "csharp",
	".rs":  "rust",
	".cpp": "cpp",
	".cc":  "cpp",
	".cxx": "cpp",
}

// KindForExtension returns the runtime kind registered to handle ext
// (including the leading dot), or an error if unrecognised.
func KindForExtension(ext string) (string, error) {
	kind, ok := extensionKind[ext]
	if !ok {
		return "", staminalerr.Newf(staminalerr.RuntimeNotRegistered, "no runtime registered for extension %q", ext)
	}
	return kind, nil
}
