// Package wasmadapter implements a Runtime Adapter (C8) for AOT-compiled
// guest modules (the Rust/C++ entries in spec §4.9's extension table) via
// wasmer-go, grounded on the teacher's wasm/executor.go (engine/store/
// module/instance/Exports.GetFunction). Host<->guest calls are framed with
// google.golang.org/protobuf/encoding/protowire's low-level wire primitives
// rather than full protoc-generated message types: no .proto/codegen
// pipeline is available in this environment, and hand-writing a
// proto.Message implementation (Reset/String/ProtoReflect) without being
// able to compile or test it was judged too risky to get right. protowire
// still gives a real, versionable, self-describing wire format.
package wasmadapter

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/staminal/host/internal/staminalerr"
)

// Field numbers for the envelopes exchanged with a guest module: 1-2 form
// the call envelope, 3-6 the return envelope.
const (
	fieldModID    = 1
	fieldFunction = 2
	fieldArgKind  = 3
	fieldArgStr   = 4
	fieldArgInt   = 5
	fieldArgBool  = 6
)

// EncodeCall serialises a (modID, function) call into the wire envelope a
// guest module's exported `staminal_call` entry point expects.
func EncodeCall(modID, function string) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldModID, protowire.BytesType)
	b = protowire.AppendString(b, modID)
	b = protowire.AppendTag(b, fieldFunction, protowire.BytesType)
	b = protowire.AppendString(b, function)
	return b
}

// ArgKind is the closed set of return-value kinds a guest module's call
// result envelope carries, matching spec §4.8's {None, String, Bool, Int}.
type ArgKind int32

const (
	KindNone ArgKind = iota
	KindString
	KindBool
	KindInt
)

// DecodedReturn is the parsed guest-side call result.
type DecodedReturn struct {
	Kind ArgKind
	Str  string
	I    int64
	B    bool
}

// DecodeReturn parses the envelope a guest module writes back describing
// its CallFunctionWithReturn result.
func DecodeReturn(data []byte) (DecodedReturn, error) {
	var out DecodedReturn
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return out, staminalerr.New(staminalerr.ScriptError, "malformed guest return envelope")
		}
		data = data[n:]

		switch num {
		case fieldArgKind:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return out, staminalerr.New(staminalerr.ScriptError, "malformed arg kind")
			}
			out.Kind = ArgKind(v)
			data = data[n:]
		case fieldArgStr:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return out, staminalerr.New(staminalerr.ScriptError, "malformed arg string")
			}
			out.Str = v
			data = data[n:]
		case fieldArgInt:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return out, staminalerr.New(staminalerr.ScriptError, "malformed arg int")
			}
			out.I = protowire.DecodeZigZag(v)
			data = data[n:]
		case fieldArgBool:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return out, staminalerr.New(staminalerr.ScriptError, "malformed arg bool")
			}
			out.B = v != 0
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return out, staminalerr.New(staminalerr.ScriptError, "malformed unknown field in return envelope")
			}
			data = data[n:]
		}
	}
	return out, nil
}
