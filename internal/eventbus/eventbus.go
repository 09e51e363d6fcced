// Package eventbus implements the Event Bus (C5): typed events, filter-aware
// registration, priority-ordered sequential dispatch over a shared
// Request/Response pair, per spec §4.5. Registration ids and the handler
// table are grounded on the teacher's UnifiedSupervisor.Submit
// (kernel/threads/supervisor/unified.go) — an atomic counter producing a
// durable handle, here used for handler ids instead of job ids.
package eventbus

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Kind identifies a built-in event, or Custom for a string-identified one.
type Kind int

const (
	RequestURI Kind = iota
	TerminalKeyPressed
	GraphicEngineReady
	GraphicEngineWindowClosed
	AppStart
	Custom
)

// Protocol is the URI-event filter's scheme class.
type Protocol int

const (
	ProtocolAny Protocol = iota
	ProtocolStam
	ProtocolHttp
)

// Event identifies one event channel: either a built-in Kind, or a Custom
// kind carrying a Name.
type Event struct {
	Kind Kind
	Name string // only meaningful when Kind == Custom
}

// Filter narrows URI-event registrations by protocol and route prefix. An
// empty RoutePrefix matches any path; ProtocolAny always matches.
type Filter struct {
	Protocol    Protocol
	RoutePrefix string
}

func (f Filter) matches(req *Request) bool {
	if f.Protocol != ProtocolAny && req.Protocol != ProtocolAny && f.Protocol != req.Protocol {
		return false
	}
	if f.RoutePrefix == "" {
		return true
	}
	return len(req.Path) >= len(f.RoutePrefix) && req.Path[:len(f.RoutePrefix)] == f.RoutePrefix
}

// Request is read-only to every handler in a dispatch chain.
type Request struct {
	Protocol Protocol
	Path     string
	Method   string
	Headers  map[string]string
	Body     []byte
}

// Response is the single, shared, mutable result buffer for one dispatch.
// Exactly one is allocated per dispatch and passed by reference down the
// handler chain — handlers must use the mutator methods; replacing the
// buffer slice itself is forbidden by convention (only Buffer[0:n] may be
// written into).
type Response struct {
	Status       uint16
	Handled      bool
	Buffer       []byte
	BytesWritten uint64
	Filepath     string
}

// NewResponse allocates the fixed-size shared buffer for one dispatch, with
// the default field values required by spec §3/§4.5.
func NewResponse(bufferSize int) *Response {
	return &Response{
		Status: 404,
		Buffer: make([]byte, bufferSize),
	}
}

// SetStatus sets the response status. It does not implicitly mark Handled.
func (r *Response) SetStatus(status uint16) { r.Status = status }

// SetHandled marks the chain as short-circuited after this handler returns.
func (r *Response) SetHandled(handled bool) { r.Handled = handled }

// SetFilepath records the served file's path, if any.
func (r *Response) SetFilepath(path string) { r.Filepath = path }

// Write copies data into the shared buffer starting at BytesWritten,
// advancing it, and is the only sanctioned way to populate the buffer's
// content.
func (r *Response) Write(data []byte) int {
	n := copy(r.Buffer[r.BytesWritten:], data)
	r.BytesWritten += uint64(n)
	return n
}

// Handler is invoked with the shared (Request, Response) pair. A non-nil
// return is treated as a handler exception per spec §4.5 step 4.
type Handler func(*Request, *Response) error

// HandlerID is a durable, process-wide unique handle returned by Register.
type HandlerID uint64

type registration struct {
	id       HandlerID
	event    Event
	handler  Handler
	priority int
	filter   *Filter
	seq      uint64 // registration order, for stable-sort tie-breaking
}

// Bus is the process-wide Event Bus singleton.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Event][]*registration
	nextID   atomic.Uint64
	nextSeq  atomic.Uint64
	bufSize  int
}

// New builds a Bus whose shared Response buffers are bufSize bytes, per the
// game config's event_buffer_size (spec §9 default: 64 KiB).
func New(bufSize int) *Bus {
	return &Bus{
		handlers: make(map[Event][]*registration),
		bufSize:  bufSize,
	}
}

// Register adds handler for event at priority, with an optional filter
// (meaningful for RequestURI events), returning a durable handler id. The
// same handler function may be registered more than once, each getting a
// distinct id.
func (b *Bus) Register(event Event, handler Handler, priority int, filter *Filter) HandlerID {
	id := HandlerID(b.nextID.Add(1))
	reg := &registration{
		id:       id,
		event:    event,
		handler:  handler,
		priority: priority,
		filter:   filter,
		seq:      b.nextSeq.Add(1),
	}

	b.mu.Lock()
	b.handlers[event] = append(b.handlers[event], reg)
	b.mu.Unlock()
	return id
}

// Remove deletes a registration by handler id.
func (b *Bus) Remove(event Event, id HandlerID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	regs := b.handlers[event]
	for i, r := range regs {
		if r.id == id {
			b.handlers[event] = append(regs[:i], regs[i+1:]...)
			return
		}
	}
}

// DispatchResult is what the dispatcher's caller receives once the chain
// ends, either by short-circuit or exhaustion.
type DispatchResult struct {
	Status   uint16
	Body     []byte
	Filepath string
}

// Dispatch runs every matching handler for event in ascending-priority,
// stable order, sequentially, against one shared Request/Response pair.
func (b *Bus) Dispatch(event Event, req *Request) DispatchResult {
	b.mu.RLock()
	all := append([]*registration{}, b.handlers[event]...)
	b.mu.RUnlock()

	candidates := make([]*registration, 0, len(all))
	for _, r := range all {
		if event.Kind == RequestURI && r.filter != nil && !r.filter.matches(req) {
			continue
		}
		candidates = append(candidates, r)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].priority != candidates[j].priority {
			return candidates[i].priority < candidates[j].priority
		}
		return candidates[i].seq < candidates[j].seq
	})

	resp := NewResponse(b.bufSize)

	for _, r := range candidates {
		if err := r.handler(req, resp); err != nil {
			resp.Status = 500
			resp.Handled = true
			resp.BytesWritten = 0
			resp.Filepath = ""
			break
		}
		if resp.Handled {
			break
		}
	}

	return DispatchResult{
		Status:   resp.Status,
		Body:     append([]byte{}, resp.Buffer[:resp.BytesWritten]...),
		Filepath: resp.Filepath,
	}
}
