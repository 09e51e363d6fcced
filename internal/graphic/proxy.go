package graphic

import (
	"time"

	"github.com/staminal/host/internal/logging"
	"github.com/staminal/host/internal/resource"
	"github.com/staminal/host/internal/staminalerr"
)

// ResourceCompleter is the narrow slice of the Resource Proxy the Graphic
// Proxy needs: posting engine-delegated load completion/failure back, and
// looking up an alias's current entry so widget creation can enforce spec
// §4.7's "must not render until its resource is Loaded" contract.
type ResourceCompleter interface {
	CompleteEngineLoad(alias string, handle uint64)
	FailEngineLoad(alias string, err error)
	Lookup(alias string) (*resource.Entry, bool)
}

// EventSink receives engine events forwarded by the Proxy (normally the
// Event Bus's custom-event dispatch).
type EventSink func(*Event)

// Proxy is the process-wide Graphic Proxy singleton: the only way script
// adapters reach the render engine thread.
type Proxy struct {
	commands chan *Command
	events   chan *Event
	stop     chan struct{}
	log      *logging.Logger

	submitTimeout time.Duration
	resources     ResourceCompleter
	sink          EventSink
}

// Config configures a new Proxy.
type Config struct {
	QueueDepth    int
	TickRate      time.Duration
	SubmitTimeout time.Duration
	Log           *logging.Logger
	Resources     ResourceCompleter
	Sink          EventSink
}

// New starts the dedicated engine goroutine and returns a Proxy bound to it.
func New(cfg Config) *Proxy {
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 256
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = time.Second / 60
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 100 * time.Millisecond
	}
	if cfg.Log == nil {
		cfg.Log = logging.Default("graphic")
	}

	events := make(chan *Event, cfg.QueueDepth)
	p := &Proxy{
		commands:      make(chan *Command, cfg.QueueDepth),
		events:        events,
		stop:          make(chan struct{}),
		log:           cfg.Log,
		submitTimeout: cfg.SubmitTimeout,
		resources:     cfg.Resources,
		sink:          cfg.Sink,
	}

	eng := newEngine(cfg.Log, events)
	go eng.run(p.commands, cfg.TickRate, p.stop)
	go p.forwardEvents()

	return p
}

// submit sends a command and blocks for its one-shot Result, the same
// non-blocking-send-with-timeout shape as the teacher's
// UnifiedSupervisor.Submit.
func (p *Proxy) submit(kind CommandKind, payload interface{}) (*Result, error) {
	reply := make(chan *Result, 1)
	cmd := &Command{Kind: kind, Payload: payload, Reply: reply}

	select {
	case p.commands <- cmd:
	case <-time.After(p.submitTimeout):
		return nil, staminalerr.Wrap(staminalerr.ConfigError, ErrQueueFull, "submitting graphic command")
	}

	result := <-reply
	if !result.OK {
		return result, result.Error
	}
	return result, nil
}

func (p *Proxy) forwardEvents() {
	for {
		select {
		case ev, ok := <-p.events:
			if !ok {
				return
			}
			p.handleEvent(ev)
		case <-p.stop:
			return
		}
	}
}

func (p *Proxy) handleEvent(ev *Event) {
	switch ev.Kind {
	case EventResourceLoaded:
		if p.resources != nil {
			p.resources.CompleteEngineLoad(ev.Alias, ev.HandleID)
		}
	case EventResourceFailed:
		if p.resources != nil {
			p.resources.FailEngineLoad(ev.Alias, ev.LoadError)
		}
	}
	if p.sink != nil {
		p.sink(ev)
	}
}

// --- LoadResource/UnloadResource satisfy resource.EngineLoader ---

func (p *Proxy) LoadResource(alias, resolvedPath string, assetType resource.Type) (uint64, error) {
	result, err := p.submit(LoadResource, LoadResourceArgs{Alias: alias, ResolvedPath: resolvedPath})
	if err != nil {
		return 0, err
	}
	handle, _ := result.Payload.(uint64)
	return handle, nil
}

func (p *Proxy) UnloadResource(handle uint64) error {
	_, err := p.submit(UnloadResource, handle)
	return err
}

// --- window/widget/ECS facade ---

func (p *Proxy) EnableEngine() (uint64, error) {
	r, err := p.submit(EnableEngine, nil)
	if err != nil {
		return 0, err
	}
	id, _ := r.Payload.(uint64)
	return id, nil
}

func (p *Proxy) CreateWindow(title string, width, height int) (uint64, error) {
	r, err := p.submit(CreateWindow, CreateWindowArgs{Title: title, Width: width, Height: height})
	if err != nil {
		return 0, err
	}
	id, _ := r.Payload.(uint64)
	return id, nil
}

func (p *Proxy) CloseWindow(id uint64) error {
	_, err := p.submit(CloseWindow, id)
	return err
}

func (p *Proxy) SetMainWindow(id uint64) error {
	_, err := p.submit(SetMainWindow, id)
	return err
}

func (p *Proxy) SpawnEntity(components map[string]map[string]interface{}) (uint64, error) {
	r, err := p.submit(SpawnEntity, components)
	if err != nil {
		return 0, err
	}
	id, _ := r.Payload.(uint64)
	return id, nil
}

func (p *Proxy) DespawnEntity(id uint64) error {
	_, err := p.submit(DespawnEntity, id)
	return err
}

func (p *Proxy) InsertComponent(entityID uint64, component string, fields map[string]interface{}) error {
	_, err := p.submit(InsertComponent, ComponentArgs{EntityID: entityID, Component: component, Fields: fields})
	return err
}

func (p *Proxy) UpdateComponent(entityID uint64, component string, fields map[string]interface{}) error {
	_, err := p.submit(UpdateComponent, ComponentArgs{EntityID: entityID, Component: component, Fields: fields})
	return err
}

func (p *Proxy) RemoveComponent(entityID uint64, component string) error {
	_, err := p.submit(RemoveComponent, ComponentArgs{EntityID: entityID, Component: component})
	return err
}

func (p *Proxy) QueryEntities(components ...string) ([]*Entity, error) {
	r, err := p.submit(QueryEntities, components)
	if err != nil {
		return nil, err
	}
	entities, _ := r.Payload.([]*Entity)
	return entities, nil
}

func (p *Proxy) DeclareSystem(s *System) error {
	_, err := p.submit(DeclareSystem, s)
	return err
}

func (p *Proxy) SetSystemEnabled(name string, enabled bool) error {
	_, err := p.submit(SetSystemEnabled, SetSystemEnabledArgs{Name: name, Enabled: enabled})
	return err
}

func (p *Proxy) RemoveSystem(name string) error {
	_, err := p.submit(RemoveSystem, name)
	return err
}

// CreateWidget creates a widget, refusing to do so while the widget's
// ResourceID (if any) hasn't reached resource.Loaded, per spec §4.7: a
// widget referencing a resource must not render until that resource's
// entry state is Loaded.
func (p *Proxy) CreateWidget(windowID uint64, kind string, props map[string]interface{}, resourceID string) (uint64, error) {
	if resourceID != "" && p.resources != nil {
		entry, ok := p.resources.Lookup(resourceID)
		if !ok {
			return 0, staminalerr.Newf(staminalerr.ResourceNotFound, "widget resource %q not found", resourceID)
		}
		if entry.State != resource.Loaded {
			return 0, staminalerr.Newf(staminalerr.ResourceNotFound, "widget resource %q is not loaded yet", resourceID)
		}
	}

	r, err := p.submit(CreateWidget, CreateWidgetArgs{WindowID: windowID, Kind: kind, Properties: props, ResourceID: resourceID})
	if err != nil {
		return 0, err
	}
	id, _ := r.Payload.(uint64)
	return id, nil
}

// Shutdown sends Shutdown, lets in-flight commands drain with
// ErrEngineShutdown, and stops the engine/event-forwarding goroutines.
func (p *Proxy) Shutdown() error {
	_, err := p.submit(Shutdown, nil)
	close(p.stop)
	return err
}
