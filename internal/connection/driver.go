package connection

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sony/gobreaker"

	"github.com/staminal/host/internal/logging"
	"github.com/staminal/host/internal/modreg"
	"github.com/staminal/host/internal/staminalerr"
)

// ModRegistrar is the narrow slice of the Mod Registry the driver writes
// the server's mod list into.
type ModRegistrar interface {
	RegisterInfo(info *modreg.ModInfo)
}

// LocaleInitializer starts the hierarchical locale layer once the
// handshake's language/mod list is known.
type LocaleInitializer func(lang string, mods []ModSummary) error

// RuntimeStarter kicks off the Runtime Manager's three-pass lifecycle.
type RuntimeStarter func(mods []ModSummary) error

// Driver is the Connection Driver (C10) singleton.
type Driver struct {
	log      *logging.Logger
	registry ModRegistrar
	locale   LocaleInitializer
	runtime  RuntimeStarter

	breaker *gobreaker.CircuitBreaker
	conn    *websocket.Conn
}

// Config configures a Driver.
type Config struct {
	Log      *logging.Logger
	Registry ModRegistrar
	Locale   LocaleInitializer
	Runtime  RuntimeStarter
}

// New builds a Driver with a circuit breaker guarding handshake/download
// retries, grounded on the sony/gobreaker dependency the rest of the pack
// carries for exactly this resilience shape.
func New(cfg Config) *Driver {
	if cfg.Log == nil {
		cfg.Log = logging.Default("connection")
	}
	settings := gobreaker.Settings{
		Name:    "stam-handshake",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return &Driver{
		log:      cfg.Log,
		registry: cfg.Registry,
		locale:   cfg.Locale,
		runtime:  cfg.Runtime,
		breaker:  gobreaker.NewCircuitBreaker(settings),
	}
}

// Connect dials uri, performs the declare-intent/await-welcome handshake,
// and on LoginSuccess populates the registry, locale layer, and starts the
// Runtime Manager passes.
func (d *Driver) Connect(ctx context.Context, uri *ConnectionURI, lang string) error {
	_, err := d.breaker.Execute(func() (interface{}, error) {
		return nil, d.connect(ctx, uri, lang)
	})
	return err
}

func (d *Driver) connect(ctx context.Context, uri *ConnectionURI, lang string) error {
	wsURL := "ws://" + uri.Host + uri.Path
	if uri.RawQuery != "" {
		wsURL += "?" + uri.RawQuery
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return staminalerr.Wrap(staminalerr.NetworkError, err, "dialing stam connection")
	}
	d.conn = conn

	intentBody, _ := json.Marshal(DeclareIntentBody{Intent: IntentMain, Query: uri.RawQuery})
	if err := conn.WriteJSON(newFrame("DeclareIntent", intentBody)); err != nil {
		return staminalerr.Wrap(staminalerr.NetworkError, err, "declaring intent")
	}

	var welcome Frame
	if err := conn.ReadJSON(&welcome); err != nil {
		return staminalerr.Wrap(staminalerr.NetworkError, err, "awaiting welcome")
	}
	if welcome.Kind != "Welcome" {
		return staminalerr.Newf(staminalerr.NetworkError, "expected Welcome, got %q", welcome.Kind)
	}

	var loginFrame Frame
	if err := conn.ReadJSON(&loginFrame); err != nil {
		return staminalerr.Wrap(staminalerr.NetworkError, err, "awaiting LoginSuccess")
	}
	if loginFrame.Kind != "LoginSuccess" {
		return staminalerr.Newf(staminalerr.NetworkError, "expected LoginSuccess, got %q", loginFrame.Kind)
	}

	var login LoginSuccessBody
	if err := json.Unmarshal(loginFrame.Body, &login); err != nil {
		return staminalerr.Wrap(staminalerr.ManifestInvalid, err, "parsing LoginSuccess body")
	}

	for _, mod := range login.Mods {
		d.registry.RegisterInfo(&modreg.ModInfo{ID: mod.ID, Priority: mod.Priority, Version: mod.Version})
	}

	if d.locale != nil {
		if err := d.locale(lang, login.Mods); err != nil {
			return err
		}
	}
	if d.runtime != nil {
		if err := d.runtime(login.Mods); err != nil {
			return err
		}
	}

	return nil
}

// RequestOneShot sends a OneShotRequest intent carrying query and returns
// the raw ZIP stream bytes, used internally by Network.download for
// stam:// URIs.
func (d *Driver) RequestOneShot(ctx context.Context, uri *ConnectionURI) ([]byte, error) {
	result, err := d.breaker.Execute(func() (interface{}, error) {
		return d.requestOneShot(ctx, uri)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (d *Driver) requestOneShot(ctx context.Context, uri *ConnectionURI) ([]byte, error) {
	wsURL := "ws://" + uri.Host + uri.Path
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, staminalerr.Wrap(staminalerr.NetworkError, err, "dialing one-shot request")
	}
	defer conn.Close()

	body, _ := json.Marshal(DeclareIntentBody{Intent: IntentOneShotRequest, Query: uri.RawQuery})
	if err := conn.WriteJSON(newFrame("DeclareIntent", body)); err != nil {
		return nil, staminalerr.Wrap(staminalerr.NetworkError, err, "declaring one-shot intent")
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, staminalerr.Wrap(staminalerr.NetworkError, err, "reading one-shot ZIP stream")
	}
	return data, nil
}

// Close releases the driver's transport.
func (d *Driver) Close() error {
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}
