package eventbus

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HTTPIngress translates incoming *http.Request values into RequestURI
// dispatches against bus, serving only as the edge: routing and middleware
// belong to gin, the shared Request/Response buffer still crosses into the
// bus exactly as the stam:// path does.
type HTTPIngress struct {
	bus    *Bus
	engine *gin.Engine
}

// NewHTTPIngress builds a gin engine that forwards every method/path to the
// Event Bus as a RequestURI dispatch with Protocol set from the request's
// scheme (TLS presence distinguishes https, but both resolve to ProtocolHttp
// for filter purposes — only the stam:// transport uses ProtocolStam).
func NewHTTPIngress(bus *Bus) *HTTPIngress {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	ing := &HTTPIngress{bus: bus, engine: engine}
	engine.NoRoute(ing.handle)
	return ing
}

// Handler returns the http.Handler to mount on a net/http.Server.
func (h *HTTPIngress) Handler() http.Handler { return h.engine }

func (h *HTTPIngress) handle(c *gin.Context) {
	body, _ := io.ReadAll(c.Request.Body)

	headers := make(map[string]string, len(c.Request.Header))
	for k := range c.Request.Header {
		headers[k] = c.Request.Header.Get(k)
	}

	req := &Request{
		Protocol: ProtocolHttp,
		Path:     c.Request.URL.Path,
		Method:   c.Request.Method,
		Headers:  headers,
		Body:     body,
	}

	result := h.bus.Dispatch(Event{Kind: RequestURI}, req)

	if result.Filepath != "" {
		c.File(result.Filepath)
		return
	}

	status := int(result.Status)
	if status < 100 || status > 599 {
		status = http.StatusNotFound
	}
	c.Data(status, "application/octet-stream", result.Body)
}
