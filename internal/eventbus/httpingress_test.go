package eventbus

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPIngressDispatchesAsRequestURI(t *testing.T) {
	bus := New(1024)
	bus.Register(Event{Kind: RequestURI}, func(req *Request, resp *Response) error {
		assert.Equal(t, ProtocolHttp, req.Protocol)
		assert.Equal(t, "/mods/core/icon.png", req.Path)
		resp.SetStatus(200)
		resp.Write([]byte("ok"))
		resp.SetHandled(true)
		return nil
	}, 0, nil)

	ing := NewHTTPIngress(bus)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/mods/core/icon.png", nil)
	ing.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHTTPIngressDefaultsToNotFound(t *testing.T) {
	bus := New(1024)
	ing := NewHTTPIngress(bus)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	ing.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
