package connection

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// TestDownloadHTTPDecodesBrotli drives the real NewNetwork constructor
// against a plain (non-TLS) h2c server, exactly the "http://" case
// AllowHTTP exists for.
func TestDownloadHTTPDecodesBrotli(t *testing.T) {
	payload := []byte("hello from a brotli-encoded mod bundle")

	handler := h2c.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "br")
		bw := brotli.NewWriter(w)
		bw.Write(payload)
		bw.Close()
	}), &http2.Server{})

	server := httptest.NewServer(handler)
	defer server.Close()

	uri, err := ParseURI(server.URL)
	require.NoError(t, err)

	net := NewNetwork(nil)
	result, err := net.Download(context.Background(), uri)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.Status)

	defer os.Remove(result.TempFilePath)
	got, err := os.ReadFile(result.TempFilePath)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDownloadUnsupportedScheme(t *testing.T) {
	net := NewNetwork(nil)
	_, err := net.Download(context.Background(), &ConnectionURI{Scheme: "ftp"})
	assert.Error(t, err)
}
