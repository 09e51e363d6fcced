package connection

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/http2"

	"github.com/staminal/host/internal/staminalerr"
)

// DownloadResult is the outcome of Network.download: a status code and the
// path of a temp file holding the fetched payload, ready for Resource Proxy
// or Runtime Manager consumption.
type DownloadResult struct {
	Status       int
	TempFilePath string
}

// Network is the driver's download-capable facade, transparently handling
// stam:// (one-shot request over the same websocket transport as the main
// handshake) and http(s):// (HTTP/2 with brotli content-encoding) fetches.
type Network struct {
	driver *Driver
	client *http.Client
}

// NewNetwork builds a Network bound to driver for stam:// one-shot requests.
// AllowHTTP is set so plain http:// downloads (not just https://) are
// actually dialled, per spec §6/§4.10's "transparently handles stam:// and
// http(s)://" requirement.
func NewNetwork(driver *Driver) *Network {
	return &Network{
		driver: driver,
		client: &http.Client{Transport: &http2.Transport{AllowHTTP: true}},
	}
}

// Download fetches uri and returns the status and a temp file path holding
// the (transparently decompressed) body.
func (n *Network) Download(ctx context.Context, uri *ConnectionURI) (*DownloadResult, error) {
	switch uri.Scheme {
	case SchemeStam:
		return n.downloadStam(ctx, uri)
	case SchemeHTTP, SchemeHTTPS:
		return n.downloadHTTP(ctx, uri)
	default:
		return nil, staminalerr.Newf(staminalerr.NetworkError, "download: unsupported scheme %q", uri.Scheme)
	}
}

func (n *Network) downloadStam(ctx context.Context, uri *ConnectionURI) (*DownloadResult, error) {
	data, err := n.driver.RequestOneShot(ctx, uri)
	if err != nil {
		return nil, err
	}
	path, err := writeTemp(data)
	if err != nil {
		return nil, err
	}
	return &DownloadResult{Status: http.StatusOK, TempFilePath: path}, nil
}

func (n *Network) downloadHTTP(ctx context.Context, uri *ConnectionURI) (*DownloadResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri.String(), nil)
	if err != nil {
		return nil, staminalerr.Wrap(staminalerr.NetworkError, err, "building download request")
	}
	req.Header.Set("Accept-Encoding", "br")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, staminalerr.Wrap(staminalerr.NetworkError, err, "performing download request")
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "br" {
		body = brotli.NewReader(resp.Body)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, staminalerr.Wrap(staminalerr.NetworkError, err, "reading download body")
	}

	path, err := writeTemp(data)
	if err != nil {
		return nil, err
	}
	return &DownloadResult{Status: resp.StatusCode, TempFilePath: path}, nil
}

func writeTemp(data []byte) (string, error) {
	f, err := os.CreateTemp("", "staminal-download-*")
	if err != nil {
		return "", staminalerr.Wrap(staminalerr.NetworkError, err, "creating temp download file")
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return "", staminalerr.Wrap(staminalerr.NetworkError, err, fmt.Sprintf("writing temp download file %s", f.Name()))
	}
	return f.Name(), nil
}
