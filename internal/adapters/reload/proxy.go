package reload

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"io"
	"mime"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"time"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// Paths served by the proxy itself.
const (
	SocketPath = "/__kiln/ws"
	ClientPath = "/__kiln/client.js"
)

const shutdownTimeout = 5 * time.Second

//go:embed client.js
var clientJS []byte

// scriptTag is injected into every proxied HTML page.
var scriptTag = []byte(`<script src="` + ClientPath + `"></script>`)

// Proxy forwards requests to the backend, injects the reload client into
// HTML pages and serves the reload websocket.
type Proxy struct {
	logger      ports.Logger
	broadcaster *Broadcaster
	handler     http.Handler
}

// NewProxy creates a proxy to the backend listening on backendAddr (host:port).
func NewProxy(backendAddr string, broadcaster *Broadcaster, logger ports.Logger) (*Proxy, error) {
	target, err := url.Parse("http://" + backendAddr)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrInvalidConfig.Error()), "field", "backend.address")
	}

	p := &Proxy{logger: logger, broadcaster: broadcaster}

	rp := &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(target)
			r.SetXForwarded()
			// The backend sees the host the browser asked for.
			r.Out.Host = r.In.Host
			r.Out.Header.Del("Accept-Encoding")
		},
		ModifyResponse: injectClient,
		ErrorHandler:   p.proxyError,
	}

	mux := http.NewServeMux()
	mux.Handle(SocketPath, broadcaster)
	mux.HandleFunc(ClientPath, serveClient)
	mux.Handle("/", rp)
	p.handler = mux

	return p, nil
}

// ServeHTTP implements http.Handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.handler.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts the server
// down and disconnects every reload client.
func (p *Proxy) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrProxyFailed.Error()), "address", addr)
	}
	return p.Serve(ctx, ln)
}

// Serve is like ListenAndServe on an existing listener.
func (p *Proxy) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           p,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		p.broadcaster.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return zerr.Wrap(err, domain.ErrProxyFailed.Error())
	case <-ctx.Done():
	}

	p.broadcaster.Close()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
	}
	<-errCh
	return nil
}

func (p *Proxy) proxyError(w http.ResponseWriter, r *http.Request, err error) {
	if p.logger != nil {
		p.logger.Warn("proxy: " + r.Method + " " + r.URL.Path + ": " + err.Error())
	}
	w.WriteHeader(http.StatusBadGateway)
	_, _ = io.WriteString(w, "kiln: backend unavailable\n")
}

func serveClient(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(clientJS)
}

// injectClient adds the reload script to uncompressed HTML responses.
// Responses that carry no body, such as HEAD or 304, are left alone.
func injectClient(resp *http.Response) error {
	if !hasBody(resp) {
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "text/html" {
		return nil //nolint:nilerr // unparsable content types are passed through
	}
	if enc := resp.Header.Get("Content-Encoding"); enc != "" && enc != "identity" {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return zerr.Wrap(err, "failed to read backend response")
	}

	body = InjectScript(body)
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
	return nil
}

func hasBody(resp *http.Response) bool {
	if resp.Request != nil && resp.Request.Method == http.MethodHead {
		return false
	}
	switch {
	case resp.StatusCode >= 100 && resp.StatusCode < 200:
		return false
	case resp.StatusCode == http.StatusNoContent, resp.StatusCode == http.StatusNotModified:
		return false
	}
	return true
}

// InjectScript inserts the reload script tag before the closing body tag,
// or appends it when the document has none.
func InjectScript(html []byte) []byte {
	idx := bytes.LastIndex(bytes.ToLower(html), []byte("</body>"))
	out := make([]byte, 0, len(html)+len(scriptTag))
	if idx < 0 {
		out = append(out, html...)
		return append(out, scriptTag...)
	}
	out = append(out, html[:idx]...)
	out = append(out, scriptTag...)
	return append(out, html[idx:]...)
}
