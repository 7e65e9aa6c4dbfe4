package reload_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/reload"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

const page = `<!doctype html>
<html>
  <head><link rel="stylesheet" href="/static/css/app.css"></head>
  <body>
    <h1>Hello</h1>
  </body>
</html>
`

func newBackend(t *testing.T, contentType, encoding, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		if encoding != "" {
			w.Header().Set("Content-Encoding", encoding)
		}
		w.Header().Set("X-Seen-Host", r.Host)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newProxy(t *testing.T, backend *httptest.Server) (*httptest.Server, *reload.Broadcaster) {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Warn(gomock.Any()).AnyTimes()

	b := reload.NewBroadcaster(log)
	p, err := reload.NewProxy(strings.TrimPrefix(backend.URL, "http://"), b, log)
	require.NoError(t, err)

	srv := httptest.NewServer(p)
	t.Cleanup(func() {
		b.Close()
		srv.Close()
	})
	return srv, b
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, url, http.NoBody)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := http.DefaultTransport.RoundTrip(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestInjectScript(t *testing.T) {
	g := goldie.New(t)
	g.Assert(t, "injected_page", reload.InjectScript([]byte(page)))
}

func TestInjectScript_NoBody(t *testing.T) {
	out := reload.InjectScript([]byte("<p>fragment</p>"))
	assert.Equal(t, `<p>fragment</p><script src="/__kiln/client.js"></script>`, string(out))
}

func TestInjectScript_LastBodyTag(t *testing.T) {
	in := `<body><pre>&lt;/body&gt; </body></pre></BODY>`
	out := reload.InjectScript([]byte(in))
	assert.Equal(t, `<body><pre>&lt;/body&gt; </body></pre><script src="/__kiln/client.js"></script></BODY>`, string(out))
}

func TestProxy_InjectsIntoHTML(t *testing.T) {
	backend := newBackend(t, "text/html; charset=utf-8", "", page)
	proxy, _ := newProxy(t, backend)

	resp, body := get(t, proxy.URL+"/")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `<script src="/__kiln/client.js"></script></body>`)
	assert.Equal(t, int64(len(body)), resp.ContentLength)
	assert.Equal(t, strings.TrimPrefix(proxy.URL, "http://"), resp.Header.Get("X-Seen-Host"))
}

func TestProxy_PassesThroughOtherContent(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		encoding    string
		body        string
	}{
		{name: "json", contentType: "application/json", body: `{"body":"</body>"}`},
		{name: "encoded html", contentType: "text/html", encoding: "br", body: "opaque</body>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newBackend(t, tt.contentType, tt.encoding, tt.body)
			proxy, _ := newProxy(t, backend)

			_, body := get(t, proxy.URL+"/api")
			assert.Equal(t, tt.body, body)
		})
	}
}

func TestProxy_HeadKeepsBackendLength(t *testing.T) {
	backend := newBackend(t, "text/html; charset=utf-8", "", page)
	proxy, _ := newProxy(t, backend)

	getResp, _ := get(t, proxy.URL+"/")

	req, err := http.NewRequestWithContext(t.Context(), http.MethodHead, proxy.URL+"/", http.NoBody)
	require.NoError(t, err)
	headResp, err := http.DefaultTransport.RoundTrip(req)
	require.NoError(t, err)
	_ = headResp.Body.Close()

	assert.Equal(t, http.StatusOK, headResp.StatusCode)
	assert.NotEqual(t, getResp.Header.Get("Content-Length"), headResp.Header.Get("Content-Length"),
		"HEAD must not advertise the injected length")
	assert.Equal(t, strconv.Itoa(len(page)), headResp.Header.Get("Content-Length"))
}

func TestProxy_NotModifiedIsUntouched(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotModified)
	}))
	t.Cleanup(backend.Close)
	proxy, _ := newProxy(t, backend)

	resp, body := get(t, proxy.URL+"/")

	assert.Equal(t, http.StatusNotModified, resp.StatusCode)
	assert.Empty(t, body)
	assert.Empty(t, resp.Header.Get("Content-Length"))
}

func TestProxy_BackendDown(t *testing.T) {
	backend := newBackend(t, "text/html", "", page)
	proxy, _ := newProxy(t, backend)
	backend.Close()

	resp, _ := get(t, proxy.URL+"/")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestProxy_ServesClient(t *testing.T) {
	backend := newBackend(t, "text/html", "", page)
	proxy, _ := newProxy(t, backend)

	resp, body := get(t, proxy.URL+reload.ClientPath)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "javascript")
	assert.Contains(t, body, reload.SocketPath)
}

func TestBroadcaster_DeliversToClients(t *testing.T) {
	backend := newBackend(t, "text/html", "", page)
	proxy, b := newProxy(t, backend)

	wsURL := "ws" + strings.TrimPrefix(proxy.URL, "http") + reload.SocketPath
	var conns []*websocket.Conn
	for range 2 {
		conn, resp, err := websocket.DefaultDialer.DialContext(t.Context(), wsURL, nil)
		require.NoError(t, err)
		_ = resp.Body.Close()
		conns = append(conns, conn)
		t.Cleanup(func() { _ = conn.Close() })
	}

	require.Eventually(t, func() bool { return b.Clients() == 2 }, 2*time.Second, 10*time.Millisecond)

	b.Notify(domain.ReloadEvent{Kind: domain.ReloadAssets, Paths: []string{"/static/css/app.css"}})
	b.Notify(domain.ReloadEvent{Kind: domain.ReloadFull})

	for _, conn := range conns {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

		var first, second reload.Message
		require.NoError(t, conn.ReadJSON(&first))
		require.NoError(t, conn.ReadJSON(&second))

		assert.Equal(t, reload.Message{Type: "asset-update", Paths: []string{"/static/css/app.css"}}, first)
		assert.Equal(t, reload.Message{Type: "full-reload"}, second)
	}
}

func TestBroadcaster_DropsDisconnectedClients(t *testing.T) {
	backend := newBackend(t, "text/html", "", page)
	proxy, b := newProxy(t, backend)

	wsURL := "ws" + strings.TrimPrefix(proxy.URL, "http") + reload.SocketPath
	conn, resp, err := websocket.DefaultDialer.DialContext(t.Context(), wsURL, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()

	require.Eventually(t, func() bool { return b.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return b.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)

	// Notifying nobody must not block or panic.
	b.Notify(domain.ReloadEvent{Kind: domain.ReloadFull})
}

func TestMessage_JSON(t *testing.T) {
	data, err := json.Marshal(reload.Message{Type: "full-reload"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"full-reload"}`, string(data))
}

func TestClassify(t *testing.T) {
	ps := &domain.PathSet{Root: "/work", App: "app"}

	tests := []struct {
		name  string
		paths []string
		want  domain.ReloadEvent
	}{
		{
			name:  "stylesheets only",
			paths: []string{"app/static/css/vendor.css", "app/static/css/app.css", "app/static/css/app.css"},
			want: domain.ReloadEvent{
				Kind:  domain.ReloadAssets,
				Paths: []string{"/static/css/app.css", "/static/css/vendor.css"},
			},
		},
		{
			name:  "mixed",
			paths: []string{"app/static/css/app.css", "app/static/js/app.js"},
			want:  domain.ReloadEvent{Kind: domain.ReloadFull},
		},
		{
			name:  "template",
			paths: []string{"app/templates/index.html"},
			want:  domain.ReloadEvent{Kind: domain.ReloadFull},
		},
		{
			name: "nothing",
			want: domain.ReloadEvent{Kind: domain.ReloadFull},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reload.Classify(tt.paths, ps))
		})
	}
}
