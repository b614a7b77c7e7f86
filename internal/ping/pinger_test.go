package ping

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPinger_RecordsSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New("https://comparee.ai", time.Second, nil)
	p.pingOne(context.Background(), "test", srv.URL)

	status := p.Status()
	require.Contains(t, status, "test")
	require.True(t, status["test"].Success)
	require.Equal(t, http.StatusOK, status["test"].StatusCode)
	require.Empty(t, status["test"].Error)
}

func TestPinger_RecordsHTTPFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	p := New("https://comparee.ai", time.Second, nil)
	p.pingOne(context.Background(), "test", srv.URL)

	status := p.Status()
	require.False(t, status["test"].Success)
	require.Equal(t, http.StatusGone, status["test"].StatusCode)
}

func TestPinger_RecordsTransportError(t *testing.T) {
	t.Parallel()

	p := New("https://comparee.ai", 100*time.Millisecond, nil)
	p.pingOne(context.Background(), "test", "http://127.0.0.1:1")

	status := p.Status()
	require.False(t, status["test"].Success)
	require.NotEmpty(t, status["test"].Error)
}

func TestPinger_EndpointsCarrySitemapURL(t *testing.T) {
	t.Parallel()

	p := New("https://comparee.ai", time.Second, nil)
	endpoints := p.endpoints()
	require.Contains(t, endpoints, "google")
	require.Contains(t, endpoints, "bing")
	for _, endpoint := range endpoints {
		require.Contains(t, endpoint, "https%3A%2F%2Fcomparee.ai%2Fsitemap.xml")
	}
}

func TestPinger_StatusReturnsCopy(t *testing.T) {
	t.Parallel()

	p := New("https://comparee.ai", time.Second, nil)
	p.record("test", Result{Success: true})

	status := p.Status()
	status["test"] = Result{Success: false}
	require.True(t, p.Status()["test"].Success)
}
