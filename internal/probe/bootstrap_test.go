package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBootstrapStaticOnly(t *testing.T) {
	s := NewHTTPSeed("", []string{"wss://a.example"}, time.Second, nil)

	urls, _, err := s.Bootstrap(context.Background(), "test-daemon")
	require.NoError(t, err)
	require.Equal(t, []string{"wss://a.example"}, urls)
}

func TestBootstrapFetchesArray(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`["wss://a.example","wss://b.example"]`))
	}))
	defer srv.Close()

	s := NewHTTPSeed(srv.URL, []string{"wss://static.example"}, time.Second, nil)
	urls, _, err := s.Bootstrap(context.Background(), "test-daemon")
	require.NoError(t, err)
	require.Equal(t, []string{"wss://a.example", "wss://b.example", "wss://static.example"}, urls)
	require.Equal(t, "test-daemon", gotUA)
}

func TestBootstrapFetchesWrappedObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"relays":["wss://a.example"],"updated":"2026-01-01"}`))
	}))
	defer srv.Close()

	s := NewHTTPSeed(srv.URL, nil, time.Second, nil)
	urls, _, err := s.Bootstrap(context.Background(), "test-daemon")
	require.NoError(t, err)
	require.Equal(t, []string{"wss://a.example"}, urls)
}

func TestBootstrapErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewHTTPSeed(srv.URL, nil, time.Second, nil)
	_, _, err := s.Bootstrap(context.Background(), "test-daemon")
	require.Error(t, err)

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer bad.Close()

	s = NewHTTPSeed(bad.URL, nil, time.Second, nil)
	_, _, err = s.Bootstrap(context.Background(), "test-daemon")
	require.Error(t, err)
}
