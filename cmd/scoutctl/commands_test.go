package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeScoutBot(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/origins", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"origins": [
				{"origin": "reddit.com", "total_requests": 10, "total_blocked": 4, "success_rate": 0.5,
				 "current_delay": 40000000000, "breaker_state": "open"}
			],
			"total_origins": 1, "total_requests": 10, "success_rate": 0.5, "open_origins": 1
		}`))
	})
	mux.HandleFunc("/v1/blockstats", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("top=" + r.URL.Query().Get("top") + "\n"))
	})
	mux.HandleFunc("/v1/alerts", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"alerts":[{"origin":"reddit.com","state":"open","success_rate":0.2,"total_requests":25,"retry_after_seconds":120}]}`))
	})
	mux.HandleFunc("/v1/origins/reddit.com/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_, _ = w.Write([]byte(`{"origin":"reddit.com","state":"closed"}`))
	})
	mux.HandleFunc("/v1/origins/unknown.example/reset", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":404,"reason":"ORIGIN_NOT_FOUND","message":"origin unknown.example is not tracked"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func runCtl(t *testing.T, addr string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--addr", addr}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestStatsCommand(t *testing.T) {
	srv := newFakeScoutBot(t)

	out, err := runCtl(t, srv.URL, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "reddit.com")
	assert.Contains(t, out, "open")
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, "40s")
	assert.Contains(t, out, "1 origins, 10 requests")
}

func TestStatsCommandJSON(t *testing.T) {
	srv := newFakeScoutBot(t)

	out, err := runCtl(t, srv.URL, "stats", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"origin": "reddit.com"`)
}

func TestBlockStatsCommand(t *testing.T) {
	srv := newFakeScoutBot(t)

	out, err := runCtl(t, srv.URL, "blockstats", "--top", "3")
	require.NoError(t, err)
	assert.Equal(t, "top=3\n", out)

	_, err = runCtl(t, srv.URL, "blockstats", "--top", "-1")
	assert.Error(t, err)
}

func TestAlertsCommand(t *testing.T) {
	srv := newFakeScoutBot(t)

	out, err := runCtl(t, srv.URL, "alerts")
	require.NoError(t, err)
	assert.Contains(t, out, "reddit.com")
	assert.Contains(t, out, "20.0%")
	assert.Contains(t, out, "120s")
}

func TestResetCommand(t *testing.T) {
	srv := newFakeScoutBot(t)

	out, err := runCtl(t, srv.URL, "reset", "reddit.com")
	require.NoError(t, err)
	assert.Equal(t, "reddit.com reset (state: closed)\n", out)
}

func TestResetCommandNotFound(t *testing.T) {
	srv := newFakeScoutBot(t)

	_, err := runCtl(t, srv.URL, "reset", "unknown.example")
	require.Error(t, err)

	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Code)
	assert.Equal(t, "ORIGIN_NOT_FOUND", apiErr.Reason)
}

func TestResetCommandRequiresOrigin(t *testing.T) {
	srv := newFakeScoutBot(t)

	_, err := runCtl(t, srv.URL, "reset")
	assert.Error(t, err)
}

func TestNewAPIClientAddsScheme(t *testing.T) {
	c := newAPIClient("127.0.0.1:8080/", defaultTimeout)
	assert.Equal(t, "http://127.0.0.1:8080", c.base)
}
