package app

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evslot/config"
	"github.com/kilianp07/evslot/core/events"
	"github.com/kilianp07/evslot/core/factory"
	"github.com/kilianp07/evslot/core/ledger"
	"github.com/kilianp07/evslot/core/reconcile"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Ledger:     factory.ModuleConfig{Type: "memory"},
		Completion: factory.ModuleConfig{Type: "memory"},
	}
	cfg.HTTP.Address = "127.0.0.1:0"
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func writeFleet(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fleet.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
	return path
}

func serveFleet(t *testing.T, lines ...string) string {
	t.Helper()
	body := strings.Join(lines, "\n") + "\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/fleet.csv"
}

func TestServiceImportsThroughAPI(t *testing.T) {
	svc, err := New(memoryConfig(t))
	require.NoError(t, err)
	defer func() { require.NoError(t, svc.Close()) }()

	srv := httptest.NewServer(svc.Handler())
	defer srv.Close()

	src := serveFleet(t, "AAA,100,100,50", "BBB,0,100,100")
	resp, err := http.Post(srv.URL+"/data", "application/json", strings.NewReader(`{"url": "`+src+`"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/vehicle/AAA")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEngineRefusesLocalSources(t *testing.T) {
	svc, err := New(memoryConfig(t))
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	ctx := context.Background()
	path := writeFleet(t, "AAA,10,100,50")

	n, err := svc.Engine.ImportURL(ctx, path)
	assert.ErrorIs(t, err, reconcile.ErrTransport)
	assert.ErrorContains(t, err, "http or https")
	assert.Zero(t, n)
	recs, err := svc.Engine.Vehicles(ctx, ledger.Filter{})
	require.NoError(t, err)
	assert.Empty(t, recs)

	// operators still import local files
	n, err = svc.Import(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestImportUnreadableSource(t *testing.T) {
	svc, err := New(memoryConfig(t))
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	n, err := svc.Import(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, reconcile.ErrTransport)
	assert.Zero(t, n)
}

func TestServiceUnknownBackend(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Ledger.Type = "cassandra"
	_, err := New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger")
}

func TestServiceSQLiteLedger(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Ledger = factory.ModuleConfig{Type: "sqlite", Conf: map[string]any{
		"dsn": filepath.Join(t.TempDir(), "ledger.db"),
	}}
	svc, err := New(cfg)
	require.NoError(t, err)
	n, err := svc.Import(context.Background(), writeFleet(t, "AAA,10,100,50"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, svc.Close())
}

func TestServeStopsOnCancel(t *testing.T) {
	svc, err := New(memoryConfig(t))
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestRunRejectsBusyAddress(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	cfg := memoryConfig(t)
	cfg.HTTP.Address = ln.Addr().String()
	svc, err := New(cfg)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	assert.Error(t, svc.Run(context.Background()))
}

func TestRefreshPublishesReady(t *testing.T) {
	svc, err := New(memoryConfig(t))
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	sub := svc.bus.Subscribe()

	ctx := context.Background()
	_, err = svc.Import(ctx, writeFleet(t, "AAA,80,100,50"))
	require.NoError(t, err)

	svc.refresh(ctx)
	select {
	case ev := <-sub:
		assert.Equal(t, events.KindReady, ev.Kind)
		assert.Equal(t, "AAA", ev.Plate)
	case <-time.After(time.Second):
		t.Fatal("no ready event")
	}
}

func TestRefreshLoopStops(t *testing.T) {
	svc, err := New(memoryConfig(t))
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.refreshLoop(ctx, 10*time.Millisecond)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresh loop did not stop")
	}
}
