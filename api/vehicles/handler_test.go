package vehicles

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evslot/core/completion"
	"github.com/kilianp07/evslot/core/ledger"
	"github.com/kilianp07/evslot/core/model"
	"github.com/kilianp07/evslot/core/reconcile"
	"github.com/kilianp07/evslot/infra/logger"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// sources maps import URLs to their content; unknown URLs are unreachable.
type sources map[string]string

func (s sources) open(_ context.Context, src string) (io.ReadCloser, error) {
	data, ok := s[src]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

func newServer(t *testing.T, src sources) (*httptest.Server, *reconcile.Engine) {
	t.Helper()
	eng := reconcile.New(ledger.NewMemoryLedger(), completion.NewMemoryIndex(), logger.NopLogger{},
		reconcile.WithClock(func() time.Time { return t0 }),
		reconcile.WithSource(src.open))
	srv := httptest.NewServer(NewRouter(eng, logger.NopLogger{}))
	t.Cleanup(func() {
		srv.Close()
		_ = eng.Close()
	})
	return srv, eng
}

func do(t *testing.T, method, url, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

const fleet = "AAA,50,100,20\nBBB,0,100,90\nbad line\n"

func TestPostData(t *testing.T) {
	srv, _ := newServer(t, sources{"http://fleet/data.csv": fleet})
	code, body := do(t, http.MethodPost, srv.URL+"/data", `{"url": "http://fleet/data.csv"}`)
	require.Equal(t, http.StatusCreated, code, string(body))
	var out postDataResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 2, out.Imported)
}

func TestPostDataRejects(t *testing.T) {
	srv, _ := newServer(t, sources{"http://fleet/empty.csv": "garbage\n"})
	cases := map[string]string{
		"no body":      "",
		"no url":       `{}`,
		"invalid json": `{"url":`,
		"unreachable":  `{"url": "http://nowhere/data.csv"}`,
		"nothing good": `{"url": "http://fleet/empty.csv"}`,
	}
	for name, body := range cases {
		code, data := do(t, http.MethodPost, srv.URL+"/data", body)
		assert.Equal(t, http.StatusBadRequest, code, name)
		var e errorResponse
		require.NoError(t, json.Unmarshal(data, &e), name)
		assert.NotEmpty(t, e.Detail, name)
	}
}

func TestPostDataRefusesLocalFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.csv")
	require.NoError(t, os.WriteFile(path, []byte(fleet), 0o600))
	// the opener would serve both names; the request layer must not ask it
	srv, eng := newServer(t, sources{path: fleet, "file://" + path: fleet})

	for _, src := range []string{path, "file://" + path} {
		code, body := do(t, http.MethodPost, srv.URL+"/data", `{"url": "`+src+`"}`)
		assert.Equal(t, http.StatusBadRequest, code, src)
		assert.JSONEq(t, `{"detail": "url must be an http or https URL"}`, string(body), src)
	}
	recs, err := eng.Vehicles(context.Background(), ledger.Filter{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestGetData(t *testing.T) {
	srv, _ := newServer(t, sources{"http://fleet/data.csv": fleet})
	code, _ := do(t, http.MethodPost, srv.URL+"/data", `{"url": "http://fleet/data.csv"}`)
	require.Equal(t, http.StatusCreated, code)

	code, body := do(t, http.MethodGet, srv.URL+"/data", "")
	require.Equal(t, http.StatusOK, code)
	var out getDataResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, []string{"AAA"}, out.Ready)
}

func TestGetDataEmpty(t *testing.T) {
	srv, _ := newServer(t, nil)
	code, body := do(t, http.MethodGet, srv.URL+"/data", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"ready": []}`, string(body))
}

func TestGetVehicle(t *testing.T) {
	srv, _ := newServer(t, sources{"http://fleet/data.csv": fleet})
	do(t, http.MethodPost, srv.URL+"/data", `{"url": "http://fleet/data.csv"}`)

	code, body := do(t, http.MethodGet, srv.URL+"/vehicle/BBB", "")
	require.Equal(t, http.StatusOK, code)
	var out getVehicleResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.False(t, out.Completed)
	assert.True(t, out.Estimated.Equal(t0.Add(90*time.Second)), "estimated %v", out.Estimated)

	code, body = do(t, http.MethodGet, srv.URL+"/vehicle/ZZZ", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.JSONEq(t, `{"detail": "ZZZ not found"}`, string(body))
}

func TestDeleteVehicle(t *testing.T) {
	srv, _ := newServer(t, sources{"http://fleet/data.csv": fleet})
	do(t, http.MethodPost, srv.URL+"/data", `{"url": "http://fleet/data.csv"}`)

	code, body := do(t, http.MethodDelete, srv.URL+"/vehicle/AAA", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"current_charge": 50}`, string(body))

	code, _ = do(t, http.MethodDelete, srv.URL+"/vehicle/AAA", "")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = do(t, http.MethodGet, srv.URL+"/vehicle/AAA", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestListVehicles(t *testing.T) {
	srv, _ := newServer(t, sources{"http://fleet/data.csv": fleet})
	do(t, http.MethodPost, srv.URL+"/data", `{"url": "http://fleet/data.csv"}`)
	do(t, http.MethodDelete, srv.URL+"/vehicle/AAA", "")

	code, body := do(t, http.MethodGet, srv.URL+"/vehicles", "")
	require.Equal(t, http.StatusOK, code)
	var all []vehicleView
	require.NoError(t, json.Unmarshal(body, &all))
	require.Len(t, all, 2)
	assert.Equal(t, "AAA", all[0].Plate)
	assert.Equal(t, "retired", all[0].Status)

	code, body = do(t, http.MethodGet, srv.URL+"/vehicles?status=occupied", "")
	require.Equal(t, http.StatusOK, code)
	var occ []vehicleView
	require.NoError(t, json.Unmarshal(body, &occ))
	require.Len(t, occ, 1)
	assert.Equal(t, "BBB", occ[0].Plate)

	code, _ = do(t, http.MethodGet, srv.URL+"/vehicles?status=parked", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newServer(t, nil)
	code, _ := do(t, http.MethodPut, srv.URL+"/data", "")
	assert.Equal(t, http.StatusMethodNotAllowed, code)
}

func TestHealthz(t *testing.T) {
	srv, _ := newServer(t, nil)
	code, body := do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status": "ok"}`, string(body))
}

// brokenService fails every store access.
type brokenService struct{}

func (brokenService) ImportURL(context.Context, string) (int, error) { return 0, errors.New("down") }
func (brokenService) ListReady(context.Context) ([]model.Record, error) {
	return nil, errors.New("down")
}
func (brokenService) GetStatus(context.Context, string) (reconcile.Status, error) {
	return reconcile.Status{}, errors.New("down")
}
func (brokenService) Retire(context.Context, string) (int, error) { return 0, errors.New("down") }
func (brokenService) Vehicles(context.Context, ledger.Filter) ([]model.Record, error) {
	return nil, errors.New("down")
}

func TestStoreFailuresAreInternal(t *testing.T) {
	srv := httptest.NewServer(NewRouter(brokenService{}, logger.NopLogger{}))
	defer srv.Close()
	for _, c := range []struct{ method, path string }{
		{http.MethodGet, "/data"},
		{http.MethodGet, "/vehicle/A"},
		{http.MethodDelete, "/vehicle/A"},
		{http.MethodGet, "/vehicles"},
	} {
		code, body := do(t, c.method, srv.URL+c.path, "")
		assert.Equal(t, http.StatusInternalServerError, code, c.path)
		assert.JSONEq(t, `{"detail": "internal error"}`, string(body), c.path)
	}
}
