package truenas_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/truenasctl/internal/truenas"
	"github.com/dokzlo13/truenasctl/internal/truenas/truenastest"
)

func newClient(url string) *truenas.Client {
	return truenas.NewClient(url, "root", "secret", 5*time.Second, false)
}

func TestItemPath(t *testing.T) {
	assert.Equal(t, "cronjob/id/7", truenas.ItemPath("cronjob", "7"))
	assert.Equal(t, "tunable/id/abc", truenas.ItemPath("/tunable/", "abc"))
}

func TestClient_RequestShape(t *testing.T) {
	var got *http.Request
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		body, _ = io.ReadAll(r.Body)
		fmt.Fprint(w, `{"id": 3}`)
	}))
	defer srv.Close()

	c := newClient(srv.URL + "/")
	assert.Equal(t, srv.URL+"/api/v2.0", c.Endpoint())

	_, err := c.Request(context.Background(), http.MethodPost, "/cronjob", map[string]string{"a": "b"})
	require.NoError(t, err)

	assert.Equal(t, "/api/v2.0/cronjob/", got.URL.Path)
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	user, password, ok := got.BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "root", user)
	assert.Equal(t, "secret", password)
	assert.JSONEq(t, `{"a":"b"}`, string(body))
}

func TestClient_ItemScopedURIs(t *testing.T) {
	srv := truenastest.NewServer("root", "secret")
	defer srv.Close()
	srv.Seed("tunable", map[string]any{"id": 7, "var": "x", "type": "RC"})

	c := newClient(srv.URL)
	ctx := context.Background()

	_, err := c.Replace(ctx, truenas.ItemPath("tunable", "7"), map[string]any{"var": "x", "type": "RC", "value": "1"})
	require.NoError(t, err)
	_, err = c.Remove(ctx, truenas.ItemPath("tunable", "7"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"PUT /api/v2.0/tunable/id/7/",
		"DELETE /api/v2.0/tunable/id/7/",
	}, srv.Calls())
	assert.Empty(t, srv.Records("tunable"))
}

func TestClient_Fetch(t *testing.T) {
	srv := truenastest.NewServer("root", "secret")
	defer srv.Close()
	srv.Seed("cronjob",
		map[string]any{"id": 1, "description": "first"},
		map[string]any{"id": 2, "description": "second"},
	)

	items, err := newClient(srv.URL).Fetch(context.Background(), "cronjob")
	require.NoError(t, err)
	require.Len(t, items, 2)

	id, ok := items[1].ID()
	require.True(t, ok)
	assert.Equal(t, "2", id)
	assert.Equal(t, "second", items[1].String("description"))
	assert.Equal(t, map[string]any{"description": "first"}, items[0].WithoutID())
}

func TestClient_FetchEmptyCollection(t *testing.T) {
	srv := truenastest.NewServer("root", "secret")
	defer srv.Close()

	items, err := newClient(srv.URL).Fetch(context.Background(), "cronjob")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestClient_RemoteError(t *testing.T) {
	srv := truenastest.NewServer("root", "secret")
	defer srv.Close()
	srv.FailNext(http.StatusUnprocessableEntity, `{"tunable_create.var": [{"message": "bad"}]}`)

	_, err := newClient(srv.URL).Create(context.Background(), "tunable", map[string]any{})
	require.Error(t, err)

	var remote *truenas.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, http.StatusUnprocessableEntity, remote.StatusCode)
	assert.Equal(t, `{"tunable_create.var": [{"message": "bad"}]}`, remote.Body)
	assert.Equal(t, http.MethodPost, remote.Method)
}

func TestClient_Unauthorized(t *testing.T) {
	srv := truenastest.NewServer("root", "secret")
	defer srv.Close()

	c := truenas.NewClient(srv.URL, "root", "wrong", 0, false)
	_, err := c.Fetch(context.Background(), "cronjob")

	var remote *truenas.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, http.StatusUnauthorized, remote.StatusCode)
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newClient(url).Fetch(context.Background(), "cronjob")
	require.Error(t, err)

	var transport *truenas.TransportError
	require.True(t, errors.As(err, &transport))
	assert.Equal(t, http.MethodGet, transport.Method)
	assert.Equal(t, url+"/api/v2.0/cronjob/", transport.URL)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestClient_RawFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "OK, deleted")
	}))
	defer srv.Close()

	c := newClient(srv.URL)
	resp, err := c.Remove(context.Background(), truenas.ItemPath("cronjob", "1"))
	require.NoError(t, err)
	assert.True(t, resp.IsRaw())
	assert.Equal(t, "OK, deleted", resp.Raw)

	var v any
	assert.ErrorIs(t, resp.Decode(&v), truenas.ErrNotJSON)

	_, err = c.Fetch(context.Background(), "cronjob")
	assert.ErrorIs(t, err, truenas.ErrNotJSON)
}

func TestClient_FetchRejectsNonArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 1}`)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Fetch(context.Background(), "cronjob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected cronjob collection")
}

func TestResponse_Decode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 12, "enabled": true}`)
	}))
	defer srv.Close()

	resp, err := newClient(srv.URL).Create(context.Background(), "cronjob", map[string]any{})
	require.NoError(t, err)
	require.False(t, resp.IsRaw())

	var rec truenas.Remote
	require.NoError(t, resp.Decode(&rec))
	assert.Equal(t, json.Number("12"), rec["id"])
	assert.Equal(t, true, rec["enabled"])
}

func TestRemote_ID(t *testing.T) {
	tests := []struct {
		name   string
		remote truenas.Remote
		want   string
		ok     bool
	}{
		{name: "json_number", remote: truenas.Remote{"id": json.Number("7")}, want: "7", ok: true},
		{name: "float", remote: truenas.Remote{"id": float64(42)}, want: "42", ok: true},
		{name: "string", remote: truenas.Remote{"id": "abc"}, want: "abc", ok: true},
		{name: "missing", remote: truenas.Remote{}, want: "", ok: false},
		{name: "null", remote: truenas.Remote{"id": nil}, want: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.remote.ID()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
