// internal/engine/client_test.go
package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BOSS-tools/boplot/internal/export"
)

func TestNew(t *testing.T) {
	c := New("http://localhost:5000/", 0)
	assert.Equal(t, "http://localhost:5000", c.baseURL)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)

	c = New("http://engine", 5*time.Second)
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
}

func TestHealthcheck_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthcheck", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	assert.NoError(t, New(server.URL, 0).Healthcheck(context.Background()))
}

func TestHealthcheck_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	assert.Error(t, New(server.URL, 0).Healthcheck(context.Background()))
}

func TestHealthcheck_ServerDown(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	assert.Error(t, New(url, time.Second).Healthcheck(context.Background()))
}

func TestSolve_Success(t *testing.T) {
	var received export.Export
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/solve", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"buildOrder":[["Probe",0,300,50,0,0,"#d9ffff"],["Pylon",400,850,100,0,1,"#fff9d9"]]}]`))
	}))
	defer server.Close()

	e := export.Export{BuildOrders: []export.Entry{{
		Name:       "Build Order 1",
		State:      export.State{Minerals: 50, Units: []export.UnitCount{{Type: "Probe", Count: 4}}},
		BuildOrder: []string{"Probe", "Pylon"},
	}}}

	plots, err := New(server.URL, 0).Solve(context.Background(), e)
	require.NoError(t, err)
	require.Len(t, plots, 1)
	require.Len(t, plots[0].BuildOrder, 2)
	assert.Equal(t, "Pylon", plots[0].BuildOrder[1].Type)
	assert.Equal(t, 1, plots[0].BuildOrder[1].Lane)

	assert.Equal(t, e, received)
}

func TestSolve_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no solution", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	_, err := New(server.URL, 0).Solve(context.Background(), export.Export{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "no solution")
}

func TestSolve_BadPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"buildOrder":[["Probe",0]]}]`))
	}))
	defer server.Close()

	_, err := New(server.URL, 0).Solve(context.Background(), export.Export{})
	assert.Error(t, err)
}

func TestSolve_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(server.URL, 0).Solve(ctx, export.Export{})
	assert.ErrorIs(t, err, context.Canceled)
}
