package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMiddlewareLabelsRouteTemplate hits a parameterized route with
// several different symbols and expects one metric series labeled with
// the route template, not one series per concrete path.
func TestMiddlewareLabelsRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(Middleware)
	r.HandleFunc("/quotes/{symbol}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	for _, symbol := range []string{"AAPL", "MSFT", "SPY"} {
		req := httptest.NewRequest("GET", "/quotes/"+symbol, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	template := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/quotes/{symbol}", "200"))
	assert.Equal(t, 3.0, template)

	raw := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/quotes/AAPL", "200"))
	assert.Zero(t, raw)
}

// TestMiddlewareCapturesStatus records the handler's status code, not
// the default 200.
func TestMiddlewareCapturesStatus(t *testing.T) {
	r := mux.NewRouter()
	r.Use(Middleware)
	r.HandleFunc("/missing-things", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}).Methods("GET")

	req := httptest.NewRequest("GET", "/missing-things", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)

	count := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/missing-things", "404"))
	assert.Equal(t, 1.0, count)
}
