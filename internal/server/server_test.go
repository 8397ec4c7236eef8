package server_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/goto/salt/log"
	"github.com/goto/sitesearch/core/search"
	"github.com/goto/sitesearch/core/search/presenter"
	"github.com/goto/sitesearch/internal/server"
	"github.com/goto/sitesearch/lib/mocks"
	"github.com/goto/sitesearch/pkg/statsd"
	"github.com/goto/sitesearch/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body
}

func TestSearchHandler(t *testing.T) {
	type testCase struct {
		Description  string
		Query        string
		Setup        func(svc *mocks.SearchService)
		ExpectStatus int
		PostCheck    func(t *testing.T, body map[string]interface{})
	}

	testCases := []testCase{
		{
			Description: "should respond with the presented result set",
			Query:       "q=pig+farming&count=1",
			Setup: func(svc *mocks.SearchService) {
				svc.On("Search", mock.Anything, url.Values{"q": {"pig farming"}, "count": {"1"}}).Return(presenter.ResultSet{
					Results:       []map[string]interface{}{{"link": "/pig-farming"}},
					Total:         12,
					AggregateName: "aggregates",
					Aggregates:    map[string]*presenter.Aggregate{},
				}, nil)
			},
			ExpectStatus: http.StatusOK,
			PostCheck: func(t *testing.T, body map[string]interface{}) {
				assert.EqualValues(t, 12, body["total"])
				assert.Equal(t, "A", body["es_cluster"])
				assert.Len(t, body["results"], 1)
			},
		},
		{
			Description: "should respond with 422 on invalid parameters",
			Query:       "count=1001&bogus=1",
			Setup: func(svc *mocks.SearchService) {
				svc.On("Search", mock.Anything, mock.Anything).Return(presenter.ResultSet{}, search.ValidationError{
					Errors: []string{"Maximum result set size (as specified in 'count') is 1000", "Unexpected parameters: bogus"},
				})
			},
			ExpectStatus: http.StatusUnprocessableEntity,
			PostCheck: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "Maximum result set size (as specified in 'count') is 1000. Unexpected parameters: bogus", body["error"])
			},
		},
		{
			Description: "should respond with 503 when elasticsearch fails",
			Setup: func(svc *mocks.SearchService) {
				svc.On("Search", mock.Anything, mock.Anything).Return(presenter.ResultSet{},
					fmt.Errorf("%w: connection refused", search.ErrEngineUnavailable))
			},
			ExpectStatus: http.StatusServiceUnavailable,
			PostCheck: func(t *testing.T, body map[string]interface{}) {
				assert.Contains(t, body["reason"], "connection refused")
			},
		},
		{
			Description: "should hide unexpected errors behind a reference",
			Setup: func(svc *mocks.SearchService) {
				svc.On("Search", mock.Anything, mock.Anything).Return(presenter.ResultSet{}, errors.New("secret detail"))
			},
			ExpectStatus: http.StatusInternalServerError,
			PostCheck: func(t *testing.T, body map[string]interface{}) {
				reason := body["reason"].(string)
				assert.True(t, strings.HasPrefix(reason, "Internal Server Error - ref ("), reason)
				assert.NotContains(t, reason, "secret detail")
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Description, func(t *testing.T) {
			svc := new(mocks.SearchService)
			tc.Setup(svc)
			defer svc.AssertExpectations(t)

			h := server.NewHandler(server.Deps{Search: svc, Logger: log.NewNoop()})
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/search.json?"+tc.Query, nil))

			assert.Equal(t, tc.ExpectStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			tc.PostCheck(t, decodeBody(t, rr))
		})
	}
}

func TestHealthcheckHandler(t *testing.T) {
	t.Run("should report ok when elasticsearch answers", func(t *testing.T) {
		health := new(mocks.HealthChecker)
		health.On("Ping", mock.Anything).Return(nil)

		rr := httptest.NewRecorder()
		server.NewHandler(server.Deps{Health: health}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, map[string]interface{}{"status": "ok"}, decodeBody(t, rr))
	})

	t.Run("should report unavailable when elasticsearch is down", func(t *testing.T) {
		health := new(mocks.HealthChecker)
		health.On("Ping", mock.Anything).Return(errors.New("no route to host"))

		rr := httptest.NewRecorder()
		server.NewHandler(server.Deps{Health: health}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Equal(t, map[string]interface{}{"status": "unavailable", "reason": "no route to host"}, decodeBody(t, rr))
	})
}

func TestRefreshRegistriesHandler(t *testing.T) {
	t.Run("should refresh every registry", func(t *testing.T) {
		registries := new(mocks.RegistryRefresher)
		registries.On("Refresh", mock.Anything).Return(nil).Once()

		rr := httptest.NewRecorder()
		server.NewHandler(server.Deps{Registries: registries}).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/_admin/registries/refresh", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		registries.AssertExpectations(t)
	})

	t.Run("should report a failed refresh", func(t *testing.T) {
		registries := new(mocks.RegistryRefresher)
		registries.On("Refresh", mock.Anything).Return(errors.New("organisations: index_not_found_exception"))

		rr := httptest.NewRecorder()
		server.NewHandler(server.Deps{Registries: registries}).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/_admin/registries/refresh", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Contains(t, decodeBody(t, rr)["reason"], "index_not_found_exception")
	})

	t.Run("should only accept POST", func(t *testing.T) {
		rr := httptest.NewRecorder()
		server.NewHandler(server.Deps{Registries: new(mocks.RegistryRefresher)}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/_admin/registries/refresh", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	})
}

func TestUnknownRoute(t *testing.T) {
	rr := httptest.NewRecorder()
	server.NewHandler(server.Deps{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/content", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, map[string]interface{}{"reason": "Not Found"}, decodeBody(t, rr))
}

func TestRequestID(t *testing.T) {
	h := server.NewHandler(server.Deps{})

	t.Run("should generate a request id", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
		assert.Len(t, rr.Header().Get(server.RequestIDHeader), 36)
	})

	t.Run("should echo the caller's request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
		req.Header.Set(server.RequestIDHeader, "abc-123")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, "abc-123", rr.Header().Get(server.RequestIDHeader))
	})
}

func TestStatsDMiddleware(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	reporter, err := statsd.Init(log.NewNoop(), statsd.Config{
		Enabled:             true,
		Address:             conn.LocalAddr().String(),
		Prefix:              "sitesearch",
		SamplingRate:        1,
		WithInfluxTagFormat: true,
	})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	server.NewHandler(server.Deps{StatsD: reporter}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	reporter.Close()

	buf := make([]byte, 1024)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := conn.ReadFrom(buf)
	require.NoError(t, err)

	packet := string(buf[:n])
	assert.Contains(t, packet, "http.response_time,method=GET,route=/healthcheck,status=200:")
	assert.Contains(t, packet, "|ms")
}

func TestDeadJobsRoutes(t *testing.T) {
	jobs := worker.DeadJobManagementHandler("/_admin/jobs", worker.NewMemoryProcessor())

	rr := httptest.NewRecorder()
	server.NewHandler(server.Deps{Jobs: jobs}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/_admin/jobs/dead-jobs", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}
