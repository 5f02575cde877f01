package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gatewayCase struct {
	name    string
	method  string
	path    string
	success int
	call    func(g *GatewayService) (*Result, error)
}

func gatewayCases() []gatewayCase {
	ctx := context.Background()
	return []gatewayCase{
		{"register", http.MethodPost, "/users/register", http.StatusCreated, func(g *GatewayService) (*Result, error) {
			return g.Register(ctx, "demo", "1234", "0712345678")
		}},
		{"login", http.MethodPost, "/users/login", http.StatusOK, func(g *GatewayService) (*Result, error) {
			return g.Login(ctx, "demo", "1234")
		}},
		{"get user", http.MethodGet, "/users/demo", http.StatusOK, func(g *GatewayService) (*Result, error) {
			return g.GetUser(ctx, "demo")
		}},
		{"get payments", http.MethodGet, "/users/demo/payments", http.StatusOK, func(g *GatewayService) (*Result, error) {
			return g.GetPayments(ctx, "demo")
		}},
		{"initiate payment", http.MethodPost, "/payments/initiate", http.StatusAccepted, func(g *GatewayService) (*Result, error) {
			return g.InitiatePayment(ctx, "demo", "0712345678", "basic")
		}},
		{"payment status", http.MethodGet, "/payments/C1/status", http.StatusOK, func(g *GatewayService) (*Result, error) {
			return g.PaymentStatus(ctx, "C1")
		}},
		{"consume words", http.MethodPost, "/words/consume", http.StatusOK, func(g *GatewayService) (*Result, error) {
			return g.ConsumeWords(ctx, "demo", 12)
		}},
		{"health", http.MethodGet, "/health", http.StatusOK, func(g *GatewayService) (*Result, error) {
			return g.HealthCheck(ctx)
		}},
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestGateway(t *testing.T, handler http.HandlerFunc) *GatewayService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGatewayService(GatewayConfig{BaseURL: srv.URL, Logger: quietLogger()})
}

func TestGatewaySuccessReturnsBodyUnchanged(t *testing.T) {
	body := `{"b": [1, 2, {"c": null}], "a": "x"}`
	for _, tc := range gatewayCases() {
		t.Run(tc.name, func(t *testing.T) {
			g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tc.method, r.Method)
				assert.Equal(t, tc.path, r.URL.Path)
				w.WriteHeader(tc.success)
				io.WriteString(w, body)
			})

			res, err := tc.call(g)
			require.NoError(t, err)
			assert.Equal(t, tc.success, res.StatusCode)
			assert.Equal(t, body, string(res.Body))
		})
	}
}

func TestGatewayClientErrorUsesErrorField(t *testing.T) {
	for _, tc := range gatewayCases() {
		t.Run(tc.name, func(t *testing.T) {
			g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, `{"error": "X"}`)
			})

			res, err := tc.call(g)
			require.Error(t, err)
			assert.Nil(t, res)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			if tc.name == "health" {
				// health failures always carry the raw body
				assert.Equal(t, `{"error": "X"}`, apiErr.Message)
			} else {
				assert.Equal(t, "X", apiErr.Message)
			}
		})
	}
}

func TestGatewayServerErrorUsesRawBody(t *testing.T) {
	for _, tc := range gatewayCases() {
		t.Run(tc.name, func(t *testing.T) {
			g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				io.WriteString(w, "<html>upstream down</html>")
			})

			_, err := tc.call(g)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, ErrKindServer, apiErr.Kind)
			assert.Equal(t, "<html>upstream down</html>", apiErr.Message)
		})
	}
}

func TestGatewayClientErrorMessageFallbacks(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/nofield":
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"message": "missing"}`)
		case "/users/plain":
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, "no such user")
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	})
	ctx := context.Background()

	_, err := g.GetUser(ctx, "nofield")
	assert.EqualError(t, err, "Unknown error")

	_, err = g.GetUser(ctx, "plain")
	assert.EqualError(t, err, "no such user")

	_, err = g.GetUser(ctx, "empty")
	assert.EqualError(t, err, "403 Forbidden")
}

func TestGatewayTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	g := NewGatewayService(GatewayConfig{BaseURL: base, Logger: quietLogger()})
	for _, tc := range gatewayCases() {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.call(g)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, ErrKindTransport, apiErr.Kind)
			assert.NotEmpty(t, apiErr.Message)
		})
	}
}

func TestGatewayTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	g := NewGatewayService(GatewayConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond, Logger: quietLogger()})
	_, err := g.HealthCheck(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, ErrKindTransport, apiErr.Kind)
}

func TestGatewayMalformedJSONOnSuccess(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not json")
	})

	_, err := g.GetUser(context.Background(), "demo")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, ErrKindDecode, apiErr.Kind)
	assert.NotEmpty(t, apiErr.Message)
}

func TestGatewayRegisterRejectsBadPINLocally(t *testing.T) {
	var calls int32
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{}`)
	})

	for _, pin := range []string{"", "123", "12345", "12a4", "١٢٣٤"} {
		_, err := g.Register(context.Background(), "demo", pin, "")
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr), pin)
		assert.Equal(t, ErrKindValidation, apiErr.Kind)
	}
	assert.Zero(t, atomic.LoadInt32(&calls))

	_, err := g.Register(context.Background(), "demo", "0000", "")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGatewayRegisterOmitsEmptyPhone(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, map[string]interface{}{"username": "demo", "pin": "1234"}, payload)
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"message": "ok"}`)
	})

	_, err := g.Register(context.Background(), "demo", "1234", "")
	require.NoError(t, err)
}

func TestGatewayConsumeZeroWords(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "demo", payload["username"])
		assert.Equal(t, float64(0), payload["words"])
		io.WriteString(w, `{"words_remaining": 10}`)
	})

	_, err := g.ConsumeWords(context.Background(), "demo", 0)
	require.NoError(t, err)
}

func TestGatewayConsumeDenied(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		io.WriteString(w, `{"error": "Insufficient words"}`)
	})

	_, err := g.ConsumeWords(context.Background(), "demo", 50)
	assert.True(t, IsDenied(err))
	assert.Equal(t, "Insufficient words", ErrorMessage(err))
}

func TestGatewayAPIKeyHeader(t *testing.T) {
	var seen atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.Header.Get("X-API-Key"))
		io.WriteString(w, `{"status": "ok"}`)
	}))
	t.Cleanup(srv.Close)

	g := NewGatewayService(GatewayConfig{BaseURL: srv.URL, APIKey: "k1", Logger: quietLogger()})
	_, err := g.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", seen.Load())

	g = NewGatewayService(GatewayConfig{BaseURL: srv.URL, APIKey: "k1", APIKeyHeader: "X-API-Key", Logger: quietLogger()})
	_, err = g.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "k1", seen.Load())
}

func TestGatewayEscapesPathSegments(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/a%2Fb/payments", r.URL.EscapedPath())
		io.WriteString(w, `[]`)
	})

	_, err := g.GetPayments(context.Background(), "a/b")
	require.NoError(t, err)
}
