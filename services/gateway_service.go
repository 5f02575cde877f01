package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"lipia/metrics"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const DefaultGatewayTimeout = 30 * time.Second

type ErrorKind int

const (
	// ErrKindValidation means the call was rejected before any request was sent.
	ErrKindValidation ErrorKind = iota + 1
	// ErrKindTransport covers DNS failures, refused connections and timeouts.
	ErrKindTransport
	// ErrKindDecode means the status was accepted but the body was not JSON.
	ErrKindDecode
	ErrKindClient
	ErrKindServer
	// ErrKindDenied is a 4xx from the allowance endpoint, e.g. not enough words left.
	ErrKindDenied
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindValidation:
		return "validation"
	case ErrKindTransport:
		return "transport"
	case ErrKindDecode:
		return "decode"
	case ErrKindClient:
		return "client"
	case ErrKindServer:
		return "server"
	case ErrKindDenied:
		return "denied"
	}
	return "unknown"
}

// APIError is the only error type returned by the gateway. Message is safe to
// show to the end user.
type APIError struct {
	Kind       ErrorKind
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsDenied reports whether err is a domain denial from the remote API.
func IsDenied(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == ErrKindDenied
}

// ErrorMessage returns the user-facing text of a gateway error, or err.Error().
func ErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

// Result holds an accepted response. Body is exactly what the server sent.
type Result struct {
	StatusCode int
	Body       json.RawMessage
}

func (r *Result) Decode(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

type GatewayConfig struct {
	BaseURL string
	APIKey  string
	// APIKeyHeader names the header APIKey is sent under. Empty means the key is not sent.
	APIKeyHeader string
	Timeout      time.Duration
	HTTPClient   *http.Client
	Logger       *logrus.Logger
}

// GatewayService talks to the remote accounts and payments API. It keeps no
// state between calls and never retries.
type GatewayService struct {
	baseURL      string
	apiKey       string
	apiKeyHeader string
	client       *http.Client
	log          *logrus.Logger
}

func NewGatewayService(cfg GatewayConfig) *GatewayService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultGatewayTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &GatewayService{
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		apiKeyHeader: cfg.APIKeyHeader,
		client:       client,
		log:          log,
	}
}

func (s *GatewayService) Register(ctx context.Context, username, pin, phone string) (*Result, error) {
	if !ValidPIN(pin) {
		return nil, &APIError{Kind: ErrKindValidation, Operation: "register", Message: "PIN must be 4 digits"}
	}
	payload := map[string]interface{}{
		"username": username,
		"pin":      pin,
	}
	if phone != "" {
		payload["phone_number"] = phone
	}
	return s.do(ctx, "register", http.MethodPost, "/users/register", payload, http.StatusCreated)
}

func (s *GatewayService) Login(ctx context.Context, username, pin string) (*Result, error) {
	payload := map[string]interface{}{
		"username": username,
		"pin":      pin,
	}
	return s.do(ctx, "login", http.MethodPost, "/users/login", payload, http.StatusOK)
}

func (s *GatewayService) GetUser(ctx context.Context, username string) (*Result, error) {
	return s.do(ctx, "get_user", http.MethodGet, "/users/"+url.PathEscape(username), nil, http.StatusOK)
}

func (s *GatewayService) GetPayments(ctx context.Context, username string) (*Result, error) {
	return s.do(ctx, "get_payments", http.MethodGet, "/users/"+url.PathEscape(username)+"/payments", nil, http.StatusOK)
}

func (s *GatewayService) InitiatePayment(ctx context.Context, username, phone, planType string) (*Result, error) {
	payload := map[string]interface{}{
		"username":  username,
		"phone":     phone,
		"plan_type": planType,
	}
	return s.do(ctx, "initiate_payment", http.MethodPost, "/payments/initiate", payload, http.StatusOK, http.StatusAccepted)
}

func (s *GatewayService) PaymentStatus(ctx context.Context, checkoutID string) (*Result, error) {
	return s.do(ctx, "payment_status", http.MethodGet, "/payments/"+url.PathEscape(checkoutID)+"/status", nil, http.StatusOK)
}

// ConsumeWords asks the remote API to debit the allowance. Zero is a valid count.
func (s *GatewayService) ConsumeWords(ctx context.Context, username string, count int) (*Result, error) {
	payload := map[string]interface{}{
		"username": username,
		"words":    count,
	}
	res, err := s.do(ctx, "consume_words", http.MethodPost, "/words/consume", payload, http.StatusOK)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Kind == ErrKindClient {
		apiErr.Kind = ErrKindDenied
	}
	return res, err
}

func (s *GatewayService) HealthCheck(ctx context.Context) (*Result, error) {
	res, err := s.do(ctx, "health", http.MethodGet, "/health", nil, http.StatusOK)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Kind == ErrKindClient {
		// the health endpoint reports the raw body for every failing status
		if raw, ok := apiErr.Err.(rawBodyError); ok && len(raw) > 0 {
			apiErr.Message = string(raw)
		}
	}
	return res, err
}

// rawBodyError carries the undecoded body of a failed response.
type rawBodyError []byte

func (e rawBodyError) Error() string {
	return string(e)
}

func (s *GatewayService) do(ctx context.Context, operation, method, path string, payload interface{}, accepted ...int) (*Result, error) {
	start := time.Now()
	res, err := s.send(ctx, operation, method, path, payload, accepted)

	outcome := "ok"
	entry := s.log.WithFields(logrus.Fields{
		"operation": operation,
		"elapsed":   time.Since(start).String(),
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			outcome = apiErr.Kind.String()
			entry = entry.WithField("status", apiErr.StatusCode)
		}
		entry.WithError(err).Warn("gateway call failed")
	} else {
		entry.WithField("status", res.StatusCode).Debug("gateway call succeeded")
	}
	metrics.ObserveGateway(operation, outcome, time.Since(start))

	return res, err
}

func (s *GatewayService) send(ctx context.Context, operation, method, path string, payload interface{}, accepted []int) (*Result, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, &APIError{Kind: ErrKindValidation, Operation: operation, Message: err.Error(), Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return nil, &APIError{Kind: ErrKindTransport, Operation: operation, Message: err.Error(), Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKeyHeader != "" && s.apiKey != "" {
		req.Header.Set(s.apiKeyHeader, s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &APIError{Kind: ErrKindTransport, Operation: operation, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Kind: ErrKindTransport, Operation: operation, StatusCode: resp.StatusCode, Message: err.Error(), Err: err}
	}

	for _, code := range accepted {
		if resp.StatusCode != code {
			continue
		}
		if !json.Valid(raw) {
			return nil, &APIError{
				Kind:       ErrKindDecode,
				Operation:  operation,
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("invalid JSON in %s response", operation),
				Err:        rawBodyError(raw),
			}
		}
		return &Result{StatusCode: resp.StatusCode, Body: json.RawMessage(raw)}, nil
	}

	return nil, newStatusError(operation, resp.StatusCode, raw)
}

// newStatusError applies the message rule: below 500 a JSON body yields its
// "error" field, anything else yields the raw body.
func newStatusError(operation string, status int, raw []byte) *APIError {
	apiErr := &APIError{
		Kind:       ErrKindClient,
		Operation:  operation,
		StatusCode: status,
		Message:    string(raw),
		Err:        rawBodyError(raw),
	}
	if status >= 500 {
		apiErr.Kind = ErrKindServer
	} else if gjson.ValidBytes(raw) {
		apiErr.Message = "Unknown error"
		if field := gjson.GetBytes(raw, "error"); field.Exists() {
			apiErr.Message = field.String()
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("%d %s", status, http.StatusText(status))
	}
	return apiErr
}

// ValidPIN reports whether pin is exactly four ASCII digits.
func ValidPIN(pin string) bool {
	if len(pin) != 4 {
		return false
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return false
		}
	}
	return true
}
