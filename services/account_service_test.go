package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"lipia/models"
	"lipia/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAPI serves canned answers keyed by "METHOD /path".
func stubAPI(t *testing.T, routes map[string]http.HandlerFunc) *GatewayService {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := routes[r.Method+" "+r.URL.Path]; ok {
			h(w, r)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, "upstream unavailable")
	}))
	t.Cleanup(srv.Close)
	return NewGatewayService(GatewayConfig{BaseURL: srv.URL, Logger: quietLogger()})
}

func reply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func newAccountService(t *testing.T, routes map[string]http.HandlerFunc) (*AccountService, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	svc := NewAccountService(stubAPI(t, routes), st, models.DefaultPlans(), quietLogger())
	svc.now = func() time.Time { return time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC) }
	return svc, st
}

func TestLoginCachesReturnedRecord(t *testing.T) {
	svc, st := newAccountService(t, map[string]http.HandlerFunc{
		"POST /users/login": reply(http.StatusOK, `{"user": {"username":"demo","plan":"Basic","words_remaining":500}}`),
	})
	ctx := context.Background()

	user, err := svc.Login(ctx, "demo", "1234")
	require.NoError(t, err)

	want := models.User{Username: "demo", Plan: models.PlanBasic, WordsRemaining: 500}
	assert.Equal(t, want, *user)

	cached, err := st.GetUser(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, want, *cached)
}

func TestLoginFailureLeavesCacheAlone(t *testing.T) {
	svc, st := newAccountService(t, map[string]http.HandlerFunc{
		"POST /users/login": reply(http.StatusUnauthorized, `{"error": "Invalid PIN"}`),
	})

	_, err := svc.Login(context.Background(), "demo", "0000")
	assert.EqualError(t, err, "Invalid PIN")

	exists, _ := st.UserExists(context.Background(), "demo")
	assert.False(t, exists)
}

func TestRegisterCachesStartingRecord(t *testing.T) {
	svc, st := newAccountService(t, map[string]http.HandlerFunc{
		"POST /users/register": reply(http.StatusCreated, `{"message": "created"}`),
	})
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "jane", PIN: "4321", Email: "jane@example.com", Phone: "0711111111", Plan: models.PlanPremium})
	require.NoError(t, err)

	cached, err := st.GetUser(ctx, "jane")
	require.NoError(t, err)
	assert.Equal(t, models.User{
		Username:      "jane",
		PhoneNumber:   "0711111111",
		Plan:          models.PlanPremium,
		PaymentStatus: models.PaymentPending,
		CreatedAt:     "2026-10-15",
	}, *cached)

	_, err = svc.Register(ctx, RegisterInput{Username: "free", PIN: "4321", Plan: models.PlanFree})
	require.NoError(t, err)
	cached, _ = st.GetUser(ctx, "free")
	assert.Equal(t, models.PaymentPaid, cached.PaymentStatus)
}

func TestRegisterValidatesBeforeCallingRemote(t *testing.T) {
	var calls int32
	svc, _ := newAccountService(t, map[string]http.HandlerFunc{
		"POST /users/register": func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			reply(http.StatusCreated, `{}`)(w, r)
		},
	})

	cases := map[string]RegisterInput{
		"PIN must be 4 digits":  {Username: "a", PIN: "12", Plan: models.PlanFree},
		"Invalid email address": {Username: "a", PIN: "1234", Email: "nope", Plan: models.PlanFree},
		"Invalid phone number":  {Username: "a", PIN: "1234", Phone: "12", Plan: models.PlanFree},
		"Invalid plan selected": {Username: "a", PIN: "1234", Plan: "Gold"},
		"Username is required":  {PIN: "1234", Plan: models.PlanFree},
	}
	for msg, in := range cases {
		_, err := svc.Register(context.Background(), in)
		assert.EqualError(t, err, msg)
	}
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestCurrentUserFallsBackToCache(t *testing.T) {
	svc, st := newAccountService(t, nil)
	ctx := context.Background()

	_, err := svc.CurrentUser(ctx, "demo")
	assert.ErrorIs(t, err, ErrUserUnavailable)

	require.NoError(t, st.PutUser(ctx, models.User{Username: "demo", Plan: models.PlanBasic}))
	user, err := svc.CurrentUser(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, models.PlanBasic, user.Plan)
}

func TestCurrentUserOverwritesCache(t *testing.T) {
	svc, st := newAccountService(t, map[string]http.HandlerFunc{
		"GET /users/demo": reply(http.StatusOK, `{"username":"demo","plan":"Premium","words_remaining":42,"payment_status":"Paid"}`),
	})
	ctx := context.Background()
	require.NoError(t, st.PutUser(ctx, models.User{Username: "demo", Plan: models.PlanBasic, PhoneNumber: "0712345678"}))

	user, err := svc.CurrentUser(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, 42, user.WordsRemaining)

	cached, _ := st.GetUser(ctx, "demo")
	assert.Equal(t, models.PlanPremium, cached.Plan)
	// no merge with the old record
	assert.Empty(t, cached.PhoneNumber)
}

func TestPaymentsFromRemoteFormatsDates(t *testing.T) {
	svc, _ := newAccountService(t, map[string]http.HandlerFunc{
		"GET /users/demo/payments": reply(http.StatusOK, `[{"transaction_id":"C9","amount":20,"subscription_type":"Basic","status":"Completed","reference":"R1","timestamp":"2026-10-01 08:15:00"}]`),
	})

	txns, err := svc.Payments(context.Background(), "demo")
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "C9", txns[0].TransactionID)
	assert.Equal(t, "Oct 01, 2026 08:15 AM", txns[0].Date)
}

func TestPaymentsFallBackToStore(t *testing.T) {
	svc, st := newAccountService(t, nil)
	ctx := context.Background()
	require.NoError(t, st.AppendTransaction(ctx, models.Transaction{TransactionID: "T1", UserID: "demo"}))
	require.NoError(t, st.AppendTransaction(ctx, models.Transaction{TransactionID: "T2", UserID: "other"}))

	txns, err := svc.Payments(ctx, "demo")
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "T1", txns[0].TransactionID)
}

func TestStartPaymentPendingDefaultsReference(t *testing.T) {
	svc, st := newAccountService(t, map[string]http.HandlerFunc{
		"POST /payments/initiate": reply(http.StatusAccepted, `{"checkout_id":"C1","status":"pending"}`),
	})
	ctx := context.Background()
	require.NoError(t, st.PutUser(ctx, models.User{Username: "demo", Plan: models.PlanBasic, PaymentStatus: models.PaymentPaid}))

	txn, err := svc.StartPayment(ctx, "demo", "0712345678")
	require.NoError(t, err)

	assert.Equal(t, models.Transaction{
		TransactionID:    "C1",
		UserID:           "demo",
		PhoneNumber:      "0712345678",
		Amount:           20,
		SubscriptionType: models.PlanBasic,
		Date:             "2026-10-15 09:30:00",
		Status:           models.TransactionPending,
		Reference:        "N/A",
	}, *txn)

	stored, err := st.TransactionsByUser(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, []models.Transaction{*txn}, stored)

	user, _ := st.GetUser(ctx, "demo")
	assert.Equal(t, models.PaymentPending, user.PaymentStatus)
}

func TestStartPaymentSendsLowercasePlan(t *testing.T) {
	svc, st := newAccountService(t, map[string]http.HandlerFunc{
		"POST /payments/initiate": func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"username":"demo","phone":"0712345678","plan_type":"premium"}`, string(body))
			reply(http.StatusOK, `{"status":"completed","reference":"MPESA1"}`)(w, r)
		},
	})
	ctx := context.Background()
	require.NoError(t, st.PutUser(ctx, models.User{Username: "demo", Plan: models.PlanPremium, PaymentStatus: models.PaymentPending}))

	txn, err := svc.StartPayment(ctx, "demo", "0712345678")
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{10}$`), txn.TransactionID)
	assert.Equal(t, models.TransactionCompleted, txn.Status)
	assert.Equal(t, "MPESA1", txn.Reference)
	assert.Equal(t, 50.0, txn.Amount)

	user, _ := st.GetUser(ctx, "demo")
	assert.Equal(t, models.PaymentPaid, user.PaymentStatus)
}

func TestStartPaymentFailureRecordsNothing(t *testing.T) {
	svc, st := newAccountService(t, map[string]http.HandlerFunc{
		"POST /payments/initiate": reply(http.StatusBadRequest, `{"error":"Invalid phone"}`),
	})
	ctx := context.Background()
	require.NoError(t, st.PutUser(ctx, models.User{Username: "demo", Plan: models.PlanBasic}))

	_, err := svc.StartPayment(ctx, "demo", "0712345678")
	assert.EqualError(t, err, "Invalid phone")

	stats, _ := st.Stats(ctx)
	assert.Zero(t, stats.Transactions)
}

func TestRefreshPaymentStatusCompletes(t *testing.T) {
	svc, st := newAccountService(t, map[string]http.HandlerFunc{
		"GET /payments/C1/status": reply(http.StatusOK, `{"status":"completed","reference":"MPESA7"}`),
	})
	ctx := context.Background()
	require.NoError(t, st.PutUser(ctx, models.User{Username: "demo", Plan: models.PlanBasic, PaymentStatus: models.PaymentPending}))
	require.NoError(t, st.AppendTransaction(ctx, models.Transaction{TransactionID: "C1", UserID: "demo", Status: models.TransactionPending, Reference: "N/A"}))

	update, err := svc.RefreshPaymentStatus(ctx, "demo", "C1")
	require.NoError(t, err)
	assert.True(t, update.Terminal())
	assert.Equal(t, "MPESA7", update.Reference)

	txn, _ := st.GetTransaction(ctx, "C1")
	assert.Equal(t, models.TransactionCompleted, txn.Status)
	user, _ := st.GetUser(ctx, "demo")
	assert.Equal(t, models.PaymentPaid, user.PaymentStatus)
}

func TestRefreshPaymentStatusRejectsOtherUsers(t *testing.T) {
	svc, st := newAccountService(t, nil)
	ctx := context.Background()
	require.NoError(t, st.AppendTransaction(ctx, models.Transaction{TransactionID: "C1", UserID: "demo"}))

	_, err := svc.RefreshPaymentStatus(ctx, "mallory", "C1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRefreshPaymentStatusStillPending(t *testing.T) {
	svc, st := newAccountService(t, map[string]http.HandlerFunc{
		"GET /payments/C1/status": reply(http.StatusOK, `{"status":"pending"}`),
	})
	ctx := context.Background()
	require.NoError(t, st.AppendTransaction(ctx, models.Transaction{TransactionID: "C1", UserID: "demo", Status: models.TransactionPending}))

	update, err := svc.RefreshPaymentStatus(ctx, "demo", "C1")
	require.NoError(t, err)
	assert.False(t, update.Terminal())
}

func TestUpgrade(t *testing.T) {
	svc, st := newAccountService(t, nil)
	ctx := context.Background()
	require.NoError(t, st.PutUser(ctx, models.User{Username: "demo", Plan: models.PlanBasic, PaymentStatus: models.PaymentPaid}))

	_, err := svc.Upgrade(ctx, "demo", "Gold")
	assert.EqualError(t, err, "Invalid plan selected")

	_, err = svc.Upgrade(ctx, "demo", models.PlanBasic)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, ErrKindValidation, apiErr.Kind)

	user, err := svc.Upgrade(ctx, "demo", models.PlanPremium)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPremium, user.Plan)
	assert.True(t, user.PaymentRequired())
}

func TestHealth(t *testing.T) {
	svc, _ := newAccountService(t, map[string]http.HandlerFunc{
		"GET /health": reply(http.StatusOK, `{"status":"ok"}`),
	})
	ok, details := svc.Health(context.Background())
	assert.True(t, ok)
	assert.Equal(t, map[string]interface{}{"status": "ok"}, details)

	down, _ := newAccountService(t, nil)
	ok, details = down.Health(context.Background())
	assert.False(t, ok)
	assert.Equal(t, "upstream unavailable", details)
}

func TestSeedDemo(t *testing.T) {
	svc, st := newAccountService(t, nil)
	ctx := context.Background()
	require.NoError(t, svc.SeedDemo(ctx))

	user, err := st.GetUser(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, 500, user.WordsRemaining)
	assert.False(t, user.PaymentRequired())

	txn, err := st.GetTransaction(ctx, "TXND3M0123456")
	require.NoError(t, err)
	assert.Equal(t, "REF123456", txn.Reference)
	assert.Equal(t, 20.0, txn.Amount)

	require.NoError(t, svc.SeedDemo(ctx))
	txns, err := st.TransactionsByUser(ctx, "demo")
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestGenerateTransactionID(t *testing.T) {
	id, err := GenerateTransactionID()
	require.NoError(t, err)
	assert.Regexp(t, `^[A-Z0-9]{10}$`, id)
}
