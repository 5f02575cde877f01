package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"lipia/metrics"
	"lipia/models"
	"lipia/store"
	"lipia/utils"

	"github.com/sethvargo/go-password/password"
	"github.com/sirupsen/logrus"
)

var (
	ErrUserUnavailable = errors.New("user data unavailable")
	ErrPaymentRequired = errors.New("payment required")
)

// Gateway is the remote API surface the services depend on.
type Gateway interface {
	Register(ctx context.Context, username, pin, phone string) (*Result, error)
	Login(ctx context.Context, username, pin string) (*Result, error)
	GetUser(ctx context.Context, username string) (*Result, error)
	GetPayments(ctx context.Context, username string) (*Result, error)
	InitiatePayment(ctx context.Context, username, phone, planType string) (*Result, error)
	PaymentStatus(ctx context.Context, checkoutID string) (*Result, error)
	ConsumeWords(ctx context.Context, username string, count int) (*Result, error)
	HealthCheck(ctx context.Context) (*Result, error)
}

func validationError(format string, args ...interface{}) *APIError {
	return &APIError{Kind: ErrKindValidation, Message: fmt.Sprintf(format, args...)}
}

// AccountService runs the login, registration and payment flows. The remote
// API is asked first; the store is written after every success and read only
// when the remote call fails.
type AccountService struct {
	gateway Gateway
	store   store.Store
	plans   models.PlanTable
	log     *logrus.Logger
	now     func() time.Time
	newID   func() (string, error)
}

func NewAccountService(gateway Gateway, st store.Store, plans models.PlanTable, log *logrus.Logger) *AccountService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AccountService{
		gateway: gateway,
		store:   st,
		plans:   plans,
		log:     log,
		now:     time.Now,
		newID:   GenerateTransactionID,
	}
}

func (s *AccountService) Plans() models.PlanTable {
	return s.plans
}

// GenerateTransactionID returns ten random uppercase letters and digits.
func GenerateTransactionID() (string, error) {
	id, err := password.Generate(10, 4, 0, false, true)
	if err != nil {
		return "", fmt.Errorf("generate transaction id: %w", err)
	}
	return strings.ToUpper(id), nil
}

// Login authenticates against the remote API and caches the returned record as is.
func (s *AccountService) Login(ctx context.Context, username, pin string) (*models.User, error) {
	res, err := s.gateway.Login(ctx, username, pin)
	if err != nil {
		return nil, err
	}

	var body struct {
		User models.User `json:"user"`
	}
	if err := res.Decode(&body); err != nil {
		return nil, &APIError{Kind: ErrKindDecode, Operation: "login", StatusCode: res.StatusCode, Message: "Invalid credentials", Err: err}
	}
	if body.User.Username == "" {
		body.User.Username = username
	}

	if err := s.store.PutUser(ctx, body.User); err != nil {
		return nil, fmt.Errorf("cache user %s: %w", username, err)
	}
	s.log.WithField("username", username).Info("user logged in")
	return &body.User, nil
}

type RegisterInput struct {
	Username string
	PIN      string
	Email    string
	Phone    string
	Plan     models.PlanName
}

// Register creates the remote account and caches a starting record for it.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if strings.TrimSpace(in.Username) == "" {
		return nil, validationError("Username is required")
	}
	if !ValidPIN(in.PIN) {
		return nil, validationError("PIN must be 4 digits")
	}
	if in.Email != "" && !utils.ValidateEmail(in.Email) {
		return nil, validationError("Invalid email address")
	}
	if in.Phone != "" && !utils.ValidatePhone(in.Phone) {
		return nil, validationError("Invalid phone number")
	}
	if _, ok := s.plans.Lookup(in.Plan); !ok {
		return nil, validationError("Invalid plan selected")
	}

	if _, err := s.gateway.Register(ctx, in.Username, in.PIN, in.Phone); err != nil {
		return nil, err
	}

	status := models.PaymentPending
	if in.Plan == models.PlanFree {
		status = models.PaymentPaid
	}
	user := models.User{
		Username:       in.Username,
		WordsRemaining: 0,
		PhoneNumber:    in.Phone,
		Plan:           in.Plan,
		PaymentStatus:  status,
		CreatedAt:      models.Today(s.now()),
	}
	if err := s.store.PutUser(ctx, user); err != nil {
		return nil, fmt.Errorf("cache user %s: %w", in.Username, err)
	}

	s.log.WithFields(logrus.Fields{"username": in.Username, "plan": in.Plan}).Info("user registered")
	return &user, nil
}

// CurrentUser fetches a fresh record, falling back to the cached copy.
func (s *AccountService) CurrentUser(ctx context.Context, username string) (*models.User, error) {
	res, err := s.gateway.GetUser(ctx, username)
	if err == nil {
		var user models.User
		if err = res.Decode(&user); err == nil {
			if user.Username == "" {
				user.Username = username
			}
			if putErr := s.store.PutUser(ctx, user); putErr != nil {
				s.log.WithError(putErr).Warn("failed to refresh cached user")
			}
			return &user, nil
		}
	}

	s.log.WithError(err).WithField("username", username).Debug("using cached user")
	cached, cacheErr := s.store.GetUser(ctx, username)
	if cacheErr != nil {
		return nil, ErrUserUnavailable
	}
	return cached, nil
}

// CachedUser reads the cache and only goes remote when nothing is cached.
func (s *AccountService) CachedUser(ctx context.Context, username string) (*models.User, error) {
	user, err := s.store.GetUser(ctx, username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		s.log.WithError(err).Warn("cache read failed")
	}
	return s.CurrentUser(ctx, username)
}

type remotePayment struct {
	models.Transaction
	Timestamp string `json:"timestamp"`
}

// Payments lists the user's payments from the remote API, or the locally
// recorded transactions when that fails.
func (s *AccountService) Payments(ctx context.Context, username string) ([]models.Transaction, error) {
	res, err := s.gateway.GetPayments(ctx, username)
	if err == nil {
		var remote []remotePayment
		if err = res.Decode(&remote); err == nil {
			out := make([]models.Transaction, 0, len(remote))
			for _, p := range remote {
				txn := p.Transaction
				txn.Date = utils.FormatDate(p.Timestamp)
				out = append(out, txn)
			}
			return out, nil
		}
	}

	s.log.WithError(err).WithField("username", username).Debug("using cached transactions")
	return s.store.TransactionsByUser(ctx, username)
}

type initiateResponse struct {
	CheckoutID string `json:"checkout_id"`
	Status     string `json:"status"`
	Reference  string `json:"reference"`
}

// StartPayment asks the remote API to charge the user's plan price and
// records the attempt locally.
func (s *AccountService) StartPayment(ctx context.Context, username, phone string) (*models.Transaction, error) {
	if !utils.ValidatePhone(phone) {
		return nil, validationError("Invalid phone number")
	}
	user, err := s.CachedUser(ctx, username)
	if err != nil {
		return nil, err
	}
	plan := s.plans.Get(user.PlanOrDefault())

	res, err := s.gateway.InitiatePayment(ctx, username, phone, strings.ToLower(string(plan.Name)))
	if err != nil {
		return nil, err
	}
	var body initiateResponse
	if err := res.Decode(&body); err != nil {
		return nil, &APIError{Kind: ErrKindDecode, Operation: "initiate_payment", StatusCode: res.StatusCode, Message: "Payment failed", Err: err}
	}

	txnID := body.CheckoutID
	if txnID == "" {
		if txnID, err = s.newID(); err != nil {
			return nil, err
		}
	}
	reference := body.Reference
	if reference == "" {
		reference = "N/A"
	}
	completed := body.Status == "completed"

	txn := models.Transaction{
		TransactionID:    txnID,
		UserID:           username,
		PhoneNumber:      phone,
		Amount:           plan.Price,
		SubscriptionType: plan.Name,
		Date:             s.now().Format(models.TransactionDateLayout),
		Status:           models.TransactionPending,
		Reference:        reference,
	}
	if completed {
		txn.Status = models.TransactionCompleted
	}
	if err := s.store.AppendTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("record transaction %s: %w", txnID, err)
	}

	user.PaymentStatus = models.PaymentPending
	if completed {
		user.PaymentStatus = models.PaymentPaid
	}
	if err := s.store.PutUser(ctx, *user); err != nil {
		return nil, fmt.Errorf("cache user %s: %w", username, err)
	}

	metrics.IncPaymentsInitiated(string(plan.Name), string(txn.Status))
	s.log.WithFields(logrus.Fields{
		"username":       username,
		"transaction_id": txnID,
		"status":         txn.Status,
	}).Info("payment initiated")
	return &txn, nil
}

// OwnsTransaction reports whether the locally recorded transaction belongs to username.
func (s *AccountService) OwnsTransaction(ctx context.Context, username, transactionID string) (*models.Transaction, error) {
	txn, err := s.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.UserID != username {
		return nil, store.ErrNotFound
	}
	return txn, nil
}

// RefreshPaymentStatus polls the remote API once. A completed payment marks
// the transaction Completed and the owner Paid.
func (s *AccountService) RefreshPaymentStatus(ctx context.Context, username, checkoutID string) (models.PaymentUpdate, error) {
	update := models.PaymentUpdate{
		CheckoutID: checkoutID,
		Status:     models.TransactionPending,
		CheckedAt:  s.now(),
	}

	txn, err := s.OwnsTransaction(ctx, username, checkoutID)
	if err != nil {
		return update, err
	}
	update.Status = txn.Status
	update.Reference = txn.Reference

	res, err := s.gateway.PaymentStatus(ctx, checkoutID)
	if err != nil {
		update.Error = ErrorMessage(err)
		return update, err
	}
	var body initiateResponse
	if err := res.Decode(&body); err != nil {
		update.Error = "invalid payment status response"
		return update, err
	}
	if body.Status != "completed" {
		return update, nil
	}

	if err := s.store.UpdateTransaction(ctx, checkoutID, models.TransactionCompleted, body.Reference); err != nil {
		return update, fmt.Errorf("update transaction %s: %w", checkoutID, err)
	}
	update.Status = models.TransactionCompleted
	if body.Reference != "" {
		update.Reference = body.Reference
	}

	if user, err := s.store.GetUser(ctx, username); err == nil {
		user.PaymentStatus = models.PaymentPaid
		if err := s.store.PutUser(ctx, *user); err != nil {
			return update, fmt.Errorf("cache user %s: %w", username, err)
		}
	}

	s.log.WithFields(logrus.Fields{"username": username, "transaction_id": checkoutID}).Info("payment completed")
	return update, nil
}

// Upgrade switches the cached plan and leaves the account pending payment.
func (s *AccountService) Upgrade(ctx context.Context, username string, newPlan models.PlanName) (*models.User, error) {
	if _, ok := s.plans.Lookup(newPlan); !ok {
		return nil, validationError("Invalid plan selected")
	}
	user, err := s.CachedUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if user.PlanOrDefault() == newPlan {
		return nil, validationError("You are already on the %s plan", newPlan)
	}

	user.Plan = newPlan
	user.PaymentStatus = models.PaymentPending
	if err := s.store.PutUser(ctx, *user); err != nil {
		return nil, fmt.Errorf("cache user %s: %w", username, err)
	}
	s.log.WithFields(logrus.Fields{"username": username, "plan": newPlan}).Info("plan changed")
	return user, nil
}

// Health reports whether the remote API answers its health check.
func (s *AccountService) Health(ctx context.Context) (bool, interface{}) {
	res, err := s.gateway.HealthCheck(ctx)
	if err != nil {
		return false, ErrorMessage(err)
	}
	var details interface{}
	if err := json.Unmarshal(res.Body, &details); err != nil {
		return false, err.Error()
	}
	return true, details
}

// SeedDemo caches the demo account and one completed transaction for it.
// It does nothing when the demo account is already cached.
func (s *AccountService) SeedDemo(ctx context.Context) error {
	exists, err := s.store.UserExists(ctx, "demo")
	if err != nil || exists {
		return err
	}
	now := s.now()
	demo := models.User{
		Username:       "demo",
		WordsRemaining: 500,
		PhoneNumber:    "0712345678",
		Plan:           models.PlanBasic,
		PaymentStatus:  models.PaymentPaid,
		CreatedAt:      models.Today(now),
	}
	if err := s.store.PutUser(ctx, demo); err != nil {
		return err
	}
	return s.store.AppendTransaction(ctx, models.Transaction{
		TransactionID:    "TXND3M0123456",
		UserID:           "demo",
		PhoneNumber:      "0712345678",
		Amount:           s.plans.Get(models.PlanBasic).Price,
		SubscriptionType: models.PlanBasic,
		Date:             now.Format(models.TransactionDateLayout),
		Status:           models.TransactionCompleted,
		Reference:        "REF123456",
	})
}
