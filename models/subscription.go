package models

import (
	"time"
)

type TransactionStatus string

const (
	TransactionCompleted TransactionStatus = "Completed"
	TransactionPending   TransactionStatus = "Pending"
)

const TransactionDateLayout = "2006-01-02 15:04:05"

// Transaction records a payment attempt made from this front end
type Transaction struct {
	ID               uint              `json:"-" gorm:"primaryKey;autoIncrement"`
	TransactionID    string            `json:"transaction_id" gorm:"index;type:text"`
	UserID           string            `json:"user_id" gorm:"index;type:text"` // username, not enforced
	PhoneNumber      string            `json:"phone_number" gorm:"type:text"`
	Amount           float64           `json:"amount"`
	SubscriptionType PlanName          `json:"subscription_type" gorm:"type:text"`
	Date             string            `json:"date" gorm:"type:text"`
	Status           TransactionStatus `json:"status" gorm:"type:text"`
	Reference        string            `json:"reference" gorm:"type:text"`
}

// PaymentUpdate is what the status endpoints and the payment watcher report.
type PaymentUpdate struct {
	CheckoutID string            `json:"checkout_id"`
	Status     TransactionStatus `json:"status"`
	Reference  string            `json:"reference,omitempty"`
	Error      string            `json:"error,omitempty"`
	CheckedAt  time.Time         `json:"checked_at"`
}

// Terminal reports whether polling can stop.
func (p PaymentUpdate) Terminal() bool {
	return p.Status == TransactionCompleted
}

// Detection is the output shape of the AI-content detector.
type Detection struct {
	AIScore    int               `json:"ai_score"`
	HumanScore int               `json:"human_score"`
	Analysis   DetectionAnalysis `json:"analysis"`
}

type DetectionAnalysis struct {
	FormalLanguage     int `json:"formal_language"`
	RepetitivePatterns int `json:"repetitive_patterns"`
	SentenceUniformity int `json:"sentence_uniformity"`
}
