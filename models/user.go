package models

import (
	"time"
)

type PlanName string

const (
	PlanFree    PlanName = "Free"
	PlanBasic   PlanName = "Basic"
	PlanPremium PlanName = "Premium"
)

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "Paid"
	PaymentPending PaymentStatus = "Pending"
)

// User is the account record held by the remote API. The local copy is a cache.
type User struct {
	Username       string        `json:"username" gorm:"primaryKey;type:text"`
	WordsRemaining int           `json:"words_remaining"`
	PhoneNumber    string        `json:"phone_number,omitempty" gorm:"type:text"`
	Plan           PlanName      `json:"plan" gorm:"type:text"` // Free / Basic / Premium
	PaymentStatus  PaymentStatus `json:"payment_status" gorm:"type:text"`
	CreatedAt      string        `json:"created_at" gorm:"column:created_on;type:text"` // YYYY-MM-DD
}

func (User) TableName() string {
	return "cached_users"
}

// PaymentRequired reports whether the paid tools are locked until a payment clears.
func (u *User) PaymentRequired() bool {
	return u.PaymentStatus == PaymentPending && u.Plan != PlanFree
}

// PlanOrDefault returns the user's plan, Free when the record carries none.
func (u *User) PlanOrDefault() PlanName {
	if u.Plan == "" {
		return PlanFree
	}
	return u.Plan
}

// Today renders a date the way created_at is stored.
func Today(now time.Time) string {
	return now.Format("2006-01-02")
}
