package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentMethod is a supported mobile-money network.
type PaymentMethod string

const (
	MethodMTN    PaymentMethod = "MTN"
	MethodAirtel PaymentMethod = "AIRTEL"
)

// ParsePaymentMethod normalizes s and reports whether it is supported.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s))); m {
	case MethodMTN, MethodAirtel:
		return m, true
	}
	return "", false
}

// PaymentStatus is the settlement state of a payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// Payment is the immutable record of a payment made against one appointment.
type Payment struct {
	BaseModel
	AppointmentID string          `gorm:"size:36;uniqueIndex;not null" json:"appointmentId"`
	UserID        string          `gorm:"size:36;index;not null" json:"-"`
	Method        PaymentMethod   `gorm:"column:payment_method;size:20;not null" json:"paymentMethod"`
	PhoneNumber   string          `gorm:"size:15" json:"phoneNumber,omitempty"`
	Amount        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Status        PaymentStatus   `gorm:"size:20;not null;default:'PENDING'" json:"status"`
	TransactionID string          `gorm:"size:100;uniqueIndex;not null" json:"transactionId"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
