package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Store-side aggregates. Amounts stay in minor units until the reporting boundary.

type MonthlySum struct {
	Month time.Time // first day of month, UTC
	Minor int64
}

type CustomerSpend struct {
	UserID string
	Email  string
	Name   string
	Minor  int64
	Count  int
}

// Report types, major units.

type MonthlyRevenue struct {
	Month   string          `json:"month"` // YYYY-MM
	Revenue decimal.Decimal `json:"revenue"`
}

type TopCustomer struct {
	UserID       string          `json:"userId"`
	Email        string          `json:"email"`
	Name         string          `json:"name"`
	TotalSpent   decimal.Decimal `json:"totalSpent"`
	PaymentCount int             `json:"paymentCount"`
}

type RevenueStats struct {
	Currency       Currency                        `json:"currency"`
	TotalRevenue   decimal.Decimal                 `json:"totalRevenue"`
	RevenueByType  map[PaymentType]decimal.Decimal `json:"revenueByType"`
	MonthlyRevenue []MonthlyRevenue                `json:"monthlyRevenue"`
	TopCustomers   []TopCustomer                   `json:"topCustomers"`
}
