package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestMoney(t *testing.T) {
	t.Run("NewMoney", func(t *testing.T) {
		m, err := NewMoney("100.50", "NGN")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !m.Amount.Equal(decimal.RequireFromString("100.5")) {
			t.Errorf("Expected 100.5, got %s", m.Amount)
		}
		if m.Currency != "NGN" {
			t.Errorf("Expected NGN, got %s", m.Currency)
		}
	})

	t.Run("NewMoneyInvalid", func(t *testing.T) {
		if _, err := NewMoney("ten", "NGN"); err == nil {
			t.Error("Expected error for non-numeric amount")
		}
	})

	t.Run("Add", func(t *testing.T) {
		m1, _ := NewMoney("10.10", "NGN")
		m2, _ := NewMoney("0.20", "NGN")
		result := m1.Add(m2)
		if result.Amount.String() != "10.3" {
			t.Errorf("Expected 10.3, got %s", result.Amount)
		}
	})

	t.Run("SubNegative", func(t *testing.T) {
		m1, _ := NewMoney("1", "NGN")
		m2, _ := NewMoney("3", "NGN")
		result := m1.Sub(m2)
		if result.Amount.String() != "-2" {
			t.Errorf("Expected -2, got %s", result.Amount)
		}
		if result.IsPositive() {
			t.Error("Expected negative result")
		}
	})

	t.Run("String", func(t *testing.T) {
		m, _ := NewMoney("7048.3", "NGN")
		if m.String() != "7048.30 NGN" {
			t.Errorf("Expected '7048.30 NGN', got '%s'", m.String())
		}
	})
}

func TestPaymentStatus(t *testing.T) {
	tests := []struct {
		status     PaymentStatus
		refundable bool
		final      bool
	}{
		{PaymentStatusPending, false, false},
		{PaymentStatusRejected, false, true},
		{PaymentStatusPaid, true, false},
		{PaymentStatusFailed, false, true},
		{PaymentStatusRefunded, false, true},
		{PaymentStatusPartiallyRefunded, true, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if tt.status.Refundable() != tt.refundable {
				t.Errorf("Refundable: expected %v", tt.refundable)
			}
			if tt.status.Final() != tt.final {
				t.Errorf("Final: expected %v", tt.final)
			}
		})
	}
}

func TestPaymentRequest_Refundable(t *testing.T) {
	p := &PaymentRequest{
		Amount:         Money{Amount: decimal.RequireFromString("100"), Currency: "NGN"},
		RefundedAmount: decimal.RequireFromString("40.25"),
	}
	if p.Refundable().String() != "59.75" {
		t.Errorf("Expected 59.75 refundable, got %s", p.Refundable())
	}
}

func TestEventSeverity(t *testing.T) {
	severities := []EventSeverity{
		SeverityInfo,
		SeverityWarning,
		SeverityError,
		SeverityCritical,
	}

	for _, sev := range severities {
		if sev == "" {
			t.Error("Event severity should not be empty")
		}
	}
}
