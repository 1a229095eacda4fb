package pagacollect

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFields_Present(t *testing.T) {
	var nilString *string
	var nilSlice []string
	var nilMap map[string]string
	empty := ""
	no := false

	fields := Fields{
		{"nilValue", nil},
		{"zero", 0},
		{"nilPointer", nilString},
		{"false", false},
		{"nilSlice", nilSlice},
		{"emptyString", ""},
		{"nilMap", nilMap},
		{"emptySlice", []string{}},
		{"pointerToEmpty", &empty},
		{"pointerToFalse", &no},
		{"number", json.Number("0")},
	}

	got := fields.Present().Names()
	expected := []string{"zero", "false", "emptyString", "emptySlice", "pointerToEmpty", "pointerToFalse", "number"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}

	if len(fields) != 11 {
		t.Errorf("Present must not modify the receiver, length is now %d", len(fields))
	}
}

func TestFields_PresentKeepsNestedNulls(t *testing.T) {
	fields := Fields{
		{"payer", Fields{{"email", nil}, {"name", "A"}}},
	}

	data, err := json.Marshal(fields.Present())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if string(data) != `{"payer":{"email":null,"name":"A"}}` {
		t.Errorf("Unexpected JSON: %s", data)
	}
}

func TestFields_MarshalJSONKeepsOrder(t *testing.T) {
	fields := Fields{
		{"zeta", "z"},
		{"alpha", 1},
		{"amount", number(decimal.RequireFromString("7048.38"))},
		{"list", []string{"BANK_TRANSFER"}},
		{"flag", true},
	}

	data, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := `{"zeta":"z","alpha":1,"amount":7048.38,"list":["BANK_TRANSFER"],"flag":true}`
	if string(data) != expected {
		t.Errorf("Expected %s, got %s", expected, data)
	}
}

func TestFields_Join(t *testing.T) {
	callback := "https://x"
	fields := Fields{
		{"referenceNumber", "R1"},
		{"amount", number(decimal.NewFromInt(100))},
		{"currency", "NGN"},
		{"callbackUrl", &callback},
		{"fee", decimal.RequireFromString("1.50")},
		{"flag", true},
	}

	expected := "R1100NGNhttps://x1.5true"
	if got := fields.Join(); got != expected {
		t.Errorf("Expected %s, got %s", expected, got)
	}
}

func TestNumberRendering(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"100", "100"},
		{"100.00", "100"},
		{"7048.38", "7048.38"},
		{"0.0", "0"},
		{"1000.50", "1000.5"},
	}

	for _, tt := range tests {
		got := number(decimal.RequireFromString(tt.in)).String()
		if got != tt.expected {
			t.Errorf("number(%s): expected %s, got %s", tt.in, tt.expected, got)
		}
	}
}

func TestOrNull(t *testing.T) {
	if orNull("") != nil {
		t.Error("Expected empty string to map to nil")
	}
	if orNull("x") != "x" {
		t.Error("Expected non-empty string to be kept")
	}
}
