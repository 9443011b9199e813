package money

import (
	"testing"
)

func TestCurrencyValid(t *testing.T) {
	for _, c := range []Currency{GBP, USD, EUR} {
		if !c.Valid() {
			t.Errorf("%q should be valid", c)
		}
	}
	for _, c := range []Currency{"jpy", "GBP", "", "pound"} {
		if Currency(c).Valid() {
			t.Errorf("%q should not be valid", c)
		}
	}
}

func TestMinorUnitConversion(t *testing.T) {
	tests := []struct {
		display float64
		minor   int64
	}{
		{0, 0},
		{12.34, 1234},
		{-12.34, -1234},
		{0.1, 10},
		{10.005, 1001}, // rounds, not truncates
	}

	for _, tt := range tests {
		if got := ToMinorUnits(tt.display, GBP); got != tt.minor {
			t.Errorf("ToMinorUnits(%v) = %d, want %d", tt.display, got, tt.minor)
		}
	}

	if got := FromMinorUnits(1234, USD); got != 12.34 {
		t.Errorf("FromMinorUnits(1234) = %v, want 12.34", got)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"12.34", 1234, false},
		{"0.1", 10, false},
		{"100", 10000, false},
		{"-5.50", -550, false},
		{"£12.34", 1234, false},
		{"-£5.50", -550, false},
		{" 7.25 ", 725, false},
		{"0.005", 1, false}, // rounds half away from zero
		{"", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		got, err := Parse(tt.input, GBP)
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("Parse(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		minor    int64
		currency Currency
		want     string
	}{
		{1050, GBP, "£10.50"},
		{-1050, GBP, "-£10.50"},
		{0, GBP, "£0.00"},
		{1234, USD, "$12.34"},
	}

	for _, tt := range tests {
		if got := Format(tt.minor, tt.currency); got != tt.want {
			t.Errorf("Format(%d, %s) = %q, want %q", tt.minor, tt.currency, got, tt.want)
		}
	}
}
