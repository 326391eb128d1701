package document

import "testing"

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		symbol string
		value  float64
		want   string
	}{
		{"$", 55, "$55.00"},
		{"₦", 1234.5, "₦1,234.50"},
		{"€", 0, "€0.00"},
	}
	for _, tc := range cases {
		if got := FormatAmount(tc.symbol, tc.value); got != tc.want {
			t.Fatalf("FormatAmount(%q, %v) = %q, want %q", tc.symbol, tc.value, got, tc.want)
		}
	}
}

func TestCurrencySymbol(t *testing.T) {
	if CurrencySymbol("usd") != "$" || CurrencySymbol("GBP") != "£" || CurrencySymbol("NGN") != "₦" {
		t.Fatalf("unexpected symbol mapping")
	}
	if CurrencySymbol("CHF") != "CHF" {
		t.Fatalf("unknown codes should pass through")
	}
}

func TestParseDataURL(t *testing.T) {
	data, contentType, err := ParseDataURL("data:image/png;base64,iVBORw==")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if contentType != "image/png" || len(data) != 4 || data[0] != 0x89 {
		t.Fatalf("unexpected result %q %v", contentType, data)
	}

	if _, _, err := ParseDataURL("https://example.com/logo.png"); err == nil {
		t.Fatalf("expected error for non data URL")
	}
	if _, _, err := ParseDataURL("data:image/png;base64,@@@"); err == nil {
		t.Fatalf("expected error for bad base64")
	}
}

func TestSetLogoDataURL(t *testing.T) {
	var doc Document
	if err := doc.SetLogoDataURL("data:image/svg+xml,%3Csvg%3E%3C%2Fsvg%3E"); err != nil {
		t.Fatalf("set logo: %v", err)
	}
	if doc.Issuer.Logo == nil || string(doc.Issuer.Logo.Data) != "<svg></svg>" {
		t.Fatalf("unexpected logo %+v", doc.Issuer.Logo)
	}
	doc.ClearLogo()
	if doc.Issuer.Logo != nil {
		t.Fatalf("expected logo cleared")
	}
}
