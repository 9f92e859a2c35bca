package orders

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"(555) 123-4567":    "+15551234567",
		"1-555-123-4567":    "+15551234567",
		"+44 20 7946 0958":  "+442079460958",
		"0044 20 7946 0958": "+442079460958",
		"  ":                "",
		"12345":             "",
	}
	for input, want := range cases {
		if got := NormalizePhone(input); got != want {
			t.Fatalf("NormalizePhone(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSamePhone(t *testing.T) {
	if !SamePhone("555.123.4567", "+1 (555) 123 4567") {
		t.Fatal("expected formatted variants to match")
	}
	if SamePhone("", "") {
		t.Fatal("expected empty numbers not to match")
	}
}
