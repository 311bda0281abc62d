package slotwatch

import (
	"testing"
)

func TestNewExpectation_Valid(t *testing.T) {
	exp, err := NewExpectation("https://clinic.example.com/covid", []string{"FULL"})
	if err != nil {
		t.Fatalf("NewExpectation() error = %v", err)
	}

	if exp.URL() != "https://clinic.example.com/covid" {
		t.Errorf("URL() = %v, want %v", exp.URL(), "https://clinic.example.com/covid")
	}
	if exp.Name() != "clinic.example.com" {
		t.Errorf("Name() = %v, want host %v", exp.Name(), "clinic.example.com")
	}
	if exp.ShouldExist() {
		t.Error("ShouldExist() = true, want false by default")
	}
	if exp.Format() != FormatRaw {
		t.Errorf("Format() = %v, want %v", exp.Format(), FormatRaw)
	}
	if exp.Headers() != nil {
		t.Errorf("Headers() = %v, want nil", exp.Headers())
	}
}

func TestNewExpectation_InvalidURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty url", ""},
		{"no scheme", "clinic.example.com/covid"},
		{"just path", "/covid"},
		{"ftp scheme", "ftp://clinic.example.com/covid"},
		{"no host", "https:///covid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExpectation(tt.url, []string{"FULL"})
			if err == nil {
				t.Errorf("NewExpectation() expected error for URL %q, got nil", tt.url)
			}
		})
	}
}

func TestNewExpectation_InvalidMarkers(t *testing.T) {
	tests := []struct {
		name    string
		markers []string
	}{
		{"nil", nil},
		{"empty", []string{}},
		{"empty marker", []string{"FULL", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExpectation("https://example.com", tt.markers)
			if err == nil {
				t.Errorf("NewExpectation() expected error for markers %q, got nil", tt.markers)
			}
		})
	}
}

func TestNewExpectation_MarkersCopied(t *testing.T) {
	markers := []string{"FULL", "No appointments"}
	exp, err := NewExpectation("https://example.com", markers)
	if err != nil {
		t.Fatalf("NewExpectation() error = %v", err)
	}

	markers[0] = "modified"
	if exp.Markers()[0] != "FULL" {
		t.Error("modifying the input slice affected the expectation")
	}

	got := exp.Markers()
	got[1] = "modified"
	if exp.Markers()[1] != "No appointments" {
		t.Error("modifying Markers() result affected the expectation")
	}
}

func TestWithName(t *testing.T) {
	exp, err := NewExpectation("https://example.com", []string{"FULL"}, WithName("  Rite Aid  "))
	if err != nil {
		t.Fatalf("NewExpectation() error = %v", err)
	}
	if exp.Name() != "Rite Aid" {
		t.Errorf("Name() = %q, want %q", exp.Name(), "Rite Aid")
	}
}

func TestWithShouldExist(t *testing.T) {
	exp, err := NewExpectation("https://example.com", []string{"Book now"}, WithShouldExist(true))
	if err != nil {
		t.Fatalf("NewExpectation() error = %v", err)
	}
	if !exp.ShouldExist() {
		t.Error("ShouldExist() = false, want true")
	}
}

func TestWithSelector_ImpliesHTML(t *testing.T) {
	exp, err := NewExpectation("https://example.com", []string{"FULL"}, WithSelector("#status"))
	if err != nil {
		t.Fatalf("NewExpectation() error = %v", err)
	}
	if exp.Selector() != "#status" {
		t.Errorf("Selector() = %q, want %q", exp.Selector(), "#status")
	}
	if exp.Format() != FormatHTML {
		t.Errorf("Format() = %v, want %v", exp.Format(), FormatHTML)
	}
}

func TestWithSelector_ConflictingFormat(t *testing.T) {
	_, err := NewExpectation("https://example.com", []string{"FULL"},
		WithSelector("#status"),
		WithFormat(FormatRSS),
	)
	if err == nil {
		t.Error("NewExpectation() expected error for selector with rss format, got nil")
	}
}

func TestWithFormat_Invalid(t *testing.T) {
	_, err := NewExpectation("https://example.com", []string{"FULL"}, WithFormat(Format("xml")))
	if err == nil {
		t.Error("NewExpectation() expected error for unknown format, got nil")
	}
}

func TestWithHeaders(t *testing.T) {
	exp, err := NewExpectation("https://example.com", []string{"FULL"},
		WithHeaders("Referer", "https://example.com/", "X-Test", "1"),
	)
	if err != nil {
		t.Fatalf("NewExpectation() error = %v", err)
	}

	headers := exp.Headers()
	if headers["Referer"] != "https://example.com/" {
		t.Errorf("Headers()[Referer] = %q", headers["Referer"])
	}

	headers["Referer"] = "modified"
	if exp.Headers()["Referer"] != "https://example.com/" {
		t.Error("modifying Headers() result affected the expectation")
	}
}

func TestWithHeaders_CanonicalKeys(t *testing.T) {
	exp, err := NewExpectation("https://example.com", []string{"FULL"}, WithHeaders("x-clinic-id", "42"))
	if err != nil {
		t.Fatalf("NewExpectation() error = %v", err)
	}
	if exp.Headers()["X-Clinic-Id"] != "42" {
		t.Errorf("Headers() = %v, want canonical key X-Clinic-Id", exp.Headers())
	}
}

func TestWithHeaders_OddArguments(t *testing.T) {
	_, err := NewExpectation("https://example.com", []string{"FULL"}, WithHeaders("Referer"))
	if err == nil {
		t.Error("NewExpectation() expected error for odd header arguments, got nil")
	}
}
