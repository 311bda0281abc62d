package slotwatch

import (
	"errors"
	"strings"
	"testing"
)

const testPage = `<html>
<head><title>Clinic</title><script>var s = "FULL";</script></head>
<body>
  <div id="banner">Appointments open</div>
  <ul class="slots"><li>9:00</li><li>9:30</li></ul>
</body>
</html>`

const testFeed = `<?xml version="1.0"?>
<rss version="2.0">
<channel>
  <title>Clinic updates</title>
  <description>Appointment news</description>
  <item><title>Walk-ins today</title><description>Slots released at noon</description></item>
  <item><title>Closed Sunday</title></item>
</channel>
</rss>`

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"", FormatRaw, false},
		{"raw", FormatRaw, false},
		{" HTML ", FormatHTML, false},
		{"rss", FormatRSS, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractText_Raw(t *testing.T) {
	got, err := ExtractText([]byte(testPage), FormatRaw, "")
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if got != testPage {
		t.Error("ExtractText() raw should return the body unchanged")
	}
}

func TestExtractText_HTMLWholeDocument(t *testing.T) {
	got, err := ExtractText([]byte(testPage), FormatHTML, "")
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if !strings.Contains(got, "Appointments open") {
		t.Errorf("ExtractText() = %q, want visible text", got)
	}
	if strings.Contains(got, "<div") {
		t.Errorf("ExtractText() = %q, should not contain markup", got)
	}
}

func TestExtractText_HTMLSelector(t *testing.T) {
	got, err := ExtractText([]byte(testPage), FormatHTML, ".slots li")
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if got != "9:00\n9:30" {
		t.Errorf("ExtractText() = %q, want %q", got, "9:00\n9:30")
	}
}

func TestExtractText_HTMLSelectorNarrows(t *testing.T) {
	// the script mentions FULL but the banner does not
	got, err := ExtractText([]byte(testPage), FormatHTML, "#banner")
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if strings.Contains(got, "FULL") {
		t.Errorf("ExtractText() = %q, should only contain the banner", got)
	}
}

func TestExtractText_HTMLSelectorNotFound(t *testing.T) {
	_, err := ExtractText([]byte(testPage), FormatHTML, "#missing")
	if !errors.Is(err, ErrSelectorNotFound) {
		t.Errorf("ExtractText() error = %v, want ErrSelectorNotFound", err)
	}
}

func TestExtractText_RSS(t *testing.T) {
	got, err := ExtractText([]byte(testFeed), FormatRSS, "")
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	for _, want := range []string{"Clinic updates", "Walk-ins today", "Slots released at noon", "Closed Sunday"} {
		if !strings.Contains(got, want) {
			t.Errorf("ExtractText() = %q, missing %q", got, want)
		}
	}
}

func TestExtractText_RSSInvalid(t *testing.T) {
	_, err := ExtractText([]byte("not a feed"), FormatRSS, "")
	if err == nil {
		t.Error("ExtractText() expected error for invalid feed, got nil")
	}
}

func TestExtractText_UnknownFormat(t *testing.T) {
	_, err := ExtractText([]byte("x"), Format("pdf"), "")
	if err == nil {
		t.Error("ExtractText() expected error for unknown format, got nil")
	}
}
