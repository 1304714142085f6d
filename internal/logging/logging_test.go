package logging

import "testing"

func TestNewAcceptsKnownLevelsAndFormats(t *testing.T) {
	for _, level := range []string{"debug", "info", "WARN", "error"} {
		for _, format := range []string{"", "console", "json"} {
			logger, err := New(level, format)
			if err != nil {
				t.Fatalf("New(%q, %q) error = %v", level, format, err)
			}
			_ = logger.Sync()
		}
	}
}

func TestNewRejectsInvalidInput(t *testing.T) {
	if _, err := New("loud", "console"); err == nil {
		t.Errorf("expected error for unknown level")
	}
	if _, err := New("info", "xml"); err == nil {
		t.Errorf("expected error for unknown format")
	}
}
