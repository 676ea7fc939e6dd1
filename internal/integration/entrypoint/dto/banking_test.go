package dto

import "testing"

func TestCSVConfigFromRequest(t *testing.T) {
	t.Run("should default to headered comma-separated content", func(t *testing.T) {
		config := CSVConfigFromRequest(ImportCSVRequest{})
		if !config.HasHeaders {
			t.Error("headers must be assumed by default")
		}
		if config.Delimiter != 0 {
			t.Errorf("expected the parser default delimiter, got %q", config.Delimiter)
		}
	})

	t.Run("should decode a multi-byte delimiter as one rune", func(t *testing.T) {
		config := CSVConfigFromRequest(ImportCSVRequest{Delimiter: "¦"})
		if config.Delimiter != '¦' {
			t.Errorf("expected the broken-bar delimiter, got %q", config.Delimiter)
		}
	})

	t.Run("should honor an explicit has_headers false", func(t *testing.T) {
		headers := false
		config := CSVConfigFromRequest(ImportCSVRequest{HasHeaders: &headers})
		if config.HasHeaders {
			t.Error("explicit has_headers must override the default")
		}
	})
}
