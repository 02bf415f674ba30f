package shared

import "testing"

func TestOpenBrowser(t *testing.T) {
	t.Run("unsupported platform", func(t *testing.T) {
		original := goos
		goos = func() string { return "plan9" }
		defer func() { goos = original }()

		if err := OpenBrowser("https://example.com"); err == nil {
			t.Error("expected an error on an unsupported platform")
		}
	})
}
