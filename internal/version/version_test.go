package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestColoredKeepsText(t *testing.T) {
	orig, origNoColor := Version, color.NoColor
	defer func() { Version, color.NoColor = orig, origNoColor }()
	color.NoColor = true

	tests := []string{"0.1.0-dev", "1.2.3", "1.2.3-rc.1", "dev", "1.2"}
	for _, v := range tests {
		Version = v
		if got := Colored(); got != v {
			t.Errorf("Colored() = %q, want %q", got, v)
		}
	}
}

func TestColoredAddsEscapes(t *testing.T) {
	orig, origNoColor := Version, color.NoColor
	defer func() { Version, color.NoColor = orig, origNoColor }()
	color.NoColor = false

	Version = "1.2.3"
	if got := Colored(); got == Version {
		t.Fatalf("expected escape codes in %q", got)
	}
	Version = "dev"
	if got := Colored(); got != "dev" {
		t.Fatalf("Colored() = %q", got)
	}
}
