package diagfmt

import (
	"os"
	"path/filepath"

	"hdlfront/internal/source"
)

func formatPath(f *source.File, mode PathMode, base string) string {
	if f == nil {
		return "<unknown>"
	}
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(f.Path); err == nil {
			return filepath.ToSlash(abs)
		}
	case PathModeRelative:
		if base == "" {
			base, _ = os.Getwd()
		}
		if rel, err := filepath.Rel(base, f.Path); err == nil {
			return filepath.ToSlash(rel)
		}
	case PathModeBasename:
		return filepath.Base(f.Path)
	case PathModeAuto:
		if wd, err := os.Getwd(); err == nil {
			if rel, err := filepath.Rel(wd, f.Path); err == nil && len(rel) < len(f.Path) {
				return filepath.ToSlash(rel)
			}
		}
	}
	return f.Path
}
