package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"hdlfront/internal/version"
)

// errFailed is returned by commands whose diagnostics were already printed.
var errFailed = errors.New("check failed")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hdlfront",
		Short:         "Type inference for hardware description modules",
		Long:          `hdlfront type-checks module descriptions and reports the inferred types of every expression and parametric instantiation.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "project file (default: nearest "+configFileName()+")")
	flags.Int("jobs", 0, "parallel decoding jobs (0 = GOMAXPROCS)")
	flags.Int("max-diagnostics", 100, "maximum number of diagnostics per module")
	flags.Int("max-instantiation-depth", 0, "limit nested parametric instantiations (0 = default)")
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.Bool("timings", false, "show timing information")
	flags.String("trace", "", "trace output file (- for stderr)")
	flags.String("trace-level", "", "trace level (off|error|phase|detail|debug)")
	flags.String("trace-format", "text", "trace format (text|ndjson)")
	flags.String("trace-mode", "stream", "trace storage mode (stream|ring)")
	flags.Int("trace-ring-size", 4096, "events kept in ring mode")
	flags.String("cpu-profile", "", "write a CPU profile of the check run")
	flags.String("mem-profile", "", "write a heap profile after the check run")
	flags.String("runtime-trace", "", "write a Go runtime trace of the check run")

	root.AddCommand(newCheckCmd(), newDumpCmd(), newVersionCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}

// useColor resolves --color for output written to w.
func useColor(cmd *cobra.Command) (bool, error) {
	mode, err := cmd.Flags().GetString("color")
	if err != nil {
		return false, err
	}
	switch mode {
	case "on", "always":
		return true, nil
	case "off", "never":
		return false, nil
	case "auto":
		f, ok := cmd.ErrOrStderr().(*os.File)
		return ok && isTerminal(f) && os.Getenv("NO_COLOR") == "", nil
	}
	return false, fmt.Errorf("invalid --color %q (expected auto|on|off)", mode)
}
