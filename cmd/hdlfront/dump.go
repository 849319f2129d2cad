package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"hdlfront/internal/diagfmt"
	"hdlfront/internal/driver"
)

func newDumpCmd() *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "dump [module.toml...]",
		Short: "Write the inferred type information",
		Long: `dump checks the modules and writes every type info: as aligned tables
(text), as a msgpack snapshot for other tools (msgpack), or as JSON (json).
Modules that fail to check are left out and make the command fail after
writing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			switch format {
			case "text", "msgpack", "json":
			default:
				return fmt.Errorf("unsupported format %q (must be text, msgpack or json)", format)
			}
			if format == "msgpack" && output == "" {
				return fmt.Errorf("msgpack output is binary; use --output")
			}
			s, err := runSession(cmd, args)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			if err := writeDump(w, s, format); err != nil {
				return err
			}
			if s.res.HasErrors() {
				colored, _ := useColor(cmd)
				diagfmt.Pretty(cmd.ErrOrStderr(), s.diagnostics(), s.fs, diagfmt.PrettyOpts{Color: colored, ShowNotes: true})
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format (text|msgpack|json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func writeDump(w io.Writer, s *session, format string) error {
	switch format {
	case "msgpack":
		return driver.WriteSnapshot(w, s.res)
	case "json":
		return driver.WriteSnapshotJSON(w, s.res)
	}
	for _, root := range s.res.Owner.Roots() {
		if _, err := io.WriteString(w, root.TreeString()); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	return diagfmt.TypeTables(w, s.res.Owner, s.fs, diagfmt.PrettyOpts{})
}
