package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"hdlfront/internal/diag"
	"hdlfront/internal/diagfmt"
)

func newCheckCmd() *cobra.Command {
	var (
		format    string
		showTypes bool
		notes     bool
	)
	cmd := &cobra.Command{
		Use:   "check [module.toml...]",
		Short: "Type-check module descriptions and report diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			if format != "pretty" && format != "json" {
				return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
			}
			colored, err := useColor(cmd)
			if err != nil {
				return err
			}
			s, err := runSession(cmd, args)
			if err != nil {
				return err
			}
			bag := s.diagnostics()
			out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

			if format == "json" {
				if err := diagfmt.JSON(out, bag, s.fs, diagfmt.JSONOpts{
					IncludePositions: true,
					IncludeNotes:     true,
				}); err != nil {
					return err
				}
			} else {
				diagfmt.Pretty(errOut, bag, s.fs, diagfmt.PrettyOpts{Color: colored, ShowNotes: notes})
			}
			if showTypes {
				if err := diagfmt.TypeTables(out, s.res.Owner, s.fs, diagfmt.PrettyOpts{}); err != nil {
					return err
				}
			}
			if timings, _ := cmd.Flags().GetBool("timings"); timings {
				fmt.Fprint(errOut, s.res.Timings.String())
			}
			if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet && format == "pretty" {
				fmt.Fprintln(errOut, summary(s, bag))
			}
			if s.res.HasErrors() {
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "pretty", "diagnostic format (pretty|json)")
	cmd.Flags().BoolVar(&showTypes, "types", false, "print the inferred type table of every type info")
	cmd.Flags().BoolVar(&notes, "notes", true, "print diagnostic notes")
	return cmd
}

func summary(s *session, bag *diag.Bag) string {
	var errs, warns int
	for _, d := range bag.Items() {
		switch d.Severity {
		case diag.SevError:
			errs++
		case diag.SevWarning:
			warns++
		}
	}
	return fmt.Sprintf("checked %d of %d modules, %d type infos: %d errors, %d warnings",
		len(s.res.Order), len(s.res.Modules), s.res.Owner.Len(), errs, warns)
}
