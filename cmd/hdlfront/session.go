package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hdlfront/internal/config"
	"hdlfront/internal/diag"
	"hdlfront/internal/driver"
	"hdlfront/internal/prof"
	"hdlfront/internal/source"
	"hdlfront/internal/trace"
)

func configFileName() string { return config.FileName }

// session is one load-and-check run shared by check and dump.
type session struct {
	cfg config.Config
	fs  *source.FileSet
	res *driver.Result
}

// loadConfig resolves the project file and applies flag overrides. Module
// files given as arguments replace the project's module list.
func loadConfig(cmd *cobra.Command, args []string) (config.Config, error) {
	flags := cmd.Flags()
	path, err := flags.GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return config.Config{}, err
		}
		found, ok, err := config.Find(wd)
		if err != nil {
			return config.Config{}, err
		}
		if ok {
			path = found
		}
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		switch {
		case err == nil:
			cfg = loaded
		case len(args) > 0 && errors.Is(err, config.ErrNoModules):
			// Files given on the command line stand in for the module list.
		default:
			return config.Config{}, err
		}
	}
	if len(args) > 0 {
		cfg.Modules = args
	}
	if len(cfg.Modules) == 0 {
		return config.Config{}, fmt.Errorf("no module files given and no %s found", config.FileName)
	}

	for name, dst := range map[string]*int{
		"jobs":                    &cfg.Jobs,
		"max-diagnostics":         &cfg.MaxDiagnostics,
		"max-instantiation-depth": &cfg.MaxDepth,
	} {
		if !flags.Changed(name) {
			continue
		}
		if *dst, err = flags.GetInt(name); err != nil {
			return config.Config{}, err
		}
	}
	if flags.Changed("trace-level") {
		cfg.TraceLevel, _ = flags.GetString("trace-level")
	}
	if flags.Changed("trace") {
		cfg.TraceOutput, _ = flags.GetString("trace")
		if !flags.Changed("trace-level") && cfg.TraceLevel == config.DefaultTraceLevel {
			cfg.TraceLevel = "phase"
		}
	}
	return cfg, nil
}

// setupTracing creates the tracer described by cfg and the trace flags and
// attaches it to the command context. The returned cleanup flushes it.
func setupTracing(cmd *cobra.Command, cfg config.Config) (trace.Tracer, func(), error) {
	level, err := trace.ParseLevel(cfg.TraceLevel)
	if err != nil {
		return nil, nil, err
	}
	if level == trace.LevelOff {
		return trace.Nop, func() {}, nil
	}
	flags := cmd.Flags()
	formatStr, _ := flags.GetString("trace-format")
	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return nil, nil, err
	}
	modeStr, _ := flags.GetString("trace-mode")
	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, nil, err
	}
	ringSize, _ := flags.GetInt("trace-ring-size")

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: cfg.TraceOutput,
		RingSize:   ringSize,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	cleanup := func() {
		if ring, ok := tracer.(*trace.RingTracer); ok {
			if err := ring.Dump(cmd.ErrOrStderr(), format); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
			}
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return tracer, cleanup, nil
}

func startProfiling(cmd *cobra.Command) (*prof.Session, error) {
	flags := cmd.Flags()
	var opts prof.Options
	for name, dst := range map[string]*string{
		"cpu-profile":   &opts.CPU,
		"mem-profile":   &opts.Mem,
		"runtime-trace": &opts.Trace,
	} {
		v, err := flags.GetString(name)
		if err != nil {
			return nil, err
		}
		*dst = v
	}
	return prof.Start(opts)
}

// runSession loads and checks the configured modules.
func runSession(cmd *cobra.Command, args []string) (*session, error) {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return nil, err
	}
	tracer, cleanup, err := setupTracing(cmd, cfg)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	profiler, err := startProfiling(cmd)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "profile: %v\n", err)
		}
	}()

	ctx := cmd.Context()
	fs := source.NewFileSet()
	span := trace.Begin(tracer, trace.ScopeDriver, "load", 0)
	modules, err := driver.LoadModules(ctx, fs, cfg.Modules, cfg.Jobs, cfg.MaxDiagnostics)
	span.End("")
	if err != nil {
		return nil, err
	}
	res, err := driver.Check(ctx, modules, driver.Options{
		Tracer:                tracer,
		MaxInstantiationDepth: cfg.MaxDepth,
	})
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, fs: fs, res: res}, nil
}

// diagnostics merges the diagnostics of every module, sorted by position.
func (s *session) diagnostics() *diag.Bag {
	total := 0
	for _, m := range s.res.Modules {
		total += m.Bag.Len()
	}
	bag := diag.NewBag(total)
	for _, m := range s.res.Modules {
		for _, d := range m.Bag.Items() {
			bag.Add(d)
		}
	}
	bag.Sort()
	return bag
}
