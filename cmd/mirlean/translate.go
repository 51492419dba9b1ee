package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mirlean/internal/buildpipeline"
	"mirlean/internal/config"
	"mirlean/internal/diag"
	"mirlean/internal/diagfmt"
	"mirlean/internal/driver"
	"mirlean/internal/emit"
	"mirlean/internal/mir"
	"mirlean/internal/observ"
)

// errNotTranslated makes the process exit non-zero after the output has
// been written.
var errNotTranslated = errors.New("some definitions were not translated")

func (a *app) translateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate [flags] <bundle>",
		Short: "Translate a crate bundle into Lean",
		Long: `Translate every local definition of a crate bundle (.mp or .json) and
write the results in dependency order. Definitions that cannot be
translated are replaced by a comment and reported as diagnostics.`,
		Args: cobra.ExactArgs(1),
		RunE: a.runTranslate,
	}
	cmd.Flags().StringP("output", "o", "", "write the translation to this file instead of stdout")
	cmd.Flags().String("format", "lean", "output format (lean|json)")
	cmd.Flags().String("diagnostics", "pretty", "diagnostics format on stderr (pretty|json|off)")
	cmd.Flags().Bool("with-notes", false, "include diagnostic notes")
	cmd.Flags().String("min-severity", "info", "lowest severity printed on stderr (info|warning|error)")
	cmd.Flags().Int("max-diagnostics", 0, "maximum number of diagnostics to keep (0=config)")
	cmd.Flags().String("multi-exit", "", "loops with several exits (reject|tag)")
	cmd.Flags().StringSlice("skip", nil, "definitions to leave out (added to [skip].defs)")
	cmd.Flags().Bool("no-cache", false, "do not read or write the translation cache")
	return cmd
}

type translateFlags struct {
	output      string
	format      string
	diagnostics string
	withNotes   bool
	minSev      diag.Severity
	maxDiags    int
	multiExit   string
	skip        []string
	noCache     bool
	configPath  string
	jobs        int
	jobsSet     bool
	timings     bool
	ui          uiMode
	color       bool
}

func readTranslateFlags(cmd *cobra.Command) (translateFlags, error) {
	var (
		f   translateFlags
		err error
	)
	if f.output, err = cmd.Flags().GetString("output"); err != nil {
		return f, fmt.Errorf("failed to get output flag: %w", err)
	}
	if f.format, err = cmd.Flags().GetString("format"); err != nil {
		return f, fmt.Errorf("failed to get format flag: %w", err)
	}
	switch f.format = strings.ToLower(f.format); f.format {
	case "lean", "json":
	default:
		return f, fmt.Errorf("unsupported format %q (must be lean or json)", f.format)
	}
	if f.diagnostics, err = cmd.Flags().GetString("diagnostics"); err != nil {
		return f, fmt.Errorf("failed to get diagnostics flag: %w", err)
	}
	switch f.diagnostics = strings.ToLower(f.diagnostics); f.diagnostics {
	case "pretty", "json", "off":
	default:
		return f, fmt.Errorf("unsupported diagnostics format %q (must be pretty, json or off)", f.diagnostics)
	}
	if f.withNotes, err = cmd.Flags().GetBool("with-notes"); err != nil {
		return f, fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	minSev, err := cmd.Flags().GetString("min-severity")
	if err != nil {
		return f, fmt.Errorf("failed to get min-severity flag: %w", err)
	}
	if f.minSev, err = diag.ParseSeverity(minSev); err != nil {
		return f, fmt.Errorf("--min-severity: %w", err)
	}
	if f.maxDiags, err = cmd.Flags().GetInt("max-diagnostics"); err != nil {
		return f, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	if f.multiExit, err = cmd.Flags().GetString("multi-exit"); err != nil {
		return f, fmt.Errorf("failed to get multi-exit flag: %w", err)
	}
	if f.skip, err = cmd.Flags().GetStringSlice("skip"); err != nil {
		return f, fmt.Errorf("failed to get skip flag: %w", err)
	}
	if f.noCache, err = cmd.Flags().GetBool("no-cache"); err != nil {
		return f, fmt.Errorf("failed to get no-cache flag: %w", err)
	}

	root := cmd.Root().PersistentFlags()
	if f.configPath, err = root.GetString("config"); err != nil {
		return f, fmt.Errorf("failed to get config flag: %w", err)
	}
	if f.jobs, err = root.GetInt("jobs"); err != nil {
		return f, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	f.jobsSet = root.Changed("jobs")
	if f.jobsSet && f.jobs < 0 {
		return f, fmt.Errorf("--jobs must not be negative")
	}
	if f.timings, err = root.GetBool("timings"); err != nil {
		return f, fmt.Errorf("failed to get timings flag: %w", err)
	}
	uiValue, err := root.GetString("ui")
	if err != nil {
		return f, fmt.Errorf("failed to get ui flag: %w", err)
	}
	if f.ui, err = readUIMode(uiValue); err != nil {
		return f, err
	}
	if f.color, err = colorEnabled(cmd); err != nil {
		return f, err
	}
	return f, nil
}

// resolveConfig layers the flags over mirlean.toml and the environment.
func resolveConfig(f translateFlags, bundlePath string) (config.Config, error) {
	cfg, err := config.Resolve(f.configPath, filepath.Dir(bundlePath))
	if err != nil {
		return cfg, err
	}
	if f.jobsSet {
		cfg.Jobs = f.jobs
	}
	if f.maxDiags > 0 {
		cfg.MaxDiagnostics = f.maxDiags
	}
	if f.multiExit != "" {
		mode, err := emit.ParseExitMode(f.multiExit)
		if err != nil {
			return cfg, fmt.Errorf("--multi-exit: %w", err)
		}
		cfg.MultiExit = mode
	}
	cfg.Skip = append(cfg.Skip, f.skip...)
	if f.noCache {
		cfg.Cache = false
	}
	return cfg, nil
}

func (a *app) runTranslate(cmd *cobra.Command, args []string) error {
	bundlePath := args[0]
	f, err := readTranslateFlags(cmd)
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(f, bundlePath)
	if err != nil {
		return err
	}
	a.logger.Debug("configuration resolved",
		zap.String("path", cfg.Path),
		zap.Int("jobs", cfg.Jobs),
		zap.Stringer("multi_exit", cfg.MultiExit),
		zap.Strings("skip", cfg.Skip),
		zap.Bool("cache", cfg.Cache),
	)

	timer := observ.NewTimer()
	var crate *mir.Crate
	if err := timer.Measure("load", func() error {
		var loadErr error
		crate, loadErr = mir.LoadBundle(bundlePath)
		return loadErr
	}); err != nil {
		return err
	}
	// The phase is recorded as failed, but each broken body then fails on
	// its own during translation and the rest of the bundle goes on.
	if verr := timer.Measure("validate", func() error { return mir.ValidateCrate(crate) }); verr != nil {
		a.logger.Warn("bundle has malformed bodies", zap.Error(verr))
	}

	opts := driver.Options{
		Jobs:           cfg.Jobs,
		MaxDiagnostics: cfg.MaxDiagnostics,
		Emit:           cfg.EmitOptions(),
		Skip:           cfg.Skip,
		Logger:         a.logger,
	}
	if cfg.Cache {
		cache, cerr := driver.OpenDiskCache("mirlean")
		if cerr != nil {
			a.logger.Warn("translation cache disabled", zap.Error(cerr))
		} else {
			opts.Cache = cache
		}
	}
	stages := newStageTimes()
	opts.Progress = stages

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var out *driver.Output
	if shouldUseTUI(f.ui) {
		out, err = runTranslateWithUI(ctx, "translate "+crate.Name, crate, opts)
	} else {
		out, err = driver.Translate(ctx, crate, opts)
	}
	if err != nil {
		return err
	}
	stages.recordInto(timer, map[buildpipeline.Stage]string{
		buildpipeline.StageTranslate: fmt.Sprintf("%d defs, %d cached", len(out.Results), cachedCount(out)),
		buildpipeline.StageSchedule:  fmt.Sprintf("%d groups", len(out.Schedule.Order)),
	})

	if err := timer.Measure("write", func() error {
		return writeTranslation(cmd.OutOrStdout(), f, crate, out)
	}); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if f.format != "json" {
		if err := printDiagnostics(cmd.ErrOrStderr(), out.Bag, f); err != nil {
			return err
		}
	}
	if f.timings {
		printTimings(cmd.ErrOrStderr(), timer)
	}
	if n := out.Failed(); n > 0 {
		return fmt.Errorf("%d of %d definitions: %w", n, len(out.Results), errNotTranslated)
	}
	return nil
}

func cachedCount(out *driver.Output) int {
	n := 0
	for i := range out.Results {
		if out.Results[i].Cached {
			n++
		}
	}
	return n
}

func writeTranslation(stdout io.Writer, f translateFlags, c *mir.Crate, out *driver.Output) (err error) {
	w := stdout
	if f.output != "" {
		file, cerr := os.Create(f.output)
		if cerr != nil {
			return cerr
		}
		defer func() {
			if cerr := file.Close(); err == nil {
				err = cerr
			}
		}()
		w = file
	}
	if f.format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(buildTranslatePayload(c, out, f.withNotes))
	}
	_, err = io.WriteString(w, out.Text())
	return err
}

func printDiagnostics(w io.Writer, bag *diag.Bag, f translateFlags) error {
	if bag == nil {
		return nil
	}
	if bag = bag.AtLeast(f.minSev); bag.Len() == 0 {
		return nil
	}
	switch f.diagnostics {
	case "pretty":
		return diagfmt.Pretty(w, bag, diagfmt.PrettyOpts{Color: f.color, ShowNotes: f.withNotes})
	case "json":
		return diagfmt.JSON(w, bag, diagfmt.JSONOpts{IncludeNotes: f.withNotes})
	}
	return nil
}

type resultPayload struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Text       string   `json:"text"`
	Deps       []string `json:"deps,omitempty"`
	CrateDeps  []string `json:"crate_deps,omitempty"`
	Error      string   `json:"error,omitempty"`
	Code       string   `json:"code,omitempty"`
	FailedDeps []string `json:"failed_deps,omitempty"`
	Cached     bool     `json:"cached,omitempty"`
}

type edgePayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type translatePayload struct {
	Crate       string                    `json:"crate"`
	Results     []resultPayload           `json:"results"`
	Edges       []edgePayload             `json:"edges"`
	Cycles      [][]string                `json:"cycles,omitempty"`
	Diagnostics diagfmt.DiagnosticsOutput `json:"diagnostics"`
}

func buildTranslatePayload(c *mir.Crate, out *driver.Output, withNotes bool) translatePayload {
	p := translatePayload{
		Crate:       c.Name,
		Results:     make([]resultPayload, len(out.Results)),
		Edges:       make([]edgePayload, len(out.Edges)),
		Diagnostics: diagfmt.BuildDiagnosticsOutput(out.Bag, diagfmt.JSONOpts{IncludeNotes: withNotes}),
	}
	for i := range out.Results {
		r := &out.Results[i]
		rp := resultPayload{
			Name:       r.Name,
			Kind:       r.Kind.String(),
			Text:       r.Text,
			Deps:       r.Deps,
			CrateDeps:  r.CrateDeps,
			FailedDeps: r.FailedDeps,
			Cached:     r.Cached,
		}
		if r.Err != nil {
			rp.Error = r.Err.Error()
			rp.Code = r.Code.ID()
		}
		p.Results[i] = rp
	}
	for i, e := range out.Edges {
		p.Edges[i] = edgePayload{From: e.From, To: e.To}
	}
	for _, g := range out.Schedule.Cycles() {
		p.Cycles = append(p.Cycles, g.Members)
	}
	return p
}
