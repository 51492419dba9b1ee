// Package driver translates a whole crate: every local definition is
// rendered in parallel, the references between them are merged into a
// dependency graph, and the results are ordered so that each definition
// follows what it uses. A failure stays with its definition; dependents
// get a placeholder instead of a translation.
package driver

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"mirlean/internal/buildpipeline"
	"mirlean/internal/depgraph"
	"mirlean/internal/diag"
	"mirlean/internal/emit"
	"mirlean/internal/mir"
	"mirlean/internal/traits"
)

type Options struct {
	Jobs           int
	MaxDiagnostics int
	Emit           emit.Options
	// Skip names definitions left out of the output. A name also covers
	// the definitions nested under it, e.g. a trait and its methods.
	Skip     []string
	Logger   *zap.Logger
	Progress buildpipeline.ProgressSink
	Cache    *DiskCache
}

func (o Options) skipped(name string) bool {
	for _, s := range o.Skip {
		if name == s || strings.HasPrefix(name, s+".") {
			return true
		}
	}
	return false
}

// Result is the outcome for one definition.
type Result struct {
	Name string
	Kind mir.DefKind
	// Text is the translation, or a placeholder comment when Err is set.
	Text      string
	Deps      []string
	CrateDeps []string
	Err       error
	Code      diag.Code
	// FailedDeps lists the dependencies that made this definition fail.
	FailedDeps []string
	Cached     bool
}

func (r *Result) Failed() bool { return r.Err != nil }

// Unit is one piece of output: a single definition, or a group of data
// types that refer to each other.
type Unit struct {
	Members []string
	Text    string
}

type Output struct {
	Results  []Result // schedule order
	Units    []Unit
	Schedule *depgraph.Schedule
	Edges    []depgraph.Edge
	Bag      *diag.Bag
}

// Result finds the result for name.
func (o *Output) Result(name string) (*Result, bool) {
	for i := range o.Results {
		if o.Results[i].Name == name {
			return &o.Results[i], true
		}
	}
	return nil, false
}

// Failed counts definitions without a translation.
func (o *Output) Failed() int {
	n := 0
	for i := range o.Results {
		if o.Results[i].Failed() {
			n++
		}
	}
	return n
}

// Text concatenates the units in schedule order, skipping empty ones.
func (o *Output) Text() string {
	var parts []string
	for _, u := range o.Units {
		if u.Text != "" {
			parts = append(parts, u.Text)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "\n\n") + "\n"
}

type runner struct {
	crate  *mir.Crate
	opts   Options
	tr     *emit.Translator
	log    *zap.Logger
	hashes *crateHashes
	bag    *diag.Bag
}

// Translate renders every local definition of c. The returned error is
// reserved for cancellation and setup failures; translation failures are
// reported per result.
func Translate(ctx context.Context, c *mir.Crate, opts Options) (*Output, error) {
	if opts.MaxDiagnostics <= 0 {
		opts.MaxDiagnostics = 100
	}
	r := &runner{
		crate: c,
		opts:  opts,
		tr:    emit.New(c, traits.NewResolver(traits.NewTable(c)), opts.Emit),
		log:   opts.Logger,
		bag:   diag.NewBag(opts.MaxDiagnostics),
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if opts.Cache != nil {
		h, err := computeHashes(c, opts.Emit)
		if err != nil {
			return nil, err
		}
		r.hashes = h
	}
	return r.run(ctx)
}

func (r *runner) run(ctx context.Context) (*Output, error) {
	reporter := diag.BagReporter{Bag: r.bag}
	defs, skipped := selectDefs(r.crate, r.opts)
	for _, name := range skipped {
		diag.ReportWarning(reporter, diag.TransSkipped, diag.InDef(name), "skipped by configuration").Emit()
	}
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	buildpipeline.Queued(r.opts.Progress, names)

	start := time.Now()
	buildpipeline.Emit(r.opts.Progress, buildpipeline.Event{Stage: buildpipeline.StageTranslate, Status: buildpipeline.StatusWorking})
	slots, err := r.translateAll(ctx, defs)
	if err != nil {
		return nil, fmt.Errorf("translate %s: %w", r.crate.Name, err)
	}
	buildpipeline.Emit(r.opts.Progress, buildpipeline.Event{Stage: buildpipeline.StageTranslate, Status: buildpipeline.StatusDone, Elapsed: time.Since(start)})

	start = time.Now()
	buildpipeline.Emit(r.opts.Progress, buildpipeline.Event{Stage: buildpipeline.StageSchedule, Status: buildpipeline.StatusWorking})
	g := depgraph.New(depgraph.BuildIndex(names))
	byName := make(map[string]*translated, len(slots))
	for i := range slots {
		s := &slots[i]
		byName[defs[i].Name] = s
		for _, dep := range s.item.Deps {
			g.AddEdge(defs[i].Name, dep)
		}
	}
	sched := g.Schedule()

	out := &Output{Schedule: sched, Edges: g.Edges(), Bag: r.bag}
	failed := map[string]bool{}
	for _, group := range sched.Order {
		r.emitGroup(out, group, byName, g, failed)
	}
	buildpipeline.Emit(r.opts.Progress, buildpipeline.Event{Stage: buildpipeline.StageSchedule, Status: buildpipeline.StatusDone, Elapsed: time.Since(start)})

	for i := range out.Results {
		res := &out.Results[i]
		if !res.Failed() {
			continue
		}
		d := errorDiagnostic(res)
		r.bag.Add(d)
	}
	r.bag.Sort()
	r.bag.Dedup()

	r.log.Info("translated crate",
		zap.String("crate", r.crate.Name),
		zap.Int("defs", len(out.Results)),
		zap.Int("failed", out.Failed()),
		zap.Int("groups", len(sched.Order)),
		zap.Int("cycles", len(sched.Cycles())),
	)
	return out, nil
}

// Selected lists the definitions Translate will render, in crate order.
func Selected(c *mir.Crate, opts Options) []string {
	defs, _ := selectDefs(c, opts)
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}

func selectDefs(c *mir.Crate, opts Options) (defs []*mir.Def, skipped []string) {
	for i := range c.Defs {
		d := &c.Defs[i]
		if !c.IsLocal(d) {
			continue
		}
		if opts.skipped(d.Name) {
			skipped = append(skipped, d.Name)
			continue
		}
		defs = append(defs, d)
	}
	return defs, skipped
}

// emitGroup turns a scheduled group into results and one or more units.
func (r *runner) emitGroup(out *Output, group depgraph.Group, byName map[string]*translated, g *depgraph.Graph, failed map[string]bool) {
	results := make([]Result, len(group.Members))
	for i, name := range group.Members {
		s := byName[name]
		results[i] = Result{
			Name:      name,
			Kind:      s.item.Kind,
			Text:      s.item.Text,
			Deps:      s.item.Deps,
			CrateDeps: s.item.CrateDeps,
			Cached:    s.cached,
		}
		if s.err != nil {
			results[i].Err = s.err
			results[i].Code = diag.CodeOf(s.err)
		}
	}

	if group.Cyclic() && !allData(results) {
		summary := group.Summary()
		for i := range results {
			if results[i].Err == nil {
				results[i].Err = diag.Errorf(diag.TransCircularDependency, "mutually recursive with %s", summary).In(results[i].Name)
				results[i].Code = diag.TransCircularDependency
			}
		}
	}

	for i := range results {
		res := &results[i]
		if res.Err != nil {
			continue
		}
		var bad []string
		for _, dep := range g.Deps(res.Name) {
			if failed[dep] {
				bad = append(bad, dep)
			}
		}
		if len(bad) > 0 {
			res.FailedDeps = bad
			res.Err = diag.Errorf(diag.TransFailedDependency, "failed dependency: %s", strings.Join(bad, ", ")).In(res.Name)
			res.Code = diag.TransFailedDependency
		}
	}

	// Within a data group one failure sinks the rest.
	if group.Cyclic() {
		var bad []string
		for i := range results {
			if results[i].Err != nil {
				bad = append(bad, results[i].Name)
			}
		}
		if len(bad) > 0 {
			for i := range results {
				if results[i].Err == nil {
					results[i].FailedDeps = bad
					results[i].Err = diag.Errorf(diag.TransFailedDependency, "failed dependency: %s", strings.Join(bad, ", ")).In(results[i].Name)
					results[i].Code = diag.TransFailedDependency
				}
			}
		}
	}

	for i := range results {
		res := &results[i]
		if res.Err == nil {
			continue
		}
		failed[res.Name] = true
		res.Text = placeholder(res)
		r.log.Warn("definition not translated",
			zap.String("def", res.Name),
			zap.Stringer("code", res.Code),
			zap.Strings("failed_deps", res.FailedDeps),
			zap.Error(res.Err),
		)
	}

	if group.Cyclic() && !failed[group.Members[0]] {
		texts := make([]string, len(results))
		for i := range results {
			texts[i] = results[i].Text
		}
		out.Units = append(out.Units, Unit{
			Members: group.Members,
			Text:    "mutual\n" + strings.Join(texts, "\n\n") + "\nend",
		})
	} else {
		for i := range results {
			out.Units = append(out.Units, Unit{Members: []string{results[i].Name}, Text: results[i].Text})
		}
	}
	out.Results = append(out.Results, results...)
}

func allData(results []Result) bool {
	return !slices.ContainsFunc(results, func(r Result) bool {
		return r.Kind != mir.DefStruct && r.Kind != mir.DefEnum
	})
}

// placeholder stands in for a definition that has no translation.
func placeholder(res *Result) string {
	msg := strings.ReplaceAll(res.Err.Error(), "\n", " ")
	if len(res.FailedDeps) > 0 {
		return fmt.Sprintf("-- %s: failed dependency (%s)", res.Name, strings.Join(res.FailedDeps, ", "))
	}
	return fmt.Sprintf("-- %s: not translated: %s", res.Name, msg)
}

func errorDiagnostic(res *Result) diag.Diagnostic {
	d := diag.Locate(res.Err, res.Name, -1, -1).Diagnostic()
	for _, dep := range res.FailedDeps {
		d = d.WithNote(diag.InDef(dep), "dependency was not translated")
	}
	return d
}
