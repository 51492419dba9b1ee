package driver

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mirlean/internal/buildpipeline"
	"mirlean/internal/emit"
	"mirlean/internal/mir"
)

// translated is the outcome of one definition before scheduling.
type translated struct {
	item   emit.Item
	err    error
	cached bool
}

// translateAll renders defs in parallel. Each goroutine writes only its own
// slot, so results need no lock.
func (d *runner) translateAll(ctx context.Context, defs []*mir.Def) ([]translated, error) {
	results := make([]translated, len(defs))
	if len(defs) == 0 {
		return results, nil
	}

	jobs := d.opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(defs)))

	for i, def := range defs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = d.translateOne(def)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (d *runner) translateOne(def *mir.Def) translated {
	start := time.Now()
	buildpipeline.Emit(d.opts.Progress, buildpipeline.Event{Def: def.Name, Stage: buildpipeline.StageTranslate, Status: buildpipeline.StatusWorking})

	if item, ok := d.fromCache(def.Name); ok {
		buildpipeline.Emit(d.opts.Progress, buildpipeline.Event{
			Def: def.Name, Stage: buildpipeline.StageTranslate, Status: buildpipeline.StatusCached, Elapsed: time.Since(start),
		})
		return translated{item: item, cached: true}
	}

	item, err := d.tr.Translate(def)
	evt := buildpipeline.Event{Def: def.Name, Stage: buildpipeline.StageTranslate, Status: buildpipeline.StatusDone, Elapsed: time.Since(start)}
	if err != nil {
		evt.Status = buildpipeline.StatusError
		evt.Err = err
	} else {
		d.toCache(item)
	}
	buildpipeline.Emit(d.opts.Progress, evt)
	return translated{item: item, err: err}
}

func (d *runner) fromCache(name string) (emit.Item, bool) {
	if d.opts.Cache == nil || d.hashes == nil {
		return emit.Item{}, false
	}
	var payload DiskPayload
	ok, err := d.opts.Cache.Get(d.hashes.key(name), &payload)
	if err != nil {
		d.log.Debug("cache read failed", zap.String("def", name), zap.Error(err))
		return emit.Item{}, false
	}
	if !ok {
		return emit.Item{}, false
	}
	return diskPayloadToItem(&payload, d.hashes)
}

func (d *runner) toCache(item emit.Item) {
	if d.opts.Cache == nil || d.hashes == nil {
		return
	}
	if err := d.opts.Cache.Put(d.hashes.key(item.Name), itemToDiskPayload(item, d.hashes)); err != nil {
		d.log.Debug("cache write failed", zap.String("def", item.Name), zap.Error(err))
	}
}
