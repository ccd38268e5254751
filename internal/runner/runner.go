// Package runner drives one sweep of one process kind through the
// extractor → adapter → validator → loader pipeline, guarded by the
// global run lock and followed by the watermark commit.
package runner

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Nomadcxx/movieindexd/internal/adapter"
	"github.com/Nomadcxx/movieindexd/internal/extractor"
	"github.com/Nomadcxx/movieindexd/internal/logging"
	"github.com/Nomadcxx/movieindexd/internal/loader"
	"github.com/Nomadcxx/movieindexd/internal/process"
	"github.com/Nomadcxx/movieindexd/internal/querybuilder"
	"github.com/Nomadcxx/movieindexd/internal/retry"
	"github.com/Nomadcxx/movieindexd/internal/statestore"
	"github.com/Nomadcxx/movieindexd/internal/validator"
)

// Runner owns one process kind's pipeline wiring.
type Runner struct {
	spec      process.Spec
	store     statestore.Store
	extractor *extractor.Extractor
	validator *validator.Validator
	loader    *loader.Loader
	logger    *logging.Logger
}

// New wires a Runner for kind. db is the already-open Postgres connection
// pool shared across all seven kinds; ldr is the already-connected sink.
func New(kind process.Kind, db *sql.DB, bufferSize int, store statestore.Store, ldr *loader.Loader, logger *logging.Logger) (*Runner, error) {
	spec, ok := process.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", process.ErrUnknownProcessKind, kind)
	}
	v, err := validator.New(kind, logger)
	if err != nil {
		return nil, err
	}
	return &Runner{
		spec:      spec,
		store:     store,
		extractor: extractor.New(db, bufferSize, logger),
		validator: v,
		loader:    ldr,
		logger:    logger,
	}, nil
}

// Run executes the full state machine for one sweep: Enter, the pipeline,
// the watermark commit, and Exit — Exit always runs, even on panic or
// early return, so the run lock never stays held past its owning sweep.
func (r *Runner) Run(ctx context.Context) (err error) {
	if err := r.enter(ctx); err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error(string(r.spec.Kind), "panic during sweep", fmt.Errorf("%v", p), logging.Stack())
			err = fmt.Errorf("panic during sweep: %v", p)
		}
		r.exit(ctx)
	}()

	builder, buildErr := querybuilder.BuilderFor(r.spec.Kind, r.store, r.logger)
	if buildErr != nil {
		r.logger.Error(string(r.spec.Kind), "failed to construct query builder", buildErr, logging.Stack())
		return buildErr
	}

	lastModified, runErr := r.sweep(ctx, builder)
	if runErr != nil {
		r.logger.Error(string(r.spec.Kind), "sweep failed", runErr, logging.Stack())
		return runErr
	}

	if commitErr := r.commitWatermark(ctx, lastModified); commitErr != nil {
		r.logger.Error(string(r.spec.Kind), "watermark commit failed", commitErr, logging.Stack())
		return commitErr
	}
	return nil
}

// enter acquires the global run lock, retrying (polling) while another
// process kind's sweep holds it.
func (r *Runner) enter(ctx context.Context) error {
	return retry.Do(ctx, r.logger, "runner", "enter "+string(r.spec.Kind), func(ctx context.Context) error {
		value, ok, err := r.store.Get(ctx, process.ProcessIsStartedKey)
		if err != nil {
			return err
		}
		if ok && value == "1" {
			return process.ErrAnotherProcessStarted
		}
		return r.store.Set(ctx, process.ProcessIsStartedKey, "1")
	})
}

// exit releases the global run lock unconditionally. It detaches from ctx's
// cancellation so a sweep interrupted by shutdown still releases the lock.
func (r *Runner) exit(ctx context.Context) {
	if err := r.store.Set(context.WithoutCancel(ctx), process.ProcessIsStartedKey, "0"); err != nil {
		r.logger.Error(string(r.spec.Kind), "failed to release run lock", err)
	}
}

// sweep wires extractor → adapter → validator → loader and returns the
// last modified_state value seen, for the watermark commit.
func (r *Runner) sweep(ctx context.Context, builder querybuilder.Builder) (string, error) {
	query, err := builder.Build(ctx)
	if err != nil {
		return "", err
	}

	batches, extractErrs := r.extractor.Stream(ctx, query)

	var lastModified string
	docs := make(chan map[string]any)
	go func() {
		defer close(docs)
		for batch := range batches {
			for _, row := range batch.Rows {
				docs <- adapter.Reshape(row)
			}
			if batch.LastModifiedState != "" {
				lastModified = batch.LastModifiedState
			}
		}
	}()

	validated := r.validator.Filter(docs)

	if _, loadErr := r.loader.Load(ctx, r.spec.Index, validated); loadErr != nil {
		return "", fmt.Errorf("load: %w", loadErr)
	}

	if extractErr := <-extractErrs; extractErr != nil {
		return "", fmt.Errorf("extract: %w", extractErr)
	}

	return lastModified, nil
}

// commitWatermark: an empty lastModified means zero rows were processed
// this sweep, and the previous watermark is left untouched.
func (r *Runner) commitWatermark(ctx context.Context, lastModified string) error {
	if lastModified == "" {
		r.logger.Info(string(r.spec.Kind), "sweep processed zero rows, watermark unchanged")
		return nil
	}
	return r.store.Set(ctx, r.spec.WatermarkKey, lastModified)
}
