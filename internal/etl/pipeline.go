//-------------------------------------------------------------------------
//
// Minimart Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package etl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/minimart-etl/internal/db"
	"github.com/pgEdge/minimart-etl/internal/logging"
)

// Pipeline runs one full extract-transform-stage-load pass. The mutex
// serializes passes so an overlapping trigger waits instead of racing the
// watermark.
type Pipeline struct {
	mu        sync.Mutex
	extractor *Extractor
	stager    *Stager
	loader    *Loader
	staging   *pgxpool.Pool
}

// NewPipeline wires a Pipeline over the three database pools. The staging
// pool also carries the run metadata.
func NewPipeline(source, staging, warehouse *pgxpool.Pool, dataDir string) *Pipeline {
	return &Pipeline{
		extractor: NewExtractor(source, dataDir),
		stager:    NewStager(staging),
		loader:    NewLoader(staging, warehouse),
		staging:   staging,
	}
}

// Run executes one pipeline pass: read the watermark, extract everything
// newer, transform, stage, load, then advance the watermark. The watermark
// only moves after the warehouse load committed, so a failed pass leaves
// the next one to re-cover the same window.
func (p *Pipeline) Run(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	started := time.Now()

	watermark, err := p.readWatermark(ctx)
	if err != nil {
		return err
	}

	batch, err := p.extractor.Extract(ctx, watermark)
	if err != nil {
		return err
	}
	if batch.Empty() {
		logging.Info().Time("watermark", watermark).Msg("No new transactions")
		return nil
	}

	result, err := Transform(batch)
	if err != nil {
		return err
	}

	staged, err := p.stager.Stage(ctx, result.Records, result.Lines)
	if err != nil {
		return err
	}

	summary, err := p.loader.Load(ctx)
	if err != nil {
		return err
	}

	if err := p.advanceWatermark(ctx, batch.MaxSourceTime); err != nil {
		return err
	}

	logging.Info().
		Int("staged", staged).
		Int("facts", summary.Facts).
		Int("fact_lines", summary.FactLines).
		Dur("elapsed", time.Since(started)).
		Time("watermark", batch.MaxSourceTime).
		Msg("Pipeline run completed")

	return nil
}

func (p *Pipeline) readWatermark(ctx context.Context) (time.Time, error) {
	raw, err := db.GetMetadataValue(ctx, p.staging, db.KeyWatermark)
	if err != nil {
		return time.Time{}, &ConnectionError{Target: "staging", Err: err}
	}
	if raw == "" {
		return time.Time{}, nil
	}
	watermark, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, &SchemaError{
			Detail: fmt.Sprintf("stored watermark %q is not a timestamp", raw),
			Err:    err,
		}
	}
	return watermark, nil
}

func (p *Pipeline) advanceWatermark(ctx context.Context, to time.Time) error {
	if to.IsZero() {
		// No row in the batch carried a parseable timestamp, which Transform
		// would have rejected before we got here. Keep the old watermark.
		return nil
	}
	if err := db.SetMetadataValue(ctx, p.staging, db.KeyWatermark, to.Format(time.RFC3339)); err != nil {
		return &ConnectionError{Target: "staging", Err: err}
	}
	if err := db.SetMetadataValue(ctx, p.staging, db.KeyLastRunAt, time.Now().Format(time.RFC3339)); err != nil {
		return &ConnectionError{Target: "staging", Err: err}
	}
	return nil
}
