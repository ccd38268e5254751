// Package querybuilder renders the per-process-kind SQL statement that the
// extractor runs against Postgres, given the watermark currently on file in
// the state store. Each process kind gets a dedicated Builder; BuilderFor
// is the factory the runner uses to pick one.
package querybuilder

import (
	"context"
	"fmt"
	"time"

	"github.com/Nomadcxx/movieindexd/internal/logging"
	"github.com/Nomadcxx/movieindexd/internal/process"
	"github.com/Nomadcxx/movieindexd/internal/statestore"
)

// Builder renders the next SQL statement to run for one process kind. The
// watermark is re-read from the store on every call so a Builder can be
// reused across sweeps without going stale.
type Builder interface {
	Build(ctx context.Context) (string, error)
}

// BuilderFor returns the Builder for kind, or process.ErrUnknownProcessKind
// wrapped with retry.Permanent semantics left to the caller — the runner
// decides how to treat that error.
func BuilderFor(kind process.Kind, store statestore.Store, logger *logging.Logger) (Builder, error) {
	spec, ok := process.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", process.ErrUnknownProcessKind, kind)
	}

	base := &builder{spec: spec, store: store, logger: logger}

	switch kind {
	case process.MovieFilmWork:
		return &movieBuilder{builder: base}, nil
	case process.MovieGenre:
		return &movieBuilder{builder: base, drivingCTE: movieGenreDrivingCTE}, nil
	case process.MoviePerson:
		return &movieBuilder{builder: base, drivingCTE: moviePersonDrivingCTE}, nil
	case process.GenreCreatedLink:
		return &genreCreatedLinkBuilder{builder: base}, nil
	case process.PersonCreatedLink:
		return &personCreatedLinkBuilder{builder: base}, nil
	case process.GenreModified:
		return &genreModifiedBuilder{builder: base}, nil
	case process.PersonModified:
		return &personModifiedBuilder{builder: base}, nil
	default:
		return nil, fmt.Errorf("%w: %s", process.ErrUnknownProcessKind, kind)
	}
}

// builder holds the fields every concrete Builder shares.
type builder struct {
	spec   process.Spec
	store  statestore.Store
	logger *logging.Logger
}

// watermark reads and parses the builder's watermark key. A missing key is
// not an error — it's the first-ever sweep, and the zero time sorts before
// every row. A present-but-unparseable value is process.ErrMalformedWatermark,
// which the runner treats as permanent.
func (b *builder) watermark(ctx context.Context) (time.Time, error) {
	raw, ok, err := b.store.Get(ctx, b.spec.WatermarkKey)
	if err != nil {
		return time.Time{}, fmt.Errorf("read watermark %q: %w", b.spec.WatermarkKey, err)
	}
	if !ok {
		return time.Time{}, nil
	}
	ts, err := time.Parse(process.WatermarkLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", process.ErrMalformedWatermark, raw, err)
	}
	return ts, nil
}

func quoteTimestamp(ts time.Time) string {
	return "'" + ts.Format(process.WatermarkLayout) + "'::timestamp"
}

// watermarkCondition renders the predicate that compares col's value to the
// watermark. A zero time.Time means no watermark has been committed yet,
// so the first sweep must see every row rather than comparing against the
// Go zero-time literal: it degrades to an unconditional TRUE.
func watermarkCondition(col string, ts time.Time) string {
	if ts.IsZero() {
		return "TRUE"
	}
	return fmt.Sprintf("%s > %s", col, quoteTimestamp(ts))
}

func (b *builder) logQuery(query string) {
	if b.logger == nil {
		return
	}
	b.logger.Debug("querybuilder", "rendered query", logging.F("kind", string(b.spec.Kind)), logging.F("sql", query))
}

// movieBuilder handles movie_film_work, movie_genre, and movie_person: the
// first filters directly on fw.modified, the other two fan out through a
// driving CTE that finds which films a changed genre or person touches.
type movieBuilder struct {
	*builder
	drivingCTE string
}

func (b *movieBuilder) Build(ctx context.Context) (string, error) {
	ts, err := b.watermark(ctx)
	if err != nil {
		return "", err
	}

	var cte, where, modifiedState, orderBy string
	if b.drivingCTE == "" {
		cte = ""
		where = "WHERE " + watermarkCondition("fw.modified", ts)
		modifiedState = "MAX(fw.modified)"
		orderBy = "ORDER BY fw.modified"
	} else {
		driverCol := "g.modified"
		if b.spec.Kind == process.MoviePerson {
			driverCol = "p.modified"
		}
		cte = fmt.Sprintf(b.drivingCTE, "WHERE "+watermarkCondition(driverCol, ts))
		where = "JOIN driving d ON d.film_id = fw.id"
		modifiedState = "MAX(d.driver_modified)"
		orderBy = "ORDER BY d.driver_modified"
	}

	query := fmt.Sprintf(movieBaseTemplate, cte, modifiedState, where, orderBy)
	b.logQuery(query)
	return query, nil
}

type genreCreatedLinkBuilder struct{ *builder }

func (b *genreCreatedLinkBuilder) Build(ctx context.Context) (string, error) {
	ts, err := b.watermark(ctx)
	if err != nil {
		return "", err
	}
	where := "WHERE " + watermarkCondition("gfw.created", ts)
	query := fmt.Sprintf(genreCreatedLinkTemplate, where)
	b.logQuery(query)
	return query, nil
}

type genreModifiedBuilder struct{ *builder }

func (b *genreModifiedBuilder) Build(ctx context.Context) (string, error) {
	ts, err := b.watermark(ctx)
	if err != nil {
		return "", err
	}
	where := "WHERE " + watermarkCondition("g.modified", ts)
	query := fmt.Sprintf(genreModifiedTemplate, where)
	b.logQuery(query)
	return query, nil
}

type personCreatedLinkBuilder struct{ *builder }

func (b *personCreatedLinkBuilder) Build(ctx context.Context) (string, error) {
	ts, err := b.watermark(ctx)
	if err != nil {
		return "", err
	}
	where := "WHERE " + watermarkCondition("pfw.created", ts)
	query := fmt.Sprintf(personAggregationTemplate, "MAX(pfw.created)", where, "ORDER BY MAX(pfw.created)")
	b.logQuery(query)
	return query, nil
}

type personModifiedBuilder struct{ *builder }

func (b *personModifiedBuilder) Build(ctx context.Context) (string, error) {
	ts, err := b.watermark(ctx)
	if err != nil {
		return "", err
	}
	where := "WHERE " + watermarkCondition("p.modified", ts)
	query := fmt.Sprintf(personAggregationTemplate, "p.modified", where, "ORDER BY p.modified")
	b.logQuery(query)
	return query, nil
}
