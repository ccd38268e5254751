// Package loader bulk-writes validated documents into Elasticsearch and
// bootstraps the indexes the sink needs. Loads are idempotent upserts
// keyed by each document's _id.
package loader

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"

	"github.com/Nomadcxx/movieindexd/internal/logging"
	"github.com/Nomadcxx/movieindexd/internal/process"
	"github.com/Nomadcxx/movieindexd/internal/retry"
)

//go:embed mappings/*.json
var mappingFS embed.FS

// indexMappings binds each sink index to its bootstrap mapping file.
var indexMappings = map[string]string{
	process.MoviesIndex:  "mappings/movies.json",
	process.GenresIndex:  "mappings/genres.json",
	process.PersonsIndex: "mappings/persons.json",
}

// Loader bulk-indexes documents through esutil.BulkIndexer. Connection and
// bulk-call failures are retried by internal/retry; individual document
// failures surface only through BulkIndexer's OnFailure callback and do not
// fail the overall Load.
type Loader struct {
	client *elasticsearch.Client
	logger *logging.Logger
}

// New constructs a Loader around an already-configured client.
func New(client *elasticsearch.Client, logger *logging.Logger) *Loader {
	return &Loader{client: client, logger: logger}
}

// Load indexes every document read off docs into the named index, each
// keyed by its own "_id" field. It reports whether at least one document
// failed to index (the runner treats that as a partial-success sweep, not
// a hard failure) and any error from the bulk call itself.
func (l *Loader) Load(ctx context.Context, index string, docs <-chan map[string]any) (bool, error) {
	var anyDocFailed atomic.Bool

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:  index,
		Client: l.client,
		OnError: func(ctx context.Context, err error) {
			l.logger.Error("loader", "bulk indexer error", err, logging.F("index", index))
		},
	})
	if err != nil {
		return false, fmt.Errorf("create bulk indexer: %w", err)
	}

	for doc := range docs {
		id := fmt.Sprintf("%v", doc["_id"])
		body, err := json.Marshal(doc)
		if err != nil {
			anyDocFailed.Store(true)
			l.logger.Error("loader", "document marshal failed", err,
				logging.F("index", index), logging.F("id", id))
			continue
		}

		item := esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: id,
			Body:       bytes.NewReader(body),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				anyDocFailed.Store(true)
				if err != nil {
					l.logger.Warn("loader", "document index failed",
						logging.F("index", index), logging.F("id", item.DocumentID), logging.F("error", err.Error()))
					return
				}
				l.logger.Warn("loader", "document index failed",
					logging.F("index", index), logging.F("id", item.DocumentID), logging.F("reason", res.Error.Reason))
			},
		}

		err = retry.Do(ctx, l.logger, "loader", "bulk add "+id, func(ctx context.Context) error {
			return bi.Add(ctx, item)
		})
		if err != nil {
			_ = bi.Close(ctx)
			return anyDocFailed.Load(), fmt.Errorf("bulk add: %w", err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return anyDocFailed.Load(), fmt.Errorf("bulk close: %w", err)
	}
	return anyDocFailed.Load(), nil
}

// Bootstrap creates every sink index from its embedded mapping file,
// ignoring the "already exists" response so it is safe to call on every
// startup.
func (l *Loader) Bootstrap(ctx context.Context) error {
	for index, path := range indexMappings {
		mapping, err := mappingFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("%w: %s: %s", process.ErrMissingIndexMapping, index, path)
		}

		err = retry.Do(ctx, l.logger, "loader", "bootstrap "+index, func(ctx context.Context) error {
			res, err := l.client.Indices.Create(
				index,
				l.client.Indices.Create.WithContext(ctx),
				l.client.Indices.Create.WithBody(bytes.NewReader(mapping)),
			)
			if err != nil {
				return err
			}
			defer res.Body.Close()
			if res.IsError() {
				body, _ := io.ReadAll(res.Body)
				if strings.Contains(string(body), "resource_already_exists_exception") {
					return nil
				}
				// The cluster rejected the mapping itself; retrying the
				// identical request changes nothing, so treat it as fatal
				// rather than retrying forever.
				return retry.Permanent(fmt.Errorf("create index %s: %s", index, string(body)))
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("bootstrap index %s: %w", index, err)
		}
	}
	return nil
}
