// Package adapter reshapes one extracted row into the document shape the
// sink expects: drop the bookkeeping column, key the document by _id.
package adapter

import "github.com/Nomadcxx/movieindexd/internal/extractor"

// Reshape converts a Row into a sink document. It never allocates more
// than the output map: no intermediate struct, no copy of row beyond what
// the map literal already needs.
func Reshape(row extractor.Row) map[string]any {
	doc := make(map[string]any, len(row))
	for k, v := range row {
		if k == "modified_state" {
			continue
		}
		doc[k] = v
	}
	doc["_id"] = row["id"]
	return doc
}
