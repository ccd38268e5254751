// Package validator filters documents against a per-process-kind JSON
// Schema before they reach the loader: malformed documents are dropped and
// logged, never fatal to the sweep.
package validator

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/Nomadcxx/movieindexd/internal/logging"
	"github.com/Nomadcxx/movieindexd/internal/process"
)

// Validator checks documents of one shape against a compiled schema.
type Validator struct {
	schema *gojsonschema.Schema
	kind   process.Kind
	logger *logging.Logger
}

func schemaFor(kind process.Kind) (string, error) {
	switch kind {
	case process.MovieFilmWork, process.MovieGenre, process.MoviePerson:
		return movieSchema, nil
	case process.GenreCreatedLink, process.GenreModified:
		return genreSchema, nil
	case process.PersonCreatedLink, process.PersonModified:
		return personSchema, nil
	default:
		return "", fmt.Errorf("%w: %s", process.ErrUnknownProcessKind, kind)
	}
}

// New compiles the schema bound to kind's document shape.
func New(kind process.Kind, logger *logging.Logger) (*Validator, error) {
	raw, err := schemaFor(kind)
	if err != nil {
		return nil, err
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compile schema for %s: %w", kind, err)
	}
	return &Validator{schema: schema, kind: kind, logger: logger}, nil
}

// Filter reads every document off docs, validates it, and forwards only
// the ones that pass. It never returns an error: a document failing
// validation is dropped and logged at warn level, the sweep continues.
func (v *Validator) Filter(docs <-chan map[string]any) <-chan map[string]any {
	out := make(chan map[string]any)
	go func() {
		defer close(out)
		for doc := range docs {
			if v.valid(doc) {
				out <- doc
			}
		}
	}()
	return out
}

func (v *Validator) valid(doc map[string]any) bool {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		v.logWarn(doc, err.Error())
		return false
	}
	if !result.Valid() {
		v.logWarn(doc, joinErrors(result.Errors()))
		return false
	}
	if !validID(doc["_id"]) {
		v.logWarn(doc, "_id is not a well-formed UUID")
		return false
	}
	return true
}

// validID rejects documents whose _id didn't come from the source's own
// UUID primary keys, catching an extractor/adapter bug before it reaches
// the sink rather than indexing a document no later lookup can find by id.
func validID(id any) bool {
	s, ok := id.(string)
	if !ok {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func (v *Validator) logWarn(doc map[string]any, reason string) {
	if v.logger == nil {
		return
	}
	v.logger.Warn("validator", "document rejected",
		logging.F("kind", string(v.kind)),
		logging.F("id", fmt.Sprintf("%v", doc["_id"])),
		logging.F("reason", reason))
}

func joinErrors(errs []gojsonschema.ResultError) string {
	out := ""
	for i, e := range errs {
		if i > 0 {
			out += "; "
		}
		out += e.String()
	}
	return out
}
