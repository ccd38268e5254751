package validator

// Schema documents, one per sink document shape, expressed as Go-literal
// JSON Schema rather than loaded from disk: these validate the pipeline's
// own output before it reaches the sink, a different concern from the
// index mappings internal/loader bootstraps into Elasticsearch.
const movieSchema = `{
	"type": "object",
	"required": ["_id", "title", "directors"],
	"properties": {
		"_id": {"type": "string"},
		"imdb_rating": {"type": ["number", "null"]},
		"title": {"type": ["string", "null"]},
		"description": {"type": ["string", "null"]},
		"genres": {
			"type": ["array", "null"],
			"items": {
				"type": "object",
				"required": ["id", "name"],
				"properties": {
					"id": {"type": "string"},
					"name": {"type": "string"}
				}
			}
		},
		"persons": {"type": ["array", "null"], "items": {"type": "string"}},
		"directors_names": {"type": ["array", "null"], "items": {"type": "string"}},
		"actors_names": {"type": ["array", "null"], "items": {"type": "string"}},
		"writers_names": {"type": ["array", "null"], "items": {"type": "string"}},
		"actors": {"type": ["array", "null"], "items": {"type": "object"}},
		"writers": {"type": ["array", "null"], "items": {"type": "object"}},
		"directors": {"type": "array", "items": {"type": "object"}}
	}
}`

const genreSchema = `{
	"type": "object",
	"required": ["_id", "name"],
	"properties": {
		"_id": {"type": "string"},
		"name": {"type": "string"},
		"description": {"type": ["string", "null"]}
	}
}`

const personSchema = `{
	"type": "object",
	"required": ["_id", "full_name", "actor", "writer", "director", "other", "films"],
	"properties": {
		"_id": {"type": "string"},
		"full_name": {"type": "string"},
		"actor": {"type": "array", "items": {"type": "string"}},
		"writer": {"type": "array", "items": {"type": "string"}},
		"director": {"type": "array", "items": {"type": "string"}},
		"other": {"type": "array", "items": {"type": "string"}},
		"films": {"type": "array", "items": {"type": "string"}}
	}
}`
