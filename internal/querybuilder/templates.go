package querybuilder

// SQL templates. Each mirrors the shape of the original Python project's
// pg_templates.py, generalized to emit JSON-aggregated list fields
// everywhere (genres, persons, role-split name/object arrays, film-id
// buckets) rather than a mix of array_agg and json_agg — a single JSON
// encoding lets the Go extractor decode every list-typed column the same
// way (json.Unmarshal on the raw bytes) without Postgres-array text
// parsing. See DESIGN.md for this decision.

const movieBaseTemplate = `%s
SELECT
	fw.id,
	fw.rating AS imdb_rating,
	COALESCE(json_agg(DISTINCT jsonb_build_object('id', g.id, 'name', g.name)) FILTER (WHERE g.id IS NOT NULL), '[]') AS genres,
	fw.title,
	fw.description,
	COALESCE(json_agg(DISTINCT p.id) FILTER (WHERE p.id IS NOT NULL), '[]') AS persons,
	COALESCE(json_agg(DISTINCT p.full_name) FILTER (WHERE p.id IS NOT NULL AND pfw.role = 'director'), '[]') AS directors_names,
	COALESCE(json_agg(DISTINCT p.full_name) FILTER (WHERE p.id IS NOT NULL AND pfw.role = 'actor'), '[]') AS actors_names,
	COALESCE(json_agg(DISTINCT p.full_name) FILTER (WHERE p.id IS NOT NULL AND pfw.role = 'writer'), '[]') AS writers_names,
	COALESCE(json_agg(DISTINCT jsonb_build_object('id', p.id, 'name', p.full_name)) FILTER (WHERE p.id IS NOT NULL AND pfw.role = 'actor'), '[]') AS actors,
	COALESCE(json_agg(DISTINCT jsonb_build_object('id', p.id, 'name', p.full_name)) FILTER (WHERE p.id IS NOT NULL AND pfw.role = 'writer'), '[]') AS writers,
	COALESCE(json_agg(DISTINCT jsonb_build_object('id', p.id, 'name', p.full_name)) FILTER (WHERE p.id IS NOT NULL AND pfw.role = 'director'), '[]') AS directors,
	%s AS modified_state
FROM content.film_work fw
LEFT JOIN content.person_film_work pfw ON pfw.film_work_id = fw.id
LEFT JOIN content.person p ON p.id = pfw.person_id
LEFT JOIN content.genre_film_work gfw ON gfw.film_work_id = fw.id
LEFT JOIN content.genre g ON g.id = gfw.genre_id
%s
GROUP BY fw.id
%s`

const moviePersonDrivingCTE = `WITH driving AS (
	SELECT pfw.film_work_id AS film_id, MAX(p.modified) AS driver_modified
	FROM content.person p
	JOIN content.person_film_work pfw ON pfw.person_id = p.id
	%s
	GROUP BY pfw.film_work_id
)`

const movieGenreDrivingCTE = `WITH driving AS (
	SELECT gfw.film_work_id AS film_id, MAX(g.modified) AS driver_modified
	FROM content.genre g
	JOIN content.genre_film_work gfw ON gfw.genre_id = g.id
	%s
	GROUP BY gfw.film_work_id
)`

const genreCreatedLinkTemplate = `SELECT
	g.id,
	g.name,
	g.description,
	MAX(gfw.created) AS modified_state
FROM content.genre g
JOIN content.genre_film_work gfw ON gfw.genre_id = g.id
%s
GROUP BY g.id
ORDER BY MAX(gfw.created)`

const genreModifiedTemplate = `SELECT
	g.id,
	g.name,
	g.description,
	g.modified AS modified_state
FROM content.genre g
%s
ORDER BY g.modified`

const personAggregationTemplate = `SELECT
	p.id,
	p.full_name,
	COALESCE(json_agg(DISTINCT pfw.film_work_id) FILTER (WHERE pfw.role = 'actor'), '[]') AS actor,
	COALESCE(json_agg(DISTINCT pfw.film_work_id) FILTER (WHERE pfw.role = 'writer'), '[]') AS writer,
	COALESCE(json_agg(DISTINCT pfw.film_work_id) FILTER (WHERE pfw.role = 'director'), '[]') AS director,
	COALESCE(json_agg(DISTINCT pfw.film_work_id) FILTER (WHERE pfw.role NOT IN ('actor', 'writer', 'director')), '[]') AS other,
	COALESCE(json_agg(DISTINCT pfw.film_work_id), '[]') AS films,
	%s AS modified_state
FROM content.person p
LEFT JOIN content.person_film_work pfw ON pfw.person_id = p.id
%s
GROUP BY p.id
%s`
