package querybuilder

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nomadcxx/movieindexd/internal/logging"
	"github.com/Nomadcxx/movieindexd/internal/process"
	"github.com/Nomadcxx/movieindexd/internal/statestore"
)

func newTestStore(t *testing.T) statestore.Store {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return statestore.NewRedisStore(client, logging.Nop())
}

func TestBuilderFor_UnknownKind(t *testing.T) {
	store := newTestStore(t)
	_, err := BuilderFor(process.Kind("bogus"), store, logging.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, process.ErrUnknownProcessKind)
}

func TestBuilderFor_AllKnownKinds(t *testing.T) {
	store := newTestStore(t)
	for _, spec := range process.All {
		b, err := BuilderFor(spec.Kind, store, logging.Nop())
		require.NoError(t, err, spec.Kind)
		require.NotNil(t, b, spec.Kind)
	}
}

func TestMovieBuilder_Build_NoWatermarkDegradesToWhereTrue(t *testing.T) {
	store := newTestStore(t)
	b, err := BuilderFor(process.MovieFilmWork, store, logging.Nop())
	require.NoError(t, err)

	query, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Contains(t, query, "WHERE TRUE")
	assert.NotContains(t, query, "0001-01-01")
}

func TestMovieBuilder_Build_UsesStoredWatermark(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set(context.Background(), "modified_film_work", "2023-06-15 10:30:00.123456"))

	b, err := BuilderFor(process.MovieFilmWork, store, logging.Nop())
	require.NoError(t, err)

	query, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Contains(t, query, "2023-06-15 10:30:00.123456")
}

func TestMovieBuilder_Build_MalformedWatermarkIsPermanent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set(context.Background(), "modified_film_work", "not-a-timestamp"))

	b, err := BuilderFor(process.MovieFilmWork, store, logging.Nop())
	require.NoError(t, err)

	_, err = b.Build(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, process.ErrMalformedWatermark)
}

func TestMovieGenreBuilder_Build_UsesDrivingCTE(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set(context.Background(), "modified_film_work_genre", "2023-06-15 10:30:00.123456"))

	b, err := BuilderFor(process.MovieGenre, store, logging.Nop())
	require.NoError(t, err)

	query, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Contains(t, query, "WITH driving AS")
	assert.Contains(t, query, "JOIN driving d ON d.film_id = fw.id")
	assert.Contains(t, query, "WHERE g.modified > '2023-06-15 10:30:00.123456'::timestamp")
	assert.Contains(t, query, "MAX(d.driver_modified) AS modified_state")
	assert.Contains(t, query, "ORDER BY d.driver_modified")
}

func TestMovieGenreBuilder_Build_NoWatermarkDegradesToWhereTrue(t *testing.T) {
	store := newTestStore(t)
	b, err := BuilderFor(process.MovieGenre, store, logging.Nop())
	require.NoError(t, err)

	query, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Contains(t, query, "WHERE TRUE")
}

func TestMoviePersonBuilder_Build_UsesDrivingCTE(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set(context.Background(), "modified_film_work_person", "2023-06-15 10:30:00.123456"))

	b, err := BuilderFor(process.MoviePerson, store, logging.Nop())
	require.NoError(t, err)

	query, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Contains(t, query, "WITH driving AS")
	assert.Contains(t, query, "WHERE p.modified > '2023-06-15 10:30:00.123456'::timestamp")
	assert.Contains(t, query, "MAX(d.driver_modified) AS modified_state")
	assert.Contains(t, query, "ORDER BY d.driver_modified")
}

func TestGenreCreatedLinkBuilder_Build(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set(context.Background(), "modified_genre_created_link", "2023-06-15 10:30:00.123456"))

	b, err := BuilderFor(process.GenreCreatedLink, store, logging.Nop())
	require.NoError(t, err)

	query, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Contains(t, query, "gfw.created >")
	assert.Contains(t, query, "ORDER BY MAX(gfw.created)")
}

func TestGenreCreatedLinkBuilder_Build_NoWatermarkDegradesToWhereTrue(t *testing.T) {
	store := newTestStore(t)
	b, err := BuilderFor(process.GenreCreatedLink, store, logging.Nop())
	require.NoError(t, err)

	query, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Contains(t, query, "WHERE TRUE")
}

func TestPersonModifiedBuilder_Build(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set(context.Background(), "modified_person", "2023-01-01 00:00:00.000000"))

	b, err := BuilderFor(process.PersonModified, store, logging.Nop())
	require.NoError(t, err)

	query, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Contains(t, query, "p.modified >")
	assert.Contains(t, query, "ORDER BY p.modified")
}

func TestGenreModifiedBuilder_Build(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set(context.Background(), "modified_genre", "2023-06-15 10:30:00.123456"))

	b, err := BuilderFor(process.GenreModified, store, logging.Nop())
	require.NoError(t, err)

	query, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Contains(t, query, "g.modified >")
	assert.Contains(t, query, "ORDER BY g.modified")
}

func TestGenreModifiedBuilder_Build_NoWatermarkDegradesToWhereTrue(t *testing.T) {
	store := newTestStore(t)
	b, err := BuilderFor(process.GenreModified, store, logging.Nop())
	require.NoError(t, err)

	query, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Contains(t, query, "WHERE TRUE")
}
