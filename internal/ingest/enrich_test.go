package ingest_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chartwatch/ingestor/internal/ingest"
	"github.com/chartwatch/ingestor/internal/models"
	"github.com/chartwatch/ingestor/internal/repositories"
)

type fakeMetadataSource struct {
	meta *ingest.ArtistMetadata
	err  error
}

func (f *fakeMetadataSource) ArtistMetadata(context.Context, string, *string) (*ingest.ArtistMetadata, error) {
	return f.meta, f.err
}

func TestEnricherFillsArtistMetadata(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	artist := &models.Artist{Name: "Nova Lane"}
	require.NoError(t, repositories.InsertArtist(ctx, db, artist))

	image := "https://img.example/nova.jpg"
	pop := 72
	source := &fakeMetadataSource{meta: &ingest.ArtistMetadata{
		ImageURL:   &image,
		Genres:     models.StringArray{"synthpop", "indie"},
		Popularity: &pop,
	}}

	enricher := ingest.NewEnricher(db, source, zap.NewNop())
	assert.True(t, enricher.Enqueue(artist.ID, artist.Name, nil))
	enricher.Close()

	got, err := repositories.FindArtistByName(ctx, db, "Nova Lane")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.ImageURL)
	assert.Equal(t, image, *got.ImageURL)
	assert.Equal(t, models.StringArray{"synthpop", "indie"}, got.Genres)
	require.NotNil(t, got.Popularity)
	assert.Equal(t, 72, *got.Popularity)
}

func TestEnricherFailuresNeverSurface(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	artist := &models.Artist{Name: "The Fathoms"}
	require.NoError(t, repositories.InsertArtist(ctx, db, artist))

	enricher := ingest.NewEnricher(db, &fakeMetadataSource{err: errors.New("catalog down")}, zap.NewNop())
	assert.True(t, enricher.Enqueue(artist.ID, artist.Name, nil))
	enricher.Close()

	got, err := repositories.FindArtistByName(ctx, db, "The Fathoms")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.ImageURL, "a failed fill leaves the artist untouched")
}

func TestEnricherCloseIsIdempotent(t *testing.T) {
	db := testDB(t)
	enricher := ingest.NewEnricher(db, &fakeMetadataSource{}, zap.NewNop())
	enricher.Close()
	enricher.Close()
}
