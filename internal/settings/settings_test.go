package settings

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/inkwell/internal/domain"
	inkerrors "github.com/mrz1836/inkwell/internal/errors"
)

func boolPtr(b bool) *bool { return &b }

// exerciseStore runs the same round trip against any Store implementation.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, snap.Feature(domain.FeaturePostTitle).IsEnabled())

	mods := domain.GlobalModifiers{
		BrandVoice: domain.Modifier{Enabled: true, Text: "Be warm."},
		StopWords:  domain.Modifier{Enabled: false, Text: "very"},
	}
	require.NoError(t, store.SetModifiers(ctx, mods))
	require.NoError(t, store.SetFeature(ctx, domain.FeatureSEOTitle, domain.FeatureSettings{
		Enabled:  boolPtr(false),
		Override: "Short and sharp.",
	}))

	snap, err = store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, mods, snap.Modifiers)
	assert.False(t, snap.Feature(domain.FeatureSEOTitle).IsEnabled())
	assert.Equal(t, "Short and sharp.", snap.Feature(domain.FeatureSEOTitle).Override)
	assert.True(t, snap.Feature(domain.FeaturePostTitle).IsEnabled())

	err = store.SetFeature(ctx, domain.Feature("post_body"), domain.FeatureSettings{})
	require.ErrorIs(t, err, inkerrors.ErrUnknownFeature)
}

func TestStaticStore(t *testing.T) {
	exerciseStore(t, NewStaticStore(domain.Settings{}))
}

func TestStaticStore_SnapshotIsCopy(t *testing.T) {
	store := NewStaticStore(domain.Settings{Features: map[domain.Feature]domain.FeatureSettings{
		domain.FeaturePostTags: {Enabled: boolPtr(true)},
	}})

	snap, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	*snap.Features[domain.FeaturePostTags].Enabled = false
	snap.Features[domain.FeaturePostTitle] = domain.FeatureSettings{Enabled: boolPtr(false)}

	again, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	assert.True(t, again.Feature(domain.FeaturePostTags).IsEnabled())
	assert.True(t, again.Feature(domain.FeaturePostTitle).IsEnabled())
}

func TestStaticStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStaticStore(domain.Settings{}).Snapshot(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	exerciseStore(t, NewFileStore(path))

	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestFileStore_ReadsHandWrittenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	doc := `modifiers:
  brand_voice:
    enabled: true
    text: "Speak plainly."
  stop_words:
    enabled: true
    text: "utilize"
features:
  post_tags:
    enabled: false
  post_excerpt:
    override: "Two sentences max."
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	snap, err := NewFileStore(path).Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Speak plainly.", snap.Modifiers.BrandVoice.Text)
	assert.True(t, snap.Modifiers.StopWords.Active())
	assert.False(t, snap.Feature(domain.FeaturePostTags).IsEnabled())
	assert.True(t, snap.Feature(domain.FeaturePostExcerpt).IsEnabled())
	assert.Equal(t, "Two sentences max.", snap.Feature(domain.FeaturePostExcerpt).Override)
}

func TestFileStore_RejectsUnknownFeature(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("features:\n  post_body:\n    enabled: true\n"), 0o600))

	_, err := NewFileStore(path).Snapshot(context.Background())
	require.ErrorIs(t, err, inkerrors.ErrUnknownFeature)
}

func TestFileStore_ConcurrentWritersAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	features := []domain.Feature{
		domain.FeaturePostTitle, domain.FeaturePostTags, domain.FeatureSEOTitle, domain.FeaturePostExcerpt,
	}

	// Separate instances share only the file lock.
	var wg sync.WaitGroup
	for _, f := range features {
		wg.Add(1)
		go func(f domain.Feature) {
			defer wg.Done()
			assert.NoError(t, NewFileStore(path).SetFeature(context.Background(), f, domain.FeatureSettings{Enabled: boolPtr(false)}))
		}(f)
	}
	wg.Wait()

	snap, err := NewFileStore(path).Snapshot(context.Background())
	require.NoError(t, err)
	for _, f := range features {
		assert.False(t, snap.Feature(f).IsEnabled(), f)
	}
	assert.NoFileExists(t, path+".tmp")
	assert.FileExists(t, path+".lock")
}

func TestFileStore_SeesExternalChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store := NewFileStore(path)

	require.NoError(t, os.WriteFile(path, []byte("features:\n  seo_title:\n    enabled: true\n"), 0o600))
	snap, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.Feature(domain.FeatureSEOTitle).IsEnabled())

	require.NoError(t, os.WriteFile(path, []byte("features:\n  seo_title:\n    enabled: false\n"), 0o600))
	snap, err = store.Snapshot(context.Background())
	require.NoError(t, err)
	assert.False(t, snap.Feature(domain.FeatureSEOTitle).IsEnabled())
}

func newMiniredisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStoreFromClient(client, "test"), mr
}

func TestRedisStore(t *testing.T) {
	store, _ := newMiniredisStore(t)
	exerciseStore(t, store)
}

func TestRedisStore_Layout(t *testing.T) {
	store, mr := newMiniredisStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetModifiers(ctx, domain.GlobalModifiers{
		StopWords: domain.Modifier{Enabled: true, Text: "literally"},
	}))
	assert.Equal(t, "true", mr.HGet("test:modifiers", "stop_words.enabled"))
	assert.Equal(t, "literally", mr.HGet("test:modifiers", "stop_words.text"))

	mr.HSet("test:features", "post_title", `{"override":"From redis"}`)
	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "From redis", snap.Feature(domain.FeaturePostTitle).Override)
}

func TestRedisStore_BadPayload(t *testing.T) {
	store, mr := newMiniredisStore(t)
	mr.HSet("test:features", "post_title", "{not json")

	_, err := store.Snapshot(context.Background())
	require.Error(t, err)
}

func TestNewRedisStore(t *testing.T) {
	t.Run("requires address", func(t *testing.T) {
		_, err := NewRedisStore(context.Background(), RedisConfig{})
		require.ErrorIs(t, err, inkerrors.ErrConfigInvalidSettings)
	})

	t.Run("connects", func(t *testing.T) {
		mr := miniredis.RunT(t)
		store, err := NewRedisStore(context.Background(), RedisConfig{Addr: mr.Addr()})
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })

		_, err = store.Snapshot(context.Background())
		require.NoError(t, err)
	})
}
