package modes

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleModes = `{
	"customModes": [
		{
			"slug": "researcher",
			"name": "Researcher",
			"roleDefinition": "You research things",
			"tools": ["web_search", "fs_*"],
			"source": "project"
		},
		{
			"slug": "architect",
			"name": "Architect",
			"deniedTools": ["shell"]
		},
		{
			"name": "No slug"
		}
	]
}`

func writeModes(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestStore_LoadsModesBySlug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom-modes.json")
	writeModes(t, path, sampleModes)

	store := NewStore(path)

	mode, ok := store.Get("researcher")
	require.True(t, ok)
	assert.Equal(t, "Researcher", mode.Name)
	assert.Equal(t, "You research things", mode.RoleDefinition)
	assert.Equal(t, "project", mode.Details()["source"])

	all := store.All()
	require.Len(t, all, 2, "entries without a slug are skipped")
	assert.Equal(t, "architect", all[0].Slug)
	assert.Equal(t, "researcher", all[1].Slug)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestStore_MissingFileIsEmpty(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope.json"))

	assert.Empty(t, store.All())

	n, err := store.Reload()
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_InvalidJSONIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom-modes.json")
	writeModes(t, path, `{"customModes": [`)

	store := NewStore(path)
	assert.Empty(t, store.All())

	_, err := store.Reload()
	assert.Error(t, err)
	assert.Empty(t, store.All())
}

func TestStore_CachesUntilInvalidated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom-modes.json")
	writeModes(t, path, sampleModes)

	store := NewStore(path)
	require.Len(t, store.All(), 2)

	writeModes(t, path, `{"customModes": [{"slug": "only"}]}`)
	assert.Len(t, store.All(), 2, "cached result served until invalidation")

	store.Invalidate()
	all := store.All()
	require.Len(t, all, 1)
	assert.Equal(t, "only", all[0].Slug)
}

func TestStore_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom-modes.json")
	writeModes(t, path, `{"customModes": [{"slug": "a"}]}`)

	store := NewStore(path)
	require.Len(t, store.All(), 1)

	writeModes(t, path, `{"customModes": [{"slug": "a"}, {"slug": "b"}]}`)
	n, err := store.Reload()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, store.All(), 2)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom-modes.json")
	writeModes(t, path, sampleModes)

	store := NewStore(path)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%5 == 0 {
				store.Invalidate()
			}
			_, _ = store.Get("researcher")
		}(i)
	}
	wg.Wait()

	_, ok := store.Get("researcher")
	assert.True(t, ok)
}

func TestModePolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom-modes.json")
	writeModes(t, path, sampleModes)
	store := NewStore(path)

	researcher, _ := store.Get("researcher")
	policy := researcher.Policy()
	require.NotNil(t, policy)
	assert.True(t, policy.IsToolAllowed("web_search"))
	assert.True(t, policy.IsToolAllowed("fs_read"))
	assert.False(t, policy.IsToolAllowed("shell"))

	architect, _ := store.Get("architect")
	policy = architect.Policy()
	require.NotNil(t, policy)
	assert.True(t, policy.IsToolAllowed("web_search"))
	assert.False(t, policy.IsToolAllowed("shell"))

	assert.Nil(t, Mode{Slug: "open"}.Policy())
}

func TestDefaultStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom-modes.json")
	writeModes(t, path, sampleModes)

	store := Configure(path)
	assert.Same(t, store, Default())
	assert.Equal(t, path, Default().Path())
	assert.Len(t, Default().All(), 2)
}
