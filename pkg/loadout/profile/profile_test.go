package profile_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modpack-tools/loadout/pkg/loadout/profile"
)

func TestValidateID(t *testing.T) {
	valid := []string{"main", "arma-main", "test_2", "a"}
	for _, id := range valid {
		assert.NoError(t, profile.ValidateID(id), id)
	}

	invalid := []string{"", "Main", "has space", "../escape", "-leading", "x" + string(make([]byte, 100))}
	for _, id := range invalid {
		assert.Error(t, profile.ValidateID(id), id)
	}
}

func TestStoreCreateAndGet(t *testing.T) {
	store := profile.NewStore(t.TempDir())

	require.NoError(t, store.Create(profile.Profile{
		ID:      "main",
		Root:    "/games/arma3/mods",
		RepoURL: "https://repo.example.com/main",
	}))

	got, err := store.Get("main")
	require.NoError(t, err)
	assert.Equal(t, "/games/arma3/mods", got.Root)
	assert.Equal(t, "https://repo.example.com/main", got.RepoURL)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestStoreCreateDuplicate(t *testing.T) {
	store := profile.NewStore(t.TempDir())

	require.NoError(t, store.Create(profile.Profile{ID: "main", Root: "/a"}))
	err := store.Create(profile.Profile{ID: "main", Root: "/b"})
	assert.True(t, errors.Is(err, profile.ErrExists))
}

func TestStoreGetMissing(t *testing.T) {
	store := profile.NewStore(t.TempDir())

	_, err := store.Get("absent")
	assert.True(t, errors.Is(err, profile.ErrNotFound))
}

func TestStoreUpdatePreservesCreatedAt(t *testing.T) {
	store := profile.NewStore(t.TempDir())

	require.NoError(t, store.Create(profile.Profile{ID: "main", Root: "/old"}))
	created, err := store.Get("main")
	require.NoError(t, err)

	require.NoError(t, store.Update(profile.Profile{ID: "main", Root: "/new"}))

	got, err := store.Get("main")
	require.NoError(t, err)
	assert.Equal(t, "/new", got.Root)
	assert.Equal(t, created.CreatedAt, got.CreatedAt)
}

func TestStoreDelete(t *testing.T) {
	store := profile.NewStore(t.TempDir())

	require.NoError(t, store.Create(profile.Profile{ID: "main", Root: "/a"}))
	require.NoError(t, store.Delete("main"))

	_, err := store.Get("main")
	assert.True(t, errors.Is(err, profile.ErrNotFound))

	assert.True(t, errors.Is(store.Delete("main"), profile.ErrNotFound))
}

func TestStoreList(t *testing.T) {
	store := profile.NewStore(t.TempDir())

	profiles, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, profiles)

	require.NoError(t, store.Create(profile.Profile{ID: "beta", Root: "/b"}))
	require.NoError(t, store.Create(profile.Profile{ID: "alpha", Root: "/a"}))

	profiles, err = store.List()
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "alpha", profiles[0].ID)
	assert.Equal(t, "beta", profiles[1].ID)
}
