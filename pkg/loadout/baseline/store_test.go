package baseline_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modpack-tools/loadout/pkg/loadout/baseline"
	"github.com/modpack-tools/loadout/pkg/loadout/types"
)

func testBaseline(profileID string) *types.Baseline {
	return &types.Baseline{
		ProfileID:  profileID,
		ComputedAt: time.Unix(1700000000, 0).UTC(),
		Manifest: types.NewManifest([]types.ModEntry{
			{Name: "cup_vehicles", Files: []types.FileEntry{
				{Path: "addons/a.pbo", Size: 10, Digest: types.Digest("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")},
			}},
		}),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := baseline.NewStore(t.TempDir())

	require.NoError(t, store.Save(testBaseline("main")))

	got, err := store.Load("main")
	require.NoError(t, err)
	assert.Equal(t, "main", got.ProfileID)
	require.Len(t, got.Manifest.Mods, 1)
	assert.Equal(t, "cup_vehicles", got.Manifest.Mods[0].Name)

	sum, err := store.LoadSummary("main")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.FileCount)
	assert.Equal(t, int64(10), sum.TotalSize)
}

func TestStoreMissingProfile(t *testing.T) {
	store := baseline.NewStore(t.TempDir())

	_, err := store.Load("absent")
	assert.True(t, errors.Is(err, baseline.ErrNoBaseline))

	_, err = store.LoadSummary("absent")
	assert.True(t, errors.Is(err, baseline.ErrNoBaseline))
}

func TestStoreSaveOverwrites(t *testing.T) {
	store := baseline.NewStore(t.TempDir())

	require.NoError(t, store.Save(testBaseline("main")))

	updated := testBaseline("main")
	updated.Manifest = types.NewManifest(nil)
	require.NoError(t, store.Save(updated))

	got, err := store.Load("main")
	require.NoError(t, err)
	assert.Empty(t, got.Manifest.Mods)

	sum, err := store.LoadSummary("main")
	require.NoError(t, err)
	assert.Zero(t, sum.FileCount)
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	store := baseline.NewStore(t.TempDir())

	require.NoError(t, store.Save(testBaseline("main")))
	require.NoError(t, store.Delete("main"))
	require.NoError(t, store.Delete("main"))

	_, err := store.Load("main")
	assert.True(t, errors.Is(err, baseline.ErrNoBaseline))
}

func TestStoreList(t *testing.T) {
	store := baseline.NewStore(t.TempDir())

	ids, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, store.Save(testBaseline("alpha")))
	require.NoError(t, store.Save(testBaseline("beta")))

	ids, err = store.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, ids)
}
