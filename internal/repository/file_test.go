package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turtle-bot/internal/config"
	"turtle-bot/internal/model"
)

func sampleSnapshot() *model.Snapshot {
	created := time.Date(2024, 3, 10, 8, 30, 0, 123000, time.UTC)
	played := created.Add(90 * time.Minute)
	claimed := created.Add(26 * time.Hour)
	return &model.Snapshot{
		Pets: map[int64]*model.Pet{
			1001: {
				UserID: 1001, Username: "alice", Name: "Shelly", Level: 3, Experience: 12,
				Hunger: 80, Happiness: 65, Health: 100, Coins: 125,
				Inventory:    map[string]int{"fish": 2, "medicine": 1},
				LastPlayedAt:       &played,
				LastDailyClaimedAt: &claimed,
				CreatedAt:          created,
			},
			1002: {
				UserID: 1002, Username: "bob", Name: "Turtle", Level: 1,
				Hunger: 100, Happiness: 100, Health: 100, Coins: 50,
				Inventory: map[string]int{},
				CreatedAt: created,
			},
		},
		Leaderboard: []model.LeaderboardEntry{
			{UserID: 1001, DisplayName: "alice", Level: 3},
		},
	}
}

func assertSnapshotsEqual(t *testing.T, want, got *model.Snapshot) {
	t.Helper()
	require.Len(t, got.Pets, len(want.Pets))
	for id, w := range want.Pets {
		g, ok := got.Pets[id]
		require.True(t, ok, "pet %d missing", id)
		assert.Equal(t, w.UserID, g.UserID)
		assert.Equal(t, w.Username, g.Username)
		assert.Equal(t, w.Name, g.Name)
		assert.Equal(t, w.Level, g.Level)
		assert.Equal(t, w.Experience, g.Experience)
		assert.Equal(t, w.Hunger, g.Hunger)
		assert.Equal(t, w.Happiness, g.Happiness)
		assert.Equal(t, w.Health, g.Health)
		assert.Equal(t, w.Coins, g.Coins)
		assert.Equal(t, len(w.Inventory), len(g.Inventory))
		for item, n := range w.Inventory {
			assert.Equal(t, n, g.Inventory[item])
		}
		assert.True(t, w.CreatedAt.Equal(g.CreatedAt), "created_at %v != %v", w.CreatedAt, g.CreatedAt)
		assertSameInstant(t, w.LastPlayedAt, g.LastPlayedAt)
		assertSameInstant(t, w.LastDailyClaimedAt, g.LastDailyClaimedAt)
	}
	assert.Equal(t, want.Leaderboard, got.Leaderboard)
}

func assertSameInstant(t *testing.T, want, got *time.Time) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got)
		return
	}
	require.NotNil(t, got)
	assert.True(t, want.Equal(*got), "%v != %v", *want, *got)
}

func TestFileRepository_RoundTrip(t *testing.T) {
	for _, format := range []string{config.FormatJSON, config.FormatTOML} {
		t.Run(format, func(t *testing.T) {
			repo, err := NewFileRepository(t.TempDir(), format)
			require.NoError(t, err)
			ctx := context.Background()

			want := sampleSnapshot()
			require.NoError(t, repo.Save(ctx, want))

			got, err := repo.Load(ctx)
			require.NoError(t, err)
			require.NoError(t, got.Validate())
			assertSnapshotsEqual(t, want, got)
		})
	}
}

func TestFileRepository_TOMLTimestamps(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir(), config.FormatTOML)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleSnapshot()))

	data, err := os.ReadFile(repo.PetsPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "last_played_at = 2024-03-10T10:00:00")
	assert.NotContains(t, string(data), "last_played_at = '")

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got.Pets[1001].LastPlayedAt)
	require.NotNil(t, got.Pets[1001].LastDailyClaimedAt)
	assert.Nil(t, got.Pets[1002].LastPlayedAt, "zero datetime reads back as never")
	assert.Nil(t, got.Pets[1002].LastDailyClaimedAt)
	assert.Equal(t, time.UTC, got.Pets[1001].LastPlayedAt.Location())
}

func TestFileRepository_MissingFilesAreEmptyState(t *testing.T) {
	repo, err := NewFileRepository(filepath.Join(t.TempDir(), "not-yet"), config.FormatJSON)
	require.NoError(t, err)

	snap, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Pets)
	assert.Empty(t, snap.Leaderboard)
}

func TestFileRepository_SaveReplacesPrevious(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir(), config.FormatJSON)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleSnapshot()))
	require.NoError(t, repo.Save(ctx, model.NewSnapshot()))

	snap, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Pets)
	assert.Empty(t, snap.Leaderboard)
}

func TestFileRepository_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewFileRepository(dir, config.FormatTOML)
	require.NoError(t, err)

	require.NoError(t, repo.Save(context.Background(), sampleSnapshot()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"pets.toml", "leaderboard.toml"}, names)
}

func TestFileRepository_CorruptDocument(t *testing.T) {
	tests := []struct {
		name   string
		format string
		file   string
		data   string
	}{
		{"json syntax", config.FormatJSON, "pets.json", `{"pets": {`},
		{"json bad key", config.FormatJSON, "pets.json", `{"pets": {"abc": {"user_id": 1}}}`},
		{"json leaderboard", config.FormatJSON, "leaderboard.json", `[1, 2`},
		{"toml syntax", config.FormatTOML, "pets.toml", "[pets.1\nname = "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, tt.file), []byte(tt.data), 0o644))

			repo, err := NewFileRepository(dir, tt.format)
			require.NoError(t, err)

			_, err = repo.Load(context.Background())
			assert.ErrorIs(t, err, ErrCorruptState)
		})
	}
}

func TestFileRepository_StructurallyInvalidIsCaughtByValidate(t *testing.T) {
	dir := t.TempDir()
	doc := `{"pets": {"5": {"user_id": 6, "name": "x", "level": 1, "created_at": "2024-01-01T00:00:00Z"}}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pets.json"), []byte(doc), 0o644))

	repo, err := NewFileRepository(dir, config.FormatJSON)
	require.NoError(t, err)

	snap, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, snap.Validate(), model.ErrInvalidRecord)
}

func TestCodecFor(t *testing.T) {
	c, err := CodecFor("json")
	require.NoError(t, err)
	assert.Equal(t, "json", c.Ext())

	c, err = CodecFor("toml")
	require.NoError(t, err)
	assert.Equal(t, "toml", c.Ext())

	_, err = CodecFor("yaml")
	assert.Error(t, err)
}
