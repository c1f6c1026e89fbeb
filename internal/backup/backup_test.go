package backup

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prompthive/server/internal/assets"
	"github.com/prompthive/server/internal/storage"
	"github.com/prompthive/server/internal/store"
	"github.com/prompthive/server/internal/store/storetest"
	"github.com/prompthive/server/internal/transfer"
)

func newTestService(t *testing.T) (*Service, *storetest.Memory, string) {
	t.Helper()
	mem := storetest.NewMemory()
	dir := t.TempDir()
	svc := NewService(mem, assets.NewService(storage.NewLocalStorage(t.TempDir())), dir)
	return svc, mem, dir
}

func seedAccount(t *testing.T, mem *storetest.Memory, owner uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	_, err := mem.CreateTag(ctx, "urgent", "red")
	require.NoError(t, err)

	imp := transfer.NewImporter(mem, assets.NewService(storage.NewLocalStorage(t.TempDir())))
	res, err := imp.Import(ctx, owner, []transfer.RawPrompt{
		{Title: "Keeper", Content: "body", Tags: transfer.StringList{"urgent"}, Collection: "Archive", TechnicalID: "ARCH-1"},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)

	require.NoError(t, mem.UpsertSettings(ctx, owner, json.RawMessage(`{"theme":"dark"}`)))
}

func TestRunWritesSnapshot(t *testing.T) {
	svc, mem, dir := newTestService(t)
	owner := mem.AddUser("a@example.com")
	seedAccount(t, mem, owner)

	name, err := svc.Run(context.Background(), owner)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, FileSuffix))

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, owner, snap.UserID)
	assert.Len(t, snap.Prompts, 1)
	require.Len(t, snap.Tags, 1)
	assert.Equal(t, TagDef{Name: "urgent", Color: "red"}, snap.Tags[0])
	assert.JSONEq(t, `{"theme":"dark"}`, string(snap.Settings))
}

func TestFilesNewestFirst(t *testing.T) {
	svc, _, dir := newTestService(t)

	for _, name := range []string{
		"2024-01-01T00-00-00" + FileSuffix,
		"2025-06-15T12-30-00" + FileSuffix,
		"2023-11-30T23-59-59" + FileSuffix,
		"unrelated.json",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644))
	}

	files, err := svc.Files()
	require.NoError(t, err)
	require.Len(t, files, 3, "only snapshot files are listed")
	assert.Equal(t, "2025-06-15T12-30-00"+FileSuffix, files[0])
	assert.Equal(t, "2023-11-30T23-59-59"+FileSuffix, files[2])
}

func TestFilesEmptyDir(t *testing.T) {
	mem := storetest.NewMemory()
	svc := NewService(mem, assets.NewService(storage.NewLocalStorage(t.TempDir())), filepath.Join(t.TempDir(), "never-created"))

	files, err := svc.Files()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestRestoreReplacesData(t *testing.T) {
	svc, mem, _ := newTestService(t)
	owner := mem.AddUser("a@example.com")
	seedAccount(t, mem, owner)
	ctx := context.Background()

	_, err := svc.Run(ctx, owner)
	require.NoError(t, err)

	// Data created after the snapshot must not survive the restore.
	_, err = mem.CreatePrompt(ctx, store.CreatePromptParams{
		OwnerID:  owner,
		Title:    "Straggler",
		Versions: []store.CreateVersionParams{{VersionNumber: 1, Content: "x"}},
	})
	require.NoError(t, err)

	res, err := svc.Restore(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)

	_, err = mem.PromptByTitle(ctx, owner, "Straggler")
	assert.ErrorIs(t, err, store.ErrNotFound)

	restored, err := mem.PromptByTitle(ctx, owner, "Keeper")
	require.NoError(t, err)
	assert.Equal(t, "ARCH-1", restored.TechnicalID)
	require.Len(t, restored.Tags, 1)
	assert.Equal(t, "red", restored.Tags[0].Color, "tag colors come back from the snapshot")
	require.Len(t, restored.Collections, 1)
	assert.Equal(t, "Archive", restored.Collections[0].Title)

	settings, err := mem.SettingsByOwner(ctx, owner)
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"dark"}`, string(settings.Data))
}

func TestRestoreRefusesForeignSnapshot(t *testing.T) {
	svc, mem, dir := newTestService(t)
	owner := mem.AddUser("a@example.com")
	stranger := uuid.New()

	snap := Snapshot{UserID: stranger}
	snap.Version = 2
	data, err := json.Marshal(snap)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2025-01-01T00-00-00"+FileSuffix), data, 0o644))

	_, err = svc.Restore(context.Background(), owner)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another user")

	// Nothing was touched.
	prompts, err := mem.PromptsByOwner(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, prompts)
}

func TestRestoreNoSnapshot(t *testing.T) {
	svc, mem, _ := newTestService(t)
	owner := mem.AddUser("a@example.com")

	_, err := svc.Restore(context.Background(), owner)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no backup file")
}
