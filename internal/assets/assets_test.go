package assets

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prompthive/server/internal/storage"
)

func newService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	return NewService(storage.NewLocalStorage(dir)), dir
}

func TestSaveBase64(t *testing.T) {
	svc, dir := newService(t)
	ctx := context.Background()

	rel := svc.SaveBase64(ctx, base64.StdEncoding.EncodeToString([]byte("hello")), "pic.PNG")
	require.NotEmpty(t, rel)
	assert.True(t, strings.HasPrefix(rel, "imported/"))
	assert.True(t, strings.HasSuffix(rel, ".png"), "extension lowercased from original path, got %s", rel)

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestSaveBase64DataURI(t *testing.T) {
	svc, dir := newService(t)

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("pixels"))
	rel := svc.SaveBase64(context.Background(), uri, "")
	require.NotEmpty(t, rel)
	assert.True(t, strings.HasSuffix(rel, ".bin"), "no original extension falls back to .bin")

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(data))
}

func TestSaveBase64Corrupt(t *testing.T) {
	svc, _ := newService(t)

	assert.Empty(t, svc.SaveBase64(context.Background(), "!!!not-base64!!!", "x.png"))
	assert.Empty(t, svc.SaveBase64(context.Background(), "", "x.png"))
}

func TestInlineRoundTrip(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	rel := svc.SaveBase64(ctx, base64.StdEncoding.EncodeToString([]byte("round trip")), "a.jpg")
	require.NotEmpty(t, rel)

	encoded, ok := svc.Inline(ctx, rel)
	require.True(t, ok)
	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Equal(t, "round trip", string(raw))
}

func TestInlineMissing(t *testing.T) {
	svc, _ := newService(t)

	_, ok := svc.Inline(context.Background(), "imported/never-written.png")
	assert.False(t, ok)
	_, ok = svc.Inline(context.Background(), "")
	assert.False(t, ok)
}
