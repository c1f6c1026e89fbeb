// Package assets moves binary payloads between their JSON form (base64 inlined
// in import/export documents) and files under the uploads root.
package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"path"
	"strings"
	"time"

	"github.com/prompthive/server/internal/storage"
)

type Service struct {
	storage storage.Storage
}

func NewService(store storage.Storage) *Service {
	return &Service{storage: store}
}

// SaveBase64 decodes data, writes it under the uploads root and returns the new
// relative path. Failures are logged and yield ""; an import record keeps going
// without its image rather than failing entirely.
func (s *Service) SaveBase64(ctx context.Context, data, originalPath string) string {
	if data == "" {
		return ""
	}
	// Tolerate data-URI prefixes from browser exports.
	if i := strings.Index(data, "base64,"); i >= 0 {
		data = data[i+len("base64,"):]
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		slog.Warn("asset decode failed", "error", err)
		return ""
	}

	name := fmt.Sprintf("%d-%04d%s", time.Now().UnixMilli(), rand.Intn(10000), inferExt(originalPath))
	rel := path.Join("imported", name)
	if err := s.storage.Upload(ctx, rel, bytes.NewReader(raw)); err != nil {
		slog.Warn("asset write failed", "path", rel, "error", err)
		return ""
	}
	return rel
}

// Remove deletes a stored file. Missing files are not an error; the reference
// may predate the uploads root or point outside it.
func (s *Service) Remove(ctx context.Context, relPath string) {
	if relPath == "" {
		return
	}
	if err := s.storage.Delete(ctx, relPath); err != nil {
		slog.Debug("asset delete failed", "path", relPath, "error", err)
	}
}

// Inline reads a stored file back as base64 for embedding in an export.
func (s *Service) Inline(ctx context.Context, relPath string) (string, bool) {
	if relPath == "" {
		return "", false
	}
	r, err := s.storage.Download(ctx, relPath)
	if err != nil {
		slog.Warn("asset read failed", "path", relPath, "error", err)
		return "", false
	}
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		slog.Warn("asset read failed", "path", relPath, "error", err)
		return "", false
	}
	return base64.StdEncoding.EncodeToString(raw), true
}

func inferExt(originalPath string) string {
	ext := path.Ext(originalPath)
	if ext == "" || len(ext) > 8 {
		return ".bin"
	}
	return strings.ToLower(ext)
}
