// Package techid mints the human-readable PREFIX-N identifiers used for
// cross-document prompt references. The counter behind each prefix lives in
// the store and is bumped with a single atomic upsert, so concurrent imports
// minting against the same prefix never collide.
package techid

import (
	"context"
	"fmt"
	"strings"

	"github.com/prompthive/server/internal/store"
)

const (
	maxPrefixLen  = 4
	minPrefixLen  = 3
	padRune       = 'X'
	genericPrefix = "GEN"
)

type Minter struct {
	store store.Store
}

func NewMinter(s store.Store) *Minter {
	return &Minter{store: s}
}

// DerivePrefix turns a seed name (typically a collection title) into a 3-4
// character uppercase alphanumeric prefix.
func DerivePrefix(seed string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(seed) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == maxPrefixLen {
				break
			}
		}
	}
	prefix := b.String()
	if prefix == "" {
		return genericPrefix
	}
	for len(prefix) < minPrefixLen {
		prefix += string(padRune)
	}
	return prefix
}

func (m *Minter) Mint(ctx context.Context, seed string) (string, error) {
	prefix := DerivePrefix(seed)
	n, err := m.store.IncrementSequence(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("mint technical id: %w", err)
	}
	return fmt.Sprintf("%s-%d", prefix, n), nil
}
