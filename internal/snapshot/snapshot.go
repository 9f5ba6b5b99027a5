// Package snapshot persists the rendered artifacts of accounts that could not
// be resolved, so extraction can be replayed offline with `extract`.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/JakeFAU/profile-image-resolver/internal/avatar"
)

const (
	markupSuffix = ".html"
	netlogSuffix = ".netlog.json"
)

// BlobStore is the storage backend a Writer uploads to.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Writer lays out snapshots as <prefix>/<run_id>/<account>.html and
// <prefix>/<run_id>/<account>.netlog.json.
type Writer struct {
	store  BlobStore
	prefix string
}

// NewWriter returns a Writer that uploads under prefix.
func NewWriter(store BlobStore, prefix string) (*Writer, error) {
	if store == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	return &Writer{store: store, prefix: strings.Trim(prefix, "/")}, nil
}

// Save uploads the page markup and, when the page carries one, its network
// log. It returns the URIs written.
func (w *Writer) Save(ctx context.Context, runID string, page *avatar.Page) ([]string, error) {
	if page == nil {
		return nil, nil
	}
	base := w.objectBase(runID, page.Account)

	uri, err := w.store.PutObject(ctx, base+markupSuffix, "text/html; charset=utf-8", strings.NewReader(page.Markup))
	if err != nil {
		return nil, fmt.Errorf("save markup for %s: %w", page.Account, err)
	}
	uris := []string{uri}

	if page.Log == nil {
		return uris, nil
	}
	entries, err := page.Log.Entries()
	if errors.Is(err, avatar.ErrLogUnsupported) {
		return uris, nil
	}
	if err != nil {
		return uris, fmt.Errorf("read network log for %s: %w", page.Account, err)
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return uris, fmt.Errorf("encode network log: %w", err)
	}
	uri, err = w.store.PutObject(ctx, base+netlogSuffix, "application/json", bytes.NewReader(payload))
	if err != nil {
		return uris, fmt.Errorf("save network log for %s: %w", page.Account, err)
	}
	return append(uris, uri), nil
}

func (w *Writer) objectBase(runID, account string) string {
	name := sanitize(account)
	if name == "" {
		name = "_"
	}
	return path.Join(w.prefix, sanitize(runID), name)
}

// sanitize keeps object names to a single path segment.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '_' || r == '-' || r == '.':
			return r
		default:
			return '_'
		}
	}, strings.Trim(s, "."))
}
