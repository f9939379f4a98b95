// Package history persists console scrollback per server in a durable
// key-value store, bounded by a byte ceiling with oldest-first eviction.
package history

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"ovpnconsole/internal/storage"
)

// DefaultMaxBytes is the ceiling on a server's serialized scrollback (25 MiB).
const DefaultMaxBytes = 25 * 1024 * 1024

// History reads and writes newline-joined scrollback keyed by server id.
type History struct {
	store    storage.Store
	maxBytes int
	logger   zerolog.Logger
}

// New wraps store. A non-positive maxBytes selects DefaultMaxBytes.
func New(store storage.Store, maxBytes int, logger zerolog.Logger) *History {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &History{store: store, maxBytes: maxBytes, logger: logger}
}

// MaxBytes returns the configured ceiling.
func (h *History) MaxBytes() int {
	return h.maxBytes
}

// Persist trims lines to the ceiling and writes them under serverID.
// It returns the lines that were actually stored.
func (h *History) Persist(ctx context.Context, serverID string, lines []string) ([]string, error) {
	kept := Trim(lines, h.maxBytes)
	if dropped := len(lines) - len(kept); dropped > 0 {
		h.logger.Debug().
			Str("server", serverID).
			Int("dropped", dropped).
			Int("kept", len(kept)).
			Msg("scrollback over ceiling, evicted oldest lines")
	}
	if err := h.store.Put(ctx, serverID, strings.Join(kept, "\n")); err != nil {
		return kept, fmt.Errorf("persist scrollback: %w", err)
	}
	return kept, nil
}

// Load returns the stored lines for serverID. A missing entry or any read
// error yields an empty, non-nil slice.
func (h *History) Load(ctx context.Context, serverID string) []string {
	content, ok, err := h.store.Get(ctx, serverID)
	if err != nil {
		h.logger.Warn().Err(err).Str("server", serverID).Msg("load scrollback failed, starting empty")
		return []string{}
	}
	if !ok || content == "" {
		return []string{}
	}
	return strings.Split(content, "\n")
}

// Clear deletes the stored scrollback for serverID. Clearing a server with
// no history is not an error.
func (h *History) Clear(ctx context.Context, serverID string) error {
	if err := h.store.Delete(ctx, serverID); err != nil {
		return fmt.Errorf("clear scrollback: %w", err)
	}
	return nil
}

// Size returns the serialized byte size of the stored scrollback.
func (h *History) Size(ctx context.Context, serverID string) (int, error) {
	content, _, err := h.store.Get(ctx, serverID)
	if err != nil {
		return 0, fmt.Errorf("read scrollback: %w", err)
	}
	return len(content), nil
}

// Servers lists the server ids that have stored scrollback.
func (h *History) Servers(ctx context.Context) ([]string, error) {
	return h.store.Keys(ctx)
}

// Export writes the stored scrollback for serverID to w, one line per entry.
func (h *History) Export(ctx context.Context, serverID string, w io.Writer) (int, error) {
	lines := h.Load(ctx, serverID)
	for _, line := range lines {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return 0, fmt.Errorf("write scrollback: %w", err)
		}
	}
	return len(lines), nil
}

// Trim drops lines from the front until the newline-joined size of the
// remainder is at most maxBytes. The input slice is not modified.
func Trim(lines []string, maxBytes int) []string {
	size := SerializedSize(lines)
	start := 0
	for size > maxBytes && start < len(lines) {
		size -= len(lines[start])
		if start < len(lines)-1 {
			size-- // separator after the dropped line
		}
		start++
	}
	out := make([]string, len(lines)-start)
	copy(out, lines[start:])
	return out
}

// SerializedSize is len(strings.Join(lines, "\n")) without building the string.
func SerializedSize(lines []string) int {
	if len(lines) == 0 {
		return 0
	}
	n := len(lines) - 1
	for _, l := range lines {
		n += len(l)
	}
	return n
}
