package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// ConsoleSink writes digests to a writer, stdout by default
type ConsoleSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleSink creates a console sink; a nil writer means stdout
func NewConsoleSink(w io.Writer) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleSink{w: w}
}

// Send prints the digest followed by a separator line
func (c *ConsoleSink) Send(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintf(c.w, "%s\n%s\n", strings.TrimRight(text, "\n"), strings.Repeat("=", 40)); err != nil {
		return fmt.Errorf("failed to write digest: %w", err)
	}
	return nil
}
