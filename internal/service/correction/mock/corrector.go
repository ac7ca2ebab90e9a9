// Package mock provides a scriptable correction.Corrector for development and
// tests without an LLM key.
package mock

import (
	"context"
	"strings"
	"sync"
	"time"

	"transcript-search-service/internal/service/correction"
)

// Corrector simulates an LLM editor.
//
// By default it restores common Spanish accents (see Accents) and leaves the
// separator count intact. Failure modes can be switched on per call number to
// exercise the fail-closed paths.
type Corrector struct {
	mu    sync.Mutex
	calls int

	// Transform rewrites the request text. Defaults to Accentuate.
	Transform func(string) string
	// Delay simulates latency; honours context cancellation.
	Delay time.Duration
	// FailOn returns an error for the given 1-based call numbers.
	FailOn map[int]error
	// DropSeparatorOn removes one separator from the reply on these calls.
	DropSeparatorOn map[int]bool
}

// New creates a mock corrector with the default accent transform.
func New() *Corrector {
	return &Corrector{Transform: Accentuate}
}

// Calls returns how many times Correct was invoked.
func (c *Corrector) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Correct implements correction.Corrector.
func (c *Corrector) Correct(ctx context.Context, req correction.Request) (string, error) {
	c.mu.Lock()
	c.calls++
	n := c.calls
	err := c.FailOn[n]
	drop := c.DropSeparatorOn[n]
	transform := c.Transform
	c.mu.Unlock()

	if c.Delay > 0 {
		select {
		case <-time.After(c.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}

	if transform == nil {
		transform = Accentuate
	}
	out := transform(req.Text)
	if drop && req.Separator != "" {
		out = strings.Replace(out, req.Separator, "", 1)
	}
	return out, nil
}

// Accents maps unaccented Spanish words commonly emitted by ASR to their
// corrected spelling.
var Accents = map[string]string{
	"dias":    "días",
	"como":    "cómo",
	"estas":   "estás",
	"esta":    "está",
	"tambien": "también",
	"aqui":    "aquí",
	"mas":     "más",
	"despues": "después",
	"popayan": "Popayán",
	"bogota":  "Bogotá",
	"manana":  "mañana",
	"ano":     "año",
	"musica":  "música",
}

// Accentuate replaces known unaccented words, keeping surrounding spacing.
func Accentuate(text string) string {
	fields := strings.Fields(text)
	for i, f := range fields {
		if fixed, ok := Accents[strings.ToLower(f)]; ok {
			fields[i] = fixed
		}
	}
	return strings.Join(fields, " ")
}
