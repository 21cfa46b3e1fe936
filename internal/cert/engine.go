package cert

import (
	"crypto"
	"crypto/rand"
	"io"
	"time"
)

// DefaultClockSkew is how far NotBefore is backdated from the requested
// start of validity, so verifiers with a slow clock still accept the
// certificate.
const DefaultClockSkew = 24 * time.Hour

// Engine issues certificates. It holds configuration only; concurrent use
// is safe.
type Engine struct {
	rand io.Reader
	now  func() time.Time
	hash crypto.Hash
	skew time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the randomness source for keys, serials and signatures.
func WithRand(r io.Reader) Option {
	return func(e *Engine) { e.rand = r }
}

// WithClock sets the clock used when a request has no ValidFrom.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithHash sets the default signature digest.
func WithHash(h crypto.Hash) Option {
	return func(e *Engine) { e.hash = h }
}

// WithClockSkew sets how far NotBefore is backdated.
func WithClockSkew(d time.Duration) Option {
	return func(e *Engine) { e.skew = d }
}

// NewEngine creates an Engine with the given options applied over the defaults.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		rand: rand.Reader,
		now:  time.Now,
		hash: crypto.SHA512,
		skew: DefaultClockSkew,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewDefaultEngine creates an Engine using crypto/rand, the system clock and SHA-512.
func NewDefaultEngine() *Engine {
	return NewEngine()
}
