package token

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// Prefix marks creation tokens on the wire.
	Prefix = "crt_"
	// EntryPrefix marks local pending entry ids. Entry ids never leave the process.
	EntryPrefix = "pe_"

	tokenSuffixLen = 8
	entrySuffixLen = 6
)

// Source is the random source used for token suffixes. *rand.Rand satisfies it.
type Source interface {
	Uint64N(n uint64) uint64
}

type globalSource struct{}

func (globalSource) Uint64N(n uint64) uint64 { return rand.Uint64N(n) }

// Generator produces creation tokens of the form crt_<millis base36><random base36>.
//
// Uniqueness is probabilistic: two tokens only collide when they share the
// same millisecond and the same random suffix. There is no central allocator
// and no collision detection.
type Generator struct {
	mu  sync.Mutex
	now func() time.Time
	src Source
}

// NewGenerator returns a Generator using the wall clock and a randomly seeded source.
func NewGenerator() *Generator {
	return NewGeneratorWith(time.Now, globalSource{})
}

// NewGeneratorWith is used by tests to pin the clock and the random source.
func NewGeneratorWith(now func() time.Time, src Source) *Generator {
	if now == nil {
		now = time.Now
	}
	if src == nil {
		src = globalSource{}
	}
	return &Generator{now: now, src: src}
}

// Token returns a fresh creation token.
func (g *Generator) Token() string {
	return g.next(Prefix, tokenSuffixLen)
}

// EntryID returns a fresh local entry id.
func (g *Generator) EntryID() string {
	return g.next(EntryPrefix, entrySuffixLen)
}

func (g *Generator) next(prefix string, suffixLen int) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	millis := g.now().UnixMilli()
	if millis < 0 {
		millis = 0
	}
	return prefix + strconv.FormatInt(millis, 36) + g.suffix(suffixLen)
}

// suffix returns suffixLen base36 digits, zero padded.
func (g *Generator) suffix(n int) string {
	limit := uint64(1)
	for i := 0; i < n; i++ {
		limit *= 36
	}
	s := strconv.FormatUint(g.src.Uint64N(limit), 36)
	if len(s) < n {
		s = strings.Repeat("0", n-len(s)) + s
	}
	return s
}

// Valid reports whether s looks like a creation token.
func Valid(s string) bool {
	if !strings.HasPrefix(s, Prefix) || len(s) <= len(Prefix) {
		return false
	}
	for _, r := range s[len(Prefix):] {
		if !(r >= '0' && r <= '9') && !(r >= 'a' && r <= 'z') && r != '_' && r != '-' {
			return false
		}
	}
	return true
}
