package naming

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// CollisionResolver hands out output paths for a batch run. When two
// inputs derive the same output ("clip.flv" and "clip.mkv" both become
// "clip_compat.mp4"), the later one gets a "-2", "-3", ... suffix. Paths
// are compared in absolute form. All methods are goroutine-safe.
type CollisionResolver struct {
	mu       sync.Mutex
	owners   map[string]string // absolute output path → input path that owns it
	counters map[string]int    // requested output → next suffix to try
}

// NewCollisionResolver creates a ready-to-use resolver.
func NewCollisionResolver() *CollisionResolver {
	return &CollisionResolver{
		owners:   make(map[string]string),
		counters: make(map[string]int),
	}
}

// ClaimInputs reserves the batch's own source files so no other input's
// output can land on them. Each input owns only its own path.
func (cr *CollisionResolver) ClaimInputs(inputs []string) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	for _, in := range inputs {
		cr.owners[absKey(in)] = in
	}
}

// Resolve returns the output path input should write to. The requested
// path is returned as-is when unclaimed or already owned by input.
func (cr *CollisionResolver) Resolve(input, requested string) string {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if cr.claim(input, requested) {
		return requested
	}

	ext := filepath.Ext(requested)
	stem := strings.TrimSuffix(requested, ext)
	n := cr.counters[requested]
	if n < 2 {
		n = 2
	}
	for {
		candidate := fmt.Sprintf("%s-%d%s", stem, n, ext)
		if cr.claim(input, candidate) {
			cr.counters[requested] = n + 1
			return candidate
		}
		n++
	}
}

func (cr *CollisionResolver) claim(input, path string) bool {
	key := absKey(path)
	if owner, ok := cr.owners[key]; ok && owner != input {
		return false
	}
	cr.owners[key] = input
	return true
}

func absKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
