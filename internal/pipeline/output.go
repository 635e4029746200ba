package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
)

// outputResolver assigns each input a path under the output directory,
// keeping the input's file name. When two inputs from different
// directories share a name, later ones get a " - dupN" suffix.
type outputResolver struct {
	dir      string
	owners   map[string]string // output path -> input path that owns it
	counters map[string]int    // requested output path -> next dup counter
}

func newOutputResolver(dir string) *outputResolver {
	return &outputResolver{
		dir:      dir,
		owners:   make(map[string]string),
		counters: make(map[string]int),
	}
}

// Resolve returns the output path for input. Without an output directory
// the command is only rendered, so the path sits next to the input with a
// ".normalized" suffix.
func (r *outputResolver) Resolve(input string) string {
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	if r.dir == "" {
		return filepath.Join(filepath.Dir(input), stem+".normalized"+ext)
	}

	requested := filepath.Join(r.dir, base)
	owner, exists := r.owners[requested]
	if !exists || owner == input {
		r.owners[requested] = input
		return requested
	}

	counter := r.counters[requested]
	if counter == 0 {
		counter = 1
	}
	for {
		candidate := filepath.Join(r.dir, fmt.Sprintf("%s - dup%d%s", stem, counter, ext))
		cOwner, cExists := r.owners[candidate]
		if !cExists || cOwner == input {
			r.counters[requested] = counter + 1
			r.owners[candidate] = input
			return candidate
		}
		counter++
	}
}

// samePath reports whether a and b name the same file once made absolute.
func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}
