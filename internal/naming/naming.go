// Package naming derives datasource and component names and checks them
// against the names already present in a store.
package naming

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nexdatas/nxstools/internal/model"
	"github.com/pkg/errors"
)

// Generate returns prefix followed by every index of [first, last], padded to
// two digits unless minimal is set.
func Generate(prefix string, first, last int, minimal bool) ([]string, error) {
	if strings.TrimSpace(prefix) == "" {
		return nil, errors.Wrap(model.ErrWrongParameter, "name prefix is empty")
	}

	if first > last {
		return nil, errors.Wrap(model.ErrWrongParameter, fmt.Sprintf("first index %d is greater than last index %d", first, last))
	}

	names := make([]string, 0, last-first+1)

	for i := first; i <= last; i++ {
		if minimal {
			names = append(names, prefix+strconv.Itoa(i))
			continue
		}

		names = append(names, fmt.Sprintf("%s%02d", prefix, i))
	}

	return names, nil
}

// Default returns the last non-empty segment of a device path, lower-cased
// when lower is set.
func Default(device string, lower bool) string {
	segments := strings.Split(strings.TrimSpace(device), "/")

	name := ""
	for i := len(segments) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(segments[i]); s != "" {
			name = s
			break
		}
	}

	if lower {
		name = strings.ToLower(name)
	}

	return name
}

// Apply lower-cases name when lower is set.
func Apply(name string, lower bool) string {
	if lower {
		return strings.ToLower(name)
	}

	return name
}

// Collisions returns the names that are already present in existing, sorted.
func Collisions(existing, names []string) []string {
	present := make(map[string]bool, len(existing))
	for _, n := range existing {
		present[n] = true
	}

	found := map[string]bool{}
	for _, n := range names {
		if present[n] {
			found[n] = true
		}
	}

	out := make([]string, 0, len(found))
	for n := range found {
		out = append(out, n)
	}

	sort.Strings(out)

	return out
}

// Check fails with a collision error of kind when any of names already exists
// and overwrite is off. Components collide with ErrComponentExists, everything
// else with ErrNameCollision.
func Check(existing, names []string, overwrite bool, kind model.DocumentKind) error {
	if overwrite {
		return nil
	}

	clash := Collisions(existing, names)
	if len(clash) == 0 {
		return nil
	}

	sentinel := model.ErrNameCollision
	if kind == model.KindComponent {
		sentinel = model.ErrComponentExists
	}

	return errors.Wrap(sentinel, fmt.Sprintf("%s %s already exist", kind, strings.Join(clash, ", ")))
}

// Unique drops repeated names keeping the first occurrence and returns the
// dropped ones.
func Unique(names []string) (kept, dropped []string) {
	seen := map[string]bool{}

	for _, n := range names {
		if seen[n] {
			dropped = append(dropped, n)
			continue
		}

		seen[n] = true
		kept = append(kept, n)
	}

	return kept, dropped
}
