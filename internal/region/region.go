package region

import (
	"fmt"
	"strings"
)

// Filter is one upstream-recognized geographic/remote category used to scope
// a listing query. Only values from the recognized set may be sent upstream.
type Filter string

const (
	// Europe is the upstream "all of Europe" filter.
	Europe Filter = "EU"
	// Remote is a pseudo-region: the upstream API has no REMOTE country code
	// and must be queried with isRemote=true instead.
	Remote Filter = "REMOTE"
)

var countryCodes = []Filter{
	"AT", "BE", "BG", "CH", "CY", "CZ", "DE", "DK", "EE", "ES",
	"FI", "FR", "GB", "GR", "HR", "HU", "IE", "IT", "LT", "LU",
	"LV", "MT", "NL", "NO", "PL", "PT", "RO", "RS", "SE", "SI",
	"SK", "UA",
}

var recognized = func() map[Filter]struct{} {
	set := make(map[Filter]struct{}, len(countryCodes)+2)
	for _, c := range countryCodes {
		set[c] = struct{}{}
	}
	set[Europe] = struct{}{}
	set[Remote] = struct{}{}
	return set
}()

// All returns every recognized filter: the country codes, then Europe, then
// Remote. The order is stable; the aggregator's merge order depends on it.
func All() []Filter {
	out := make([]Filter, 0, len(countryCodes)+2)
	out = append(out, countryCodes...)
	out = append(out, Europe, Remote)
	return out
}

func IsValid(f Filter) bool {
	_, ok := recognized[f]
	return ok
}

// Parse converts user input into a recognized Filter or fails.
func Parse(raw string) (Filter, error) {
	f := Filter(strings.ToUpper(strings.TrimSpace(raw)))
	if f == "" {
		return "", fmt.Errorf("empty region filter")
	}
	if !IsValid(f) {
		return "", fmt.Errorf("unrecognized region filter %q", raw)
	}
	return f, nil
}
