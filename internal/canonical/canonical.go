// Package canonical derives a stable identity for URLs so that superficially
// different spellings of the same page compare equal during bookmark
// deduplication. The canonical form is for comparison only; display always
// uses the original URL.
package canonical

import (
	"net/url"
	"sort"
	"strings"
)

// trackingParams is the fixed denylist of query keys stripped during
// canonicalization, beyond the utm_* family.
var trackingParams = map[string]struct{}{
	"fbclid":  {},
	"gclid":   {},
	"igshid":  {},
	"mc_cid":  {},
	"mc_eid":  {},
	"ref_src": {},
	"spm":     {},
}

// URL canonicalizes raw. The second return is false when the input cannot be
// parsed as an absolute URL, in which case the value carries no opinion and
// must never be treated as a duplicate of anything.
//
// The transform is idempotent: feeding the output back in yields the same
// string.
func URL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", false
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Host = stripDefaultPort(u.Scheme, u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	// A bare host and a root slash are the same page.
	if u.Path == "" {
		u.Path = "/"
	}
	if len(u.Path) > 1 {
		u.Path = strings.TrimSuffix(u.Path, "/")
		u.RawPath = ""
	}

	u.RawQuery = canonicalQuery(u.Query())

	return u.String(), true
}

// Equal reports whether two raw URLs identify the same page. Unparsable
// inputs are never equal to anything, including themselves.
func Equal(a, b string) bool {
	ca, ok := URL(a)
	if !ok {
		return false
	}
	cb, ok := URL(b)
	if !ok {
		return false
	}
	return ca == cb
}

func stripDefaultPort(scheme, host string) string {
	switch {
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		return strings.TrimSuffix(host, ":80")
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		return strings.TrimSuffix(host, ":443")
	}
	return host
}

func canonicalQuery(values url.Values) string {
	for key := range values {
		if isTracking(key) {
			delete(values, key)
			continue
		}
		sort.Strings(values[key])
	}
	// Encode sorts keys; values were sorted above.
	return values.Encode()
}

func isTracking(key string) bool {
	lower := strings.ToLower(key)
	if strings.HasPrefix(lower, "utm_") {
		return true
	}
	_, denied := trackingParams[lower]
	return denied
}
