package web_fetch

import (
	"net/url"
	"strings"
)

// Query parameters that only identify the referrer. They never change the
// page and defeat upstream caches.
var trackingParams = map[string]struct{}{
	"gclid":   {},
	"dclid":   {},
	"fbclid":  {},
	"msclkid": {},
	"igshid":  {},
	"mc_eid":  {},
	"ref_src": {},
}

// stripTracking lowercases the host, drops default ports and fragments and
// removes utm_* and click-id parameters. Remaining parameters keep their order.
func stripTracking(u *url.URL) *url.URL {
	out := *u
	out.Scheme = strings.ToLower(out.Scheme)
	host := strings.ToLower(out.Host)
	if h, port, ok := strings.Cut(host, ":"); ok && !strings.Contains(port, ":") {
		if (out.Scheme == "http" && port == "80") || (out.Scheme == "https" && port == "443") {
			host = h
		}
	}
	out.Host = host
	out.Fragment = ""
	out.RawFragment = ""

	if out.RawQuery == "" {
		return &out
	}
	kept := make([]string, 0, 4)
	for _, pair := range strings.Split(out.RawQuery, "&") {
		if pair == "" {
			continue
		}
		key, _, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		key = strings.ToLower(key)
		if strings.HasPrefix(key, "utm_") {
			continue
		}
		if _, drop := trackingParams[key]; drop {
			continue
		}
		kept = append(kept, pair)
	}
	out.RawQuery = strings.Join(kept, "&")
	return &out
}
