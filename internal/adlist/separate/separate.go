// Package separate implements the cross-stream precedence rules between a
// normalized blocklist stream and a normalized allowlist stream.
package separate

import (
	"strings"

	"github.com/nyxdns/adlistgen/internal/adlist/domain"
)

// Separate applies the three cross-stream rules to already-normalized block
// and allow entries: exception rules still present in the blocklist stream
// are promoted into the allowlist, blocklist entries matching an allowlist
// host are dropped, and entries with an empty host are dropped from both.
// Allowlist wins unconditionally; there is no specificity comparison.
func Separate(block, allow []domain.Entry) (cleanBlock, cleanAllow []domain.Entry) {
	promoted := make([]domain.Entry, 0)
	remaining := make([]domain.Entry, 0, len(block))

	for _, e := range block {
		if e.Host == "" {
			continue
		}
		if e.Kind == domain.EntryABPAllow {
			if blocked, err := domain.NewEntry(domain.EntryABPBlock, e.Host); err == nil {
				promoted = append(promoted, blocked)
			}
			continue
		}
		remaining = append(remaining, e)
	}

	cleanAllow = make([]domain.Entry, 0, len(allow)+len(promoted))
	for _, e := range allow {
		if e.Host == "" {
			continue
		}
		cleanAllow = append(cleanAllow, e)
	}
	cleanAllow = append(cleanAllow, promoted...)

	allowHosts := make(map[string]bool, len(cleanAllow))
	for _, e := range cleanAllow {
		allowHosts[sameHostKey(e.Host)] = true
	}

	cleanBlock = make([]domain.Entry, 0, len(remaining))
	for _, e := range remaining {
		if allowHosts[sameHostKey(e.Host)] {
			continue
		}
		cleanBlock = append(cleanBlock, e)
	}

	return cleanBlock, cleanAllow
}

// sameHostKey strips a leading wildcard marker so "a.com" and "*.a.com"
// compare equal under the "same host" relation. Hosts are already
// punycoded and lowercased by the Line Classifier before reaching here.
func sameHostKey(host string) string {
	return strings.TrimPrefix(host, "*.")
}
