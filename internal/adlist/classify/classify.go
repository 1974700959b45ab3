// Package classify implements the Line Classifier: a pure function mapping
// one raw input line to a domain.ClassifiedLine. Dispatch follows a fixed,
// ordered sequence of rules (first match wins) covering hosts-file syntax,
// plain domains, ABP filter rules (including exception rules and a small
// repair table for malformed wildcard forms), and the canonical Pi-hole
// anchored regex forms.
package classify

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/nyxdns/adlistgen/internal/adlist/domain"
	"github.com/nyxdns/adlistgen/internal/adlist/idn"
)

const (
	maxLabelLen = 63
	maxHostLen  = 253
)

// defaultConverter memoizes IDN->punycode conversions. Memoization is
// transparent: the same input always yields the same output, so caching it
// does not give Line any observable mutable state.
var defaultConverter, _ = idn.New(4096)

var hostsFileIPTokens = map[string]bool{
	"0.0.0.0":   true,
	"127.0.0.1": true,
	"::":        true,
	"::1":       true,
	"fe80::1":   true,
}

var piholeForms = []*regexp.Regexp{
	regexp.MustCompile(`^\(\^\|\\\.\)((?:[A-Za-z0-9\-]|\\\.)+)\$$`),
	regexp.MustCompile(`^\^((?:[A-Za-z0-9\-]|\\\.)+)\$$`),
	regexp.MustCompile(`^\(\\\.\|\^\)((?:[A-Za-z0-9\-]|\\\.)+)\$$`),
}

// Line classifies a single raw input line. It has no I/O and no mutable
// state beyond the transparent IDN memoization cache described above.
func Line(raw string) domain.ClassifiedLine {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || isCommentPrefix(trimmed) || hasHTMLFragment(trimmed) {
		return domain.Skip()
	}

	trimmed = stripInlineComment(trimmed)
	if trimmed == "" {
		return domain.Skip()
	}

	if isElementHiding(trimmed) {
		return domain.Discard()
	}

	if strings.HasPrefix(trimmed, "@@") {
		body := trimmed[2:]
		repaired := repairBody(body)
		if host, ok := abpHost(repaired); ok {
			if h, ok2 := normalizeHost(host); ok2 {
				return domain.AbpAllowLine(h)
			}
		}
		return domain.Discard()
	}

	strippedOpts := stripTrailingOptions(trimmed)
	if strings.HasPrefix(trimmed, "||") || strings.HasSuffix(strippedOpts, "^") {
		repaired := repairBody(trimmed)
		if host, ok := abpHost(repaired); ok {
			if h, ok2 := normalizeHost(host); ok2 {
				return domain.AbpBlockLine(h)
			}
		}
		return domain.Discard()
	}

	if looksLikeRegex(trimmed) {
		if host, ok := tryPiholeRegex(trimmed); ok {
			if h, ok2 := normalizeHost(host); ok2 {
				return domain.AbpBlockLine(h)
			}
		}
		return domain.Discard()
	}

	if strings.HasPrefix(trimmed, "/") {
		if inner, ok := extractDelimited(trimmed); ok {
			if host, ok2 := tryPiholeRegex(inner); ok2 {
				if h, ok3 := normalizeHost(host); ok3 {
					return domain.AbpBlockLine(h)
				}
			}
		}
		return domain.Discard()
	}

	fields := strings.Fields(trimmed)
	if len(fields) > 0 && hostsFileIPTokens[fields[0]] {
		fields = stripLeadingIPTokens(fields)
		if len(fields) == 0 {
			return domain.Discard()
		}
		if h, ok := normalizeHost(fields[0]); ok {
			return domain.DomainLine(h)
		}
		return domain.Discard()
	}

	if h, ok := normalizeHost(trimmed); ok {
		return domain.DomainLine(h)
	}
	return domain.Discard()
}

func isCommentPrefix(s string) bool {
	return strings.HasPrefix(s, "#") || strings.HasPrefix(s, "!") ||
		strings.HasPrefix(s, "//") || strings.HasPrefix(s, ";")
}

func hasHTMLFragment(s string) bool {
	li := strings.IndexByte(s, '<')
	gi := strings.IndexByte(s, '>')
	return li >= 0 && gi > li
}

func stripInlineComment(s string) string {
	markers := []string{" #", " !", " //", " ;"}
	cut := -1
	for _, m := range markers {
		if idx := strings.Index(s, m); idx >= 0 && (cut == -1 || idx < cut) {
			cut = idx
		}
	}
	if cut >= 0 {
		return strings.TrimSpace(s[:cut])
	}
	return s
}

func isElementHiding(s string) bool {
	return strings.Contains(s, "#@?#") || strings.Contains(s, "#?#") ||
		strings.Contains(s, "#@#") || strings.Contains(s, "##")
}

// stripTrailingOptions removes a trailing "$opt1,opt2" suffix, which is not
// meaningful for DNS-level filtering.
func stripTrailingOptions(s string) string {
	idx := strings.IndexByte(s, '$')
	if idx < 0 {
		return s
	}
	opts := s[idx+1:]
	if opts == "" || !isOptionList(opts) {
		return s
	}
	return s[:idx]
}

func isOptionList(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == ',' || r == '=' || r == '~' || r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}

// repairBody applies the ABP repair table, in order and without composing
// repairs across multiple passes, to a candidate rule body (the raw line,
// or the payload after a leading "@@" has been stripped).
func repairBody(body string) string {
	body = stripTrailingOptions(body)

	// Single-pipe anchor: "|host^|" -> "||host^".
	if strings.HasPrefix(body, "|") && !strings.HasPrefix(body, "||") && strings.HasSuffix(body, "^|") {
		inner := strings.TrimSuffix(strings.TrimPrefix(body, "|"), "|")
		return "||" + inner
	}

	// Missing "||" prefix: a line that otherwise looks like a rule (ends in
	// "^") but lacks the anchor prefix.
	if !strings.HasPrefix(body, "||") && strings.HasSuffix(body, "^") {
		body = "||" + body
	}

	if strings.HasPrefix(body, "||") && strings.HasSuffix(body, "^") {
		inner := strings.TrimSuffix(strings.TrimPrefix(body, "||"), "^")

		// Insert missing dot after a leading wildcard: "*cdn.site" -> "*.cdn.site".
		if strings.HasPrefix(inner, "*") && !strings.HasPrefix(inner, "*.") {
			inner = "*." + inner[1:]
		}

		// Collapse a wildcard-only inner label: "app.*.adjust.com" -> "*.adjust.com".
		if idx := strings.Index(inner, ".*."); idx >= 0 {
			inner = "*" + inner[idx+2:]
		}

		// Drop an unsupported wildcard TLD: "domain.google.*" -> "domain.google".
		inner = strings.TrimSuffix(inner, ".*")

		body = "||" + inner + "^"
	}
	return body
}

// abpHost extracts the host from a repaired "||host^" body, if syntactically
// well-formed.
func abpHost(repaired string) (string, bool) {
	if strings.HasPrefix(repaired, "||") && strings.HasSuffix(repaired, "^") && len(repaired) > 3 {
		return strings.TrimSuffix(strings.TrimPrefix(repaired, "||"), "^"), true
	}
	return "", false
}

func looksLikeRegex(s string) bool {
	return strings.HasPrefix(s, "^") || strings.HasPrefix(s, "(")
}

func tryPiholeRegex(s string) (string, bool) {
	for _, re := range piholeForms {
		if m := re.FindStringSubmatch(s); m != nil {
			return strings.ReplaceAll(m[1], `\.`, "."), true
		}
	}
	return "", false
}

func extractDelimited(s string) (inner string, ok bool) {
	idx := strings.LastIndexByte(s, '/')
	if idx <= 0 {
		return "", false
	}
	inner = s[1:idx]
	for _, r := range s[idx+1:] {
		if !unicode.IsLetter(r) {
			return "", false
		}
	}
	return inner, true
}

func stripLeadingIPTokens(fields []string) []string {
	i := 0
	for i < len(fields) && hostsFileIPTokens[fields[i]] {
		i++
	}
	return fields[i:]
}

// normalizeHost lowercases, punycodes, and validates a host candidate,
// preserving a leading "*." wildcard marker if present.
func normalizeHost(candidate string) (string, bool) {
	wildcard := false
	if strings.HasPrefix(candidate, "*.") {
		wildcard = true
		candidate = candidate[2:]
	}
	candidate = strings.ToLower(strings.TrimSpace(candidate))
	if candidate == "" {
		return "", false
	}

	ascii, err := defaultConverter.ToASCII(candidate)
	if err != nil {
		return "", false
	}
	if ascii == "" || len(ascii) > maxHostLen {
		return "", false
	}

	labels := strings.Split(ascii, ".")
	for _, l := range labels {
		if l == "" || len(l) > maxLabelLen {
			return "", false
		}
		if strings.HasPrefix(l, "-") || strings.HasSuffix(l, "-") {
			return "", false
		}
		for _, r := range l {
			if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
				return "", false
			}
		}
	}

	if wildcard {
		return "*." + ascii, true
	}
	return ascii, true
}
