package merge

import (
	"fmt"
	"strings"
	"time"
)

// generatorURL identifies this project in the header so a reader landing on
// the generated file can find the repo that produced it.
const generatorURL = "https://github.com/nyxdns/adlistgen"

// Header is the regenerated metadata block written atop every output file.
// It is never preserved across writes: every write recomputes Header from
// the final, post-dedup entry set.
type Header struct {
	Title       string
	GeneratedAt time.Time
	Total       int
	Domains     int
	ABPRules    int
	Sources     int
}

// Render produces the header as a contiguous run of "#"-prefixed lines,
// terminated by a blank "#" line, per spec §6.
func (h Header) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", h.Title)
	fmt.Fprintf(&b, "# generated by %s\n", generatorURL)
	fmt.Fprintf(&b, "# generated %s\n", h.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z"))
	fmt.Fprintf(&b, "# total: %d\n", h.Total)
	fmt.Fprintf(&b, "# domains: %d\n", h.Domains)
	fmt.Fprintf(&b, "# abp-rules: %d\n", h.ABPRules)
	fmt.Fprintf(&b, "# sources: %d\n", h.Sources)
	b.WriteString("#\n")
	return b.String()
}

// isHeaderLine reports whether a raw output line is part of the header
// block rather than a data entry, so a prior file can be re-read without
// classifying its own header as content.
func isHeaderLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "#")
}
