package domain

// RawFetchResult is the Fetcher's output for a single Source: either bytes
// or an error, never both. Produced once, consumed once by the Normalizer,
// then discarded.
type RawFetchResult struct {
	Source Source
	Bytes  []byte
	Err    error
}

// Failed reports whether this fetch attempt ended in an error.
func (r RawFetchResult) Failed() bool { return r.Err != nil }
