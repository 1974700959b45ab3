package domain

import (
	"fmt"
	"strings"
)

// SourceKind distinguishes how a Source's Location should be resolved.
type SourceKind uint8

const (
	// SourceRemote identifies an absolute HTTP/HTTPS URL.
	SourceRemote SourceKind = iota
	// SourceLocal identifies a filesystem path.
	SourceLocal
)

// String returns a stable string representation of the source kind.
func (k SourceKind) String() string {
	switch k {
	case SourceRemote:
		return "remote"
	case SourceLocal:
		return "local"
	default:
		return fmt.Sprintf("SourceKind(%d)", k)
	}
}

// Source is an immutable descriptor identifying one fetch input: either a
// remote URL or a local file path. Equality is by (Kind, Location).
type Source struct {
	Kind     SourceKind
	Location string
}

// NewRemoteSource constructs a Source for an absolute HTTP/HTTPS URL.
func NewRemoteSource(url string) (Source, error) {
	s := Source{Kind: SourceRemote, Location: strings.TrimSpace(url)}
	if err := s.Validate(); err != nil {
		return Source{}, err
	}
	return s, nil
}

// NewLocalSource constructs a Source for a filesystem path. Relative-path
// resolution is the caller's responsibility (see spec §6): this module
// treats Location as already resolved.
func NewLocalSource(path string) (Source, error) {
	s := Source{Kind: SourceLocal, Location: strings.TrimSpace(path)}
	if err := s.Validate(); err != nil {
		return Source{}, err
	}
	return s, nil
}

// Validate checks the Source for required fields and supported values.
func (s Source) Validate() error {
	if s.Location == "" {
		return fmt.Errorf("source location must not be empty")
	}
	switch s.Kind {
	case SourceRemote:
		if !strings.HasPrefix(s.Location, "http://") && !strings.HasPrefix(s.Location, "https://") {
			return fmt.Errorf("remote source must be an http(s) URL: %q", s.Location)
		}
	case SourceLocal:
		// no further constraint: the caller resolves relative paths.
	default:
		return fmt.Errorf("unsupported SourceKind: %d", s.Kind)
	}
	return nil
}

// IsRemote returns true when the source is a remote URL.
func (s Source) IsRemote() bool { return s.Kind == SourceRemote }

// IsLocal returns true when the source is a local file path.
func (s Source) IsLocal() bool { return s.Kind == SourceLocal }

// String renders the source in "kind:location" form, useful for logging and
// as the health journal's key.
func (s Source) String() string {
	return s.Kind.String() + ":" + s.Location
}
