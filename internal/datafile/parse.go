package datafile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// supportedVersions lists the document versions this implementation
// understands. Anything else is rejected before indexing begins.
var supportedVersions = []string{"2", "3", "4"}

// SupportedVersions returns the set of datafile versions the service accepts.
// The slice is a copy; callers may not extend the supported set at runtime.
func SupportedVersions() []string {
	return slices.Clone(supportedVersions)
}

// DecodeError reports that the raw document could not be decoded: nil input,
// empty input, or structurally malformed JSON. It is fatal; no index is
// produced from it.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode datafile: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// UnsupportedVersionError reports that the document declares a version
// outside the supported set. It carries the offending version verbatim.
type UnsupportedVersionError struct {
	Version string
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported datafile version: %q", e.Version)
}

// Parse decodes a raw datafile payload into its entity collections.
//
// The order matters: decode, then the version gate, then collection
// defaulting. The version gate runs before any other work so that an
// unsupported document never reaches indexing. On success every collection
// of the returned Datafile is non-nil.
func Parse(raw []byte) (*Datafile, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &DecodeError{Err: errors.New("datafile is nil or empty")}
	}

	var df Datafile
	if err := json.Unmarshal(raw, &df); err != nil {
		return nil, &DecodeError{Err: err}
	}

	if !slices.Contains(supportedVersions, df.Version) {
		return nil, &UnsupportedVersionError{Version: df.Version}
	}

	df.applyDefaults()
	return &df, nil
}
