package blenderspec

import (
	"encoding/json"

	"github.com/prekucki/gu-blender-mediator/internal/xerrors"
)

// Decode turns a subtask's extra_data payload into a normalized SubtaskSpec.
// It tries the direct (modern) JSON encoding first and only falls back to
// the legacy script encoding if that fails, mirroring
// original_source/src/blender.rs's decode(extra_data).
func Decode(extraData []byte) (*SubtaskSpec, error) {
	var direct SubtaskSpec
	if err := json.Unmarshal(extraData, &direct); err == nil && direct.valid() {
		direct.NormalizePath()
		return &direct, nil
	}

	var legacy legacySpec
	if err := json.Unmarshal(extraData, &legacy); err != nil {
		return nil, xerrors.Wrap(err, "extra_data matches neither the direct nor legacy subtask encoding")
	}

	spec, err := legacy.toSpec()
	if err != nil {
		return nil, xerrors.Wrap(err, "failed to decode legacy subtask script")
	}
	spec.NormalizePath()
	return &spec, nil
}

// valid reports whether a SubtaskSpec decoded from the direct encoding
// actually carries the fields that make it a direct-format payload, as
// opposed to an empty struct produced by unmarshaling a legacy payload
// that happens not to error (e.g. {} with no recognized fields).
func (s SubtaskSpec) valid() bool {
	return len(s.Crops) > 0 && len(s.Frames) > 0
}
