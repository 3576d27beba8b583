package blenderspec

import (
	"regexp"
	"strconv"

	"github.com/prekucki/gu-blender-mediator/internal/xerrors"
)

// legacySpec is the old wire encoding: frame list plus a free-form Blender
// Python script whose assignments carry resolution/border/compositing
// values. Grounded on original_source/src/blender.rs's OldBlenderTaskSpec.
type legacySpec struct {
	Frames          []uint32 `json:"frames"`
	OutFileBaseName string   `json:"outfilebasename"`
	OutputFormat    string   `json:"output_format"`
	SceneFile       *string  `json:"scene_file"`
	ScriptSrc       string   `json:"script_src"`
}

var scriptAssignment = regexp.MustCompile(`bpy\.context\.scene\.render\.([a-zA-Z0-9_]+)\s*=\s*(\S+)`)

// scriptData accumulates the fields the legacy codec cares about out of
// the script source. All six geometric fields are required; use_compositing
// is optional and currently unused downstream but validated for parity
// with the source format.
type scriptData struct {
	resolutionX  *uint32
	resolutionY  *uint32
	borderMaxX   *float64
	borderMinX   *float64
	borderMaxY   *float64
	borderMinY   *float64
	useComposite *bool
}

// MissingFieldError reports a required legacy script field that never
// appeared in script_src.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "missing field: " + e.Field
}

func parseScript(src string) (scriptData, error) {
	var data scriptData
	for _, m := range scriptAssignment.FindAllStringSubmatch(src, -1) {
		key, val := m[1], m[2]
		if err := data.update(key, val); err != nil {
			return scriptData{}, err
		}
	}
	return data, nil
}

func (d *scriptData) update(key, val string) error {
	switch key {
	case "resolution_x":
		v, err := strconv.ParseUint(val, 10, 32)
		if err != nil {
			return xerrors.Wrapf(err, "invalid resolution_x=%q", val)
		}
		u := uint32(v)
		d.resolutionX = &u
	case "resolution_y":
		v, err := strconv.ParseUint(val, 10, 32)
		if err != nil {
			return xerrors.Wrapf(err, "invalid resolution_y=%q", val)
		}
		u := uint32(v)
		d.resolutionY = &u
	case "border_max_x":
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return xerrors.Wrapf(err, "invalid border_max_x=%q", val)
		}
		d.borderMaxX = &v
	case "border_min_x":
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return xerrors.Wrapf(err, "invalid border_min_x=%q", val)
		}
		d.borderMinX = &v
	case "border_max_y":
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return xerrors.Wrapf(err, "invalid border_max_y=%q", val)
		}
		d.borderMaxY = &v
	case "border_min_y":
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return xerrors.Wrapf(err, "invalid border_min_y=%q", val)
		}
		d.borderMinY = &v
	case "use_compositing":
		b, err := parseUseCompositing(val)
		if err != nil {
			return err
		}
		d.useComposite = &b
	}
	return nil
}

func parseUseCompositing(val string) (bool, error) {
	switch val {
	case "True", "bool(True)":
		return true, nil
	case "False", "bool(False)":
		return false, nil
	default:
		return false, xerrors.Newf("invalid use_compositing=%q", val)
	}
}

func (d *scriptData) require(val *uint32, name string) (uint32, error) {
	if val == nil {
		return 0, &MissingFieldError{Field: name}
	}
	return *val, nil
}

func (d *scriptData) requireF(val *float64, name string) (float64, error) {
	if val == nil {
		return 0, &MissingFieldError{Field: name}
	}
	return *val, nil
}

// toSpec converts a parsed legacy script into the normalized SubtaskSpec
// shape, matching original_source/src/blender.rs's OldBlenderTaskSpec::into_spec.
func (s legacySpec) toSpec() (SubtaskSpec, error) {
	data, err := parseScript(s.ScriptSrc)
	if err != nil {
		return SubtaskSpec{}, err
	}

	resX, err := data.require(data.resolutionX, "resolution_x")
	if err != nil {
		return SubtaskSpec{}, err
	}
	resY, err := data.require(data.resolutionY, "resolution_y")
	if err != nil {
		return SubtaskSpec{}, err
	}
	minX, err := data.requireF(data.borderMinX, "border_min_x")
	if err != nil {
		return SubtaskSpec{}, err
	}
	maxX, err := data.requireF(data.borderMaxX, "border_max_x")
	if err != nil {
		return SubtaskSpec{}, err
	}
	minY, err := data.requireF(data.borderMinY, "border_min_y")
	if err != nil {
		return SubtaskSpec{}, err
	}
	maxY, err := data.requireF(data.borderMaxY, "border_max_y")
	if err != nil {
		return SubtaskSpec{}, err
	}

	return SubtaskSpec{
		Samples:      0,
		Resolution:   [2]uint32{resX, resY},
		Frames:       s.Frames,
		SceneFile:    s.SceneFile,
		OutputFormat: s.OutputFormat,
		Crops: []Crop{{
			BordersX:        [2]float64{minX, maxX},
			BordersY:        [2]float64{minY, maxY},
			OutFileBaseName: s.OutFileBaseName,
		}},
	}, nil
}
