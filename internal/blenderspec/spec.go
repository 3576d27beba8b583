// Package blenderspec normalizes the two wire encodings a subtask's
// extra_data can arrive in (a modern direct JSON encoding and a legacy
// Blender-script encoding) into one SubtaskSpec shape, so everything
// downstream of decode only ever sees one format. See
// original_source/src/blender.rs for the source this is grounded on.
package blenderspec

import (
	"fmt"
	"strings"
)

// Crop describes one render region and the file name its output is
// written under.
type Crop struct {
	BordersX        [2]float64 `json:"borders_x"`
	BordersY        [2]float64 `json:"borders_y"`
	OutFileBaseName string     `json:"outfilebasename"`
}

// SubtaskSpec is the normalized, internal shape of a Blender subtask
// specification, regardless of which wire encoding it arrived in.
type SubtaskSpec struct {
	Crops        []Crop   `json:"crops"`
	Samples      uint32   `json:"samples"`
	Resolution   [2]uint32 `json:"resolution"`
	Frames       []uint32 `json:"frames"`
	SceneFile    *string  `json:"scene_file,omitempty"`
	OutputFormat string   `json:"output_format"`
}

const golemResourcesPrefix = "/golem/resources"

// NormalizePath strips a leading "/golem/resources/" prefix from SceneFile,
// if present. Invariant: after this call scene_file never begins with that
// prefix (spec.md §3, invariant 4).
func (s *SubtaskSpec) NormalizePath() {
	if s.SceneFile == nil {
		return
	}
	f := *s.SceneFile
	if strings.HasPrefix(f, golemResourcesPrefix) {
		stripped := f[len(golemResourcesPrefix):]
		stripped = strings.TrimPrefix(stripped, "/")
		s.SceneFile = &stripped
	}
}

// ExpectedOutputFileName returns the file name the first crop of the first
// frame will be written under. Precondition: Frames is non-empty and Crops
// is non-empty (undefined behavior otherwise, matching the Rust source's
// use of .next().unwrap()).
func (s *SubtaskSpec) ExpectedOutputFileName() string {
	frame := s.Frames[0]
	crop := s.Crops[0]
	return fmt.Sprintf("%s%04d.png", crop.OutFileBaseName, frame)
}

// String renders a short human-readable summary, mirroring the Rust
// source's Display impl for BlenderSubtaskSpec.
func (s *SubtaskSpec) String() string {
	scene := "<none>"
	if s.SceneFile != nil {
		scene = *s.SceneFile
	}
	return fmt.Sprintf("BlenderTaskSpec (scene: %s, frames: %v, res: %v)", scene, s.Frames, s.Resolution)
}
