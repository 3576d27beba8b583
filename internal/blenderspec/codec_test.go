package blenderspec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDirectFormat(t *testing.T) {
	raw, err := json.Marshal(SubtaskSpec{
		Crops: []Crop{{
			BordersX:        [2]float64{0.0, 1.0},
			BordersY:        [2]float64{0.0, 0.5},
			OutFileBaseName: "out_",
		}},
		Samples:      64,
		Resolution:   [2]uint32{1920, 1080},
		Frames:       []uint32{3},
		OutputFormat: "PNG",
	})
	require.NoError(t, err)

	spec, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "out_0003.png", spec.ExpectedOutputFileName())
	assert.Equal(t, uint32(64), spec.Samples)
}

func TestDecodeLegacyFormat(t *testing.T) {
	legacyPayload := map[string]any{
		"frames":          []uint32{7},
		"outfilebasename": "frame_",
		"output_format":   "PNG",
		"scene_file":      "/golem/resources/scene.blend",
		"script_src": "" +
			"bpy.context.scene.render.resolution_x = 800\n" +
			"bpy.context.scene.render.resolution_y = 600\n" +
			"bpy.context.scene.render.border_min_x = 0.0\n" +
			"bpy.context.scene.render.border_max_x = 1.0\n" +
			"bpy.context.scene.render.border_min_y = 0.0\n" +
			"bpy.context.scene.render.border_max_y = 1.0\n" +
			"bpy.context.scene.render.use_compositing = bool(True)\n",
	}
	raw, err := json.Marshal(legacyPayload)
	require.NoError(t, err)

	spec, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, [2]uint32{800, 600}, spec.Resolution)
	assert.Equal(t, [2]float64{0.0, 1.0}, spec.Crops[0].BordersX)
	require.NotNil(t, spec.SceneFile)
	assert.Equal(t, "scene.blend", *spec.SceneFile, "NormalizePath should strip the golem resources prefix")
}

func TestDecodeLegacyMissingField(t *testing.T) {
	legacyPayload := map[string]any{
		"frames":          []uint32{1},
		"outfilebasename": "frame_",
		"output_format":   "PNG",
		"script_src": "" +
			"bpy.context.scene.render.resolution_x = 800\n" +
			"bpy.context.scene.render.resolution_y = 600\n" +
			"bpy.context.scene.render.border_min_x = 0.0\n" +
			"bpy.context.scene.render.border_min_y = 0.0\n" +
			"bpy.context.scene.render.border_max_y = 1.0\n",
	}
	raw, err := json.Marshal(legacyPayload)
	require.NoError(t, err)

	_, err = Decode(raw)
	assert.Error(t, err, "missing border_max_x should fail decoding")
}

func TestParseUseCompositingBoundaries(t *testing.T) {
	cases := map[string]struct {
		want    bool
		wantErr bool
	}{
		"True":        {want: true},
		"bool(True)":  {want: true},
		"False":       {want: false},
		"bool(False)": {want: false},
		"maybe":       {wantErr: true},
	}
	for in, c := range cases {
		got, err := parseUseCompositing(in)
		if c.wantErr {
			assert.Errorf(t, err, "%q: expected error", in)
			continue
		}
		assert.NoErrorf(t, err, "%q: unexpected error", in)
		assert.Equalf(t, c.want, got, "%q", in)
	}
}
