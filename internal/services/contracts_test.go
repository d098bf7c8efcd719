// internal/services/contracts_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeScenesResult(t *testing.T) {
	t.Run("valid response", func(t *testing.T) {
		raw := `{"scenes":[{"scene_number":1,"int_ext":"INT","location":"KITCHEN","time_of_day":"NIGHT","characters":["MARA"],"beat_summary":"Mara waits."}]}`

		result, err := DecodeScenesResult(raw)
		require.NoError(t, err)
		require.Len(t, result.Scenes, 1)
		assert.Equal(t, 1, result.Scenes[0].SceneNumber)
		assert.Equal(t, "INT", result.Scenes[0].IntExt)
		assert.Equal(t, []string{"MARA"}, result.Scenes[0].Characters)
	})

	t.Run("missing top-level key fails", func(t *testing.T) {
		_, err := DecodeScenesResult(`{"result":[]}`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "scenes")
	})

	t.Run("empty array is valid", func(t *testing.T) {
		result, err := DecodeScenesResult(`{"scenes":[]}`)
		require.NoError(t, err)
		assert.Empty(t, result.Scenes)
	})

	t.Run("not JSON fails", func(t *testing.T) {
		_, err := DecodeScenesResult(`scene one: interior kitchen`)
		assert.Error(t, err)
	})
}

func TestDecodeStyleResult(t *testing.T) {
	t.Run("valid response", func(t *testing.T) {
		raw := `{"style_profile":{"camera_energy":"restrained","movement_frequency":"rare","lens_bias":{"primary":"normal","secondary":"wide"},"framing_bias":["intimate"],"lighting_philosophy":{"key_style":"naturalistic","source_bias":"practical-heavy","contrast_level":"medium"},"color_bias":{"temperature":"cool","saturation":"muted"},"texture":["grainy"],"coverage_philosophy":"minimal","directing_priorities":["performance-first"]}}`

		result, err := DecodeStyleResult(raw)
		require.NoError(t, err)
		assert.Equal(t, "restrained", result.StyleProfile.CameraEnergy)
		assert.Equal(t, "normal", result.StyleProfile.LensBias.Primary)
		assert.Equal(t, "muted", result.StyleProfile.ColorBias.Saturation)
	})

	t.Run("missing style_profile fails", func(t *testing.T) {
		_, err := DecodeStyleResult(`{"profile":{}}`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "style_profile")
	})

	// 枚举字段不做深度校验，异常值透传
	t.Run("unknown enum values pass through", func(t *testing.T) {
		result, err := DecodeStyleResult(`{"style_profile":{"camera_energy":"frenetic"}}`)
		require.NoError(t, err)
		assert.Equal(t, "frenetic", result.StyleProfile.CameraEnergy)
	})
}

func TestDecodeShotsResult(t *testing.T) {
	t.Run("valid response", func(t *testing.T) {
		raw := `{"shots":[{"shot_code":"1A","shot_size":"MCU","angle":"eye-level","movement":"static","lens_suggestion":"50mm","intent_text":"Hold on stillness","time_cost_estimate":"quick","reference_targets":{"lighting":"single practical","framing":"tight","movement":"still","depth":"shallow","texture":"grain"},"search_prompts":["woman kitchen night practical light"]}]}`

		result, err := DecodeShotsResult(raw)
		require.NoError(t, err)
		require.Len(t, result.Shots, 1)
		assert.Equal(t, "1A", result.Shots[0].ShotCode)
		require.NotNil(t, result.Shots[0].ReferenceTargets)
		assert.Equal(t, "single practical", result.Shots[0].ReferenceTargets.Lighting)
		assert.Len(t, result.Shots[0].SearchPrompts, 1)
	})

	t.Run("missing shots fails", func(t *testing.T) {
		_, err := DecodeShotsResult(`{}`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "shots")
	})
}

func TestDecodeRankingResult(t *testing.T) {
	t.Run("valid response", func(t *testing.T) {
		raw := `{"selections":[{"index":2,"why_this_works":"Restrained single-source light."},{"index":0,"why_this_works":"Close, observational framing."}]}`

		result, err := DecodeRankingResult(raw)
		require.NoError(t, err)
		require.Len(t, result.Selections, 2)
		assert.Equal(t, 2, result.Selections[0].Index)
		assert.Equal(t, "Close, observational framing.", result.Selections[1].WhyThisWorks)
	})

	t.Run("missing selections fails", func(t *testing.T) {
		_, err := DecodeRankingResult(`{"choices":[]}`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "selections")
	})
}
