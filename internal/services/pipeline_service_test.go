// internal/services/pipeline_service_test.go
package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/stillhouse/shotlist/internal/errors"
)

const scenesResponseOne = `{"scenes":[
	{"scene_number":1,"int_ext":"INT","location":"KITCHEN","time_of_day":"NIGHT","characters":["MARA"],"beat_summary":"Mara waits."},
	{"scene_number":2,"int_ext":"EXT","location":"STREET","time_of_day":"DAWN","characters":["MARA","DEV"],"beat_summary":"Dev arrives too late."}
]}`

const shotsResponseTwo = `{"shots":[
	{"shot_code":"1A","shot_size":"MCU","angle":"eye-level","movement":"static","lens_suggestion":"50mm","intent_text":"Hold on Mara","time_cost_estimate":"quick","search_prompts":["kitchen night practical light"]},
	{"shot_code":"1B","shot_size":"CU","angle":"eye-level","movement":"static","lens_suggestion":"85mm","intent_text":"Her hands, not her face","time_cost_estimate":"quick","search_prompts":["hands table shadow"]}
]}`

const styleResponse = `{"style_profile":{
	"camera_energy":"restrained","movement_frequency":"rare",
	"lens_bias":{"primary":"normal","secondary":"wide"},
	"framing_bias":["intimate","observational"],
	"lighting_philosophy":{"key_style":"naturalistic","source_bias":"practical-heavy","contrast_level":"medium"},
	"color_bias":{"temperature":"cool","saturation":"muted"},
	"texture":["grainy"],"coverage_philosophy":"minimal",
	"directing_priorities":["performance-first"]
}}`

func TestParseScript(t *testing.T) {
	t.Run("empty script is rejected before any write", func(t *testing.T) {
		s := newTestStore(t)
		project := insertTestProject(t, s, testUserID)
		old := insertTestScene(t, s, project.ID, 1)

		llmService, provider := newFakeLLM()
		pipeline := NewPipelineService(s, llmService, nil)

		_, err := pipeline.ParseScript(context.Background(), project)
		require.Error(t, err)
		assert.True(t, apperrors.IsMissingInputError(err))
		assert.Equal(t, 0, provider.callCount())

		// 旧场景原样保留
		scenes, err := s.ScenesByProject(project.ID)
		require.NoError(t, err)
		require.Len(t, scenes, 1)
		assert.Equal(t, old.ID, scenes[0].ID)
	})

	t.Run("replaces previous scenes wholesale", func(t *testing.T) {
		s := newTestStore(t)
		project := insertTestProject(t, s, testUserID)
		project.ScriptText = "INT. KITCHEN - NIGHT\nMara waits.\n\nEXT. STREET - DAWN\nDev arrives."
		stale := insertTestScene(t, s, project.ID, 7)

		llmService, _ := newFakeLLM(scenesResponseOne)
		pipeline := NewPipelineService(s, llmService, nil)

		scenes, err := pipeline.ParseScript(context.Background(), project)
		require.NoError(t, err)
		require.Len(t, scenes, 2)

		stored, err := s.ScenesByProject(project.ID)
		require.NoError(t, err)
		require.Len(t, stored, 2)
		for _, sc := range stored {
			assert.NotEqual(t, stale.ID, sc.ID)
		}
		// 场景号按模型给出的原样入库
		assert.Equal(t, 1, stored[0].SceneNumber)
		assert.Equal(t, 2, stored[1].SceneNumber)
		assert.Equal(t, "STREET", stored[1].Location)
	})

	t.Run("generation failure leaves the project with no scenes", func(t *testing.T) {
		s := newTestStore(t)
		project := insertTestProject(t, s, testUserID)
		project.ScriptText = "INT. KITCHEN - NIGHT\nMara waits."
		insertTestScene(t, s, project.ID, 1)

		// 响应缺少scenes键，解码失败
		llmService, _ := newFakeLLM(`{"result":"ok"}`)
		pipeline := NewPipelineService(s, llmService, nil)

		_, err := pipeline.ParseScript(context.Background(), project)
		require.Error(t, err)
		assert.True(t, apperrors.IsGenerationFailureError(err))

		// 删除已提交且不回滚
		scenes, err := s.ScenesByProject(project.ID)
		require.NoError(t, err)
		assert.Empty(t, scenes)
	})
}

func TestGenerateStyleProfile(t *testing.T) {
	t.Run("persists the profile on the project", func(t *testing.T) {
		s := newTestStore(t)
		project := insertTestProject(t, s, testUserID)

		llmService, provider := newFakeLLM(styleResponse)
		pipeline := NewPipelineService(s, llmService, nil)

		profile, err := pipeline.GenerateStyleProfile(context.Background(), project)
		require.NoError(t, err)
		assert.Equal(t, "restrained", profile.CameraEnergy)

		stored, err := s.ProjectByID(project.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.StyleProfile)
		assert.Equal(t, "muted", stored.StyleProfile.ColorBias.Saturation)

		// 风格阶段注入完整偏置块
		sent := provider.lastRequest()
		assert.Contains(t, sent.SystemPrompt, "HOUSE VISUAL PERSONALITY")
		assert.InDelta(t, 0.3, sent.Temperature, 0.001)
	})

	t.Run("requires look words", func(t *testing.T) {
		s := newTestStore(t)
		project := insertTestProject(t, s, testUserID)
		project.LookWords = nil

		llmService, _ := newFakeLLM(styleResponse)
		pipeline := NewPipelineService(s, llmService, nil)

		_, err := pipeline.GenerateStyleProfile(context.Background(), project)
		require.Error(t, err)
		assert.True(t, apperrors.IsMissingInputError(err))
	})

	t.Run("failure keeps the previous profile", func(t *testing.T) {
		s := newTestStore(t)
		project := insertTestProject(t, s, testUserID)

		llmService, _ := newFakeLLM(styleResponse, `{"wrong_key":{}}`)
		pipeline := NewPipelineService(s, llmService, nil)

		_, err := pipeline.GenerateStyleProfile(context.Background(), project)
		require.NoError(t, err)

		project.LookWords = append(project.LookWords, "colder")
		_, err = pipeline.GenerateStyleProfile(context.Background(), project)
		require.Error(t, err)

		stored, err := s.ProjectByID(project.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.StyleProfile)
		assert.Equal(t, "restrained", stored.StyleProfile.CameraEnergy)
	})
}

func TestGenerateShots(t *testing.T) {
	t.Run("position index follows array order", func(t *testing.T) {
		s := newTestStore(t)
		project := insertTestProject(t, s, testUserID)
		project.ScriptText = "INT. KITCHEN - NIGHT\nMara waits."
		scene := insertTestScene(t, s, project.ID, 1)

		llmService, _ := newFakeLLM(shotsResponseTwo)
		pipeline := NewPipelineService(s, llmService, nil)

		shots, err := pipeline.GenerateShots(context.Background(), project, scene.ID)
		require.NoError(t, err)
		require.Len(t, shots, 2)
		assert.Equal(t, 0, shots[0].PositionIndex)
		assert.Equal(t, 1, shots[1].PositionIndex)
		assert.Equal(t, "1A", shots[0].ShotCode)
		assert.Equal(t, "1B", shots[1].ShotCode)
	})

	t.Run("replaces only the target scene's shots", func(t *testing.T) {
		s := newTestStore(t)
		project := insertTestProject(t, s, testUserID)
		project.ScriptText = "INT. KITCHEN - NIGHT\nMara waits."
		sceneA := insertTestScene(t, s, project.ID, 1)
		sceneB := insertTestScene(t, s, project.ID, 2)
		staleA := insertTestShot(t, s, sceneA.ID, 0, nil)
		keptB := insertTestShot(t, s, sceneB.ID, 0, nil)

		llmService, _ := newFakeLLM(shotsResponseTwo)
		pipeline := NewPipelineService(s, llmService, nil)

		_, err := pipeline.GenerateShots(context.Background(), project, sceneA.ID)
		require.NoError(t, err)

		shotsA, err := s.ShotsByScene(sceneA.ID)
		require.NoError(t, err)
		require.Len(t, shotsA, 2)
		for _, sh := range shotsA {
			assert.NotEqual(t, staleA.ID, sh.ID)
		}

		shotsB, err := s.ShotsByScene(sceneB.ID)
		require.NoError(t, err)
		require.Len(t, shotsB, 1)
		assert.Equal(t, keptB.ID, shotsB[0].ID)
	})

	t.Run("scene from another project reads as not found", func(t *testing.T) {
		s := newTestStore(t)
		project := insertTestProject(t, s, testUserID)
		project.ScriptText = "INT. KITCHEN - NIGHT"
		other := insertTestProject(t, s, "user-other")
		otherScene := insertTestScene(t, s, other.ID, 1)

		llmService, provider := newFakeLLM(shotsResponseTwo)
		pipeline := NewPipelineService(s, llmService, nil)

		_, err := pipeline.GenerateShots(context.Background(), project, otherScene.ID)
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFoundError(err))
		assert.Equal(t, 0, provider.callCount())
	})

	t.Run("system prompt carries the style profile", func(t *testing.T) {
		s := newTestStore(t)
		project := insertTestProject(t, s, testUserID)
		project.ScriptText = "INT. KITCHEN - NIGHT\nMara waits."
		scene := insertTestScene(t, s, project.ID, 1)

		llmService, provider := newFakeLLM(styleResponse, shotsResponseTwo)
		pipeline := NewPipelineService(s, llmService, nil)

		profile, err := pipeline.GenerateStyleProfile(context.Background(), project)
		require.NoError(t, err)
		project.StyleProfile = profile

		_, err = pipeline.GenerateShots(context.Background(), project, scene.ID)
		require.NoError(t, err)

		sent := provider.lastRequest()
		assert.Contains(t, sent.SystemPrompt, `"camera_energy":"restrained"`)
		assert.InDelta(t, 0.4, sent.Temperature, 0.001)
		assert.False(t, strings.Contains(sent.SystemPrompt, "Not yet defined"))
	})
}
