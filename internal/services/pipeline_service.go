// internal/services/pipeline_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stillhouse/shotlist/internal/bias"
	apperrors "github.com/stillhouse/shotlist/internal/errors"
	"github.com/stillhouse/shotlist/internal/models"
	"github.com/stillhouse/shotlist/internal/store"
	"github.com/stillhouse/shotlist/internal/utils"
)

// 各阶段固定的采样温度
const (
	parseTemperature   float32 = 0.3
	styleTemperature   float32 = 0.3
	shotsTemperature   float32 = 0.4
	rankingTemperature float32 = 0.3
)

// 用户提示中附带的剧本摘录长度
const (
	styleScriptExcerptLen = 2000
	shotsScriptExcerptLen = 4000
)

// PipelineService 实现四阶段受约束生成管线中的前三个阶段：
// 剧本→场景、外观词→风格档案、场景→镜头列表。
// 全部阶段都是先删后生成：作用域内的旧行在模型调用前删除，
// 生成失败不回滚删除，实体保持空子集直到下一次成功重试。
type PipelineService struct {
	store    *store.Store
	llm      *LLMService
	progress *ProgressService
}

// NewPipelineService 创建管线服务
func NewPipelineService(s *store.Store, llm *LLMService, progress *ProgressService) *PipelineService {
	return &PipelineService{
		store:    s,
		llm:      llm,
		progress: progress,
	}
}

func (p *PipelineService) publish(projectID, stage, status, message string) {
	if p.progress != nil {
		p.progress.Publish(projectID, stage, status, message)
	}
}

// observeStage 记录阶段耗时与结果计数
func observeStage(stage string, start time.Time, err error) {
	m := utils.GetMetrics()
	m.Histogram("pipeline." + stage + ".duration").Observe(time.Since(start))
	if err != nil {
		m.Counter("pipeline." + stage + ".failure").Inc()
	} else {
		m.Counter("pipeline." + stage + ".success").Inc()
	}
}

// ParseScript 将项目剧本拆解为场景。无条件先删除项目的全部旧场景；
// 场景号与顺序按模型给出的原样入库，本层不重新编号也不重新排序。
func (p *PipelineService) ParseScript(ctx context.Context, project *models.Project) (scenes []models.Scene, err error) {
	if strings.TrimSpace(project.ScriptText) == "" {
		return nil, apperrors.NewMissingInputError("项目没有剧本文本", nil)
	}

	start := time.Now()
	defer func() { observeStage(StageParseScript, start, err) }()

	p.publish(project.ID, StageParseScript, ProgressStarted, "开始解析剧本")

	if err := p.store.DeleteScenesByProject(project.ID); err != nil {
		p.publish(project.ID, StageParseScript, ProgressFailed, "删除旧场景失败")
		return nil, apperrors.NewProcessingError("删除旧场景失败", err)
	}

	raw, err := p.llm.CompleteJSON(ctx, JSONCompletionRequest{
		SystemPrompt: parseScriptSystemPrompt(),
		UserPrompt:   project.ScriptText,
		Temperature:  parseTemperature,
	})
	if err != nil {
		p.publish(project.ID, StageParseScript, ProgressFailed, "模型调用失败")
		return nil, apperrors.NewGenerationFailureError("剧本解析失败", err)
	}

	result, err := DecodeScenesResult(raw)
	if err != nil {
		p.publish(project.ID, StageParseScript, ProgressFailed, "响应解码失败")
		return nil, apperrors.NewGenerationFailureError("剧本解析响应不符合契约", err)
	}

	now := time.Now()
	scenes = make([]models.Scene, 0, len(result.Scenes))
	for _, sc := range result.Scenes {
		scenes = append(scenes, models.Scene{
			ID:          uuid.NewString(),
			ProjectID:   project.ID,
			SceneNumber: sc.SceneNumber,
			IntExt:      sc.IntExt,
			Location:    sc.Location,
			TimeOfDay:   sc.TimeOfDay,
			Characters:  sc.Characters,
			BeatSummary: sc.BeatSummary,
			CreatedAt:   now,
		})
	}

	if err := p.store.InsertScenes(scenes); err != nil {
		p.publish(project.ID, StageParseScript, ProgressFailed, "写入场景失败")
		return nil, apperrors.NewProcessingError("写入场景失败", err)
	}

	p.publish(project.ID, StageParseScript, ProgressDone,
		fmt.Sprintf("解析出%d个场景", len(scenes)))

	return scenes, nil
}

// GenerateStyleProfile 由外观词和约束生成风格档案并整体覆盖项目字段。
// 无删除步骤：风格档案是单个被覆盖的字段，不是子表。
func (p *PipelineService) GenerateStyleProfile(ctx context.Context, project *models.Project) (profile *models.StyleProfile, err error) {
	if len(project.LookWords) == 0 {
		return nil, apperrors.NewMissingInputError("项目没有外观词", nil)
	}

	start := time.Now()
	defer func() { observeStage(StageGenerateStyle, start, err) }()

	p.publish(project.ID, StageGenerateStyle, ProgressStarted, "开始生成风格档案")

	raw, err := p.llm.CompleteJSON(ctx, JSONCompletionRequest{
		SystemPrompt: styleSystemPrompt(),
		UserPrompt:   styleUserPrompt(project),
		Temperature:  styleTemperature,
	})
	if err != nil {
		p.publish(project.ID, StageGenerateStyle, ProgressFailed, "模型调用失败")
		return nil, apperrors.NewGenerationFailureError("风格档案生成失败", err)
	}

	result, err := DecodeStyleResult(raw)
	if err != nil {
		p.publish(project.ID, StageGenerateStyle, ProgressFailed, "响应解码失败")
		return nil, apperrors.NewGenerationFailureError("风格档案响应不符合契约", err)
	}

	if err := p.store.UpdateProjectFields(project.ID, map[string]interface{}{
		"style_profile": result.StyleProfile,
	}); err != nil {
		p.publish(project.ID, StageGenerateStyle, ProgressFailed, "写入风格档案失败")
		return nil, apperrors.NewProcessingError("写入风格档案失败", err)
	}

	p.publish(project.ID, StageGenerateStyle, ProgressDone, "风格档案已生成")

	return result.StyleProfile, nil
}

// GenerateShots 为单个场景生成镜头列表。场景必须属于该项目，否则按不存在处理。
// 只删除该场景的旧镜头；position_index按数组顺序从0密集赋值，
// 不信任shot_code里嵌的任何序号。
func (p *PipelineService) GenerateShots(ctx context.Context, project *models.Project, sceneID string) (shots []models.Shot, err error) {
	scene, err := p.store.SceneByID(sceneID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, apperrors.NewNotFoundError("场景不存在", nil)
		}
		return nil, apperrors.NewProcessingError("读取场景失败", err)
	}
	if scene.ProjectID != project.ID {
		return nil, apperrors.NewNotFoundError("场景不存在", nil)
	}

	start := time.Now()
	defer func() { observeStage(StageGenerateShots, start, err) }()

	p.publish(project.ID, StageGenerateShots, ProgressStarted,
		fmt.Sprintf("开始生成场景%d的镜头", scene.SceneNumber))

	if err := p.store.DeleteShotsByScene(scene.ID); err != nil {
		p.publish(project.ID, StageGenerateShots, ProgressFailed, "删除旧镜头失败")
		return nil, apperrors.NewProcessingError("删除旧镜头失败", err)
	}

	raw, err := p.llm.CompleteJSON(ctx, JSONCompletionRequest{
		SystemPrompt: shotsSystemPrompt(project),
		UserPrompt:   shotsUserPrompt(project, scene),
		Temperature:  shotsTemperature,
	})
	if err != nil {
		p.publish(project.ID, StageGenerateShots, ProgressFailed, "模型调用失败")
		return nil, apperrors.NewGenerationFailureError("镜头生成失败", err)
	}

	result, err := DecodeShotsResult(raw)
	if err != nil {
		p.publish(project.ID, StageGenerateShots, ProgressFailed, "响应解码失败")
		return nil, apperrors.NewGenerationFailureError("镜头响应不符合契约", err)
	}

	now := time.Now()
	shots = make([]models.Shot, 0, len(result.Shots))
	for i, sh := range result.Shots {
		shots = append(shots, models.Shot{
			ID:               uuid.NewString(),
			SceneID:          scene.ID,
			ShotCode:         sh.ShotCode,
			PositionIndex:    i,
			ShotSize:         sh.ShotSize,
			Angle:            sh.Angle,
			Movement:         sh.Movement,
			LensSuggestion:   sh.LensSuggestion,
			BlockingNotes:    sh.BlockingNotes,
			IntentText:       sh.IntentText,
			AudioNotes:       sh.AudioNotes,
			TimeCostEstimate: sh.TimeCostEstimate,
			ReferenceTargets: sh.ReferenceTargets,
			SearchPrompts:    sh.SearchPrompts,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}

	if err := p.store.InsertShots(shots); err != nil {
		p.publish(project.ID, StageGenerateShots, ProgressFailed, "写入镜头失败")
		return nil, apperrors.NewProcessingError("写入镜头失败", err)
	}

	p.publish(project.ID, StageGenerateShots, ProgressDone,
		fmt.Sprintf("生成了%d个镜头", len(shots)))

	return shots, nil
}

// ---------------------------------------------
// 提示词组装
// ---------------------------------------------

// 剧本解析只注入一行偏置摘要，不用完整注入块
func parseScriptSystemPrompt() string {
	return `You are a script breakdown assistant for indie narrative filmmakers. Parse the given screenplay into scenes.

Visual point of view: ` + bias.Summary + `
When writing beat summaries, favor observational and restrained emotional language. Describe what characters do and what tension exists, rather than using dramatic or cinematic framing language.

Return a JSON object with this exact structure:
{
  "scenes": [
    {
      "scene_number": 1,
      "int_ext": "INT" or "EXT" or "INT/EXT",
      "location": "APARTMENT - KITCHEN",
      "time_of_day": "NIGHT",
      "characters": ["CHARACTER_NAME_1", "CHARACTER_NAME_2"],
      "beat_summary": "A 1-2 sentence summary of the emotional/dramatic beat of this scene"
    }
  ]
}

Rules:
- Extract scene headings (slug lines) to determine INT/EXT, location, and time of day
- List all speaking or described characters in each scene
- Write beat summaries that focus on emotional/dramatic content, not just plot
- If the script doesn't use standard format, do your best to interpret it
- Number scenes sequentially starting from 1`
}

func styleSystemPrompt() string {
	return bias.InjectionBlock() + `

You are a cinematography consultant for indie narrative filmmakers. Based on the look/feel words and production constraints provided, generate a cohesive Style Profile.

The house personality above is the baseline. The user's look words refine it but do not override it. If look words conflict with the house personality, lean toward the house view.

The filmmaker is working with limited resources. Favor achievable, restrained choices. Prioritize emotional clarity over visual gimmicks.

Return a JSON object with this exact structure:
{
  "style_profile": {
    "camera_energy": "static" | "restrained" | "handheld" | "kinetic",
    "movement_frequency": "rare" | "occasional" | "frequent",
    "lens_bias": {
      "primary": "wide" | "normal" | "tele",
      "secondary": "wide" | "normal" | "tele"
    },
    "framing_bias": ["intimate", "observational", ...],
    "lighting_philosophy": {
      "key_style": "naturalistic" | "low-key" | "high-key",
      "source_bias": "motivated" | "practical-heavy" | "stylized",
      "contrast_level": "low" | "medium" | "high"
    },
    "color_bias": {
      "temperature": "warm" | "cool" | "neutral",
      "saturation": "muted" | "natural" | "heightened"
    },
    "texture": ["clean", "grainy", "raw", ...],
    "coverage_philosophy": "minimal" | "standard" | "safety",
    "directing_priorities": ["performance-first", "blocking-first", "camera-first"]
  }
}

Rules:
- framing_bias: 2-4 descriptors (intimate, observational, claustrophobic, detached, grounded, etc.)
- texture: 1-3 descriptors (clean, grainy, raw, polished, etc.)
- directing_priorities: ordered list of 1-3 priorities
- Choices should be internally consistent and reflect the look/feel words
- Consider the constraints: micro/low budgets favor naturalistic lighting, practical sources, and minimal coverage`
}

func styleUserPrompt(project *models.Project) string {
	var b strings.Builder
	b.WriteString("Look/feel words: ")
	b.WriteString(strings.Join(project.LookWords, ", "))
	b.WriteString("\nConstraints: Budget=")
	b.WriteString(project.Constraints.Budget)
	b.WriteString(", Crew=")
	b.WriteString(project.Constraints.CrewSize)
	b.WriteString(", Coverage=")
	b.WriteString(project.Constraints.CoverageMode)
	b.WriteString("\n\n")

	if project.ScriptText != "" {
		b.WriteString("Script excerpt (first 2000 chars): ")
		b.WriteString(truncate(project.ScriptText, styleScriptExcerptLen))
	} else {
		b.WriteString("No script available yet.")
	}

	return b.String()
}

func shotsSystemPrompt(project *models.Project) string {
	styleJSON := "Not yet defined — use sensible indie defaults."
	if project.StyleProfile != nil {
		if data, err := json.Marshal(project.StyleProfile); err == nil {
			styleJSON = string(data)
		}
	}

	return bias.InjectionBlock() + `

You are a shot list generator for indie narrative filmmakers. Generate a practical, crew-usable shot list for the given scene.

Style Profile: ` + styleJSON + `
Constraints: Budget=` + project.Constraints.Budget + `, Crew=` + project.Constraints.CrewSize + `, Coverage=` + project.Constraints.CoverageMode + `

Return a JSON object with this exact structure:
{
  "shots": [
    {
      "shot_code": "1A",
      "shot_size": "WS" | "MS" | "MCU" | "CU" | "ECU",
      "angle": "eye-level" | "low" | "high" | "OTS" | "POV" | "two-shot",
      "movement": "static" | "handheld" | "pan" | "tilt" | "push-in" | "pull-out",
      "lens_suggestion": "24mm" | "35mm" | "50mm" | "85mm",
      "blocking_notes": "Brief description of actor/camera blocking",
      "intent_text": "WHY this shot exists — the emotional/dramatic purpose",
      "audio_notes": "Any audio considerations",
      "time_cost_estimate": "quick" | "moderate" | "slow",
      "reference_targets": {
        "lighting": "description of target lighting look",
        "framing": "description of target framing",
        "movement": "description of target movement feel",
        "depth": "description of depth of field target",
        "texture": "description of texture/grain target"
      },
      "search_prompts": [
        "2-3 search prompts for finding reference images on stock photo sites"
      ]
    }
  ]
}

Rules:
- Every shot MUST have a clear intent_text explaining WHY it exists
- Favor achievable shots for indie crews (avoid crane, steadicam, complex rigs unless budget allows)
- Shot codes: scene number + letter (1A, 1B, 1C...)
- For minimal coverage: fewer shots, rely on masters and select coverage
- For standard coverage: balanced approach with key moments covered
- For safety coverage: more angles and safety takes
- Keep the shot list practical and crew-ready

Shot Generation Bias (from House Personality):
- Prefer static shots. Default to "static" movement unless emotional escalation demands otherwise.
- Prefer close proximity. Default to MCU or CU framing.
- Introduce movement only when emotional escalation is detected in the beat.
- Minimize redundant coverage. Each shot must justify its existence.
- If emotional intensity does not increase, do not add camera movement.

Search Prompt Rules (from House Personality):
- search_prompts MUST always include concepts aligned with: motivated/practical lighting, low-key/shadow-forward, close framing/tight proximity, static/still camera, muted/neutral color.
- search_prompts MUST NEVER include: "cinematic", "epic", "dynamic", "stylized", "high-energy".`
}

func shotsUserPrompt(project *models.Project, scene *models.Scene) string {
	characters := "None specified"
	if len(scene.Characters) > 0 {
		characters = strings.Join(scene.Characters, ", ")
	}
	beat := scene.BeatSummary
	if beat == "" {
		beat = "No beat summary"
	}
	script := "No script available"
	if project.ScriptText != "" {
		script = truncate(project.ScriptText, shotsScriptExcerptLen)
	}

	return fmt.Sprintf(`Scene %d: %s. %s — %s
Characters: %s
Beat: %s

Full script for context:
%s`,
		scene.SceneNumber, scene.IntExt, scene.Location, scene.TimeOfDay,
		characters, beat, script)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
