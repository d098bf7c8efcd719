// internal/services/contracts.go
package services

import (
	"encoding/json"
	"fmt"

	"github.com/stillhouse/shotlist/internal/models"
)

// 四个阶段各有一个严格的JSON响应契约。解码策略：按对象解码并
// 索引预期的顶层键，键缺失即失败；枚举字段值不做深度校验，
// 异常值作为自由文本透传入库（已知的宽松策略）。

// ScenesResult 剧本解析阶段的响应契约
type ScenesResult struct {
	Scenes []SceneResult `json:"scenes"`
}

type SceneResult struct {
	SceneNumber int      `json:"scene_number"`
	IntExt      string   `json:"int_ext"`
	Location    string   `json:"location"`
	TimeOfDay   string   `json:"time_of_day"`
	Characters  []string `json:"characters"`
	BeatSummary string   `json:"beat_summary"`
}

// StyleResult 风格档案阶段的响应契约
type StyleResult struct {
	StyleProfile *models.StyleProfile `json:"style_profile"`
}

// ShotsResult 镜头生成阶段的响应契约
type ShotsResult struct {
	Shots []ShotResult `json:"shots"`
}

type ShotResult struct {
	ShotCode         string                   `json:"shot_code"`
	ShotSize         string                   `json:"shot_size"`
	Angle            string                   `json:"angle"`
	Movement         string                   `json:"movement"`
	LensSuggestion   string                   `json:"lens_suggestion"`
	BlockingNotes    string                   `json:"blocking_notes"`
	IntentText       string                   `json:"intent_text"`
	AudioNotes       string                   `json:"audio_notes"`
	TimeCostEstimate string                   `json:"time_cost_estimate"`
	ReferenceTargets *models.ReferenceTargets `json:"reference_targets"`
	SearchPrompts    []string                 `json:"search_prompts"`
}

// RankingResult 参考图排序阶段的响应契约。
// 期望3条，但消费方必须容忍更多或更少。
type RankingResult struct {
	Selections []RankingSelection `json:"selections"`
}

type RankingSelection struct {
	Index        int    `json:"index"`
	WhyThisWorks string `json:"why_this_works"`
}

// DecodeScenesResult 解码剧本解析响应，scenes键缺失即失败
func DecodeScenesResult(raw string) (*ScenesResult, error) {
	var envelope struct {
		Scenes *[]SceneResult `json:"scenes"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, fmt.Errorf("响应不是合法的JSON对象: %w", err)
	}
	if envelope.Scenes == nil {
		return nil, fmt.Errorf("响应缺少顶层键 %q", "scenes")
	}
	return &ScenesResult{Scenes: *envelope.Scenes}, nil
}

// DecodeStyleResult 解码风格档案响应，style_profile键缺失即失败
func DecodeStyleResult(raw string) (*StyleResult, error) {
	var envelope struct {
		StyleProfile *models.StyleProfile `json:"style_profile"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, fmt.Errorf("响应不是合法的JSON对象: %w", err)
	}
	if envelope.StyleProfile == nil {
		return nil, fmt.Errorf("响应缺少顶层键 %q", "style_profile")
	}
	return &StyleResult{StyleProfile: envelope.StyleProfile}, nil
}

// DecodeShotsResult 解码镜头生成响应，shots键缺失即失败
func DecodeShotsResult(raw string) (*ShotsResult, error) {
	var envelope struct {
		Shots *[]ShotResult `json:"shots"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, fmt.Errorf("响应不是合法的JSON对象: %w", err)
	}
	if envelope.Shots == nil {
		return nil, fmt.Errorf("响应缺少顶层键 %q", "shots")
	}
	return &ShotsResult{Shots: *envelope.Shots}, nil
}

// DecodeRankingResult 解码排序响应，selections键缺失即失败
func DecodeRankingResult(raw string) (*RankingResult, error) {
	var envelope struct {
		Selections *[]RankingSelection `json:"selections"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, fmt.Errorf("响应不是合法的JSON对象: %w", err)
	}
	if envelope.Selections == nil {
		return nil, fmt.Errorf("响应缺少顶层键 %q", "selections")
	}
	return &RankingResult{Selections: *envelope.Selections}, nil
}
