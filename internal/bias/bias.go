// internal/bias/bias.go
package bias

import (
	"encoding/json"
	"strings"
)

// Profile 固定的"馆藏视觉个性"偏置档案。进程级常量，任何项目输入都不得修改它。
type Profile struct {
	LightingBias  LightingBias  `json:"lighting_bias"`
	FramingBias   FramingBias   `json:"framing_bias"`
	CameraBias    CameraBias    `json:"camera_bias"`
	ColorBias     ColorBias     `json:"color_bias"`
	TextureBias   TextureBias   `json:"texture_bias"`
	EmotionalBias EmotionalBias `json:"emotional_bias"`
}

type LightingBias struct {
	SourceCount    string `json:"source_count"`
	Motivation     string `json:"motivation"`
	Contrast       string `json:"contrast"`
	FillPreference string `json:"fill_preference"`
}

type FramingBias struct {
	PreferredDistance string `json:"preferred_distance"`
	Composition       string `json:"composition"`
	Headroom          string `json:"headroom"`
}

type CameraBias struct {
	DefaultState      string `json:"default_state"`
	MovementThreshold string `json:"movement_threshold"`
}

type ColorBias struct {
	Temperature string `json:"temperature"`
	Saturation  string `json:"saturation"`
}

type TextureBias struct {
	Grain  string `json:"grain"`
	Polish string `json:"polish"`
}

type EmotionalBias struct {
	Stance     string `json:"stance"`
	Expression string `json:"expression"`
}

// HouseProfile 唯一的偏置档案实例。只读。
var HouseProfile = Profile{
	LightingBias: LightingBias{
		SourceCount:    "single",
		Motivation:     "practical",
		Contrast:       "medium-high",
		FillPreference: "minimal",
	},
	FramingBias: FramingBias{
		PreferredDistance: "medium-close_to_close",
		Composition:       "off-center_tolerated",
		Headroom:          "limited",
	},
	CameraBias: CameraBias{
		DefaultState:      "static",
		MovementThreshold: "emotionally_justified_only",
	},
	ColorBias: ColorBias{
		Temperature: "cool-neutral",
		Saturation:  "muted",
	},
	TextureBias: TextureBias{
		Grain:  "tolerated",
		Polish: "low",
	},
	EmotionalBias: EmotionalBias{
		Stance:     "observational",
		Expression: "withholding",
	},
}

// Summary 一句话概括，用于不需要完整注入块的阶段（剧本解析）。
const Summary = "The system favors restraint, motivated light, close proximity, and patient observation, " +
	"allowing performance and behavior to carry emotional weight rather than expressive camera language."

// 解释性文字的词汇约束。在提示层声明，不在代码层强制。
var (
	AllowedRationaleWords    = []string{"restrained", "motivated", "observational", "patient", "withholding"}
	DisallowedRationaleWords = []string{"epic", "cinematic", "dramatic", "stylish", "energetic"}
	DisallowedSearchTerms    = []string{"cinematic", "epic", "dynamic", "stylized", "high-energy"}
)

// InjectionBlock 返回完整的偏置注入文本。每次生成调用都将其原样前置到系统提示中。
// 纯函数：输出只由 HouseProfile 决定。
func InjectionBlock() string {
	profileJSON, _ := json.MarshalIndent(HouseProfile, "", "  ")

	var b strings.Builder
	b.WriteString("=== HOUSE VISUAL PERSONALITY (ALWAYS ACTIVE) ===\n\n")
	b.WriteString(Summary)
	b.WriteString("\n\nPersonality Profile:\n")
	b.Write(profileJSON)
	b.WriteString("\n\n--- Pillar: Lighting ---\n")
	b.WriteString("Prefer single, motivated sources. Practical light favored over stylization.\n")
	b.WriteString("Shadows are preserved; fill is minimal. Contrast is controlled, not flattened.\n")
	b.WriteString("Bias: Shadow-first, source-aware lighting.\n")
	b.WriteString("Avoid: Even fill, high-key gloss, decorative lighting.\n")
	b.WriteString("\n--- Pillar: Framing & Proximity ---\n")
	b.WriteString("Strong preference for medium-close to close framing. Wide shots are rare and functional.\n")
	b.WriteString("Subjects are often off-center or constrained. Environment supports subject but does not dominate.\n")
	b.WriteString("Bias: Proximity over spectacle.\n")
	b.WriteString("Avoid: Expansive wides used for visual emphasis alone.\n")
	b.WriteString("\n--- Pillar: Camera Energy ---\n")
	b.WriteString("Default camera state is static. Movement is rare and emotionally motivated.\n")
	b.WriteString("Camera observes rather than reacts.\n")
	b.WriteString("Bias: Stillness, patience.\n")
	b.WriteString("Avoid: Kinetic or expressive movement without narrative pressure.\n")
	b.WriteString("\n--- Pillar: Color & Texture ---\n")
	b.WriteString("Cool-neutral color temperature. Muted saturation. Light grain or softness tolerated. Imperfection accepted.\n")
	b.WriteString("Bias: Naturalistic, understated color.\n")
	b.WriteString("Avoid: Glossy, hyper-saturated, overly clean images.\n")
	b.WriteString("\n--- Pillar: Emotional Posture ---\n")
	b.WriteString("Observational and withholding. Emotion inferred from behavior, not emphasized by framing.\n")
	b.WriteString("Viewer is not instructed how to feel.\n")
	b.WriteString("Bias: Emotional restraint.\n")
	b.WriteString("Avoid: Visual sentimentality or emotional signaling.\n")
	b.WriteString("\n--- Search Prompt Rules ---\n")
	b.WriteString("Always include concepts aligned with: motivated/practical lighting, low-key/shadow-forward, ")
	b.WriteString("close framing/tight proximity, static/still camera, muted/neutral color.\n")
	b.WriteString("Never include: \"" + strings.Join(DisallowedSearchTerms, "\", \"") + "\".\n")
	b.WriteString("\n--- Reference Explanation Language Rules ---\n")
	b.WriteString("Allowed words: " + strings.Join(AllowedRationaleWords, ", ") + ".\n")
	b.WriteString("Disallowed words: " + strings.Join(DisallowedRationaleWords, ", ") + ".\n")
	b.WriteString("\n=== END HOUSE VISUAL PERSONALITY ===")

	return b.String()
}
