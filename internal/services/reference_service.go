// internal/services/reference_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/stillhouse/shotlist/internal/bias"
	apperrors "github.com/stillhouse/shotlist/internal/errors"
	"github.com/stillhouse/shotlist/internal/models"
	"github.com/stillhouse/shotlist/internal/pexels"
	"github.com/stillhouse/shotlist/internal/store"
	"github.com/stillhouse/shotlist/internal/utils"
)

// 候选获取参数：总配额固定9，每个搜索词配额=ceil(9/P)
const (
	candidateQuota = 9
	maxSelections  = 3
)

// 排序模型不可用时的降级解释文本
const fallbackRationale = "Selected as a reference for framing and lighting intent."

// 候选描述缺失alt文本时的占位符
const noDescriptionPlaceholder = "No description available"

// CandidateSearcher 图片搜索提供方的最小接口
type CandidateSearcher interface {
	Search(ctx context.Context, query string, perPage int) ([]pexels.Photo, error)
}

// RankingOutcome 排序阶段的显式两分支结果：模型排序成功，
// 或降级为按获取顺序取前若干条。两条路径都可独立测试。
type RankingOutcome struct {
	Fallback   bool
	Selections []RankingSelection
}

// ReferenceService 为镜头生成推荐参考图：候选获取、模型排序、
// 降级选择、归属映射与入库，以及用户外链的添加。
type ReferenceService struct {
	store    *store.Store
	llm      *LLMService
	searcher CandidateSearcher
	progress *ProgressService
}

// NewReferenceService 创建参考图服务
func NewReferenceService(s *store.Store, llm *LLMService, searcher CandidateSearcher, progress *ProgressService) *ReferenceService {
	return &ReferenceService{
		store:    s,
		llm:      llm,
		searcher: searcher,
		progress: progress,
	}
}

func (r *ReferenceService) publish(projectID, status, message string) {
	if r.progress != nil && projectID != "" {
		r.progress.Publish(projectID, StageGenerateReferences, status, message)
	}
}

// GenerateReferences 重新生成镜头的推荐参考图。
// 只删除recommended_image旧行，external_link行永远不动。
// 删除在候选获取之前执行，失败不回滚。
func (r *ReferenceService) GenerateReferences(ctx context.Context, projectID string, shot *models.Shot) (refs []models.ShotReference, err error) {
	start := time.Now()
	defer func() { observeStage(StageGenerateReferences, start, err) }()

	r.publish(projectID, ProgressStarted, "开始生成参考图: "+shot.ShotCode)

	if err := r.store.DeleteReferencesByShotAndKind(shot.ID, models.ReferenceKindRecommended); err != nil {
		r.publish(projectID, ProgressFailed, "删除旧参考失败")
		return nil, apperrors.NewProcessingError("删除旧参考失败", err)
	}

	if len(shot.SearchPrompts) == 0 {
		r.publish(projectID, ProgressFailed, "镜头没有搜索词")
		return nil, apperrors.NewMissingInputError("镜头没有可用的搜索词", nil)
	}

	candidates, err := r.fetchCandidates(ctx, shot.SearchPrompts)
	if err != nil {
		r.publish(projectID, ProgressFailed, "候选获取失败")
		return nil, err
	}
	if len(candidates) == 0 {
		r.publish(projectID, ProgressFailed, "没有找到候选图片")
		return nil, apperrors.NewNoCandidatesError("图片提供方没有返回任何候选", nil)
	}

	outcome := r.rankCandidates(ctx, shot, candidates)

	// 丢弃越界索引后为空即失败
	refs = make([]models.ShotReference, 0, len(outcome.Selections))
	now := time.Now()
	for _, sel := range outcome.Selections {
		if sel.Index < 0 || sel.Index >= len(candidates) {
			continue
		}
		attribution := pexels.FormatAttribution(candidates[sel.Index])
		why := sel.WhyThisWorks
		refs = append(refs, models.ShotReference{
			ID:              uuid.NewString(),
			ShotID:          shot.ID,
			Kind:            models.ReferenceKindRecommended,
			Provider:        attribution.Provider,
			URL:             attribution.URL,
			PreviewURL:      &attribution.PreviewURL,
			AttributionText: &attribution.AttributionText,
			AttributionURL:  &attribution.AttributionURL,
			LicenseInfo:     &attribution.LicenseInfo,
			WhyThisWorks:    &why,
			CreatedAt:       now,
		})
	}

	if len(refs) == 0 {
		r.publish(projectID, ProgressFailed, "没有可用的选择")
		return nil, apperrors.NewNoSelectionError("没有合适的图片可被选中", nil)
	}

	if err := r.store.InsertReferences(refs); err != nil {
		r.publish(projectID, ProgressFailed, "写入参考失败")
		return nil, apperrors.NewProcessingError("写入参考失败", err)
	}

	r.publish(projectID, ProgressDone, fmt.Sprintf("选出%d张参考图", len(refs)))

	return refs, nil
}

// fetchCandidates 按搜索词并行获取候选：每词配额ceil(9/P)，
// 按词序拼接后截断到前9条。
func (r *ReferenceService) fetchCandidates(ctx context.Context, prompts []string) ([]pexels.Photo, error) {
	perPrompt := (candidateQuota + len(prompts) - 1) / len(prompts)

	results := make([][]pexels.Photo, len(prompts))
	g, gctx := errgroup.WithContext(ctx)
	for i, prompt := range prompts {
		i, prompt := i, prompt
		g.Go(func() error {
			photos, err := r.searcher.Search(gctx, prompt, perPrompt)
			if err != nil {
				return err
			}
			results[i] = photos
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.NewProcessingError("图片搜索失败", err)
	}

	candidates := make([]pexels.Photo, 0, candidateQuota)
	for _, photos := range results {
		candidates = append(candidates, photos...)
	}
	if len(candidates) > candidateQuota {
		candidates = candidates[:candidateQuota]
	}

	return candidates, nil
}

// rankCandidates 让模型按馆藏偏置选出前3条候选。
// 模型调用失败、返回空内容或解码失败时降级为取前min(3, N)条，
// 附固定的通用解释文本。降级是有意的静默路径，不是错误。
func (r *ReferenceService) rankCandidates(ctx context.Context, shot *models.Shot, candidates []pexels.Photo) RankingOutcome {
	raw, err := r.llm.CompleteJSON(ctx, JSONCompletionRequest{
		SystemPrompt: rankingSystemPrompt(),
		UserPrompt:   rankingUserPrompt(shot, candidates),
		Temperature:  rankingTemperature,
	})
	if err != nil {
		return r.fallbackWithLog(shot.ID, len(candidates), err)
	}

	result, err := DecodeRankingResult(raw)
	if err != nil {
		return r.fallbackWithLog(shot.ID, len(candidates), err)
	}

	selections := result.Selections
	if len(selections) > maxSelections {
		selections = selections[:maxSelections]
	}

	return RankingOutcome{Fallback: false, Selections: selections}
}

// fallbackWithLog 降级对调用方不可见，但要给运维留痕
func (r *ReferenceService) fallbackWithLog(shotID string, candidateCount int, cause error) RankingOutcome {
	utils.GetLogger().Warning("排序模型不可用，降级为按获取顺序选择", map[string]interface{}{
		"shot_id": shotID,
		"cause":   cause.Error(),
	})
	utils.GetMetrics().Counter("reference.ranking_fallback").Inc()
	return fallbackOutcome(candidateCount)
}

func fallbackOutcome(candidateCount int) RankingOutcome {
	n := maxSelections
	if candidateCount < n {
		n = candidateCount
	}
	selections := make([]RankingSelection, n)
	for i := 0; i < n; i++ {
		selections[i] = RankingSelection{
			Index:        i,
			WhyThisWorks: fallbackRationale,
		}
	}
	return RankingOutcome{Fallback: true, Selections: selections}
}

// AddExternalLink 保存用户提供的外链参考。
// 不做生成调用，也不校验URL可达性；描述为空则why_this_works为null。
func (r *ReferenceService) AddExternalLink(shotID, url, description string) (*models.ShotReference, error) {
	if strings.TrimSpace(url) == "" {
		return nil, apperrors.NewValidationError("外链URL不能为空", nil)
	}

	var why *string
	if description != "" {
		why = &description
	}

	ref := models.ShotReference{
		ID:           uuid.NewString(),
		ShotID:       shotID,
		Kind:         models.ReferenceKindExternalLink,
		Provider:     models.ProviderFrameset,
		URL:          url,
		WhyThisWorks: why,
		CreatedAt:    time.Now(),
	}

	if err := r.store.InsertReferences([]models.ShotReference{ref}); err != nil {
		return nil, apperrors.NewProcessingError("写入外链参考失败", err)
	}

	return &ref, nil
}

// ---------------------------------------------
// 排序提示词
// ---------------------------------------------

func rankingSystemPrompt() string {
	return bias.InjectionBlock() + `

You are a reference image selector. Given a list of candidate images (by their alt descriptions) and a shot's reference targets, select the 3 images that best align with the House Visual Personality.

Ranking priorities:
1. Alignment with the House Visual Personality (restraint, motivated light, close proximity, observational stance)
2. Match to the shot's reference targets
3. Up-rank images showing: single-source lighting, preserved shadows, close framing, low saturation, observational feel
4. Down-rank images that are: evenly lit, commercial/glossy, wide spectacle, expressively colored

Return a JSON object:
{
  "selections": [
    {
      "index": <number>,
      "why_this_works": "<1-2 sentences explaining alignment with the house personality>"
    }
  ]
}

Language rules for why_this_works:
- Use words like: ` + strings.Join(bias.AllowedRationaleWords, ", ") + `
- Never use: ` + strings.Join(bias.DisallowedRationaleWords, ", ") + `
- State WHY the reference aligns with the house view, not just what it shows`
}

func rankingUserPrompt(shot *models.Shot, candidates []pexels.Photo) string {
	targets := "None specified"
	if shot.ReferenceTargets != nil {
		if data, err := json.Marshal(shot.ReferenceTargets); err == nil {
			targets = string(data)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Shot: %s %s — %s\n", shot.ShotSize, shot.Angle, shot.IntentText)
	b.WriteString("Reference targets: " + targets + "\n\n")
	b.WriteString("Candidate images:\n")
	for i, photo := range candidates {
		alt := photo.Alt
		if alt == "" {
			alt = noDescriptionPlaceholder
		}
		fmt.Fprintf(&b, "[%d] %s\n", i, alt)
	}

	return strings.TrimRight(b.String(), "\n")
}
