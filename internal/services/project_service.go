// internal/services/project_service.go
package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/stillhouse/shotlist/internal/errors"
	"github.com/stillhouse/shotlist/internal/models"
	"github.com/stillhouse/shotlist/internal/store"
)

// 外观词数量限制。创建时强制3-10个，风格阶段只要求非空。
const (
	minLookWords = 3
	maxLookWords = 10
)

var (
	validBudgets = map[string]bool{
		models.BudgetMicro:    true,
		models.BudgetLow:      true,
		models.BudgetModerate: true,
	}
	validCrewSizes = map[string]bool{
		models.CrewSkeleton: true,
		models.CrewSmall:    true,
		models.CrewStandard: true,
	}
	validCoverageModes = map[string]bool{
		models.CoverageMinimal:  true,
		models.CoverageStandard: true,
		models.CoverageSafety:   true,
	}
)

// ProjectService 提供项目的增删改查。
// 所有按ID的读取都校验归属：项目不属于请求用户时按不存在处理。
type ProjectService struct {
	store *store.Store
}

// NewProjectService 创建项目服务
func NewProjectService(s *store.Store) *ProjectService {
	return &ProjectService{store: s}
}

// CreateProjectRequest 创建项目的输入
type CreateProjectRequest struct {
	Title       string                    `json:"title"`
	ProjectType string                    `json:"project_type"`
	ScriptText  string                    `json:"script_text"`
	LookWords   []string                  `json:"look_words"`
	Constraints models.ProjectConstraints `json:"constraints"`
}

// NormalizeLookWords 规范化外观词：去空白、转小写、去重，保持原有顺序
func NormalizeLookWords(words []string) []string {
	seen := make(map[string]bool, len(words))
	normalized := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		normalized = append(normalized, w)
	}
	return normalized
}

// CreateProject 创建项目。外观词规范化后必须在3-10个之间，约束档位必须合法。
func (s *ProjectService) CreateProject(userID string, req CreateProjectRequest) (*models.Project, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperrors.NewValidationError("项目标题不能为空", nil)
	}

	lookWords := NormalizeLookWords(req.LookWords)
	if len(lookWords) < minLookWords || len(lookWords) > maxLookWords {
		return nil, apperrors.NewValidationError("外观词规范化后必须在3到10个之间", nil)
	}

	if !validBudgets[req.Constraints.Budget] {
		return nil, apperrors.NewValidationError("预算档位无效: "+req.Constraints.Budget, nil)
	}
	if !validCrewSizes[req.Constraints.CrewSize] {
		return nil, apperrors.NewValidationError("团队规模档位无效: "+req.Constraints.CrewSize, nil)
	}
	if !validCoverageModes[req.Constraints.CoverageMode] {
		return nil, apperrors.NewValidationError("覆盖模式档位无效: "+req.Constraints.CoverageMode, nil)
	}

	project := &models.Project{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       strings.TrimSpace(req.Title),
		ProjectType: req.ProjectType,
		ScriptText:  req.ScriptText,
		LookWords:   lookWords,
		Constraints: req.Constraints,
	}

	if err := s.store.CreateProject(project); err != nil {
		return nil, apperrors.NewProcessingError("创建项目失败", err)
	}

	return project, nil
}

// GetProject 按ID读取项目并校验归属
func (s *ProjectService) GetProject(userID, projectID string) (*models.Project, error) {
	project, err := s.store.ProjectByID(projectID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, apperrors.NewNotFoundError("项目不存在", nil)
		}
		return nil, apperrors.NewProcessingError("读取项目失败", err)
	}
	// 归属不匹配按不存在处理，不泄露项目是否存在
	if project.UserID != userID {
		return nil, apperrors.NewNotFoundError("项目不存在", nil)
	}
	return project, nil
}

// GetProjectTree 读取项目的完整树：场景按场景号升序，每个场景的镜头按
// 排列序号升序，每个镜头的参考无序。嵌套读取相互独立，并发执行。
func (s *ProjectService) GetProjectTree(ctx context.Context, userID, projectID string) (*models.Project, error) {
	project, err := s.GetProject(userID, projectID)
	if err != nil {
		return nil, err
	}

	scenes, err := s.store.ScenesByProject(project.ID)
	if err != nil {
		return nil, apperrors.NewProcessingError("读取场景列表失败", err)
	}

	g, _ := errgroup.WithContext(ctx)
	for i := range scenes {
		scene := &scenes[i]
		g.Go(func() error {
			shots, err := s.store.ShotsByScene(scene.ID)
			if err != nil {
				return err
			}

			sg := new(errgroup.Group)
			for j := range shots {
				shot := &shots[j]
				sg.Go(func() error {
					refs, err := s.store.ReferencesByShot(shot.ID)
					if err != nil {
						return err
					}
					shot.References = refs
					return nil
				})
			}
			if err := sg.Wait(); err != nil {
				return err
			}

			scene.Shots = shots
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.NewProcessingError("读取项目树失败", err)
	}

	project.Scenes = scenes
	return project, nil
}

// ListProjects 列出用户的项目，按更新时间倒序
func (s *ProjectService) ListProjects(userID string) ([]models.Project, error) {
	projects, err := s.store.ProjectsByUser(userID)
	if err != nil {
		return nil, apperrors.NewProcessingError("读取项目列表失败", err)
	}
	return projects, nil
}

// UpdateScriptText 更新项目的剧本文本
func (s *ProjectService) UpdateScriptText(userID, projectID, scriptText string) (*models.Project, error) {
	project, err := s.GetProject(userID, projectID)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateProjectFields(project.ID, map[string]interface{}{
		"script_text": scriptText,
	}); err != nil {
		return nil, apperrors.NewProcessingError("更新剧本失败", err)
	}

	project.ScriptText = scriptText
	return project, nil
}

// DeleteProject 删除项目，场景/镜头/参考由外键级联删除
func (s *ProjectService) DeleteProject(userID, projectID string) error {
	if _, err := s.GetProject(userID, projectID); err != nil {
		return err
	}
	if err := s.store.DeleteProject(projectID); err != nil {
		return apperrors.NewProcessingError("删除项目失败", err)
	}
	return nil
}

// GetShotForUser 按ID读取镜头并沿 镜头→场景→项目 校验归属。
// 归属链上任何一环不匹配都按不存在处理。
func (s *ProjectService) GetShotForUser(userID, shotID string) (*models.Shot, *models.Project, error) {
	shot, err := s.store.ShotByID(shotID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, nil, apperrors.NewNotFoundError("镜头不存在", nil)
		}
		return nil, nil, apperrors.NewProcessingError("读取镜头失败", err)
	}

	scene, err := s.store.SceneByID(shot.SceneID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, nil, apperrors.NewNotFoundError("镜头不存在", nil)
		}
		return nil, nil, apperrors.NewProcessingError("读取场景失败", err)
	}

	project, err := s.GetProject(userID, scene.ProjectID)
	if err != nil {
		return nil, nil, err
	}

	return shot, project, nil
}

// DeleteReferenceForUser 删除参考前沿归属链校验用户
func (s *ProjectService) DeleteReferenceForUser(userID, referenceID string) error {
	ref, err := s.store.ReferenceByID(referenceID)
	if err != nil {
		if err == store.ErrNotFound {
			return apperrors.NewNotFoundError("参考不存在", nil)
		}
		return apperrors.NewProcessingError("读取参考失败", err)
	}

	if _, _, err := s.GetShotForUser(userID, ref.ShotID); err != nil {
		return err
	}

	return s.DeleteReference(referenceID)
}

// UpdateShotRequest 镜头部分更新的可选字段。
// 只接受镜头表的内容字段，位置与归属不可改。
type UpdateShotRequest struct {
	ShotCode         *string                  `json:"shot_code"`
	ShotSize         *string                  `json:"shot_size"`
	Angle            *string                  `json:"angle"`
	Movement         *string                  `json:"movement"`
	LensSuggestion   *string                  `json:"lens_suggestion"`
	BlockingNotes    *string                  `json:"blocking_notes"`
	IntentText       *string                  `json:"intent_text"`
	AudioNotes       *string                  `json:"audio_notes"`
	TimeCostEstimate *string                  `json:"time_cost_estimate"`
	ReferenceTargets *models.ReferenceTargets `json:"reference_targets"`
	SearchPrompts    []string                 `json:"search_prompts"`
}

// UpdateShot 按白名单字段部分更新镜头
func (s *ProjectService) UpdateShot(shotID string, req UpdateShotRequest) (*models.Shot, error) {
	fields := map[string]interface{}{}
	if req.ShotCode != nil {
		fields["shot_code"] = *req.ShotCode
	}
	if req.ShotSize != nil {
		fields["shot_size"] = *req.ShotSize
	}
	if req.Angle != nil {
		fields["angle"] = *req.Angle
	}
	if req.Movement != nil {
		fields["movement"] = *req.Movement
	}
	if req.LensSuggestion != nil {
		fields["lens_suggestion"] = *req.LensSuggestion
	}
	if req.BlockingNotes != nil {
		fields["blocking_notes"] = *req.BlockingNotes
	}
	if req.IntentText != nil {
		fields["intent_text"] = *req.IntentText
	}
	if req.AudioNotes != nil {
		fields["audio_notes"] = *req.AudioNotes
	}
	if req.TimeCostEstimate != nil {
		fields["time_cost_estimate"] = *req.TimeCostEstimate
	}
	if req.ReferenceTargets != nil {
		fields["reference_targets"] = req.ReferenceTargets
	}
	if req.SearchPrompts != nil {
		fields["search_prompts"] = models.StringList(req.SearchPrompts)
	}

	if len(fields) == 0 {
		return nil, apperrors.NewValidationError("没有可更新的字段", nil)
	}

	if err := s.store.UpdateShotFields(shotID, fields); err != nil {
		if err == store.ErrNotFound {
			return nil, apperrors.NewNotFoundError("镜头不存在", nil)
		}
		return nil, apperrors.NewProcessingError("更新镜头失败", err)
	}

	shot, err := s.store.ShotByID(shotID)
	if err != nil {
		return nil, apperrors.NewProcessingError("读取镜头失败", err)
	}
	return shot, nil
}

// DeleteShot 删除单个镜头
func (s *ProjectService) DeleteShot(shotID string) error {
	if err := s.store.DeleteShot(shotID); err != nil {
		if err == store.ErrNotFound {
			return apperrors.NewNotFoundError("镜头不存在", nil)
		}
		return apperrors.NewProcessingError("删除镜头失败", err)
	}
	return nil
}

// DeleteReference 删除单条镜头参考
func (s *ProjectService) DeleteReference(referenceID string) error {
	if err := s.store.DeleteReference(referenceID); err != nil {
		if err == store.ErrNotFound {
			return apperrors.NewNotFoundError("参考不存在", nil)
		}
		return apperrors.NewProcessingError("删除参考失败", err)
	}
	return nil
}
