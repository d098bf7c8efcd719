// internal/api/handlers.go
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stillhouse/shotlist/internal/config"
	"github.com/stillhouse/shotlist/internal/llm"
	"github.com/stillhouse/shotlist/internal/services"
	"github.com/stillhouse/shotlist/internal/utils"
)

// Handler 处理API请求
type Handler struct {
	ProjectService   *services.ProjectService
	PipelineService  *services.PipelineService
	ReferenceService *services.ReferenceService
	ExportService    *services.ExportService
	ProgressService  *services.ProgressService
	LLMService       *services.LLMService

	responseHelper *ResponseHelper
}

// NewHandler 创建API处理器
func NewHandler(
	projectService *services.ProjectService,
	pipelineService *services.PipelineService,
	referenceService *services.ReferenceService,
	exportService *services.ExportService,
	progressService *services.ProgressService,
	llmService *services.LLMService,
) *Handler {
	return &Handler{
		ProjectService:   projectService,
		PipelineService:  pipelineService,
		ReferenceService: referenceService,
		ExportService:    exportService,
		ProgressService:  progressService,
		LLMService:       llmService,
		responseHelper:   NewResponseHelper(),
	}
}

// mustUser 从上下文取已认证用户，RequireAuth保证存在
func (h *Handler) mustUser(c *gin.Context) string {
	userID, _ := GetUserFromContext(c)
	return userID
}

// ===============================
// 认证
// ===============================

// IssueToken 为调用方签发认证令牌。
// 真正的身份校验由部署方的外部身份层负责，这里只做令牌签发。
func (h *Handler) IssueToken(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responseHelper.BadRequest(c, "user_id是必需的")
		return
	}

	token, err := GenerateUserToken(req.UserID)
	if err != nil {
		h.responseHelper.InternalError(c, "令牌签发失败")
		return
	}

	h.responseHelper.Success(c, gin.H{
		"token":   token,
		"user_id": req.UserID,
	})
}

// ===============================
// 项目CRUD
// ===============================

// CreateProject 创建项目
func (h *Handler) CreateProject(c *gin.Context) {
	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responseHelper.BadRequest(c, "请求格式无效", err.Error())
		return
	}

	project, err := h.ProjectService.CreateProject(h.mustUser(c), req)
	if err != nil {
		h.responseHelper.AppError(c, err)
		return
	}

	h.responseHelper.Created(c, project, "项目创建成功")
}

// ListProjects 列出当前用户的项目
func (h *Handler) ListProjects(c *gin.Context) {
	projects, err := h.ProjectService.ListProjects(h.mustUser(c))
	if err != nil {
		h.responseHelper.AppError(c, err)
		return
	}

	h.responseHelper.Success(c, gin.H{"projects": projects})
}

// GetProject 读取项目完整树
func (h *Handler) GetProject(c *gin.Context) {
	project, err := h.ProjectService.GetProjectTree(c.Request.Context(), h.mustUser(c), c.Param("id"))
	if err != nil {
		h.responseHelper.AppError(c, err)
		return
	}

	h.responseHelper.Success(c, project)
}

// UpdateScript 更新项目剧本文本
func (h *Handler) UpdateScript(c *gin.Context) {
	var req struct {
		ScriptText string `json:"script_text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responseHelper.BadRequest(c, "请求格式无效", err.Error())
		return
	}

	project, err := h.ProjectService.UpdateScriptText(h.mustUser(c), c.Param("id"), req.ScriptText)
	if err != nil {
		h.responseHelper.AppError(c, err)
		return
	}

	h.responseHelper.Success(c, project, "剧本已更新")
}

// DeleteProject 删除项目
func (h *Handler) DeleteProject(c *gin.Context) {
	if err := h.ProjectService.DeleteProject(h.mustUser(c), c.Param("id")); err != nil {
		h.responseHelper.AppError(c, err)
		return
	}

	h.responseHelper.Success(c, nil, "项目已删除")
}

// ===============================
// 生成管线
// ===============================

// ParseScript 剧本→场景
func (h *Handler) ParseScript(c *gin.Context) {
	project, err := h.ProjectService.GetProject(h.mustUser(c), c.Param("id"))
	if err != nil {
		h.responseHelper.AppError(c, err)
		return
	}

	scenes, err := h.PipelineService.ParseScript(c.Request.Context(), project)
	if err != nil {
		h.responseHelper.AppError(c, err)
		return
	}

	h.responseHelper.Success(c, gin.H{"scenes": scenes})
}

// GenerateStyle 外观词→风格档案
func (h *Handler) GenerateStyle(c *gin.Context) {
	project, err := h.ProjectService.GetProject(h.mustUser(c), c.Param("id"))
	if err != nil {
		h.responseHelper.AppError(c, err)
		return
	}

	profile, err := h.PipelineService.GenerateStyleProfile(c.Request.Context(), project)
	if err != nil {
		h.responseHelper.AppError(c, err)
		return
	}

	h.responseHelper.Success(c, gin.H{"style_profile": profile})
}

// GenerateShots 场景→镜头列表
func (h *Handler) GenerateShots(c *gin.Context) {
	var req struct {
		SceneID string `json:"scene_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responseHelper.BadRequest(c, "scene_id是必需的")
		return
	}

	project, err := h.ProjectService.GetProject(h.mustUser(c), c.Param("id"))
	if err != nil {
		h.responseHelper.AppError(c, err)
		return
	}

	shots, err := h.PipelineService.GenerateShots(c.Request.Context(), project, req.SceneID)
	if err != nil {
		h.responseHelper.AppError(c, err)
		return
	}

	h.responseHelper.Success(c, gin.H{"shots": shots})
}

// GenerateReferences 镜头→推荐参考图
func (h *Handler) GenerateReferences(c *gin.Context) {
	shot, project, err := h.ProjectService.GetShotForUser(h.mustUser(c), c.Param("shot_id"))
	if err != nil {
		h.responseHelper.AppError(c, err)
		return
	}

	refs, err := h.ReferenceService.GenerateReferences(c.Request.Context(), project.ID, shot)
	if err != nil {
		h.responseHelper.AppError(c, err)
		return
	}

	h.responseHelper.Success(c, gin.H{"references": refs})
}

// ===============================
// 镜头与参考的手动维护
// ===============================

// UpdateShot 按白名单字段部分更新镜头
func (h *Handler) UpdateShot(c *gin.Context) {
	shotID := c.Param("shot_id")

	if _, _, err := h.ProjectService.GetShotForUser(h.mustUser(c), shotID); err != nil {
		h.responseHelper.AppError(c, err)
		return
	}

	var req services.UpdateShotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responseHelper.BadRequest(c, "请求格式无效", err.Error())
		return
	}

	shot, err := h.ProjectService.UpdateShot(shotID, req)
	if err != nil {
		h.responseHelper.AppError(c, err)
		return
	}

	h.responseHelper.Success(c, shot, "镜头已更新")
}

// DeleteShot 删除镜头
func (h *Handler) DeleteShot(c *gin.Context) {
	shotID := c.Param("shot_id")

	if _, _, err := h.ProjectService.GetShotForUser(h.mustUser(c), shotID); err != nil {
		h.responseHelper.AppError(c, err)
		return
	}

	if err := h.ProjectService.DeleteShot(shotID); err != nil {
		h.responseHelper.AppError(c, err)
		return
	}

	h.responseHelper.Success(c, nil, "镜头已删除")
}

// AddExternalReference 为镜头添加用户外链参考
func (h *Handler) AddExternalReference(c *gin.Context) {
	shotID := c.Param("shot_id")

	if _, _, err := h.ProjectService.GetShotForUser(h.mustUser(c), shotID); err != nil {
		h.responseHelper.AppError(c, err)
		return
	}

	var req struct {
		URL         string `json:"url" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responseHelper.BadRequest(c, "url是必需的")
		return
	}

	ref, err := h.ReferenceService.AddExternalLink(shotID, req.URL, req.Description)
	if err != nil {
		h.responseHelper.AppError(c, err)
		return
	}

	h.responseHelper.Created(c, ref, "外链参考已添加")
}

// DeleteReference 删除参考
func (h *Handler) DeleteReference(c *gin.Context) {
	if err := h.ProjectService.DeleteReferenceForUser(h.mustUser(c), c.Param("reference_id")); err != nil {
		h.responseHelper.AppError(c, err)
		return
	}

	h.responseHelper.Success(c, nil, "参考已删除")
}

// ===============================
// 导出
// ===============================

// ExportCSV 导出项目镜头列表为CSV附件
func (h *Handler) ExportCSV(c *gin.Context) {
	result, err := h.ExportService.ExportCSV(c.Request.Context(), h.mustUser(c), c.Param("id"))
	if err != nil {
		h.responseHelper.AppError(c, err)
		return
	}

	h.responseHelper.FileResponse(c, result.Data, result.Filename, "text/csv; charset=utf-8")
}

// ===============================
// LLM管理
// ===============================

// GetLLMStatus 返回LLM服务状态
func (h *Handler) GetLLMStatus(c *gin.Context) {
	ready, state := h.LLMService.GetProviderStatus()

	h.responseHelper.Success(c, gin.H{
		"ready":    ready,
		"state":    state,
		"provider": h.LLMService.GetProviderName(),
	})
}

// GetMetrics 返回进程内指标快照
func (h *Handler) GetMetrics(c *gin.Context) {
	h.responseHelper.Success(c, utils.GetMetrics().Snapshot())
}

// GetLLMModels 返回所有已注册提供商及其支持的模型
func (h *Handler) GetLLMModels(c *gin.Context) {
	providers := llm.ListProviders()

	models := make(map[string][]string, len(providers))
	for _, name := range providers {
		models[name] = llm.GetSupportedModelsForProvider(name)
	}

	h.responseHelper.Success(c, gin.H{
		"providers": providers,
		"models":    models,
	})
}

// UpdateLLMConfig 运行时切换LLM提供商
func (h *Handler) UpdateLLMConfig(c *gin.Context) {
	var req struct {
		Provider string            `json:"provider" binding:"required"`
		Config   map[string]string `json:"config" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responseHelper.BadRequest(c, "provider和config是必需的")
		return
	}

	if err := h.LLMService.UpdateProvider(req.Provider, req.Config); err != nil {
		h.responseHelper.Error(c, http.StatusBadRequest, ErrorLLMConfigInvalid, "LLM配置无效", err.Error())
		return
	}

	// 持久化到config.json
	if err := config.UpdateLLMConfig(req.Provider, req.Config); err != nil {
		h.responseHelper.InternalError(c, "保存配置失败")
		return
	}

	h.responseHelper.Success(c, gin.H{"provider": req.Provider}, "LLM配置已更新")
}
