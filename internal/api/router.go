// internal/api/router.go
package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stillhouse/shotlist/internal/config"
	"github.com/stillhouse/shotlist/internal/di"
	"github.com/stillhouse/shotlist/internal/services"
)

// SetupRouter 配置HTTP路由
func SetupRouter() (*gin.Engine, error) {
	// 获取配置
	cfg := config.GetCurrentConfig()

	// 获取依赖注入容器
	container := di.GetContainer()

	// ✅ 只从容器获取服务，不再创建新实例
	projectService, ok := container.Get("project").(*services.ProjectService)
	if !ok {
		return nil, fmt.Errorf("项目服务未正确初始化")
	}

	pipelineService, ok := container.Get("pipeline").(*services.PipelineService)
	if !ok {
		return nil, fmt.Errorf("管线服务未正确初始化")
	}

	referenceService, ok := container.Get("reference").(*services.ReferenceService)
	if !ok {
		return nil, fmt.Errorf("参考图服务未正确初始化")
	}

	exportService, ok := container.Get("export").(*services.ExportService)
	if !ok {
		return nil, fmt.Errorf("导出服务未正确初始化")
	}

	progressService, ok := container.Get("progress").(*services.ProgressService)
	if !ok {
		return nil, fmt.Errorf("进度服务未正确初始化")
	}

	llmService, ok := container.Get("llm").(*services.LLMService)
	if !ok {
		return nil, fmt.Errorf("LLM服务未正确初始化")
	}

	// ✅ 创建API处理器 - 只传递从容器获取的服务
	handler := NewHandler(
		projectService,
		pipelineService,
		referenceService,
		exportService,
		progressService,
		llmService,
	)

	// 创建路由
	r := gin.Default()

	// 启用CORS
	r.Use(corsMiddleware())

	// HTTPS重定向（生产环境）
	if !cfg.DebugMode {
		r.Use(func(c *gin.Context) {
			if c.Request.Header.Get("X-Forwarded-Proto") != "https" {
				c.Redirect(http.StatusPermanentRedirect,
					"https://"+c.Request.Host+c.Request.URL.Path)
				return
			}
			c.Next()
		})
	}

	// 所有路由都先解析令牌
	r.Use(AuthMiddleware())

	// WebSocket 进度推送
	r.GET("/ws/projects/:id", RequireAuth(), handler.ProjectProgressWebSocket)

	// ===============================
	// API路由组
	// ===============================
	api := r.Group("/api")
	api.Use(DefaultRateLimit())
	{
		// ===============================
		// 认证
		// ===============================
		api.POST("/auth/token", handler.IssueToken)

		// ===============================
		// LLM配置相关路由
		// ===============================
		llmGroup := api.Group("/llm")
		{
			llmGroup.GET("/status", handler.GetLLMStatus)
			llmGroup.GET("/models", handler.GetLLMModels)
			llmGroup.PUT("/config", RequireAuth(), handler.UpdateLLMConfig)
		}

		// 运维指标
		api.GET("/metrics", handler.GetMetrics)

		// ===============================
		// 项目相关路由
		// ===============================
		projectsGroup := api.Group("/projects")
		projectsGroup.Use(RequireAuth())
		{
			projectsGroup.GET("", handler.ListProjects)
			projectsGroup.POST("", handler.CreateProject)
			projectsGroup.GET("/:id", handler.GetProject)
			projectsGroup.PUT("/:id/script", handler.UpdateScript)
			projectsGroup.DELETE("/:id", handler.DeleteProject)

			// 生成管线（模型调用较慢，单独限流）
			generationGroup := projectsGroup.Group("")
			generationGroup.Use(GenerationRateLimit())
			{
				generationGroup.POST("/:id/parse-script", handler.ParseScript)
				generationGroup.POST("/:id/generate-style", handler.GenerateStyle)
				generationGroup.POST("/:id/generate-shots", handler.GenerateShots)
			}

			// 导出相关路由
			projectsGroup.GET("/:id/export/csv", handler.ExportCSV)
		}

		// ===============================
		// 镜头相关路由
		// ===============================
		shotsGroup := api.Group("/shots")
		shotsGroup.Use(RequireAuth())
		{
			shotsGroup.PATCH("/:shot_id", handler.UpdateShot)
			shotsGroup.DELETE("/:shot_id", handler.DeleteShot)
			shotsGroup.POST("/:shot_id/generate-references", GenerationRateLimit(), handler.GenerateReferences)
			shotsGroup.POST("/:shot_id/references", handler.AddExternalReference)
		}

		// ===============================
		// 参考相关路由
		// ===============================
		referencesGroup := api.Group("/references")
		referencesGroup.Use(RequireAuth())
		{
			referencesGroup.DELETE("/:reference_id", handler.DeleteReference)
		}
	}

	return r, nil
}

// corsMiddleware 实现跨域资源共享
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
