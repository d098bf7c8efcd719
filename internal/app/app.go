// internal/app/app.go
package app

import (
	"fmt"
	"log"

	"github.com/stillhouse/shotlist/internal/config"
	"github.com/stillhouse/shotlist/internal/di"
	"github.com/stillhouse/shotlist/internal/pexels"
	"github.com/stillhouse/shotlist/internal/services"
	"github.com/stillhouse/shotlist/internal/store"

	// 注册LLM提供商
	_ "github.com/stillhouse/shotlist/internal/llm/providers/anthropic"
	_ "github.com/stillhouse/shotlist/internal/llm/providers/openai"
)

// InitServices 按依赖顺序初始化所有服务并注册到DI容器。
// 调用前配置系统必须已初始化。
func InitServices() error {
	cfg := config.GetCurrentConfig()
	if cfg == nil {
		return fmt.Errorf("配置系统未初始化")
	}

	container := di.GetContainer()

	// 1. 数据库
	dataStore, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("初始化数据库失败: %w", err)
	}
	container.Register("store", dataStore)

	// 2. LLM服务。密钥缺失时降级为待命服务，不阻止启动。
	llmService, err := services.NewLLMService()
	if err != nil || llmService == nil {
		log.Printf("⚠️ LLM服务初始化失败，使用待命服务: %v", err)
		llmService = services.NewEmptyLLMService()
	}
	if !llmService.IsReady() {
		log.Printf("⚠️ LLM服务未就绪: %s", llmService.GetReadyState())
	}
	container.Register("llm", llmService)

	// 3. 图片搜索客户端
	pexelsClient := pexels.NewClient(cfg.PexelsAPIKey)
	container.Register("pexels", pexelsClient)

	// 4. 进度服务
	progressService := services.NewProgressService()
	container.Register("progress", progressService)

	// 5. 项目服务
	projectService := services.NewProjectService(dataStore)
	container.Register("project", projectService)

	// 6. 管线服务
	pipelineService := services.NewPipelineService(dataStore, llmService, progressService)
	container.Register("pipeline", pipelineService)

	// 7. 参考图服务
	referenceService := services.NewReferenceService(dataStore, llmService, pexelsClient, progressService)
	container.Register("reference", referenceService)

	// 8. 导出服务
	exportService := services.NewExportService(projectService)
	container.Register("export", exportService)

	return nil
}
