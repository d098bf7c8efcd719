// internal/services/llm_service.go
package services

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	gocache "github.com/patrickmn/go-cache"

	"github.com/stillhouse/shotlist/internal/config"
	"github.com/stillhouse/shotlist/internal/llm"
)

var ErrLLMNotReady = errors.New("llm service not ready")

var providerDefaultModels = map[string]string{
	"openai":    "gpt-4o",
	"anthropic": "claude-sonnet-4-5",
}

// LLMService 提供统一的大语言模型调用接口
type LLMService struct {
	providerMutex      sync.RWMutex
	provider           llm.Provider
	providerName       string
	cache              *gocache.Cache
	isReady            bool
	readyState         string
	activeDefaultModel string
}

// JSONCompletionRequest 一次JSON模式生成调用的参数。
// 系统提示由调用方组装（偏置注入块 + 阶段指令），温度按阶段固定。
type JSONCompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	Model        string
}

// NewLLMService 根据当前配置创建LLM服务
func NewLLMService() (*LLMService, error) {
	service := createBaseLLMService()

	// 尝试从配置初始化
	cfg := config.GetCurrentConfig()
	if cfg == nil {
		service.readyState = "Failed to retrieve configuration"
		return service, nil
	}

	if cfg.LLMProvider == "" || (cfg.LLMConfig != nil && cfg.LLMConfig["api_key"] == "") {
		service.readyState = "API key not configured"
		return service, nil
	}

	provider, err := llm.GetProvider(cfg.LLMProvider, cfg.LLMConfig)
	if err != nil {
		service.readyState = fmt.Sprintf("Initialization failed: %v", err)
		return service, nil // 返回未就绪服务而不是错误
	}

	service.provider = provider
	service.providerName = cfg.LLMProvider
	service.activeDefaultModel = extractDefaultModel(cfg.LLMConfig)
	service.isReady = true
	service.readyState = "Ready"

	return service, nil
}

// NewEmptyLLMService 创建一个空的LLM服务实例作为后备方案
func NewEmptyLLMService() *LLMService {
	service := createBaseLLMService()
	service.providerName = "empty"
	service.readyState = "Standby Service Mode – Please configure the API key in settings"
	return service
}

// NewLLMServiceWithProvider 用现成的提供者实例创建服务（测试与内部装配用）
func NewLLMServiceWithProvider(name string, provider llm.Provider) *LLMService {
	service := createBaseLLMService()
	service.provider = provider
	service.providerName = name
	service.isReady = true
	service.readyState = "Ready"
	return service
}

func createBaseLLMService() *LLMService {
	return &LLMService{
		provider:     nil,
		providerName: "",
		isReady:      false,
		readyState:   "Uninitialized",
		cache:        gocache.New(30*time.Minute, 10*time.Minute),
	}
}

// IsReady 返回服务是否已就绪
func (s *LLMService) IsReady() bool {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()

	return s.provider != nil && s.isReady
}

// GetReadyState 返回服务就绪状态描述
func (s *LLMService) GetReadyState() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()

	return s.readyState
}

// GetProviderStatus 返回服务是否就绪以及可读描述
func (s *LLMService) GetProviderStatus() (bool, string) {
	if s == nil {
		return false, "LLM服务实例未初始化"
	}
	if s.IsReady() {
		return true, "Ready"
	}
	return false, s.GetReadyState()
}

// GetProviderName 返回当前提供商名称
func (s *LLMService) GetProviderName() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()

	return s.providerName
}

// UpdateProvider 更新LLM服务的提供商
func (s *LLMService) UpdateProvider(providerName string, providerConfig map[string]string) error {
	provider, err := llm.GetProvider(providerName, providerConfig)
	if err != nil {
		s.providerMutex.Lock()
		s.isReady = false
		s.readyState = fmt.Sprintf("Configuration failed: %v", err)
		s.providerMutex.Unlock()
		return err
	}

	s.providerMutex.Lock()
	defer s.providerMutex.Unlock()

	s.provider = provider
	s.providerName = providerName
	s.activeDefaultModel = extractDefaultModel(providerConfig)
	s.isReady = true
	s.readyState = "Ready"

	// 清理缓存
	s.cache = gocache.New(30*time.Minute, 10*time.Minute)

	return nil
}

// CompleteJSON 以JSON模式执行一次生成调用，返回清洗后的响应文本。
// 模型返回空内容时视为失败；响应是否符合阶段契约由调用方解码判定。
func (s *LLMService) CompleteJSON(ctx context.Context, req JSONCompletionRequest) (string, error) {
	s.providerMutex.RLock()
	if !s.isReady || s.provider == nil {
		state := s.readyState
		s.providerMutex.RUnlock()
		return "", fmt.Errorf("%w: %s", ErrLLMNotReady, state)
	}
	provider := s.provider
	s.providerMutex.RUnlock()

	model := s.resolveModel(req.Model)
	cacheKey := s.generateCacheKey(req.UserPrompt, req.SystemPrompt, model, req.Temperature)

	if cached, found := s.cache.Get(cacheKey); found {
		if text, ok := cached.(string); ok {
			return text, nil
		}
	}

	resp, err := provider.CompleteText(ctx, llm.CompletionRequest{
		Prompt:       req.UserPrompt,
		SystemPrompt: req.SystemPrompt,
		Temperature:  req.Temperature,
		Model:        model,
		JSONMode:     true,
	})
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(resp.Text) == "" {
		return "", errors.New("模型返回了空内容")
	}

	text := cleanJSONString(resp.Text)
	s.cache.Set(cacheKey, text, gocache.DefaultExpiration)

	return text, nil
}

// resolveModel 解析本次调用使用的模型名
func (s *LLMService) resolveModel(requestedModel string) string {
	if requestedModel != "" {
		return requestedModel
	}

	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()

	if s.activeDefaultModel != "" {
		return s.activeDefaultModel
	}
	if fallback, ok := providerDefaultModels[s.providerName]; ok {
		return fallback
	}
	return ""
}

// generateCacheKey 生成缓存键
func (s *LLMService) generateCacheKey(prompt, systemPrompt, model string, temperature float32) string {
	s.providerMutex.RLock()
	providerName := s.providerName
	s.providerMutex.RUnlock()

	data := fmt.Sprintf("%s|%s|%s|%s|%.2f", providerName, model, systemPrompt, prompt, temperature)
	return fmt.Sprintf("%x", md5.Sum([]byte(data)))
}

// extractDefaultModel 从提供商配置中取默认模型名
func extractDefaultModel(cfg map[string]string) string {
	if cfg == nil {
		return ""
	}
	return cfg["default_model"]
}

// 清理JSON字符串，去除前后非JSON内容
var jsonNoiseReplacer = strings.NewReplacer(
	"```json", "",
	"```", "",
	"\uFEFF", "",
	" ", " ",
	" ", "\n",
	" ", "\n",
)

func cleanJSONString(s string) string {
	if s == "" {
		return s
	}

	// 统一替换常见的噪声以及Markdown标记
	s = jsonNoiseReplacer.Replace(s)
	s = strings.TrimSpace(s)

	// 移除零宽字符及除换行/制表符外的控制字符
	s = strings.Map(func(r rune) rune {
		switch r {
		case '​', '‌', '‍', '⁠', '\uFEFF':
			return -1
		}
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	// 查找第一个 { ，将其之前的内容全部丢弃
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return s
	}
	s = strings.TrimSpace(s[start:])

	// 简单的括号计数匹配，截断结束符之后的内容
	balance := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		char := s[i]

		if escaped {
			escaped = false
			continue
		}

		if char == '\\' {
			escaped = true
			continue
		}

		if char == '"' {
			inString = !inString
			continue
		}

		if !inString {
			if char == '{' {
				balance++
			} else if char == '}' {
				balance--
			}

			if balance == 0 {
				return strings.TrimSpace(s[:i+1])
			}
		}
	}

	// 没找到匹配的结束符，回退到最后一个 }
	if end := strings.LastIndexByte(s, '}'); end != -1 {
		return strings.TrimSpace(s[:end+1])
	}

	return strings.TrimSpace(s)
}

// CleanLLMJSONResponse 提供给外部调用的JSON清洗助手
func CleanLLMJSONResponse(raw string) string {
	return cleanJSONString(raw)
}
