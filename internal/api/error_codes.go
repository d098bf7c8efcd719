// internal/api/error_codes.go
package api

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorForbidden     = "FORBIDDEN"
	ErrorUnauthorized  = "UNAUTHORIZED"

	// 项目相关错误
	ErrorProjectNotFound     = "PROJECT_NOT_FOUND"
	ErrorProjectCreateFailed = "PROJECT_CREATE_FAILED"

	// 管线相关错误
	ErrorMissingInput      = "MISSING_INPUT"
	ErrorGenerationFailure = "GENERATION_FAILURE"
	ErrorNoCandidates      = "NO_CANDIDATES"
	ErrorNoSelection       = "NO_SELECTION"

	// LLM服务相关错误
	ErrorLLMServiceUnavailable = "LLM_SERVICE_UNAVAILABLE"
	ErrorLLMConfigInvalid      = "LLM_CONFIG_INVALID"

	// 导出相关错误
	ErrorExportFailed = "EXPORT_FAILED"
)
