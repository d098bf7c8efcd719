// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrorType 定义错误类型
type ErrorType string

const (
	// 通用错误类型
	ErrorTypeValidation   ErrorType = "validation_error"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeError        ErrorType = "processing_error"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeTimeout      ErrorType = "timeout"

	// 生成管线专用错误类型
	ErrorTypeMissingInput      ErrorType = "missing_input"
	ErrorTypeGenerationFailure ErrorType = "generation_failure"
	ErrorTypeNoCandidates      ErrorType = "no_candidates"
	ErrorTypeNoSelection       ErrorType = "no_selection"
)

// AppError 应用程序错误结构
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string // 用户友好的错误代码
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 实现错误链接
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError 创建新的 AppError
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

// NewValidationError 创建验证错误
func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

// NewNotFoundError 创建未找到错误
func NewNotFoundError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, originalError)
}

// NewProcessingError 创建处理错误
func NewProcessingError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeError, message, originalError)
}

// NewUnauthorizedError 创建未授权错误
func NewUnauthorizedError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeUnauthorized, message, originalError)
}

// NewMissingInputError 创建缺少必要输入错误（如空剧本、空搜索词）
func NewMissingInputError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeMissingInput, message, originalError)
}

// NewGenerationFailureError 创建上游生成失败错误（模型返回空内容或无法解析的JSON）
func NewGenerationFailureError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeGenerationFailure, message, originalError)
}

// NewNoCandidatesError 创建无候选图片错误
func NewNoCandidatesError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNoCandidates, message, originalError)
}

// NewNoSelectionError 创建无可用选择错误
func NewNoSelectionError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNoSelection, message, originalError)
}

// IsValidationError 检查是否为验证错误
func IsValidationError(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsNotFoundError 检查是否为未找到错误
func IsNotFoundError(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

// IsUnauthorizedError 检查是否为未授权错误
func IsUnauthorizedError(err error) bool {
	return isType(err, ErrorTypeUnauthorized)
}

// IsMissingInputError 检查是否为缺少输入错误
func IsMissingInputError(err error) bool {
	return isType(err, ErrorTypeMissingInput)
}

// IsGenerationFailureError 检查是否为生成失败错误
func IsGenerationFailureError(err error) bool {
	return isType(err, ErrorTypeGenerationFailure)
}

// IsNoCandidatesError 检查是否为无候选错误
func IsNoCandidatesError(err error) bool {
	return isType(err, ErrorTypeNoCandidates)
}

// IsNoSelectionError 检查是否为无选择错误
func IsNoSelectionError(err error) bool {
	return isType(err, ErrorTypeNoSelection)
}

func isType(err error, t ErrorType) bool {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type == t
	}
	return false
}

// generateErrorCode 根据错误类型生成错误代码
func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeError:
		return "PROCESSING_ERROR"
	case ErrorTypeUnauthorized:
		return "UNAUTHORIZED"
	case ErrorTypeForbidden:
		return "FORBIDDEN"
	case ErrorTypeConflict:
		return "CONFLICT"
	case ErrorTypeTimeout:
		return "TIMEOUT"
	case ErrorTypeMissingInput:
		return "MISSING_INPUT"
	case ErrorTypeGenerationFailure:
		return "GENERATION_FAILURE"
	case ErrorTypeNoCandidates:
		return "NO_CANDIDATES"
	case ErrorTypeNoSelection:
		return "NO_SELECTION"
	default:
		return "UNKNOWN_ERROR"
	}
}

// WrapError 包装现有错误
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appError *AppError
	if errors.As(err, &appError) {
		// 如果已经是 AppError，只更新消息
		return &AppError{
			Type:    appError.Type,
			Message: fmt.Sprintf("%s: %s", message, appError.Message),
			Err:     appError,
			Code:    appError.Code,
		}
	}

	// 否则创建新的 AppError
	return NewAppError(errType, message, err)
}
