package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误
	ErrCodeInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrCodeBadRequest     ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"

	// 验证错误
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"

	// 向量检索核心错误
	ErrCodeDimensionMismatch ErrorCode = "DIMENSION_MISMATCH"
	ErrCodeEmbeddingBackend  ErrorCode = "EMBEDDING_BACKEND_ERROR"
	ErrCodeVectorStore       ErrorCode = "VECTOR_STORE_ERROR"
	ErrCodeEmbeddingMissing  ErrorCode = "EMBEDDING_MISSING"

	// 外部服务错误
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT"

	// 数据库错误
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
)

// ErrorType 错误类型
type ErrorType int

const (
	ErrorTypeSystem ErrorType = iota
	ErrorTypeBusiness
	ErrorTypeValidation
	ErrorTypeExternal
)

// AppError 应用错误结构体
type AppError struct {
	Code     ErrorCode   `json:"code"`
	Message  string      `json:"message"`
	Type     ErrorType   `json:"type"`
	HTTPCode int         `json:"-"`
	Details  interface{} `json:"details,omitempty"`
	Cause    error       `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加错误详情
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause 添加错误原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// 错误构造函数

// NewValidationError 创建验证错误，对调用方直接暴露，不重试
func NewValidationError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeValidationFailed,
		Message:  message,
		Type:     ErrorTypeValidation,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewDimensionMismatchError 创建维度不匹配错误。
// 向量长度与集合维度或比较对象不一致，属于上游数据完整性问题，
// 对该次操作是致命的，需按error级别记录
func NewDimensionMismatchError(expected, actual int) *AppError {
	return &AppError{
		Code:     ErrCodeDimensionMismatch,
		Message:  fmt.Sprintf("vector dimension mismatch: expected %d, got %d", expected, actual),
		Type:     ErrorTypeSystem,
		HTTPCode: http.StatusInternalServerError,
	}
}

// NewEmbeddingBackendError 创建嵌入后端错误
func NewEmbeddingBackendError(cause error) *AppError {
	return &AppError{
		Code:     ErrCodeEmbeddingBackend,
		Message:  "embedding backend unavailable",
		Type:     ErrorTypeExternal,
		HTTPCode: http.StatusBadGateway,
		Cause:    cause,
	}
}

// NewVectorStoreError 创建向量存储错误
func NewVectorStoreError(operation string, cause error) *AppError {
	return &AppError{
		Code:     ErrCodeVectorStore,
		Message:  fmt.Sprintf("vector store %s failed", operation),
		Type:     ErrorTypeExternal,
		HTTPCode: http.StatusBadGateway,
		Cause:    cause,
	}
}

// NewNotFoundError 创建资源未找到错误。
// 注意：空检索结果是合法的，只有引用的实体/嵌入缺失才是NotFound
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("%s not found", resource),
		Type:     ErrorTypeBusiness,
		HTTPCode: http.StatusNotFound,
	}
}

// NewEmbeddingMissingError 实体存在但尚未生成嵌入
func NewEmbeddingMissingError(entityID string) *AppError {
	return &AppError{
		Code:     ErrCodeEmbeddingMissing,
		Message:  fmt.Sprintf("entity %s has no stored embedding", entityID),
		Type:     ErrorTypeBusiness,
		HTTPCode: http.StatusNotFound,
	}
}

// NewSystemError 创建系统错误
func NewSystemError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Type:     ErrorTypeSystem,
		HTTPCode: http.StatusInternalServerError,
	}
}

// IsCode 检查错误链上是否存在指定错误码的AppError
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetAppError 获取AppError，如果不是则包装为系统错误
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewSystemError(ErrCodeInternalServer, "Internal server error").WithCause(err)
}
