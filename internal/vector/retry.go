package vector

import (
	"context"
	"math/rand"
	"time"

	apperrors "github.com/pimhub/backend-go/internal/errors"
)

// RetryPolicy 幂等上游调用（ensureCollection、search）的有界重试策略。
// upsert不走重试，保持at-most-once语义
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy 默认重试策略：3次，100ms起步加抖动
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
	}
}

// Do 执行fn，失败时按指数退避加随机抖动重试。
// 验证类和维度类错误不重试，context取消立即返回
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := p.BaseDelay << (attempt - 1)
			// 加入最多50%的抖动，避免雪崩式同步重试
			delay += time.Duration(rand.Int63n(int64(delay)/2 + 1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err = fn()
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
	}
	return err
}

func isRetryable(err error) bool {
	if apperrors.IsCode(err, apperrors.ErrCodeValidationFailed) ||
		apperrors.IsCode(err, apperrors.ErrCodeDimensionMismatch) ||
		apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		return false
	}
	return true
}
