package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrConditionNotMet 条件更新未命中任何行（状态或计数器不满足 WHERE 条件）
var ErrConditionNotMet = errors.New("条件更新未命中")

// ErrDuplicateKey 唯一约束冲突
var ErrDuplicateKey = errors.New("数据重复")

// pgUniqueViolation PostgreSQL unique_violation
const pgUniqueViolation = "23505"

// StoreError 存储层错误（连接失败、约束冲突等），对当前操作是致命的
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("存储操作失败 [%s]: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Store 将底层错误包装为 StoreError；nil 原样返回
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// IsStoreError 判断是否为存储层错误
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// IsUniqueViolation 判断是否为唯一约束冲突（pgconn 错误或已映射的 ErrDuplicateKey）
func IsUniqueViolation(err error) bool {
	if errors.Is(err, ErrDuplicateKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}
