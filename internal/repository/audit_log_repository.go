package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

// nilのポインタ・空文字は条件なし
type AuditLogFilter struct {
	Actor        string
	Action       *model.AuditAction
	ResourceType *model.AuditResourceType
	ResourceID   *int64
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int // 0なら既定値
	Offset       int
}

// 管理者の変更操作を残す（書き込みは必ず変更と同じTx）
type AuditLogRepository interface {
	Create(ctx context.Context, entry model.AuditLog) error

	// 新しい順
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error)
}
