package repository

import "context"

// 1トランザクションに束ねたrepo一式
// WithinTxのfnの中ではこれ以外のrepoを使わない（sqliteだと接続待ちで止まる）
type TxRepos interface {
	Orders() OrderRepository
	OrderItems() OrderItemRepository
	Products() ProductRepository
	Categories() CategoryRepository
	Customers() CustomerRepository
	Inventory() InventoryRepository
	AuditLogs() AuditLogRepository
}

// fnがエラーを返したら全部rollback、nilならcommit
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
