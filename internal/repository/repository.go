package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// Querier *sql.DB 与 *sql.Tx 的公共子集，repo 方法统一面向它编写，
// 事务内外共用同一套 SQL 实现
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repos 仓储集合。一次状态转换涉及的全部写入（实体 + 台账 + 汇总）
// 必须经由同一个 Repos 实例（即同一事务）完成
type Repos struct {
	Locations    LocationsRepository
	Items        ItemsRepository
	Certificates CertificatesRepository
	Instances    InstancesRepository
	Movements    MovementsRepository
	Entries      EntriesRepository
	Inventory    InventoryRepository
}

// TxManager 单写者事务边界：WithinTx 内要么全部生效要么全部回滚，
// 部分写入不是可接受的结果
type TxManager interface {
	// Repos 非事务仓储（只读路径用）
	Repos() *Repos
	// WithinTx 在一个数据库事务里执行 fn；fn 返回错误则整体回滚
	WithinTx(ctx context.Context, fn func(r *Repos) error) error
}

// ============================================
// Postgres
// ============================================

type PostgresTxManager struct {
	db    *sql.DB
	repos *Repos
}

func NewPostgresTxManager(db *sql.DB) *PostgresTxManager {
	return &PostgresTxManager{db: db, repos: newPostgresRepos(db)}
}

func newPostgresRepos(q Querier) *Repos {
	return &Repos{
		Locations:    NewPostgresLocationsRepo(q),
		Items:        NewPostgresItemsRepo(q),
		Certificates: NewPostgresCertificatesRepo(q),
		Instances:    NewPostgresInstancesRepo(q),
		Movements:    NewPostgresMovementsRepo(q),
		Entries:      NewPostgresEntriesRepo(q),
		Inventory:    NewPostgresInventoryRepo(q),
	}
}

func (m *PostgresTxManager) Repos() *Repos { return m.repos }

func (m *PostgresTxManager) WithinTx(ctx context.Context, fn func(r *Repos) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(newPostgresRepos(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ============================================
// Memory（DB 未就绪时的联测 fallback；测试亦复用）
// ============================================

// MemoryTxManager 用全局互斥锁近似单写者事务。
// 内存实现不支持回滚，调用方（service 层）保证先校验后写入，
// 前置条件失败发生在任何写入之前
type MemoryTxManager struct {
	mu    sync.Mutex
	repos *Repos
}

func NewMemoryTxManager() *MemoryTxManager {
	return &MemoryTxManager{repos: NewMemoryRepos()}
}

func NewMemoryRepos() *Repos {
	return &Repos{
		Locations:    NewMemoryLocationsRepo(),
		Items:        NewMemoryItemsRepo(),
		Certificates: NewMemoryCertificatesRepo(),
		Instances:    NewMemoryInstancesRepo(),
		Movements:    NewMemoryMovementsRepo(),
		Entries:      NewMemoryEntriesRepo(),
		Inventory:    NewMemoryInventoryRepo(),
	}
}

func (m *MemoryTxManager) Repos() *Repos { return m.repos }

func (m *MemoryTxManager) WithinTx(ctx context.Context, fn func(r *Repos) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.repos)
}
