package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BaSui01/nodeflow/config"
)

// =============================================================================
// 🗄️ SQL 快照存储
// =============================================================================

// SQLStore 通过 GORM 把快照写入 sqlite 或 postgres
type SQLStore struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

// Dialector 根据数据库配置选择 GORM 方言
func Dialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres":
		return postgres.Open(cfg.DSN()), nil
	case "sqlite":
		return sqlite.Open(cfg.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: postgres, sqlite)", cfg.Driver)
	}
}

// OpenSQLStore 打开数据库、配置连接池并迁移快照表
func OpenSQLStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*SQLStore, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	maxOpen := cfg.MaxOpenConns
	if cfg.Driver == "sqlite" && strings.Contains(cfg.Name, ":memory:") {
		// 每个连接各自拥有一个内存库
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	store, err := NewSQLStore(db, logger)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	store.logger.Info("database snapshot store initialized",
		zap.String("driver", cfg.Driver),
		zap.Int("max_open_conns", maxOpen),
	)
	return store, nil
}

// NewSQLStore 使用已打开的 GORM 实例创建存储，不做迁移
func NewSQLStore(db *gorm.DB, logger *zap.Logger) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if logger == nil {
		logger = zap.L()
	}
	return &SQLStore{
		db:     db,
		sqlDB:  sqlDB,
		logger: logger.With(zap.String("component", "snapshot_sql")),
	}, nil
}

// Migrate 创建或更新快照表
func (s *SQLStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("failed to migrate snapshot table: %w", err)
	}
	return nil
}

// Save 保存快照，主键冲突时覆盖
func (s *SQLStore) Save(ctx context.Context, rec Record) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("snapshot store is closed")
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
	if err != nil {
		s.logger.Error("snapshot save failed", zap.String("id", rec.ID), zap.Error(err))
		return fmt.Errorf("snapshot save failed: %w", err)
	}
	return nil
}

// Load 读取快照
func (s *SQLStore) Load(ctx context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Record{}, fmt.Errorf("snapshot store is closed")
	}

	var rec Record
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("snapshot load failed: %w", err)
	}
	return rec, nil
}

// ListByRun 返回某次运行的全部快照，按创建时间排序
func (s *SQLStore) ListByRun(ctx context.Context, runID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("snapshot store is closed")
	}

	var recs []Record
	err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("created_at").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("snapshot list failed: %w", err)
	}
	return recs, nil
}

// Ping 检查数据库连接
func (s *SQLStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("snapshot store is closed")
	}
	return s.sqlDB.PingContext(ctx)
}

// Stats 返回连接池统计信息
func (s *SQLStore) Stats() sql.DBStats {
	return s.sqlDB.Stats()
}

// Close 关闭存储
func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Info("closing database snapshot store")
	return s.sqlDB.Close()
}
