package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// 📸 快照记录与存储接口
// =============================================================================

// ErrNotFound 快照不存在
var ErrNotFound = errors.New("snapshot not found")

// Record 一次运行中若干共享上下文键的快照
type Record struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	RunID     string    `gorm:"index;size:64" json:"run_id"`
	Label     string    `gorm:"size:128" json:"label,omitempty"`
	Data      []byte    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定 SQL 表名
func (Record) TableName() string {
	return "nodeflow_snapshots"
}

// Values 解码快照内容
func (r Record) Values() (map[string]any, error) {
	values := make(map[string]any)
	if len(r.Data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(r.Data, &values); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", r.ID, err)
	}
	return values, nil
}

// Store 快照存储
type Store interface {
	// Save 保存快照，相同 ID 覆盖
	Save(ctx context.Context, rec Record) error
	// Load 读取快照，不存在时返回 ErrNotFound
	Load(ctx context.Context, id string) (Record, error)
	// Close 释放连接
	Close() error
}

// Observer 接收每次存储操作的结果
type Observer func(driver, operation string, duration time.Duration, err error)

// Observe 包装 store，每次 Save/Load 都回调 observer
func Observe(store Store, driver string, observer Observer) Store {
	if observer == nil {
		return store
	}
	return &observedStore{Store: store, driver: driver, observer: observer}
}

type observedStore struct {
	Store
	driver   string
	observer Observer
}

func (o *observedStore) Save(ctx context.Context, rec Record) error {
	start := time.Now()
	err := o.Store.Save(ctx, rec)
	o.observer(o.driver, "save", time.Since(start), err)
	return err
}

func (o *observedStore) Load(ctx context.Context, id string) (Record, error) {
	start := time.Now()
	rec, err := o.Store.Load(ctx, id)
	// 未命中不是存储故障
	observed := err
	if errors.Is(err, ErrNotFound) {
		observed = nil
	}
	o.observer(o.driver, "load", time.Since(start), observed)
	return rec, err
}
