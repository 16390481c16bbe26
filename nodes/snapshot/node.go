package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/nodeflow/config"
	"github.com/BaSui01/nodeflow/types"
	"github.com/BaSui01/nodeflow/workflow"
)

// IDKey 快照节点写入共享上下文的键
const IDKey = "snapshot_id"

// LabelParam 可选的快照标签参数
const LabelParam = "snapshot_label"

// handler 保存共享上下文中的指定键
type handler struct {
	store Store
	keys  []string
	now   func() time.Time
}

// NewNode 创建快照节点。
// prepare 复制 keys 中存在的键，execute 编码并保存（按节点重试策略重试），
// finalize 把快照 ID 写入 IDKey 并走默认边。
func NewNode(name string, store Store, keys []string, opts ...workflow.Option) *workflow.Node {
	h := &handler{store: store, keys: append([]string(nil), keys...), now: time.Now}
	return workflow.NewNode(name, h, opts...)
}

func (h *handler) Prepare(ctx context.Context, shared *workflow.Shared, params workflow.Params) (any, error) {
	values := make(map[string]any, len(h.keys))
	for _, k := range h.keys {
		if v, ok := shared.Get(k); ok {
			values[k] = v
		}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	runID, _ := types.RunID(ctx)
	return Record{
		ID:        uuid.NewString(),
		RunID:     runID,
		Label:     workflow.ParamOr(params, LabelParam, ""),
		Data:      data,
		CreatedAt: h.now().UTC(),
	}, nil
}

// Execute 保存快照；同一次调用的重试复用同一个 ID
func (h *handler) Execute(ctx context.Context, prep any) (any, error) {
	rec := prep.(Record)
	if err := h.store.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec.ID, nil
}

func (h *handler) Finalize(ctx context.Context, shared *workflow.Shared, prep, result any) (workflow.Action, error) {
	shared.Set(IDKey, result)
	return workflow.DefaultAction, nil
}

// Open 根据配置创建快照存储，observer 可为 nil
func Open(ctx context.Context, cfg *config.Config, observer Observer, logger *zap.Logger) (Store, error) {
	var (
		store Store
		err   error
	)
	switch cfg.Snapshot.Driver {
	case "redis":
		store, err = NewRedisStore(ctx, cfg.Redis, cfg.Snapshot, logger)
	case "sqlite", "postgres":
		db := cfg.Database
		db.Driver = cfg.Snapshot.Driver
		store, err = OpenSQLStore(ctx, db, logger)
	default:
		return nil, fmt.Errorf("unsupported snapshot driver: %s", cfg.Snapshot.Driver)
	}
	if err != nil {
		return nil, err
	}
	return Observe(store, cfg.Snapshot.Driver, observer), nil
}
