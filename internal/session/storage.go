package session

import (
	"context"
	"os"
	"path/filepath"

	"github.com/blang/semver/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AutoDone-AI/AutoDone-AI/internal/json"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/log"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/metrics"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/portable"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/util/merr"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/util/retry"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/util/typeutil"
)

// SnapshotVersion 是当前进程写出的会话快照格式版本。
const SnapshotVersion = "1.0.0"

// supportedSnapshotRange 是加载时接受的快照版本范围。
// 主版本号变更视为不兼容。
var supportedSnapshotRange = semver.MustParseRange(">=1.0.0 <2.0.0")

// snapshotEnvelope 是会话快照的外层信封。
// data 与 history 均为便携值的 JSON 编码。
type snapshotEnvelope struct {
	Version string          `json:"version"`
	ID      string          `json:"id"`
	Data    json.RawMessage `json:"data"`
	History json.RawMessage `json:"history"`
}

// Save 将会话快照持久化到指定路径。
//
// 行为：
//   - 先写临时文件再原子重命名，避免半写快照；
//   - 写盘失败按指数退避重试；
//   - opts 作用于 data 与 history 的顶层转换，消息 Content
//     的转换规则见 Message.ToPortable。
func (s *Session) Save(ctx context.Context, path string, opts ...portable.Option) error {
	dataRaw, err := portable.Marshal(s.Data(), opts...)
	if err != nil {
		return err
	}
	historyRaw, err := portable.Marshal(s.History(), opts...)
	if err != nil {
		return err
	}

	blob, err := json.Marshal(&snapshotEnvelope{
		Version: SnapshotVersion,
		ID:      s.id.String(),
		Data:    dataRaw,
		History: historyRaw,
	})
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	err = retry.Do(ctx, func() error {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return merr.WrapErrIoFailed(path, err)
		}
		if err := os.WriteFile(tmp, blob, 0o600); err != nil {
			return merr.WrapErrIoFailed(tmp, err)
		}
		if err := os.Rename(tmp, path); err != nil {
			return merr.WrapErrIoFailed(path, err)
		}
		return nil
	}, retry.Attempts(3))
	if err != nil {
		return err
	}

	metrics.SessionSaveBytes.Observe(float64(len(blob)))
	log.Ctx(ctx).Info("session snapshot saved",
		zap.String("session", s.id.String()),
		zap.String("path", path),
		zap.Int("bytes", len(blob)))
	return nil
}

// Load 从指定路径加载会话快照并重建会话。
// 快照版本不在兼容范围内时报 ErrSessionVersionMismatch。
func Load(ctx context.Context, path string, opts ...portable.Option) (*Session, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, merr.WrapErrIoFailed(path, err)
	}

	var env snapshotEnvelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return nil, merr.WrapErrMalformedPortable(err.Error())
	}

	version, err := semver.Parse(env.Version)
	if err != nil {
		return nil, merr.WrapErrSessionVersionMismatch(env.Version, SnapshotVersion, "unparsable snapshot version")
	}
	if !supportedSnapshotRange(version) {
		return nil, merr.WrapErrSessionVersionMismatch(env.Version, SnapshotVersion)
	}

	id, err := uuid.Parse(env.ID)
	if err != nil {
		return nil, merr.WrapErrMalformedPortable("invalid session id: " + env.ID)
	}

	dataVal, err := portable.Unmarshal(env.Data, opts...)
	if err != nil {
		return nil, err
	}
	dataMap, ok := dataVal.(*typeutil.OrderedMap[any, any])
	if !ok {
		return nil, merr.WrapErrMalformedPortable("snapshot data must be a mapping")
	}

	historyVal, err := portable.Unmarshal(env.History, opts...)
	if err != nil {
		return nil, err
	}
	historyItems, ok := historyVal.([]any)
	if !ok {
		return nil, merr.WrapErrMalformedPortable("snapshot history must be a sequence")
	}

	s := NewSession(ctx)
	s.id = id
	var rangeErr error
	dataMap.Range(func(key, value any) bool {
		name, ok := key.(string)
		if !ok {
			rangeErr = merr.WrapErrMalformedPortable("snapshot data keys must be strings")
			return false
		}
		s.data.Set(name, value)
		return true
	})
	if rangeErr != nil {
		_ = s.Close()
		return nil, rangeErr
	}
	for _, item := range historyItems {
		msg, ok := item.(*Message)
		if !ok {
			_ = s.Close()
			return nil, merr.WrapErrMalformedPortable("snapshot history entry is not a message")
		}
		s.history = append(s.history, msg)
	}

	log.Ctx(ctx).Info("session snapshot loaded",
		zap.String("session", s.id.String()),
		zap.String("path", path),
		zap.Int("history", len(s.history)))
	return s, nil
}
