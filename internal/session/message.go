package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/AutoDone-AI/AutoDone-AI/pkg/portable"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/util/merr"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/util/typeutil"
)

func init() {
	// 使消息类型可通过进程级命名空间反序列化。
	_ = portable.RegisterClass(&Message{})
}

// Message 表示会话内一次接口间投递的消息。
//
// Content 可为任意可序列化的值；消息整体通过 Convertible 协议
// 转换为 ClassInstance 形态，随会话快照持久化或跨进程传输。
type Message struct {
	ID        uuid.UUID
	SessionID uuid.UUID

	SrcInterface  string
	DestInterface string

	Content   any
	CreatedAt time.Time
}

var _ portable.Convertible = (*Message)(nil)

// NewMessage 创建一条属于指定会话的消息。
func NewMessage(sessionID uuid.UUID, src, dest string, content any) *Message {
	return &Message{
		ID:            uuid.New(),
		SessionID:     sessionID,
		SrcInterface:  src,
		DestInterface: dest,
		Content:       content,
		CreatedAt:     time.Now(),
	}
}

// ToPortable 实现 portable.Convertible。
// Content 经进程级 DefaultRegistry 与类命名空间转换，
// Save/Load 的 portable.Option 不作用于这一层；携带自定义类型的
// Content 需先通过 portable.RegisterClass 或 DefaultRegistry 登记。
func (m *Message) ToPortable() (*portable.Value, error) {
	fields := typeutil.NewOrderedMap[any, any]()
	fields.Set("id", m.ID)
	fields.Set("session_id", m.SessionID)
	fields.Set("src_interface", m.SrcInterface)
	fields.Set("dest_interface", m.DestInterface)
	fields.Set("content", m.Content)
	fields.Set("created_at", m.CreatedAt)
	return portable.Serialize(fields)
}

// FromPortable 实现 portable.Convertible。
func (m *Message) FromPortable(pv *portable.Value) error {
	v, err := portable.Deserialize(pv)
	if err != nil {
		return err
	}
	fields, ok := v.(*typeutil.OrderedMap[any, any])
	if !ok {
		return merr.WrapErrMalformedPortable("message payload must be a mapping")
	}

	if id, ok := getField[uuid.UUID](fields, "id"); ok {
		m.ID = id
	}
	if sid, ok := getField[uuid.UUID](fields, "session_id"); ok {
		m.SessionID = sid
	}
	if src, ok := getField[string](fields, "src_interface"); ok {
		m.SrcInterface = src
	}
	if dest, ok := getField[string](fields, "dest_interface"); ok {
		m.DestInterface = dest
	}
	if content, ok := fields.Get("content"); ok {
		m.Content = content
	}
	if created, ok := getField[time.Time](fields, "created_at"); ok {
		m.CreatedAt = created
	}
	return nil
}

func getField[T any](fields *typeutil.OrderedMap[any, any], key string) (T, bool) {
	var zero T
	v, ok := fields.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
