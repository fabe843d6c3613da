package handler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AutoDone-AI/AutoDone-AI/internal/session"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/log"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/metrics"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/util/conc"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/util/merr"
)

// defaultPoolSize 为异步命令执行协程池的容量。
const defaultPoolSize = 64

// Handler 是接口与会话之间的中央路由。
//
// 职责：
//   - 维护接口注册表，命令名跨接口唯一；
//   - Call 同步执行命令，Post 经协程池异步执行；
//   - Dispatch 将消息投递到目标接口声明的命令。
type Handler struct {
	mu         sync.RWMutex
	interfaces map[string]*Interface
	// commandOwner 记录命令名到所属接口的映射，保证命令名全局唯一。
	commandOwner map[string]*Interface

	pool *conc.Pool[any]

	closeOnce sync.Once
}

// NewHandler 创建一个空的路由器。
func NewHandler() *Handler {
	return &Handler{
		interfaces:   make(map[string]*Interface),
		commandOwner: make(map[string]*Interface),
		pool:         conc.NewPool[any](defaultPoolSize, conc.WithConcealPanic(true)),
	}
}

// RegisterInterface 登记一个命令提供方。
// 接口名或其任一命令名与已有注册冲突时整体拒绝。
func (h *Handler) RegisterInterface(iface *Interface) error {
	if iface == nil || iface.Name() == "" {
		return merr.WrapErrParameterMissing("interface")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.interfaces[iface.Name()]; ok {
		return merr.WrapErrInterfaceDuplicate(iface.Name())
	}
	for _, name := range iface.Commands() {
		if owner, ok := h.commandOwner[name]; ok {
			return merr.WrapErrCommandDuplicate(name, owner.Name())
		}
	}

	h.interfaces[iface.Name()] = iface
	for _, name := range iface.Commands() {
		h.commandOwner[name] = iface
	}
	log.Info("interface registered",
		zap.String("interface", iface.Name()),
		zap.Strings("commands", iface.Commands()))
	return nil
}

// Interface 按名称查找接口。
func (h *Handler) Interface(name string) (*Interface, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	iface, ok := h.interfaces[name]
	if !ok {
		return nil, merr.WrapErrInterfaceNotFound(name)
	}
	return iface, nil
}

// Call 同步执行一条命令。
func (h *Handler) Call(ctx context.Context, sess *session.Session, command string, args map[string]any) (any, error) {
	h.mu.RLock()
	owner, ok := h.commandOwner[command]
	h.mu.RUnlock()
	if !ok {
		return nil, merr.WrapErrCommandNotFound(command)
	}
	cmd, ok := owner.Command(command)
	if !ok {
		return nil, merr.WrapErrCommandNotFound(command)
	}

	if sess != nil && sess.Closed() {
		return nil, merr.WrapErrSessionClosed(sess.ID())
	}

	normalized, err := cmd.normalizeArgs(args)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := cmd.Func(ctx, sess, normalized)
	metrics.CommandLatency.WithLabelValues(owner.Name(), command).
		Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		log.Ctx(ctx).Warn("command failed",
			zap.String("interface", owner.Name()),
			zap.String("command", command),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

// Post 将命令提交到协程池异步执行，返回可等待的 Future。
func (h *Handler) Post(ctx context.Context, sess *session.Session, command string, args map[string]any) *conc.Future[any] {
	return h.pool.Submit(func() (any, error) {
		return h.Call(ctx, sess, command, args)
	})
}

// Dispatch 将消息投递到其目标接口。
// 消息内容须为命名参数表，命令名取 DestInterface 声明的接口下的 command 参数。
func (h *Handler) Dispatch(ctx context.Context, sess *session.Session, msg *session.Message) (any, error) {
	if msg == nil {
		return nil, merr.WrapErrParameterMissing("message")
	}
	// 投递写入会话历史，必须有会话。
	if sess == nil {
		return nil, merr.WrapErrParameterMissing("session")
	}
	iface, err := h.Interface(msg.DestInterface)
	if err != nil {
		return nil, err
	}

	args, _ := msg.Content.(map[string]any)
	command, _ := args["command"].(string)
	if command == "" {
		return nil, merr.WrapErrCommandNotFound("", "message content carries no command")
	}
	if _, ok := iface.Command(command); !ok {
		return nil, merr.WrapErrCommandNotFound(command, "not provided by interface "+iface.Name())
	}

	params, _ := args["args"].(map[string]any)
	if err := sess.Append(msg); err != nil {
		return nil, err
	}
	return h.Call(ctx, sess, command, params)
}

// Broadcast 向所有接口并发投递同一条消息副本，任一投递失败返回首个错误。
func (h *Handler) Broadcast(ctx context.Context, sess *session.Session, content any) error {
	if sess == nil {
		return merr.WrapErrParameterMissing("session")
	}
	h.mu.RLock()
	targets := make([]*Interface, 0, len(h.interfaces))
	for _, iface := range h.interfaces {
		targets = append(targets, iface)
	}
	h.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, iface := range targets {
		iface := iface
		g.Go(func() error {
			msg := session.NewMessage(sess.ID(), "handler", iface.Name(), content)
			_, err := h.Dispatch(ctx, sess, msg)
			return err
		})
	}
	return g.Wait()
}

// Close 释放协程池资源，幂等。
func (h *Handler) Close() {
	h.closeOnce.Do(func() {
		h.pool.Release()
	})
}
