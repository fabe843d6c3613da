package handler

import (
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/AutoDone-AI/AutoDone-AI/pkg/util/merr"
)

// Interface 表示一个命令提供方。
// 同一 Interface 内命令名唯一，重复注册报 ErrCommandDuplicate。
type Interface struct {
	name string

	mu       sync.RWMutex
	commands map[string]*Command
}

// NewInterface 创建一个空的命令提供方。
func NewInterface(name string) *Interface {
	return &Interface{
		name:     name,
		commands: make(map[string]*Command),
	}
}

// Name 返回接口名。
func (i *Interface) Name() string {
	return i.name
}

// RegisterCommand 注册一条命令。
func (i *Interface) RegisterCommand(cmd *Command) error {
	if cmd == nil || cmd.Name == "" {
		return merr.WrapErrParameterMissing("command name")
	}
	if cmd.Func == nil {
		return merr.WrapErrParameterMissing("command func")
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.commands[cmd.Name]; ok {
		return merr.WrapErrCommandDuplicate(cmd.Name, i.name)
	}
	i.commands[cmd.Name] = cmd
	return nil
}

// Command 按名称查找命令。
func (i *Interface) Command(name string) (*Command, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	cmd, ok := i.commands[name]
	return cmd, ok
}

// Commands 返回排序后的命令名列表。
func (i *Interface) Commands() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	names := lo.Keys(i.commands)
	sort.Strings(names)
	return names
}
