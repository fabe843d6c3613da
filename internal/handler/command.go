package handler

import (
	"context"

	"github.com/spf13/cast"

	"github.com/AutoDone-AI/AutoDone-AI/internal/session"
	"github.com/AutoDone-AI/AutoDone-AI/pkg/util/merr"
)

// CommandFunc 为命令的执行体。
// args 为经过类型归一化的命名参数表。
type CommandFunc func(ctx context.Context, sess *session.Session, args map[string]any) (any, error)

// Param 描述命令的一个参数。
type Param struct {
	Name     string
	Type     ParamType
	Required bool
}

// ParamType 是参数的目标类型，调用时的实参会向其归一化。
type ParamType string

const (
	ParamString ParamType = "string"
	ParamInt    ParamType = "int"
	ParamFloat  ParamType = "float"
	ParamBool   ParamType = "bool"
	// ParamAny 不做归一化，原样传递。
	ParamAny ParamType = "any"
)

// Command 表示接口注册的一条具名命令。
type Command struct {
	Name        string
	Description string
	Params      []Param
	Func        CommandFunc
}

// normalizeArgs 校验必填参数并将实参转换到声明的类型。
// 转换失败报 ErrCommandInvalidArgument。
func (c *Command) normalizeArgs(args map[string]any) (map[string]any, error) {
	if args == nil {
		args = make(map[string]any)
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}

	for _, p := range c.Params {
		raw, ok := out[p.Name]
		if !ok {
			if p.Required {
				return nil, merr.WrapErrCommandInvalidArgument(c.Name, p.Name, "required argument missing")
			}
			continue
		}

		var (
			converted any
			err       error
		)
		switch p.Type {
		case ParamString:
			converted, err = cast.ToStringE(raw)
		case ParamInt:
			converted, err = cast.ToInt64E(raw)
		case ParamFloat:
			converted, err = cast.ToFloat64E(raw)
		case ParamBool:
			converted, err = cast.ToBoolE(raw)
		case ParamAny, "":
			converted = raw
		default:
			return nil, merr.WrapErrCommandInvalidArgument(c.Name, p.Name, "unknown parameter type: "+string(p.Type))
		}
		if err != nil {
			return nil, merr.WrapErrCommandInvalidArgument(c.Name, p.Name, err.Error())
		}
		out[p.Name] = converted
	}

	return out, nil
}
