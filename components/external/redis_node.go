/*
 * Copyright 2023 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package external

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rulego/rulechain/api/types"
	"github.com/rulego/rulechain/components/base"
	"github.com/rulego/rulechain/utils/el"
)

func init() {
	Registry.Add(&RedisNode{})
}

// RedisNodeConfiguration 节点配置
type RedisNodeConfiguration struct {
	// Server redis服务器地址，例如 127.0.0.1:6379
	Server   string `json:"server" validate:"required"`
	Password string `json:"password"`
	Db       int    `json:"db" validate:"gte=0"`
	// Command 命令，例如 GET、SET、HSET，支持 ${} 变量
	Command string `json:"command" validate:"required"`
	// Args 命令参数，每个参数支持 ${} 变量
	Args []interface{} `json:"args"`
	// PoolSize 连接池大小，0 使用默认值
	PoolSize int `json:"pool_size" validate:"gte=0"`
}

// RedisNode 执行 redis 命令，结果作为新的消息体：{"result": 结果}
// A missing key (redis nil reply) is a success with a null result.
type RedisNode struct {
	base.SharedClient[*redis.Client]
	//节点配置
	Config  RedisNodeConfiguration
	command el.Template
	args    []el.Template
}

// Type 组件类型
func (x *RedisNode) Type() string {
	return types.TypeRedis
}

func (x *RedisNode) New() types.Node {
	return &RedisNode{Config: RedisNodeConfiguration{Server: "127.0.0.1:6379"}}
}

func (x *RedisNode) Descriptor() types.NodeDescriptor {
	return types.NodeDescriptor{
		TypeName:    types.TypeRedis,
		DisplayName: "Redis",
		Description: "Runs a redis command, the reply becomes the message body",
		Kind:        types.Middle,
	}
}

// Init 初始化
func (x *RedisNode) Init(_ types.Config, configuration types.Configuration) error {
	if err := base.Decode(configuration, &x.Config); err != nil {
		return err
	}
	var err error
	if x.command, err = el.NewTemplate(x.Config.Command); err != nil {
		return base.InvalidConfig("command: %s", err)
	}
	x.args = x.args[:0]
	for i, arg := range x.Config.Args {
		tmpl, err := el.NewTemplate(arg)
		if err != nil {
			return base.InvalidConfig("args[%d]: %s", i, err)
		}
		x.args = append(x.args, tmpl)
	}
	return x.SharedClient.Init(false, func() (*redis.Client, error) {
		return redis.NewClient(&redis.Options{
			Addr:     x.Config.Server,
			Password: x.Config.Password,
			DB:       x.Config.Db,
			PoolSize: x.Config.PoolSize,
		}), nil
	}, func(client *redis.Client) error {
		return client.Close()
	})
}

// OnMsg 处理消息
func (x *RedisNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	if err := x.BeginOp(); err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	defer x.EndOp()
	client, err := x.Get()
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	env := base.NodeUtils.GetEnv(ctx, msg)
	cmdArgs, err := x.commandArgs(env)
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	result, err := client.Do(ctx.GetContext(), cmdArgs...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		ctx.TellFailure(msg, err)
		return
	}
	msg.Data = map[string]interface{}{"result": normalizeReply(result)}
	ctx.TellSuccess(msg)
}

func (x *RedisNode) commandArgs(env map[string]interface{}) ([]interface{}, error) {
	cmd, err := x.command.ExecuteAsString(env)
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, 0, len(x.args)+1)
	out = append(out, cmd)
	for i, tmpl := range x.args {
		v, err := tmpl.Execute(env)
		if err != nil {
			return nil, fmt.Errorf("args[%d]: %w", i, err)
		}
		switch v.(type) {
		case string, int, int64, float64, bool, []byte:
		default:
			v = fmt.Sprint(v)
		}
		out = append(out, v)
	}
	return out, nil
}

// Destroy 销毁
func (x *RedisNode) Destroy() {
	x.GracefulShutdown(5 * time.Second)
}

// Ping checks the connection, used by tests and the serve health check.
func (x *RedisNode) Ping(ctx context.Context) error {
	client, err := x.Get()
	if err != nil {
		return err
	}
	return client.Ping(ctx).Err()
}

// normalizeReply 把 redis 回复转换成消息体可用的值
func normalizeReply(v interface{}) interface{} {
	switch r := v.(type) {
	case int64:
		return float64(r)
	case []byte:
		return string(r)
	case []interface{}:
		out := make([]interface{}, len(r))
		for i, item := range r {
			out[i] = normalizeReply(item)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(r))
		for k, item := range r {
			out[fmt.Sprint(k)] = normalizeReply(item)
		}
		return out
	default:
		return r
	}
}
