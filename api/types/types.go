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

package types

import (
	"context"
)

// OnEndFunc 规则链分支执行完函数
type OnEndFunc = func(ctx RuleContext, msg RuleMsg, err error, relationType string)

// Configuration 组件配置类型
type Configuration map[string]interface{}

// Node 规则引擎节点组件接口
// 把业务封或者通用逻辑装成组件，然后通过规则链配置方式调用该组件
// 实现方式参考`components`包，然后注册到引擎的组件注册器
// engine.Registry().Register(&MyNode{})
type Node interface {
	//New 创建一个组件新实例
	//每个规则链里的规则节点都会创建一个新的实例，数据是独立的
	New() Node
	//Type 组件类型，类型不能重复。
	//用于规则链，node.type_name配置，初始化对应的组件
	Type() string
	//Init 组件初始化，一般做一些组件参数配置或者客户端初始化操作
	//规则链里的规则节点初始化会调用一次，返回错误则规则链加载失败
	Init(ruleConfig Config, configuration Configuration) error
	//OnMsg 处理消息，每条流入组件的数据会经过该函数处理
	//ctx:规则引擎处理消息上下文
	//msg:消息
	//执行完逻辑后，调用ctx.TellSuccess/ctx.TellFailure/ctx.TellNext通知下一个节点，否则会导致规则链无法结束
	//Tell may be called several times while OnMsg runs, or exactly once after it returned.
	OnMsg(ctx RuleContext, msg RuleMsg)
	//Destroy 销毁，做一些资源释放操作
	Destroy()
}

// NodeCtx 节点组件实例的运行时信息
type NodeCtx interface {
	// GetNodeId 节点ID
	GetNodeId() string
	// GetChainId 所属规则链ID
	GetChainId() string
	// Type 组件类型
	Type() string
	// Definition 节点定义
	Definition() *RuleNode
}

// RuleContext 规则引擎消息处理上下文接口
// 处理把消息流转到下一个或者多个节点逻辑
// 根据规则链连接关系查找当前节点的下一个或者多个节点，然后调用对应节点：nextNode.OnMsg(ctx, msg)触发下一个节点的业务逻辑
// 另外处理节点OnMsg之前和之后的拦截器
type RuleContext interface {
	//TellSuccess 通知规则引擎处理当前消息处理成功，并把消息通过`Success`关系发送到下一个节点
	TellSuccess(msg RuleMsg)
	//TellNext 使用指定的relationTypes，发送消息到下一个节点
	TellNext(msg RuleMsg, relationTypes ...string)
	//TellFailure 通知规则引擎处理当前消息处理失败，并把消息通过`Failure`关系发送到下一个节点
	TellFailure(msg RuleMsg, err error)
	//TellFlow 执行子规则链，onEnd 在子规则链所有分支执行完后调用一次
	TellFlow(ctx context.Context, chainId string, msg RuleMsg, onEnd func(msg RuleMsg, err error))
	//Self 获取当前节点实例
	Self() NodeCtx
	//From 获取上一个节点实例，如果是第一个节点则为nil
	From() NodeCtx
	//ChainId 当前规则链ID
	ChainId() string
	//Config 获取规则引擎配置
	Config() Config
	//SubmitTask 异步执行任务
	SubmitTask(task func())
	//GetContext 获取用于不同组件实例数据共享的上下文，执行超时后会被取消
	GetContext() context.Context
	//Vars 模板可用的上下文变量，对应模板中的 ctx.*
	Vars() map[string]interface{}
}
