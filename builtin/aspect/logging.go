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

package aspect

import (
	"context"

	"github.com/rulego/rulechain/api/types"
)

var (
	_ types.NodeInterceptor = (*NodeLogging)(nil)
	_ types.MsgInterceptor  = (*MsgLogging)(nil)
)

// NodeLogging 节点执行日志，debug级别，错误为warn级别
type NodeLogging struct {
	logger types.Logger
}

// NewNodeLogging logger 为空时使用默认日志
func NewNodeLogging(logger types.Logger) *NodeLogging {
	if logger == nil {
		logger = types.DefaultLogger()
	}
	return &NodeLogging{logger: logger}
}

func (a *NodeLogging) Before(ctx types.RuleContext, msg types.RuleMsg) error {
	self := ctx.Self()
	a.logger.Debugf("chain=%s node=%s type=%s msgId=%s: start", ctx.ChainId(), self.GetNodeId(), self.Type(), msg.Id)
	return nil
}

func (a *NodeLogging) After(ctx types.RuleContext, msg types.RuleMsg) error {
	self := ctx.Self()
	a.logger.Debugf("chain=%s node=%s type=%s msgId=%s: done", ctx.ChainId(), self.GetNodeId(), self.Type(), msg.Id)
	return nil
}

func (a *NodeLogging) OnError(ctx types.RuleContext, msg types.RuleMsg, err error) error {
	self := ctx.Self()
	a.logger.Warnf("chain=%s node=%s type=%s msgId=%s: %v", ctx.ChainId(), self.GetNodeId(), self.Type(), msg.Id, err)
	return nil
}

// MsgLogging 消息处理日志
type MsgLogging struct {
	logger types.Logger
}

// NewMsgLogging logger 为空时使用默认日志
func NewMsgLogging(logger types.Logger) *MsgLogging {
	if logger == nil {
		logger = types.DefaultLogger()
	}
	return &MsgLogging{logger: logger}
}

func (a *MsgLogging) BeforeProcess(_ context.Context, msg types.RuleMsg) error {
	a.logger.Debugf("msgId=%s type=%s: processing", msg.Id, msg.Type)
	return nil
}

func (a *MsgLogging) AfterProcess(_ context.Context, msg types.RuleMsg, err error) error {
	if err != nil {
		a.logger.Warnf("msgId=%s type=%s: processed with error: %v", msg.Id, msg.Type, err)
	} else {
		a.logger.Debugf("msgId=%s type=%s: processed", msg.Id, msg.Type)
	}
	return nil
}
