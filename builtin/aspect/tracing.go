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
	"sync"

	"github.com/rulego/rulechain/api/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName 默认 tracer 名称
const TracerName = "github.com/rulego/rulechain"

// Tracing 为每次消息处理和每次节点执行创建 opentelemetry span
type Tracing struct {
	tracer trace.Tracer
	//节点 span，key为节点上下文
	nodeSpans sync.Map
	//消息 span，key为消息ID
	msgSpans sync.Map
}

var (
	_ types.NodeInterceptor = (*Tracing)(nil)
	_ types.MsgInterceptor  = (*Tracing)(nil)
)

// NewTracing tracer 为空时使用全局 TracerProvider
func NewTracing(tracer trace.Tracer) *Tracing {
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}
	return &Tracing{tracer: tracer}
}

func (a *Tracing) Before(ctx types.RuleContext, msg types.RuleMsg) error {
	self := ctx.Self()
	_, span := a.tracer.Start(ctx.GetContext(), "node "+self.Type(),
		trace.WithAttributes(
			attribute.String("rulechain.chain_id", ctx.ChainId()),
			attribute.String("rulechain.node_id", self.GetNodeId()),
			attribute.String("rulechain.node_type", self.Type()),
			attribute.String("rulechain.msg_id", msg.Id),
		))
	a.nodeSpans.Store(ctx, span)
	return nil
}

func (a *Tracing) After(ctx types.RuleContext, _ types.RuleMsg) error {
	if v, ok := a.nodeSpans.LoadAndDelete(ctx); ok {
		span := v.(trace.Span)
		span.SetStatus(codes.Ok, "")
		span.End()
	}
	return nil
}

func (a *Tracing) OnError(ctx types.RuleContext, _ types.RuleMsg, err error) error {
	if v, ok := a.nodeSpans.LoadAndDelete(ctx); ok {
		span := v.(trace.Span)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
	}
	return nil
}

func (a *Tracing) BeforeProcess(ctx context.Context, msg types.RuleMsg) error {
	_, span := a.tracer.Start(ctx, "process "+msg.Type,
		trace.WithAttributes(attribute.String("rulechain.msg_id", msg.Id)))
	a.msgSpans.Store(msg.Id, span)
	return nil
}

func (a *Tracing) AfterProcess(_ context.Context, msg types.RuleMsg, err error) error {
	v, ok := a.msgSpans.LoadAndDelete(msg.Id)
	if !ok {
		return nil
	}
	span := v.(trace.Span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
	return nil
}
