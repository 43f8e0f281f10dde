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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rulego/rulechain/api/types"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// Metrics 收集节点和消息的 prometheus 指标，同时实现节点拦截器和消息拦截器
type Metrics struct {
	nodeTotal    *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec
	msgTotal     *prometheus.CounterVec
	msgInflight  prometheus.Gauge
	//节点开始时间，key为节点上下文
	starts sync.Map
}

var (
	_ types.NodeInterceptor = (*Metrics)(nil)
	_ types.MsgInterceptor  = (*Metrics)(nil)
)

// NewMetrics 创建指标并注册到 registerer
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(nil)
	m := &Metrics{
		nodeTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rulechain_node_executions_total",
			Help: "Node executions by chain, node, type and result.",
		}, []string{"chain", "node", "type", "result"}),
		nodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rulechain_node_duration_seconds",
			Help:    "Time from node start to its first outcome.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"chain", "type"}),
		msgTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rulechain_messages_total",
			Help: "Processed messages by result.",
		}, []string{"result"}),
		msgInflight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rulechain_messages_inflight",
			Help: "Messages being processed.",
		}),
	}
	for _, c := range []prometheus.Collector{m.nodeTotal, m.nodeDuration, m.msgTotal, m.msgInflight} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Before(ctx types.RuleContext, _ types.RuleMsg) error {
	m.starts.Store(ctx, time.Now())
	return nil
}

func (m *Metrics) After(ctx types.RuleContext, _ types.RuleMsg) error {
	m.observe(ctx, resultSuccess)
	return nil
}

func (m *Metrics) OnError(ctx types.RuleContext, _ types.RuleMsg, _ error) error {
	m.observe(ctx, resultFailure)
	return nil
}

func (m *Metrics) observe(ctx types.RuleContext, result string) {
	self := ctx.Self()
	m.nodeTotal.WithLabelValues(ctx.ChainId(), self.GetNodeId(), self.Type(), result).Inc()
	if start, ok := m.starts.LoadAndDelete(ctx); ok {
		m.nodeDuration.WithLabelValues(ctx.ChainId(), self.Type()).Observe(time.Since(start.(time.Time)).Seconds())
	}
}

func (m *Metrics) BeforeProcess(_ context.Context, _ types.RuleMsg) error {
	m.msgInflight.Inc()
	return nil
}

func (m *Metrics) AfterProcess(_ context.Context, _ types.RuleMsg, err error) error {
	m.msgInflight.Dec()
	if err != nil {
		m.msgTotal.WithLabelValues(resultFailure).Inc()
	} else {
		m.msgTotal.WithLabelValues(resultSuccess).Inc()
	}
	return nil
}
