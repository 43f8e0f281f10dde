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

package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rulego/rulechain/api/types"
	"github.com/rulego/rulechain/engine"
	"github.com/rulego/rulechain/utils/json"
	"github.com/rulego/rulechain/utils/mqtt"
)

// mqttIngress 订阅 mqtt 主题，把收到的消息交给规则链处理
// 消息类型为主题名称，元数据 topic 为主题
type mqttIngress struct {
	config MqttConfig
	engine *engine.RuleEngine
	logger *zap.Logger
}

// Run 连接 broker 并订阅，直到 ctx 结束
func (x *mqttIngress) Run(ctx context.Context) error {
	client, err := mqtt.NewClient(ctx, mqtt.Config{
		Server:   x.config.Server,
		Username: x.config.Username,
		Password: x.config.Password,
		ClientID: x.config.ClientID,
	})
	if err != nil {
		return fmt.Errorf("connect mqtt broker %s: %w", x.config.Server, err)
	}
	defer client.Close()
	for _, topic := range x.config.Topics {
		if err := client.Subscribe(topic, x.config.Qos, func(topic string, payload []byte) {
			go x.process(ctx, topic, payload)
		}); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		x.logger.Info("mqtt subscribed", zap.String("topic", topic))
	}
	<-ctx.Done()
	return nil
}

func (x *mqttIngress) process(ctx context.Context, topic string, payload []byte) {
	metadata := types.NewMetadata()
	metadata.PutValue("topic", topic)
	msg := types.NewMsg(topic, metadata, json.Decode(payload))
	if _, err := x.engine.ProcessMsg(ctx, x.config.ChainId, msg); err != nil {
		x.logger.Warn("mqtt message failed", zap.String("topic", topic), zap.String("msgId", msg.Id), zap.Error(err))
	}
}
