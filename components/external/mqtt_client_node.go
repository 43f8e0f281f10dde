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
	"time"

	"github.com/rulego/rulechain/api/types"
	"github.com/rulego/rulechain/components/base"
	"github.com/rulego/rulechain/utils/el"
	"github.com/rulego/rulechain/utils/mqtt"
)

func init() {
	Registry.Add(&MqttClientNode{})
}

// MqttClientNodeConfiguration 节点配置
type MqttClientNodeConfiguration struct {
	// Server mqtt broker 地址，例如 tcp://127.0.0.1:1883
	Server string `json:"server" validate:"required"`
	// Topic 发布主题，支持 ${} 变量
	Topic    string `json:"topic" validate:"required"`
	Qos      uint8  `json:"qos" validate:"lte=2"`
	ClientId string `json:"client_id"`
	Username string `json:"username"`
	Password string `json:"password"`
	// ConnectTimeoutMs 连接超时，单位毫秒
	ConnectTimeoutMs int    `json:"connect_timeout_ms" validate:"gte=0"`
	CAFile           string `json:"ca_file"`
	CertFile         string `json:"cert_file"`
	CertKeyFile      string `json:"cert_key_file"`
}

// MqttClientNode 把消息体发布到 mqtt broker，消息不变并通过 `Success` 关系发送到下一个节点
type MqttClientNode struct {
	base.SharedClient[*mqtt.Client]
	//节点配置
	Config MqttClientNodeConfiguration
	topic  el.Template
}

// Type 组件类型
func (x *MqttClientNode) Type() string {
	return types.TypeMqttClient
}

func (x *MqttClientNode) New() types.Node {
	return &MqttClientNode{Config: MqttClientNodeConfiguration{
		Server:           "tcp://127.0.0.1:1883",
		Topic:            "/device/msg",
		ConnectTimeoutMs: 5000,
	}}
}

func (x *MqttClientNode) Descriptor() types.NodeDescriptor {
	return types.NodeDescriptor{
		TypeName:    types.TypeMqttClient,
		DisplayName: "MQTT Client",
		Description: "Publishes the message body to an MQTT topic",
		Kind:        types.Middle,
	}
}

// Init 初始化
func (x *MqttClientNode) Init(_ types.Config, configuration types.Configuration) error {
	if err := base.Decode(configuration, &x.Config); err != nil {
		return err
	}
	var err error
	if x.topic, err = el.NewTemplate(x.Config.Topic); err != nil {
		return base.InvalidConfig("topic: %s", err)
	}
	return x.SharedClient.Init(false, x.initClient, func(client *mqtt.Client) error {
		return client.Close()
	})
}

// OnMsg 处理消息
func (x *MqttClientNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	if err := x.BeginOp(); err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	defer x.EndOp()
	topic, err := x.topic.ExecuteAsString(base.NodeUtils.GetEnv(ctx, msg))
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	client, err := x.Get()
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	if err := client.Publish(topic, x.Config.Qos, []byte(msg.GetDataAsString())); err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	ctx.TellSuccess(msg)
}

// Destroy 销毁
func (x *MqttClientNode) Destroy() {
	x.GracefulShutdown(5 * time.Second)
}

func (x *MqttClientNode) initClient() (*mqtt.Client, error) {
	timeout := time.Duration(x.Config.ConnectTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return mqtt.NewClient(connectCtx, mqtt.Config{
		Server:         x.Config.Server,
		Username:       x.Config.Username,
		Password:       x.Config.Password,
		ClientID:       x.Config.ClientId,
		ConnectTimeout: timeout,
		CleanSession:   true,
		CAFile:         x.Config.CAFile,
		CertFile:       x.Config.CertFile,
		CertKeyFile:    x.Config.CertKeyFile,
	})
}
