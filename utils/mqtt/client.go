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

// Package mqtt wraps the Paho client used by the mqtt_client node to publish
// messages and by the server to subscribe to inbound topics.
package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/gofrs/uuid/v5"
)

// Config 客户端配置
type Config struct {
	//mqtt broker 地址
	Server string
	//用户名
	Username string
	//密码
	Password string
	//重连重试间隔
	MaxReconnectInterval time.Duration
	//连接超时，0 使用 paho 默认值
	ConnectTimeout time.Duration
	CleanSession   bool
	//client Id，为空时随机生成
	ClientID    string
	CAFile      string
	CertFile    string
	CertKeyFile string
}

// Client mqtt客户端
type Client struct {
	client paho.Client
}

// NewClient connects to the broker, retrying every 2 seconds until ctx is done.
func NewClient(ctx context.Context, conf Config) (*Client, error) {
	opts := paho.NewClientOptions()
	opts.AddBroker(conf.Server)
	opts.SetUsername(conf.Username)
	opts.SetPassword(conf.Password)
	opts.SetCleanSession(conf.CleanSession)
	if conf.ClientID == "" {
		opts.SetClientID("rulechain/" + uuid.Must(uuid.NewV4()).String()[:8])
	} else {
		opts.SetClientID(conf.ClientID)
	}
	if conf.MaxReconnectInterval <= 0 {
		conf.MaxReconnectInterval = time.Second * 60
	}
	opts.SetMaxReconnectInterval(conf.MaxReconnectInterval)
	if conf.ConnectTimeout > 0 {
		opts.SetConnectTimeout(conf.ConnectTimeout)
	}

	tlsconfig, err := newTLSConfig(conf.CAFile, conf.CertFile, conf.CertKeyFile)
	if err != nil {
		return nil, fmt.Errorf("error loading mqtt certificate files,ca_cert=%s,tls_cert=%s,tls_key=%s: %w", conf.CAFile, conf.CertFile, conf.CertKeyFile, err)
	}
	if tlsconfig != nil {
		opts.SetTLSConfig(tlsconfig)
	}
	b := &Client{client: paho.NewClient(opts)}
	for {
		token := b.client.Connect()
		if token.Wait() && token.Error() == nil {
			return b, nil
		}
		select {
		case <-ctx.Done():
			return nil, token.Error()
		case <-time.After(2 * time.Second):
		}
	}
}

// Publish 发布数据
func (b *Client) Publish(topic string, qos byte, data []byte) error {
	token := b.client.Publish(topic, qos, false, data)
	token.Wait()
	return token.Error()
}

// Subscribe 订阅主题，收到消息时调用 handler
func (b *Client) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	token := b.client.Subscribe(topic, qos, func(_ paho.Client, m paho.Message) {
		handler(m.Topic(), m.Payload())
	})
	token.Wait()
	return token.Error()
}

func (b *Client) Close() error {
	b.client.Disconnect(500)
	return nil
}

func newTLSConfig(caFile, certFile, certKeyFile string) (*tls.Config, error) {
	if caFile == "" && certFile == "" && certKeyFile == "" {
		return nil, nil
	}
	tlsConfig := &tls.Config{}
	if caFile != "" {
		caCert, err := os.ReadFile(caFile)
		if err != nil {
			return nil, err
		}
		certPool := x509.NewCertPool()
		certPool.AppendCertsFromPEM(caCert)
		tlsConfig.RootCAs = certPool
	}
	if certFile != "" && certKeyFile != "" {
		kp, err := tls.LoadX509KeyPair(certFile, certKeyFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.Certificates = []tls.Certificate{kp}
	}
	return tlsConfig, nil
}
