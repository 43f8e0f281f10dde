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
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config rulechain 服务配置，yaml格式
//
//	server:
//	  addr: ":9090"
//	  chains_dir: ./chains
//	  watch: true
//	engine:
//	  default_timeout: 10s
//	  max_workers: 1024
//	  properties:
//	    site: plant-1
//	mqtt:
//	  server: tcp://127.0.0.1:1883
//	  topics: ["sensors/#"]
type Config struct {
	Server ServerConfig `yaml:"server"`
	Engine EngineConfig `yaml:"engine"`
	Log    LogConfig    `yaml:"log"`
	Mqtt   MqttConfig   `yaml:"mqtt"`
	Limit  LimitConfig  `yaml:"limit"`
}

type ServerConfig struct {
	//http 监听地址
	Addr string `yaml:"addr" validate:"required"`
	//规则链目录
	ChainsDir string `yaml:"chains_dir"`
	//监听规则链目录变化，自动重新加载
	Watch bool `yaml:"watch"`
}

type EngineConfig struct {
	DefaultTimeout         time.Duration     `yaml:"default_timeout" validate:"gte=0"`
	RemoveTimeout          time.Duration     `yaml:"remove_timeout" validate:"gte=0"`
	ScriptMaxExecutionTime time.Duration     `yaml:"script_max_execution_time" validate:"gte=0"`
	MaxWorkers             int64             `yaml:"max_workers" validate:"gte=0"`
	Tracing                bool              `yaml:"tracing"`
	Properties             map[string]string `yaml:"properties"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// MqttConfig 订阅 mqtt 主题，收到的消息交给 ChainId 规则链处理，server 为空时不启用
type MqttConfig struct {
	Server   string   `yaml:"server"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	ClientID string   `yaml:"client_id"`
	Topics   []string `yaml:"topics"`
	Qos      byte     `yaml:"qos" validate:"lte=2"`
	ChainId  string   `yaml:"chain_id"`
}

// LimitConfig 消息限流，per_second 为0时不限流
type LimitConfig struct {
	PerSecond float64 `yaml:"per_second" validate:"gte=0"`
	Burst     int     `yaml:"burst" validate:"gte=0"`
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{Addr: ":9090", ChainsDir: "./chains", Watch: true},
		Engine: EngineConfig{RemoveTimeout: 5 * time.Second},
		Log:    LogConfig{Level: "info"},
		Mqtt:   MqttConfig{Topics: []string{"#"}},
	}
}

// LoadConfig 读取配置文件，path 为空时使用默认配置
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return config, err
		}
		if err := yaml.Unmarshal(b, &config); err != nil {
			return config, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := validator.New().Struct(config); err != nil {
		return config, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}
