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
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rulego/rulechain/utils/fs"
)

const shutdownTimeout = 10 * time.Second

// serve 启动 http 服务、规则链目录监听和 mqtt 订阅，直到 ctx 结束或者其中一个失败
// ready 在开始监听后以实际监听地址调用，可以为空
func serve(ctx context.Context, config Config, logger *zap.Logger, ready func(addr string)) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ruleEngine, wp, err := newRuleEngine(config, logger, registry)
	if err != nil {
		return err
	}
	defer wp.Release()
	defer ruleEngine.Stop()

	var chains *chainDir
	if config.Server.ChainsDir != "" {
		chains = newChainDir(config.Server.ChainsDir, ruleEngine, logger)
		if failed := chains.LoadAll(); failed > 0 {
			logger.Warn("some rule chains failed to load", zap.Int("failed", failed))
		}
	}

	ln, err := net.Listen("tcp", config.Server.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           newRouter(ruleEngine, registry, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("starting server", zap.String("addr", ln.Addr().String()), zap.String("version", version))
	if ready != nil {
		ready(ln.Addr().String())
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if chains != nil && config.Server.Watch && fs.IsExist(config.Server.ChainsDir) {
		g.Go(func() error {
			return chains.Watch(ctx)
		})
	}
	if config.Mqtt.Server != "" {
		ingress := &mqttIngress{config: config.Mqtt, engine: ruleEngine, logger: logger}
		g.Go(func() error {
			return ingress.Run(ctx)
		})
	}
	err = g.Wait()
	logger.Info("server stopped", zap.Error(err))
	return err
}
