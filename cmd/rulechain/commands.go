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
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rulego/rulechain/api/types"
	"github.com/rulego/rulechain/engine"
	"github.com/rulego/rulechain/utils/fs"
	"github.com/rulego/rulechain/utils/json"
)

// rootOptions 全局参数
type rootOptions struct {
	configPath string
	logLevel   string
}

// load 读取配置文件，命令行 --log-level 优先
func (o *rootOptions) load(cmd *cobra.Command) (Config, *zap.Logger, error) {
	config, err := LoadConfig(o.configPath)
	if err != nil {
		return config, nil, err
	}
	if cmd.Flags().Changed("log-level") {
		config.Log.Level = o.logLevel
	}
	logger, err := newLogger(config.Log.Level)
	if err != nil {
		return config, nil, err
	}
	return config, logger, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:          "rulechain",
		Short:        "Load, validate and run rule chains",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "yaml config file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")
	rootCmd.AddCommand(
		newValidateCmd(opts),
		newRunCmd(opts),
		newServeCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "rulechain v%s\n", version)
			},
		},
	)
	return rootCmd
}

// loadPaths 按顺序加载文件或者目录，返回失败的数量
func loadPaths(cmd *cobra.Command, ruleEngine *engine.RuleEngine, paths []string) int {
	failed := 0
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "FAIL %s: %v\n", path, err)
			failed++
			continue
		}
		files := []string{path}
		if info.IsDir() {
			if files, err = fs.GetChainFiles(path); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "FAIL %s: %v\n", path, err)
				failed++
				continue
			}
		}
		for _, file := range files {
			chainId, err := ruleEngine.LoadChainFromFile(file)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "FAIL %s: %v\n", file, err)
				failed++
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok   %s (%s)\n", file, chainId)
		}
	}
	return failed
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file or directory...]",
		Short: "Check rule chain definitions without running them",
		Long: `Loads every definition into a scratch engine in the order given,
so sub-chain cycles spanning several files are reported too.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ruleEngine, err := engine.NewRuleEngine(types.WithLogger(types.NewZapLogger(zap.NewNop())), types.WithoutDefaultInterceptors())
			if err != nil {
				return err
			}
			defer ruleEngine.Stop()
			if failed := loadPaths(cmd, ruleEngine, args); failed > 0 {
				return fmt.Errorf("%d rule chain definition(s) invalid", failed)
			}
			return nil
		},
	}
}

// runOptions run 命令参数
type runOptions struct {
	paths    []string
	chainId  string
	msgType  string
	data     string
	metadata map[string]string
	timeout  time.Duration
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	runOpts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process one message and print every branch result as json",
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()
			ruleEngine, wp, err := newRuleEngine(config, logger, nil)
			if err != nil {
				return err
			}
			defer wp.Release()
			defer ruleEngine.Stop()
			if failed := loadPaths(cmd, ruleEngine, runOpts.paths); failed > 0 {
				return fmt.Errorf("%d rule chain definition(s) invalid", failed)
			}

			msg, err := types.NewMsgFromJSON(runOpts.msgType, types.BuildMetadata(runOpts.metadata), runOpts.data)
			if err != nil {
				return fmt.Errorf("invalid --data: %w", err)
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if runOpts.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, runOpts.timeout)
				defer cancel()
			}
			result, processErr := ruleEngine.ProcessMsgWithResults(ctx, runOpts.chainId, msg)
			b, err := json.Marshal(newMsgResponse(result, processErr))
			if err != nil {
				return err
			}
			if b, err = json.Format(b); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return processErr
		},
	}
	cmd.Flags().StringSliceVarP(&runOpts.paths, "file", "f", nil, "rule chain files or directories to load")
	cmd.Flags().StringVar(&runOpts.chainId, "chain", "", "chain id, the root chain when empty")
	cmd.Flags().StringVar(&runOpts.msgType, "type", "TEST", "message type")
	cmd.Flags().StringVar(&runOpts.data, "data", "", "message data as json")
	cmd.Flags().StringToStringVar(&runOpts.metadata, "metadata", nil, "message metadata key=value pairs")
	cmd.Flags().DurationVar(&runOpts.timeout, "timeout", 0, "execution timeout")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr, chainsDir string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the http api and the mqtt ingress",
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()
			if cmd.Flags().Changed("addr") {
				config.Server.Addr = addr
			}
			if cmd.Flags().Changed("chains") {
				config.Server.ChainsDir = chainsDir
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, config, logger, nil)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	cmd.Flags().StringVar(&chainsDir, "chains", "", "rule chain directory, overrides server.chains_dir")
	return cmd
}
