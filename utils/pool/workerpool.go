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

// Package pool provides a bounded goroutine pool for executing rule chain tasks.
package pool

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

const DefaultMaxWorkersCount = 256 * 1024

var (
	// ErrPoolFull is returned by Submit when every worker is busy.
	ErrPoolFull = errors.New("worker pool is full")
	// ErrPoolStopped is returned by Submit after Release.
	ErrPoolStopped = errors.New("worker pool is stopped")
)

// WorkerPool runs submitted tasks on at most MaxWorkersCount goroutines.
// Submit never blocks: when the pool is full the caller decides what to do.
type WorkerPool struct {
	// MaxWorkersCount 最大并发数，默认 DefaultMaxWorkersCount
	MaxWorkersCount int64

	sem     *semaphore.Weighted
	stopped atomic.Bool
	running atomic.Int64
}

// NewWorkerPool creates and starts a pool.
func NewWorkerPool(maxWorkersCount int64) *WorkerPool {
	wp := &WorkerPool{MaxWorkersCount: maxWorkersCount}
	wp.Start()
	return wp
}

func (wp *WorkerPool) Start() {
	if wp.MaxWorkersCount <= 0 {
		wp.MaxWorkersCount = DefaultMaxWorkersCount
	}
	wp.sem = semaphore.NewWeighted(wp.MaxWorkersCount)
	wp.stopped.Store(false)
}

// Submit 提交任务，池已满或者已停止时返回错误
func (wp *WorkerPool) Submit(task func()) error {
	if wp.stopped.Load() {
		return ErrPoolStopped
	}
	if !wp.sem.TryAcquire(1) {
		return ErrPoolFull
	}
	wp.running.Add(1)
	go func() {
		defer func() {
			wp.running.Add(-1)
			wp.sem.Release(1)
		}()
		task()
	}()
	return nil
}

// Running returns the number of tasks currently executing.
func (wp *WorkerPool) Running() int64 {
	return wp.running.Load()
}

// Wait blocks until every running task has returned or ctx is done.
func (wp *WorkerPool) Wait(ctx context.Context) error {
	if err := wp.sem.Acquire(ctx, wp.MaxWorkersCount); err != nil {
		return err
	}
	wp.sem.Release(wp.MaxWorkersCount)
	return nil
}

// Release 释放协程池，已提交的任务继续执行
func (wp *WorkerPool) Release() {
	wp.stopped.Store(true)
}
