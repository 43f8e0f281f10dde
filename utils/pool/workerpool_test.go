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

package pool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool(t *testing.T) {
	wp := NewWorkerPool(20000)
	var n int32
	fn := func() {
		atomic.AddInt32(&n, 1)
	}

	for i := 0; i < 10000; i++ {
		require.Nil(t, wp.Submit(fn), "cannot submit function #%d", i)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.Nil(t, wp.Wait(ctx))
	assert.Equal(t, int32(10000), atomic.LoadInt32(&n))
	assert.Equal(t, int64(0), wp.Running())

	wp.Release()
	assert.Equal(t, ErrPoolStopped, wp.Submit(fn))
}

func TestWorkerPoolFull(t *testing.T) {
	wp := NewWorkerPool(1)
	block := make(chan struct{})
	require.Nil(t, wp.Submit(func() { <-block }))
	assert.Equal(t, ErrPoolFull, wp.Submit(func() {}))
	close(block)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.Nil(t, wp.Wait(ctx))
	assert.Nil(t, wp.Submit(func() {}))
}

func TestWorkerPoolDefaults(t *testing.T) {
	wp := &WorkerPool{}
	wp.Start()
	assert.Equal(t, int64(DefaultMaxWorkersCount), wp.MaxWorkersCount)
}
