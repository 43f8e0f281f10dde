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
	"errors"

	"github.com/rulego/rulechain/api/types"
	"golang.org/x/time/rate"
)

// ErrRateLimited 超过消息处理速率
var ErrRateLimited = errors.New("rate limit exceeded")

// Limiter 限制消息处理速率，超过时 ProcessMsg 返回 InterceptorError
type Limiter struct {
	limiter *rate.Limiter
	//Wait 为true时等待令牌，直到ctx结束
	Wait bool
}

var _ types.MsgInterceptor = (*Limiter)(nil)

// NewLimiter 每秒 perSecond 条消息，突发 burst 条
func NewLimiter(perSecond float64, burst int) *Limiter {
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (a *Limiter) BeforeProcess(ctx context.Context, _ types.RuleMsg) error {
	if a.Wait {
		if err := a.limiter.Wait(ctx); err != nil {
			return errors.Join(ErrRateLimited, err)
		}
		return nil
	}
	if !a.limiter.Allow() {
		return ErrRateLimited
	}
	return nil
}

func (a *Limiter) AfterProcess(context.Context, types.RuleMsg, error) error {
	return nil
}
