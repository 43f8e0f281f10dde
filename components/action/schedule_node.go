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

package action

//规则链节点配置示例：
//{
//  "id": "s1",
//  "type_name": "schedule",
//  "config": {
//    "cron": "*/5 * * * * *",
//    "timezone_offset": 8
//  }
//}
import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rulego/rulechain/api/types"
	"github.com/rulego/rulechain/components/base"
)

// ScheduleMsgType 定时触发消息类型
const ScheduleMsgType = "SCHEDULE"

// cronParser accepts an optional seconds field and descriptors such as @every 1m.
var cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func init() {
	Registry.Add(&ScheduleNode{})
}

// ScheduleNodeConfiguration 节点配置
type ScheduleNodeConfiguration struct {
	//cron 表达式，支持秒字段（可选）
	Cron string `json:"cron" validate:"required"`
	//时区偏移，单位小时，例如 8 表示 UTC+8
	TimezoneOffset int `json:"timezone_offset" validate:"gte=-12,lte=14"`
}

// ScheduleNode 定时触发节点
// As a trigger it originates a message at every fire time, each starting a fresh
// traversal from this node. An inbound message is held until the next fire time
// and then sent to the `Success` chain.
type ScheduleNode struct {
	//节点配置
	Config   ScheduleNodeConfiguration
	schedule cron.Schedule
	location *time.Location

	mu   sync.Mutex
	cron *cron.Cron
}

// Type 组件类型
func (x *ScheduleNode) Type() string {
	return types.TypeSchedule
}

func (x *ScheduleNode) New() types.Node {
	return &ScheduleNode{}
}

func (x *ScheduleNode) Descriptor() types.NodeDescriptor {
	return types.NodeDescriptor{
		TypeName:    types.TypeSchedule,
		DisplayName: "Schedule",
		Description: "Originates messages at the fire times of a cron expression",
		Kind:        types.Head,
	}
}

// Init 初始化
func (x *ScheduleNode) Init(_ types.Config, configuration types.Configuration) error {
	if err := base.Decode(configuration, &x.Config); err != nil {
		return err
	}
	schedule, err := cronParser.Parse(x.Config.Cron)
	if err != nil {
		return base.InvalidConfig("cron %q: %s", x.Config.Cron, err)
	}
	x.schedule = schedule
	x.location = time.FixedZone(fmt.Sprintf("UTC%+d", x.Config.TimezoneOffset), x.Config.TimezoneOffset*3600)
	return nil
}

// Next 下一次触发时间
func (x *ScheduleNode) Next(now time.Time) time.Time {
	return x.schedule.Next(now.In(x.location))
}

// OnMsg 等待到下一次触发时间后转发消息
func (x *ScheduleNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	wait := time.Until(x.Next(time.Now()))
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.GetContext().Done():
		ctx.TellFailure(msg, ctx.GetContext().Err())
	case <-timer.C:
		ctx.TellSuccess(msg)
	}
}

// Start 启动定时器，每次触发调用 emit
func (x *ScheduleNode) Start(emit func(msg types.RuleMsg)) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.cron != nil {
		return nil
	}
	x.cron = cron.New(cron.WithParser(cronParser), cron.WithLocation(x.location))
	x.cron.Schedule(x.schedule, cron.FuncJob(func() {
		fireTime := time.Now().In(x.location)
		metadata := types.NewMetadata()
		metadata.PutValue("fire_time", fireTime.Format(time.RFC3339))
		metadata.PutValue("fire_ts", strconv.FormatInt(fireTime.UnixMilli(), 10))
		emit(types.NewMsg(ScheduleMsgType, metadata, map[string]interface{}{
			"fire_time": fireTime.Format(time.RFC3339),
			"cron":      x.Config.Cron,
		}))
	}))
	x.cron.Start()
	return nil
}

// Stop 停止定时器，不等待正在执行的触发
// Executions already started are drained by the rule chain that owns the node.
func (x *ScheduleNode) Stop() {
	x.mu.Lock()
	c := x.cron
	x.cron = nil
	x.mu.Unlock()
	if c != nil {
		c.Stop()
	}
}

// Destroy 销毁
func (x *ScheduleNode) Destroy() {
	x.Stop()
}
