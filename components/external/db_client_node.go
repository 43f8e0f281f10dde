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
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/rulego/rulechain/api/types"
	"github.com/rulego/rulechain/components/base"
	"github.com/rulego/rulechain/utils/el"
	"github.com/rulego/rulechain/utils/str"
)

func init() {
	Registry.Add(&DbClientNode{})
}

const (
	SELECT = "SELECT"
	INSERT = "INSERT"
	DELETE = "DELETE"
	UPDATE = "UPDATE"
)

const (
	RowsAffectedKey = "rowsAffected"
	LastInsertIdKey = "lastInsertId"
)

// DbClientNodeConfiguration 节点配置
type DbClientNodeConfiguration struct {
	// DriverName 数据库驱动名称，mysql或postgres
	DriverName string `json:"driver_name"`
	// Dsn 数据源名称，例如 root:root@tcp(127.0.0.1:3306)/test
	Dsn string `json:"dsn" validate:"required"`
	// PoolSize 最大打开连接数，0 表示不限制
	PoolSize int `json:"pool_size" validate:"gte=0"`
	// Sql SQL语句，支持 ${} 变量，参数使用 ? 占位符
	Sql string `json:"sql" validate:"required"`
	// Params 占位符参数，支持 ${} 变量
	Params []interface{} `json:"params"`
	// GetOne 查询时是否只返回第一条记录
	GetOne bool `json:"get_one"`
}

// DbClientNode 执行 SQL 语句
// SELECT 的结果作为新的消息体：记录列表，或者 get_one=true 时为第一条记录(没有记录时为 null)
// INSERT/UPDATE/DELETE 的结果作为新的消息体：{"rowsAffected":n, "lastInsertId":n}，同时写入元数据
type DbClientNode struct {
	base.SharedClient[*sql.DB]
	//节点配置
	Config         DbClientNodeConfiguration
	opType         string
	sqlTemplate    el.Template
	paramsTemplate []el.Template
}

// Type 组件类型
func (x *DbClientNode) Type() string {
	return types.TypeDbClient
}

func (x *DbClientNode) New() types.Node {
	return &DbClientNode{Config: DbClientNodeConfiguration{
		DriverName: "mysql",
		Dsn:        "root:root@tcp(127.0.0.1:3306)/test",
		Sql:        "select * from test",
	}}
}

func (x *DbClientNode) Descriptor() types.NodeDescriptor {
	return types.NodeDescriptor{
		TypeName:    types.TypeDbClient,
		DisplayName: "Database Client",
		Description: "Runs a SQL statement against mysql or postgres",
		Kind:        types.Middle,
	}
}

// Init 初始化
func (x *DbClientNode) Init(_ types.Config, configuration types.Configuration) error {
	if err := base.Decode(configuration, &x.Config); err != nil {
		return err
	}
	if x.Config.DriverName == "" {
		x.Config.DriverName = "mysql"
	}
	x.Config.Sql = str.ConvertDollarPlaceholder(x.Config.Sql, x.Config.DriverName)
	if !str.CheckHasVar(x.Config.Sql) {
		x.opType = getOpType(x.Config.Sql)
		if err := checkOpType(x.opType, x.Config.Sql); err != nil {
			return base.InvalidConfig("%s", err)
		}
	}
	var err error
	if x.sqlTemplate, err = el.NewTemplate(x.Config.Sql); err != nil {
		return base.InvalidConfig("sql: %s", err)
	}
	x.paramsTemplate = x.paramsTemplate[:0]
	for i, item := range x.Config.Params {
		tmpl, err := el.NewTemplate(item)
		if err != nil {
			return base.InvalidConfig("params[%d]: %s", i, err)
		}
		x.paramsTemplate = append(x.paramsTemplate, tmpl)
	}
	return x.SharedClient.Init(false, x.initClient, func(db *sql.DB) error {
		return db.Close()
	})
}

// OnMsg 处理消息
func (x *DbClientNode) OnMsg(ctx types.RuleContext, msg types.RuleMsg) {
	if err := x.BeginOp(); err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	defer x.EndOp()
	env := base.NodeUtils.GetEnv(ctx, msg)
	sqlStr, err := x.sqlTemplate.ExecuteAsString(env)
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	opType := x.opType
	if opType == "" {
		sqlStr = str.ConvertDollarPlaceholder(sqlStr, x.Config.DriverName)
		opType = getOpType(sqlStr)
		if err := checkOpType(opType, sqlStr); err != nil {
			ctx.TellFailure(msg, err)
			return
		}
	}
	params := make([]interface{}, 0, len(x.paramsTemplate))
	for _, item := range x.paramsTemplate {
		param, err := item.Execute(env)
		if err != nil {
			ctx.TellFailure(msg, err)
			return
		}
		params = append(params, param)
	}
	client, err := x.Get()
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	if opType == SELECT {
		data, err := query(ctx.GetContext(), client, sqlStr, params, x.Config.GetOne)
		if err != nil {
			ctx.TellFailure(msg, err)
			return
		}
		msg.Data = data
		ctx.TellSuccess(msg)
		return
	}
	result, err := client.ExecContext(ctx.GetContext(), sqlStr, params...)
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		ctx.TellFailure(msg, err)
		return
	}
	data := map[string]interface{}{RowsAffectedKey: float64(rowsAffected)}
	msg.Metadata.PutValue(RowsAffectedKey, str.ToString(rowsAffected))
	if opType == INSERT {
		//部分驱动不支持，忽略错误
		lastInsertId, _ := result.LastInsertId()
		data[LastInsertIdKey] = float64(lastInsertId)
		msg.Metadata.PutValue(LastInsertIdKey, str.ToString(lastInsertId))
	}
	msg.Data = data
	ctx.TellSuccess(msg)
}

// Destroy 销毁
func (x *DbClientNode) Destroy() {
	x.GracefulShutdown(5 * time.Second)
}

func (x *DbClientNode) initClient() (*sql.DB, error) {
	db, err := sql.Open(x.Config.DriverName, x.Config.Dsn)
	if err != nil {
		return nil, err
	}
	if x.Config.PoolSize > 0 {
		db.SetMaxOpenConns(x.Config.PoolSize)
		db.SetMaxIdleConns(x.Config.PoolSize)
	}
	return db, nil
}

func query(ctx context.Context, client *sql.DB, sqlStr string, params []interface{}, getOne bool) (interface{}, error) {
	rows, err := client.QueryContext(ctx, sqlStr, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	values := make([]interface{}, len(columns))
	pointers := make([]interface{}, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}
	result := make([]interface{}, 0)
	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(columns))
		for i, column := range columns {
			row[column] = columnValue(values[i])
		}
		result = append(result, row)
		if getOne {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if getOne {
		if len(result) == 0 {
			return nil, nil
		}
		return result[0], nil
	}
	return result, nil
}

func columnValue(v interface{}) interface{} {
	switch value := v.(type) {
	case []byte:
		return string(value)
	case int64:
		return float64(value)
	case int32:
		return float64(value)
	case float32:
		return float64(value)
	case time.Time:
		return value.Format(time.RFC3339Nano)
	default:
		return value
	}
}

func getOpType(sqlStr string) string {
	fields := strings.Fields(sqlStr)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

func checkOpType(opType, sqlStr string) error {
	switch opType {
	case SELECT, INSERT, UPDATE, DELETE:
		return nil
	default:
		return fmt.Errorf("unsupported sql statement: %s", sqlStr)
	}
}
