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

// Command rulechain loads rule chain definitions and runs them.
//
//	rulechain validate chains/                    # check definitions, cycles across files included
//	rulechain run -f chains/ --type TEST --data '{"value":21}'
//	rulechain serve -c rulechain.yaml             # http api, /metrics, hot reload, mqtt ingress
package main

import (
	"os"
)

// version server version.
const version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
