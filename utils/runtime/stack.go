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

// Package runtime formats goroutine stacks for panic reports.
package runtime

import (
	"fmt"
	"runtime"
	"strings"
)

const maxDepth = 32

// PanicError converts a recovered value to an error that carries the stack of the panic site.
// It must be called from the deferred function that recovered.
func PanicError(recovered interface{}) error {
	return fmt.Errorf("panic: %v\n%s", recovered, stack(4))
}

// stack one "file:line function" per line
func stack(skip int) string {
	pc := make([]uintptr, maxDepth)
	n := runtime.Callers(skip, pc)
	frames := runtime.CallersFrames(pc[:n])
	var build strings.Builder
	for {
		frame, more := frames.Next()
		build.WriteString(fmt.Sprintf(" %s:%d %s\n", frame.File, frame.Line, frame.Function))
		if !more {
			break
		}
	}
	return build.String()
}
