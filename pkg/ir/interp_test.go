// Copyright Dexopt Labs Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package ir

import (
	"strings"
	"testing"
)

func Test_Execute_Return(t *testing.T) {
	check_Execute(t, `
		(const v0 42)
		(return v0)
	`, nil, 42)
}

func Test_Execute_ReturnVoid(t *testing.T) {
	code := mustParse(t, "(return-void)")
	//
	result, err := Execute(code, nil, 100)
	if err != nil {
		t.Fatal(err)
	} else if result.HasValue {
		t.Errorf("void return produced a value (%d)", result.Value)
	}
}

func Test_Execute_Branching(t *testing.T) {
	source := `
		(load-param v0)
		(if-ltz v0 :neg)
		(const v1 1)
		(return v1)
		:neg
		(const v1 -1)
		(return v1)
	`
	//
	check_Execute(t, source, []int64{5}, 1)
	check_Execute(t, source, []int64{0}, 1)
	check_Execute(t, source, []int64{-5}, -1)
}

func Test_Execute_Loop(t *testing.T) {
	// count down from the parameter, counting the iterations
	source := `
		(load-param v0)
		(const v1 0)
		:loop
		(if-eqz v0 :done)
		(add-int/lit8 v1 v1 1)
		(add-int/lit8 v0 v0 -1)
		(goto :loop)
		:done
		(return v1)
	`
	//
	check_Execute(t, source, []int64{0}, 0)
	check_Execute(t, source, []int64{3}, 3)
	check_Execute(t, source, []int64{10}, 10)
}

func Test_Execute_CmpLong(t *testing.T) {
	source := `
		(load-param v0)
		(load-param v1)
		(cmp-long v2 v0 v1)
		(return v2)
	`
	//
	check_Execute(t, source, []int64{0, 1}, -1)
	check_Execute(t, source, []int64{1, 1}, 0)
	check_Execute(t, source, []int64{1, 0}, 1)
}

func Test_Execute_AddWraps(t *testing.T) {
	// 32bit arithmetic wraps around
	check_Execute(t, `
		(const v0 2147483647)
		(add-int/lit8 v0 v0 1)
		(return v0)
	`, nil, -2147483648)
}

func Test_Execute_StepBudget(t *testing.T) {
	code := mustParse(t, ":loop\n(goto :loop)")
	//
	if _, err := Execute(code, nil, 100); err == nil {
		t.Errorf("expected step budget error")
	} else if !strings.Contains(err.Error(), "step budget") {
		t.Errorf("incorrect error: %v", err)
	}
}

func Test_Execute_MissingParam(t *testing.T) {
	code := mustParse(t, "(load-param v0)\n(return v0)")
	//
	if _, err := Execute(code, nil, 100); err == nil {
		t.Errorf("expected missing parameter error")
	}
}

func Test_Execute_Invoke(t *testing.T) {
	code := mustParse(t, "(invoke-static helper)\n(return-void)")
	//
	if _, err := Execute(code, nil, 100); err == nil {
		t.Errorf("expected error for method invocation")
	}
}

func check_Execute(t *testing.T, source string, params []int64, expected int64) {
	t.Helper()
	//
	code := mustParse(t, source)
	//
	result, err := Execute(code, params, 100_000)
	if err != nil {
		t.Fatal(err)
	} else if !result.HasValue {
		t.Errorf("expected a returned value")
	} else if result.Value != expected {
		t.Errorf("incorrect result (was %d, expected %d)", result.Value, expected)
	}
}
