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
package constprop

import (
	"testing"

	"github.com/dexopt/go-dexopt/pkg/ir"
)

func Test_Transform_IfToGoto(t *testing.T) {
	checkTransform(t, Config{}, `
		(const v0 0)
		(if-eqz v0 :if-true-label)
		(const v0 1)
		:if-true-label
		(const v0 2)
	`, `
		(const v0 0)
		(goto :if-true-label)
		(const v0 1)
		:if-true-label
		(const v0 2)
	`)
}

func Test_Transform_EqualsAlwaysTrue(t *testing.T) {
	checkTransform(t, Config{}, `
		(const v0 0)
		(const v1 0)
		(if-eqz v0 :if-true-label-1)
		(const v1 1)
		:if-true-label-1
		(if-eqz v1 :if-true-label-2)
		(const v1 2)
		:if-true-label-2
		(return-void)
	`, `
		(const v0 0)
		(const v1 0)
		(goto :if-true-label-1)
		(const v1 1)
		:if-true-label-1
		(goto :if-true-label-2)
		(const v1 2)
		:if-true-label-2
		(return-void)
	`)
}

func Test_Transform_EqualsAlwaysFalse(t *testing.T) {
	checkTransform(t, Config{}, `
		(const v0 1)
		(const v1 1)
		(if-eqz v0 :if-true-label-1)
		(const v1 0)
		:if-true-label-1
		(if-eqz v1 :if-true-label-2)
		(const v1 2)
		:if-true-label-2
		(return-void)
	`, `
		(const v0 1)
		(const v1 1)
		(const v1 0)
		:if-true-label-1
		(goto :if-true-label-2)
		(const v1 2)
		:if-true-label-2
		(return-void)
	`)
}

func Test_Transform_LessThanAlwaysTrue(t *testing.T) {
	checkTransform(t, Config{}, `
		(const v0 0)
		(const v1 1)
		(if-lt v0 v1 :if-true-label-1)
		(const v1 0)
		:if-true-label-1
		(if-eqz v1 :if-true-label-2)
		(const v1 2)
		:if-true-label-2
		(return-void)
	`, `
		(const v0 0)
		(const v1 1)
		(goto :if-true-label-1)
		(const v1 0)
		:if-true-label-1
		(const v1 2)
		:if-true-label-2
		(return-void)
	`)
}

func Test_Transform_LessThanAlwaysFalse(t *testing.T) {
	checkTransform(t, Config{}, `
		(const v0 1)
		(const v1 0)
		(if-lt v0 v1 :if-true-label-1)
		(const v0 0)
		:if-true-label-1
		(if-eqz v0 :if-true-label-2)
		(const v1 2)
		:if-true-label-2
		(return-void)
	`, `
		(const v0 1)
		(const v1 0)
		(const v0 0)
		:if-true-label-1
		(goto :if-true-label-2)
		(const v1 2)
		:if-true-label-2
		(return-void)
	`)
}

func Test_Transform_InferZero(t *testing.T) {
	checkTransform(t, Config{}, `
		(load-param v0)
		(if-nez v0 :exit)
		(if-eqz v0 :exit)
		(const v0 1)
		:exit
		(return-void)
	`, `
		(load-param v0)
		(if-nez v0 :exit)
		(goto :exit)
		(const v0 1)
		:exit
		(return-void)
	`)
}

func Test_Transform_InferInterval(t *testing.T) {
	checkTransform(t, Config{}, `
		(load-param v0)
		(if-lez v0 :exit)
		(if-gtz v0 :exit)
		(const v0 1)
		:exit
		(return-void)
	`, `
		(load-param v0)
		(if-lez v0 :exit)
		(goto :exit)
		(const v0 1)
		:exit
		(return-void)
	`)
}

// A branch jumping to its own fall-through decides nothing, so neither it
// nor the following test may be rewritten.
func Test_Transform_JumpToImmediateNext(t *testing.T) {
	checkTransform(t, Config{}, `
		(load-param v0)
		(if-eqz v0 :next)
		:next
		(if-eqz v0 :end)
		(const v0 1)
		:end
		(return-void)
	`, `
		(load-param v0)
		(if-eqz v0 :next)
		:next
		(if-eqz v0 :end)
		(const v0 1)
		:end
		(return-void)
	`)
}

func Test_Transform_FoldArithmeticAddLit(t *testing.T) {
	checkTransform(t, Config{FoldArithmetic: true}, `
		(const v0 2147483646)
		(add-int/lit8 v0 v0 1)
		(const v1 2147483647)
		(if-eq v0 v1 :end)
		(const v0 2147483647)
		(add-int/lit8 v0 v0 1)
		:end
		(return-void)
	`, `
		(const v0 2147483646)
		(const v0 2147483647)
		(const v1 2147483647)
		(goto :end)
		(const v0 2147483647)
		(add-int/lit8 v0 v0 1)
		:end
		(return-void)
	`)
}

// Folding is off by default, so the addition stays put.
func Test_Transform_NoFoldByDefault(t *testing.T) {
	checkTransform(t, Config{}, `
		(const v0 1)
		(add-int/lit8 v0 v0 1)
		(return-void)
	`, `
		(const v0 1)
		(add-int/lit8 v0 v0 1)
		(return-void)
	`)
}

func Test_Transform_AnalyzeCmp(t *testing.T) {
	checkTransform(t, Config{}, `
		(load-param v0)
		(if-eqz v0 :b1)
		(if-gez v0 :b2)
		:b0
		(const-wide v0 0)
		(const-wide v1 1)
		(cmp-long v2 v0 v1)
		(const v3 -1)
		(if-eq v2 v3 :end)
		:b1
		(const-wide v0 1)
		(const-wide v1 1)
		(cmp-long v2 v0 v1)
		(const v3 0)
		(if-eq v2 v3 :end)
		:b2
		(const-wide v0 1)
		(const-wide v1 0)
		(cmp-long v2 v0 v1)
		(const v3 1)
		(if-eq v2 v3 :end)
		:end
		(return v2)
	`, `
		(load-param v0)
		(if-eqz v0 :b1)
		(if-gez v0 :b2)
		:b0
		(const-wide v0 0)
		(const-wide v1 1)
		(cmp-long v2 v0 v1)
		(const v3 -1)
		(goto :end)
		:b1
		(const-wide v0 1)
		(const-wide v1 1)
		(cmp-long v2 v0 v1)
		(const v3 0)
		(goto :end)
		:b2
		(const-wide v0 1)
		(const-wide v1 0)
		(cmp-long v2 v0 v1)
		(const v3 1)
		(goto :end)
		:end
		(return v2)
	`)
}

// Applying the transform a second time must change nothing further.
func Test_Transform_Idempotent(t *testing.T) {
	sources := []struct {
		conf   Config
		source string
	}{
		{Config{}, `
			(const v0 0)
			(if-eqz v0 :l)
			(const v0 1)
			:l
			(const v0 2)
		`},
		{Config{FoldArithmetic: true}, `
			(const v0 2147483646)
			(add-int/lit8 v0 v0 1)
			(const v1 2147483647)
			(if-eq v0 v1 :end)
			(const v0 2147483647)
			(add-int/lit8 v0 v0 1)
			:end
			(return-void)
		`},
		{Config{}, `
			(load-param v0)
			(if-nez v0 :exit)
			(if-eqz v0 :exit)
			(const v0 1)
			:exit
			(return-void)
		`},
	}
	//
	for _, test := range sources {
		once := transformed(t, test.conf, assemble(t, test.source))
		twice := transformed(t, test.conf, assemble(t, once))
		//
		if once != twice {
			t.Errorf("transform not idempotent:\nonce:\n%s\ntwice:\n%s", once, twice)
		}
	}
}

// The transform must preserve the concrete behaviour of every method it
// rewrites.
func Test_Transform_PreservesSemantics(t *testing.T) {
	sources := []struct {
		conf   Config
		nparam int
		source string
	}{
		{Config{}, 1, `
			(load-param v0)
			(if-eqz v0 :b1)
			(if-gez v0 :b2)
			:b0
			(const-wide v0 0)
			(const-wide v1 1)
			(cmp-long v2 v0 v1)
			(const v3 -1)
			(if-eq v2 v3 :end)
			:b1
			(const-wide v0 1)
			(const-wide v1 1)
			(cmp-long v2 v0 v1)
			(const v3 0)
			(if-eq v2 v3 :end)
			:b2
			(const-wide v0 1)
			(const-wide v1 0)
			(cmp-long v2 v0 v1)
			(const v3 1)
			(if-eq v2 v3 :end)
			:end
			(return v2)
		`},
		{Config{FoldArithmetic: true}, 1, `
			(load-param v0)
			(const v1 41)
			(add-int/lit8 v1 v1 1)
			(if-ltz v0 :neg)
			(return v1)
			:neg
			(const v1 -1)
			(return v1)
		`},
		{Config{}, 2, `
			(load-param v0)
			(load-param v1)
			(if-lt v0 v1 :less)
			(const v2 0)
			(return v2)
			:less
			(const v2 1)
			(return v2)
		`},
	}
	//
	for _, test := range sources {
		var (
			before = assemble(t, test.source)
			after  = assemble(t, transformed(t, test.conf, assemble(t, test.source)))
		)
		//
		for _, params := range paramGrid(test.nparam) {
			checkSameBehaviour(t, before, after, params)
		}
	}
}

// ===================================================================
// Test Helpers
// ===================================================================

func checkTransform(t *testing.T, conf Config, source string, expected string) {
	t.Helper()
	//
	var (
		actual = transformed(t, conf, assemble(t, source))
		want   = assemble(t, expected).String()
	)
	//
	if actual != want {
		t.Errorf("incorrect transform:\nwas:\n%s\nexpected:\n%s", actual, want)
	}
}

// transformed analyses and rewrites a code unit, returning its canonical
// form.
func transformed(t *testing.T, conf Config, code *ir.Code) string {
	t.Helper()
	//
	graph := buildGraph(t, code)
	iterator := NewFixpointIterator(graph, conf)
	iterator.Run(TopEnvironment())
	NewTransform(conf).Apply(iterator, code)
	//
	return code.String()
}

func checkSameBehaviour(t *testing.T, before *ir.Code, after *ir.Code, params []int64) {
	t.Helper()
	//
	const maxSteps = 10_000
	//
	lhs, lhsErr := ir.Execute(before, params, maxSteps)
	rhs, rhsErr := ir.Execute(after, params, maxSteps)
	//
	if (lhsErr == nil) != (rhsErr == nil) {
		t.Errorf("behaviour diverged on %v: %v versus %v", params, lhsErr, rhsErr)
	} else if lhsErr == nil && (lhs.Value != rhs.Value || lhs.HasValue != rhs.HasValue) {
		t.Errorf("result diverged on %v: %d versus %d", params, lhs.Value, rhs.Value)
	}
}

func paramGrid(nparam int) [][]int64 {
	var (
		samples = []int64{-7, -1, 0, 1, 7}
		grid    [][]int64
	)
	//
	if nparam == 1 {
		for _, v := range samples {
			grid = append(grid, []int64{v})
		}
		//
		return grid
	}
	//
	for _, v := range samples {
		for _, w := range samples {
			grid = append(grid, []int64{v, w})
		}
	}
	//
	return grid
}
