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
package patricia

import (
	"math/rand"
	"testing"
)

func Test_Patricia_01(t *testing.T) {
	check_InsertGet(t, 10, 32)
}

func Test_Patricia_02(t *testing.T) {
	check_InsertGet(t, 100, 1024)
}

func Test_Patricia_03(t *testing.T) {
	check_InsertGet(t, 1000, 1<<20)
}

func Test_Patricia_04(t *testing.T) {
	// Keys spread across the whole 32bit range, to exercise the top branching
	// bit.
	check_InsertGet(t, 1000, 1<<32)
}

func Test_Patricia_Remove(t *testing.T) {
	var (
		rnd      = rand.New(rand.NewSource(2))
		tree     = Empty[int]()
		expected = make(map[uint32]int)
	)
	//
	for i := 0; i < 1000; i++ {
		key := uint32(rnd.Intn(512))
		tree = tree.Insert(key, i)
		expected[key] = i
	}
	// Remove roughly half of all bindings
	for key := range expected {
		if key%2 == 0 {
			tree = tree.Remove(key)
			delete(expected, key)
		}
	}
	//
	checkMatches(t, tree, expected)
}

func Test_Patricia_Persistence(t *testing.T) {
	tree := Empty[int]()
	//
	for i := uint32(0); i < 100; i++ {
		tree = tree.Insert(i, int(i))
	}
	// Updates must not be visible through the original.
	updated := tree.Insert(50, 5050).Remove(10)
	//
	if v, _ := tree.Get(50); v != 50 {
		t.Errorf("original modified by insert (got %d)", v)
	}
	//
	if _, ok := tree.Get(10); !ok {
		t.Errorf("original modified by remove")
	}
	//
	if v, _ := updated.Get(50); v != 5050 {
		t.Errorf("update lost (got %d)", v)
	}
}

func Test_Patricia_Intersect(t *testing.T) {
	for i := 0; i < 100; i++ {
		check_Intersect(t, rand.New(rand.NewSource(int64(i))))
	}
}

func Test_Patricia_Union(t *testing.T) {
	for i := 0; i < 100; i++ {
		check_Union(t, rand.New(rand.NewSource(int64(i))))
	}
}

func Test_Patricia_ForAll_Order(t *testing.T) {
	var (
		tree = Empty[int]()
		last = -1
		keys = []uint32{0, 7, 3, 1 << 31, 255, 256, 42, 1 << 16}
	)
	//
	for _, k := range keys {
		tree = tree.Insert(k, int(k))
	}
	// Check bindings are visited in increasing key order
	tree.ForAll(func(key uint32, _ int) bool {
		if int(key) <= last {
			t.Errorf("out-of-order visit: %d after %d", key, last)
		}
		//
		last = int(key)
		//
		return true
	})
	//
	if tree.Count() != uint(len(keys)) {
		t.Errorf("incorrect count (was %d, expected %d)", tree.Count(), len(keys))
	}
}

// ===================================================================
// Test Helpers
// ===================================================================

func check_InsertGet(t *testing.T, n int, keyrange int64) {
	var (
		rnd      = rand.New(rand.NewSource(int64(n)))
		tree     = Empty[int]()
		expected = make(map[uint32]int)
	)
	//
	for i := 0; i < n; i++ {
		key := uint32(rnd.Int63n(keyrange))
		tree = tree.Insert(key, i)
		expected[key] = i
	}
	//
	checkMatches(t, tree, expected)
}

func check_Intersect(t *testing.T, rnd *rand.Rand) {
	var (
		left, lmap  = randomTree(rnd, 64, 128)
		right, rmap = randomTree(rnd, 64, 128)
	)
	// Keep every shared key, binding it to the sum of both sides.
	result := left.Intersect(right, func(l int, r int) (int, bool) {
		return l + r, true
	})
	//
	expected := make(map[uint32]int)
	//
	for k, lv := range lmap {
		if rv, ok := rmap[k]; ok {
			expected[k] = lv + rv
		}
	}
	//
	checkMatches(t, result, expected)
}

func check_Union(t *testing.T, rnd *rand.Rand) {
	var (
		left, lmap  = randomTree(rnd, 64, 128)
		right, rmap = randomTree(rnd, 64, 128)
	)
	//
	result := left.Union(right, func(l int, r int) int {
		return l - r
	})
	//
	expected := make(map[uint32]int)
	//
	for k, rv := range rmap {
		expected[k] = rv
	}
	//
	for k, lv := range lmap {
		if rv, ok := rmap[k]; ok {
			expected[k] = lv - rv
		} else {
			expected[k] = lv
		}
	}
	//
	checkMatches(t, result, expected)
}

func randomTree(rnd *rand.Rand, n int, keyrange int64) (Map[int], map[uint32]int) {
	var (
		tree     = Empty[int]()
		expected = make(map[uint32]int)
	)
	//
	for i := 0; i < n; i++ {
		key := uint32(rnd.Int63n(keyrange))
		tree = tree.Insert(key, i)
		expected[key] = i
	}
	//
	return tree, expected
}

func checkMatches(t *testing.T, tree Map[int], expected map[uint32]int) {
	if tree.Count() != uint(len(expected)) {
		t.Errorf("incorrect count (was %d, expected %d)", tree.Count(), len(expected))
	}
	//
	for k, v := range expected {
		if actual, ok := tree.Get(k); !ok {
			t.Errorf("missing key %d", k)
		} else if actual != v {
			t.Errorf("incorrect value for key %d (was %d, expected %d)", k, actual, v)
		}
	}
	// Check no spurious bindings
	tree.ForAll(func(k uint32, v int) bool {
		if _, ok := expected[k]; !ok {
			t.Errorf("spurious key %d", k)
		}
		//
		return true
	})
}
