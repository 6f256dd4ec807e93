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

import "math"

// Sign is an element of the sign lattice: an abstraction of a set of signed
// integers by which of the regions below zero, zero itself and above zero it
// meets.  Encoding each region as one bit makes the lattice operations plain
// bitwise arithmetic: join is or, meet is and, and inclusion is subset.
//
// The lattice, ordered by set inclusion:
//
//	        ALL
//	      /  |  \
//	   LEZ  NEZ  GEZ
//	    | \ / \ / |
//	    | / X   \ |
//	   LTZ  EQZ  GTZ
//	      \  |  /
//	        BOT
type Sign uint8

const (
	// BOT is the empty set of integers.
	BOT Sign = 0b000
	// GTZ abstracts the strictly positive integers.
	GTZ Sign = 0b001
	// EQZ abstracts exactly zero.
	EQZ Sign = 0b010
	// LTZ abstracts the strictly negative integers.
	LTZ Sign = 0b100
	// GEZ abstracts the non-negative integers.
	GEZ Sign = EQZ | GTZ
	// LEZ abstracts the non-positive integers.
	LEZ Sign = LTZ | EQZ
	// NEZ abstracts the non-zero integers.
	NEZ Sign = LTZ | GTZ
	// ALL abstracts every integer.
	ALL Sign = LTZ | EQZ | GTZ
)

// SignFromInt64 abstracts a single integer by its sign.
func SignFromInt64(val int64) Sign {
	switch {
	case val < 0:
		return LTZ
	case val > 0:
		return GTZ
	}
	//
	return EQZ
}

// Join returns the least sign including both operands.
func (p Sign) Join(other Sign) Sign {
	return p | other
}

// Meet returns the greatest sign included in both operands.
func (p Sign) Meet(other Sign) Sign {
	return p & other
}

// Leq determines whether this sign is included in another.
func (p Sign) Leq(other Sign) bool {
	return p&other == p
}

// IsBottom determines whether this sign is the empty set.
func (p Sign) IsBottom() bool {
	return p == BOT
}

// Contains determines whether a given integer is abstracted by this sign.
func (p Sign) Contains(val int64) bool {
	return SignFromInt64(val)&p != 0
}

// MaxElement returns the largest integer abstracted by this sign.  This will
// panic on the empty sign.
func (p Sign) MaxElement() int64 {
	switch {
	case p&GTZ != 0:
		return math.MaxInt64
	case p&EQZ != 0:
		return 0
	case p&LTZ != 0:
		return -1
	}
	//
	panic("empty sign has no maximum element")
}

// MinElement returns the smallest integer abstracted by this sign.  This will
// panic on the empty sign.
func (p Sign) MinElement() int64 {
	switch {
	case p&LTZ != 0:
		return math.MinInt64
	case p&EQZ != 0:
		return 0
	case p&GTZ != 0:
		return 1
	}
	//
	panic("empty sign has no minimum element")
}

func (p Sign) String() string {
	switch p {
	case BOT:
		return "bot"
	case LTZ:
		return "<0"
	case EQZ:
		return "=0"
	case GTZ:
		return ">0"
	case LEZ:
		return "<=0"
	case GEZ:
		return ">=0"
	case NEZ:
		return "!=0"
	}
	//
	return "all"
}
