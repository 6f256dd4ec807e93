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

import "fmt"

// Value abstracts the contents of one register as a reduced product of the
// sign lattice and the constant lattice.  The reduction rule keeps the two
// components mutually consistent: a value whose constant is the singleton v
// carries the sign of v, a value whose sign is EQZ carries the constant 0,
// and a contradiction between the components collapses the whole value to
// bottom.  Every constructor and every lattice operation re-establishes the
// rule, so values are canonical and directly comparable.
type Value struct {
	sign     Sign
	constant Constant
}

// Top returns the value about which nothing is known.
func Top() Value {
	return Value{ALL, ConstantTop()}
}

// Bottom returns the unreachable value.
func Bottom() Value {
	return Value{BOT, ConstantBottom()}
}

// Of abstracts a single known integer.
func Of(val int64) Value {
	return reduce(ALL, ConstantOf(val))
}

// OfSign abstracts an unknown integer of known sign.
func OfSign(sign Sign) Value {
	return reduce(sign, ConstantTop())
}

// reduce re-establishes the reduction rule over a candidate pair.
func reduce(sign Sign, constant Constant) Value {
	if sign.IsBottom() || constant.IsBottom() {
		return Bottom()
	}
	// A zero sign forces the constant to zero.
	if sign == EQZ {
		constant = constant.Meet(ConstantOf(0))
		//
		if constant.IsBottom() {
			return Bottom()
		}
	}
	// A singleton constant forces the sign of its value.
	if val, ok := constant.GetConstant(); ok {
		if !sign.Contains(val) {
			return Bottom()
		}
		//
		sign = sign.Meet(SignFromInt64(val))
	}
	//
	return Value{sign, constant}
}

// Interval returns the sign component of this value.
func (p Value) Interval() Sign {
	return p.sign
}

// GetConstant returns the singleton this value is known to be, along with a
// flag which is false when no single value is known.
func (p Value) GetConstant() (int64, bool) {
	return p.constant.GetConstant()
}

// IsTop determines whether nothing is known about this value.
func (p Value) IsTop() bool {
	return p.sign == ALL && p.constant.IsTop()
}

// IsBottom determines whether this value is unreachable.
func (p Value) IsBottom() bool {
	return p.sign.IsBottom()
}

// MaxElement returns the largest integer this value abstracts.  This will
// panic on bottom.
func (p Value) MaxElement() int64 {
	if val, ok := p.GetConstant(); ok {
		return val
	}
	//
	return p.sign.MaxElement()
}

// MinElement returns the smallest integer this value abstracts.  This will
// panic on bottom.
func (p Value) MinElement() int64 {
	if val, ok := p.GetConstant(); ok {
		return val
	}
	//
	return p.sign.MinElement()
}

// Join returns the least value above both operands.
func (p Value) Join(other Value) Value {
	if p.IsBottom() {
		return other
	} else if other.IsBottom() {
		return p
	}
	//
	return reduce(p.sign.Join(other.sign), p.constant.Join(other.constant))
}

// Meet returns the greatest value below both operands.
func (p Value) Meet(other Value) Value {
	return reduce(p.sign.Meet(other.sign), p.constant.Meet(other.constant))
}

// Widen extrapolates from this value towards another.  The sign component
// has constant height, so joining suffices; the constant component jumps to
// top on any disagreement.
func (p Value) Widen(other Value) Value {
	if p.IsBottom() {
		return other
	} else if other.IsBottom() {
		return p
	}
	//
	constant := p.constant
	//
	if !other.constant.Leq(constant) {
		constant = ConstantTop()
	}
	//
	return reduce(p.sign.Join(other.sign), constant)
}

// Leq determines whether this value is below another in the lattice order.
func (p Value) Leq(other Value) bool {
	return p.sign.Leq(other.sign) && p.constant.Leq(other.constant)
}

func (p Value) String() string {
	switch {
	case p.IsBottom():
		return "bot"
	case p.IsTop():
		return "top"
	}
	//
	if val, ok := p.GetConstant(); ok {
		return fmt.Sprintf("%d", val)
	}
	//
	return p.sign.String()
}
