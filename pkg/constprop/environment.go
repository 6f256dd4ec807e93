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
	"fmt"
	"strings"

	"github.com/dexopt/go-dexopt/pkg/ir"
	"github.com/dexopt/go-dexopt/pkg/util/collection/patricia"
)

// Environment abstracts the full register state at one program point as a
// mapping from registers to abstract values.  Registers absent from the
// mapping are top, which keeps the environment well-defined over an
// unbounded register space; a distinguished bottom environment represents
// unreachable state.  The mapping is backed by a persistent trie, so the
// copies taken at every transfer share structure and are cheap.
//
// Environments are immutable: every operation returns a new environment.
type Environment struct {
	bottom bool
	regs   patricia.Map[Value]
}

// TopEnvironment returns the environment about which nothing is known.
func TopEnvironment() Environment {
	return Environment{false, patricia.Empty[Value]()}
}

// BottomEnvironment returns the unreachable environment.
func BottomEnvironment() Environment {
	return Environment{true, patricia.Empty[Value]()}
}

// IsBottom determines whether this environment is unreachable.
func (p Environment) IsBottom() bool {
	return p.bottom
}

// Get returns the abstract value of a given register.
func (p Environment) Get(reg ir.RegID) Value {
	if p.bottom {
		return Bottom()
	}
	//
	if val, ok := p.regs.Get(uint32(reg)); ok {
		return val
	}
	//
	return Top()
}

// Set binds a register to an abstract value.  Binding any register to bottom
// collapses the whole environment, since no concrete state can reach it.
func (p Environment) Set(reg ir.RegID, val Value) Environment {
	switch {
	case p.bottom:
		return p
	case val.IsBottom():
		return BottomEnvironment()
	case val.IsTop():
		return Environment{false, p.regs.Remove(uint32(reg))}
	}
	//
	return Environment{false, p.regs.Insert(uint32(reg), val)}
}

// Mutate applies a function to the abstract value of a given register.
func (p Environment) Mutate(reg ir.RegID, fn func(Value) Value) Environment {
	if p.bottom {
		return p
	}
	//
	return p.Set(reg, fn(p.Get(reg)))
}

// Join returns the pointwise join of two environments.  Since absent
// registers are top, only registers constrained on both sides survive.
func (p Environment) Join(other Environment) Environment {
	switch {
	case p.bottom:
		return other
	case other.bottom:
		return p
	}
	//
	regs := p.regs.Intersect(other.regs, func(l Value, r Value) (Value, bool) {
		v := l.Join(r)
		//
		return v, !v.IsTop()
	})
	//
	return Environment{false, regs}
}

// Meet returns the pointwise meet of two environments.  A contradiction on
// any register collapses the result to bottom.
func (p Environment) Meet(other Environment) Environment {
	if p.bottom || other.bottom {
		return BottomEnvironment()
	}
	//
	contradiction := false
	//
	regs := p.regs.Union(other.regs, func(l Value, r Value) Value {
		v := l.Meet(r)
		contradiction = contradiction || v.IsBottom()
		//
		return v
	})
	//
	if contradiction {
		return BottomEnvironment()
	}
	//
	return Environment{false, regs}
}

// Widen extrapolates pointwise from this environment towards another.
func (p Environment) Widen(other Environment) Environment {
	switch {
	case p.bottom:
		return other
	case other.bottom:
		return p
	}
	//
	regs := p.regs.Intersect(other.regs, func(l Value, r Value) (Value, bool) {
		v := l.Widen(r)
		//
		return v, !v.IsTop()
	})
	//
	return Environment{false, regs}
}

// Leq determines whether this environment is below another in the pointwise
// order.
func (p Environment) Leq(other Environment) bool {
	switch {
	case p.bottom:
		return true
	case other.bottom:
		return false
	}
	// Registers unconstrained in other are trivially satisfied.
	return other.regs.ForAll(func(reg uint32, val Value) bool {
		return p.Get(ir.RegID(reg)).Leq(val)
	})
}

// Equal determines whether two environments constrain exactly the same
// registers to exactly the same values.
func (p Environment) Equal(other Environment) bool {
	if p.bottom || other.bottom {
		return p.bottom == other.bottom
	}
	//
	return p.regs.ForAll(func(reg uint32, val Value) bool {
		return other.Get(ir.RegID(reg)) == val
	}) && other.regs.ForAll(func(reg uint32, val Value) bool {
		return p.Get(ir.RegID(reg)) == val
	})
}

func (p Environment) String() string {
	if p.bottom {
		return "bot"
	}
	//
	var builder strings.Builder
	//
	builder.WriteString("{")
	first := true
	//
	p.regs.ForAll(func(reg uint32, val Value) bool {
		if !first {
			builder.WriteString(", ")
		}
		//
		first = false
		//
		if ir.RegID(reg) == ir.RESULT_REGISTER {
			fmt.Fprintf(&builder, "res=%s", val.String())
		} else {
			fmt.Fprintf(&builder, "v%d=%s", reg, val.String())
		}
		//
		return true
	})
	//
	builder.WriteString("}")
	//
	return builder.String()
}
