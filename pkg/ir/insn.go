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
	"fmt"
	"strings"
)

// Instruction represents a single three-address instruction over virtual
// registers.  Rather than a class hierarchy, instructions are a single tagged
// variant: the opcode determines which fields are meaningful.  This keeps
// dispatch over instructions total and easy to check exhaustively.
type Instruction struct {
	// Opcode tag.
	Opcode Opcode
	// Destination register, when the opcode writes one.
	Dest RegID
	// Source registers (zero, one or two, per the opcode).
	Srcs []RegID
	// Literal operand, when the opcode carries one.
	Literal int64
	// Branch target label, when the opcode branches.
	Target string
	// Symbolic operand for invocations (the callee name).
	Symbol string
}

// Pred identifies the comparison performed by a conditional branch.  Zero
// tests compare their register against zero; pair tests compare two
// registers.
type Pred uint8

const (
	// EQ holds when the operands are equal.
	EQ Pred = iota
	// NE holds when the operands are unequal.
	NE
	// LT holds when the first operand is below the second.
	LT
	// GE holds when the first operand is at least the second.
	GE
	// GT holds when the first operand is above the second.
	GT
	// LE holds when the first operand is at most the second.
	LE
)

// Negate returns the predicate holding exactly when this one does not.
func (p Pred) Negate() Pred {
	switch p {
	case EQ:
		return NE
	case NE:
		return EQ
	case LT:
		return GE
	case GE:
		return LT
	case GT:
		return LE
	case LE:
		return GT
	}
	//
	panic("unknown predicate")
}

// ============================================================================
// Constructors
// ============================================================================

// Nop constructs a nop instruction.
func Nop() Instruction {
	return Instruction{Opcode: NOP}
}

// Const constructs an instruction materialising a constant.
func Const(dst RegID, val int64) Instruction {
	return Instruction{Opcode: CONST, Dest: dst, Literal: val}
}

// ConstWide constructs an instruction materialising a wide constant.
func ConstWide(dst RegID, val int64) Instruction {
	return Instruction{Opcode: CONST_WIDE, Dest: dst, Literal: val}
}

// Move constructs a register-to-register copy.
func Move(dst RegID, src RegID) Instruction {
	return Instruction{Opcode: MOVE, Dest: dst, Srcs: []RegID{src}}
}

// MoveWide constructs a pair-to-pair copy.
func MoveWide(dst RegID, src RegID) Instruction {
	return Instruction{Opcode: MOVE_WIDE, Dest: dst, Srcs: []RegID{src}}
}

// MoveResult constructs an instruction reading the result register.
func MoveResult(dst RegID) Instruction {
	return Instruction{Opcode: MOVE_RESULT, Dest: dst}
}

// LoadParam constructs an instruction loading the next method parameter.
func LoadParam(dst RegID) Instruction {
	return Instruction{Opcode: LOAD_PARAM, Dest: dst}
}

// InvokeStatic constructs an invocation of a named method.
func InvokeStatic(callee string, args ...RegID) Instruction {
	return Instruction{Opcode: INVOKE_STATIC, Symbol: callee, Srcs: args}
}

// CmpLong constructs a wide comparison writing -1, 0 or 1.
func CmpLong(dst RegID, lhs RegID, rhs RegID) Instruction {
	return Instruction{Opcode: CMP_LONG, Dest: dst, Srcs: []RegID{lhs, rhs}}
}

// AddLit8 constructs an addition of an 8bit literal.
func AddLit8(dst RegID, src RegID, lit int64) Instruction {
	return Instruction{Opcode: ADD_INT_LIT8, Dest: dst, Srcs: []RegID{src}, Literal: lit}
}

// AddLit16 constructs an addition of a 16bit literal.
func AddLit16(dst RegID, src RegID, lit int64) Instruction {
	return Instruction{Opcode: ADD_INT_LIT16, Dest: dst, Srcs: []RegID{src}, Literal: lit}
}

// IfZero constructs a zero-test branch with a given predicate.
func IfZero(pred Pred, src RegID, target string) Instruction {
	var op Opcode
	//
	switch pred {
	case EQ:
		op = IF_EQZ
	case NE:
		op = IF_NEZ
	case LT:
		op = IF_LTZ
	case GE:
		op = IF_GEZ
	case GT:
		op = IF_GTZ
	case LE:
		op = IF_LEZ
	}
	//
	return Instruction{Opcode: op, Srcs: []RegID{src}, Target: target}
}

// IfPair constructs a two-register branch with a given predicate.
func IfPair(pred Pred, lhs RegID, rhs RegID, target string) Instruction {
	var op Opcode
	//
	switch pred {
	case EQ:
		op = IF_EQ
	case NE:
		op = IF_NE
	case LT:
		op = IF_LT
	case GE:
		op = IF_GE
	case GT:
		op = IF_GT
	case LE:
		op = IF_LE
	}
	//
	return Instruction{Opcode: op, Srcs: []RegID{lhs, rhs}, Target: target}
}

// Goto constructs an unconditional branch.
func Goto(target string) Instruction {
	return Instruction{Opcode: GOTO, Target: target}
}

// Return constructs a value return.
func Return(src RegID) Instruction {
	return Instruction{Opcode: RETURN, Srcs: []RegID{src}}
}

// ReturnVoid constructs a void return.
func ReturnVoid() Instruction {
	return Instruction{Opcode: RETURN_VOID}
}

// ============================================================================
// Inspection
// ============================================================================

// HasDest determines whether this instruction writes a destination register.
func (p *Instruction) HasDest() bool {
	switch opcodes[p.Opcode].shape {
	case shapeDst, shapeDstLit, shapeDstSrc, shapeDstSrcSrc, shapeDstSrcLit:
		return true
	}
	//
	return false
}

// IsWide determines whether the destination occupies a register pair.
func (p *Instruction) IsWide() bool {
	return opcodes[p.Opcode].wide
}

// IsConditional determines whether this is a conditional branch.
func (p *Instruction) IsConditional() bool {
	return p.Opcode >= IF_EQZ && p.Opcode <= IF_LE
}

// IsZeroTest determines whether this is a conditional branch testing a single
// register against zero.
func (p *Instruction) IsZeroTest() bool {
	return p.Opcode >= IF_EQZ && p.Opcode <= IF_LEZ
}

// IsTerminator determines whether control cannot fall through this
// instruction.
func (p *Instruction) IsTerminator() bool {
	switch p.Opcode {
	case GOTO, RETURN, RETURN_VOID:
		return true
	}
	//
	return false
}

// Predicate returns the comparison performed by a conditional branch.  This
// will panic on any other instruction.
func (p *Instruction) Predicate() Pred {
	switch p.Opcode {
	case IF_EQZ, IF_EQ:
		return EQ
	case IF_NEZ, IF_NE:
		return NE
	case IF_LTZ, IF_LT:
		return LT
	case IF_GEZ, IF_GE:
		return GE
	case IF_GTZ, IF_GT:
		return GT
	case IF_LEZ, IF_LE:
		return LE
	}
	//
	panic(fmt.Sprintf("not a conditional branch: %s", p.String()))
}

// String returns the canonical assembly form of this instruction.
func (p *Instruction) String() string {
	var builder strings.Builder
	//
	builder.WriteString("(")
	builder.WriteString(p.Opcode.String())
	//
	switch opcodes[p.Opcode].shape {
	case shapeDstLit:
		fmt.Fprintf(&builder, " v%d %d", p.Dest, p.Literal)
	case shapeDst:
		fmt.Fprintf(&builder, " v%d", p.Dest)
	case shapeDstSrc:
		fmt.Fprintf(&builder, " v%d v%d", p.Dest, p.Srcs[0])
	case shapeDstSrcSrc:
		fmt.Fprintf(&builder, " v%d v%d v%d", p.Dest, p.Srcs[0], p.Srcs[1])
	case shapeDstSrcLit:
		fmt.Fprintf(&builder, " v%d v%d %d", p.Dest, p.Srcs[0], p.Literal)
	case shapeSrc:
		fmt.Fprintf(&builder, " v%d", p.Srcs[0])
	case shapeSrcLabel:
		fmt.Fprintf(&builder, " v%d :%s", p.Srcs[0], p.Target)
	case shapeSrcSrcLabel:
		fmt.Fprintf(&builder, " v%d v%d :%s", p.Srcs[0], p.Srcs[1], p.Target)
	case shapeLabel:
		fmt.Fprintf(&builder, " :%s", p.Target)
	case shapeInvoke:
		fmt.Fprintf(&builder, " %s", p.Symbol)
		//
		for _, src := range p.Srcs {
			fmt.Fprintf(&builder, " v%d", src)
		}
	}
	//
	builder.WriteString(")")
	//
	return builder.String()
}
