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

import "math"

// RegID identifies a virtual register within a method.  Registers are written
// v0, v1, etc in assembly form.
type RegID uint32

// RESULT_REGISTER is a virtual register holding the result of the most recent
// value-producing instruction which does not write a destination register
// directly (e.g. a method invocation).  A subsequent move-result reads it.
const RESULT_REGISTER RegID = math.MaxUint32

// Opcode identifies the operation performed by an instruction.  The set is
// closed, which allows dispatch over instructions to be total.
type Opcode uint8

const (
	// NOP does nothing.
	NOP Opcode = iota
	// CONST materialises a constant into a register.
	CONST
	// CONST_WIDE materialises a constant into a register pair.
	CONST_WIDE
	// MOVE copies one register into another.
	MOVE
	// MOVE_WIDE copies one register pair into another.
	MOVE_WIDE
	// MOVE_RESULT copies the result register into a register.
	MOVE_RESULT
	// LOAD_PARAM loads the next method parameter into a register.
	LOAD_PARAM
	// INVOKE_STATIC invokes a method, leaving its result in the result
	// register.
	INVOKE_STATIC
	// CMP_LONG compares two wide registers, writing -1, 0 or 1.
	CMP_LONG
	// ADD_INT_LIT8 adds an 8bit literal to a register.
	ADD_INT_LIT8
	// ADD_INT_LIT16 adds a 16bit literal to a register.
	ADD_INT_LIT16
	// IF_EQZ branches if a register is zero.
	IF_EQZ
	// IF_NEZ branches if a register is non-zero.
	IF_NEZ
	// IF_LTZ branches if a register is negative.
	IF_LTZ
	// IF_GEZ branches if a register is non-negative.
	IF_GEZ
	// IF_GTZ branches if a register is positive.
	IF_GTZ
	// IF_LEZ branches if a register is non-positive.
	IF_LEZ
	// IF_EQ branches if two registers are equal.
	IF_EQ
	// IF_NE branches if two registers are unequal.
	IF_NE
	// IF_LT branches if the first register is below the second.
	IF_LT
	// IF_GE branches if the first register is at least the second.
	IF_GE
	// IF_GT branches if the first register is above the second.
	IF_GT
	// IF_LE branches if the first register is at most the second.
	IF_LE
	// GOTO branches unconditionally.
	GOTO
	// RETURN returns a register to the caller.
	RETURN
	// RETURN_VOID returns nothing to the caller.
	RETURN_VOID
)

// shape describes the operand layout of an opcode, which drives both the
// assembler and the printer.
type shape uint8

const (
	shapeNone shape = iota
	shapeDstLit
	shapeDst
	shapeDstSrc
	shapeDstSrcSrc
	shapeDstSrcLit
	shapeSrc
	shapeSrcLabel
	shapeSrcSrcLabel
	shapeLabel
	shapeInvoke
)

type opcodeInfo struct {
	name  string
	shape shape
	// wide indicates the destination occupies a register pair.
	wide bool
}

var opcodes = [...]opcodeInfo{
	NOP:           {"nop", shapeNone, false},
	CONST:         {"const", shapeDstLit, false},
	CONST_WIDE:    {"const-wide", shapeDstLit, true},
	MOVE:          {"move", shapeDstSrc, false},
	MOVE_WIDE:     {"move-wide", shapeDstSrc, true},
	MOVE_RESULT:   {"move-result", shapeDst, false},
	LOAD_PARAM:    {"load-param", shapeDst, false},
	INVOKE_STATIC: {"invoke-static", shapeInvoke, false},
	CMP_LONG:      {"cmp-long", shapeDstSrcSrc, false},
	ADD_INT_LIT8:  {"add-int/lit8", shapeDstSrcLit, false},
	ADD_INT_LIT16: {"add-int/lit16", shapeDstSrcLit, false},
	IF_EQZ:        {"if-eqz", shapeSrcLabel, false},
	IF_NEZ:        {"if-nez", shapeSrcLabel, false},
	IF_LTZ:        {"if-ltz", shapeSrcLabel, false},
	IF_GEZ:        {"if-gez", shapeSrcLabel, false},
	IF_GTZ:        {"if-gtz", shapeSrcLabel, false},
	IF_LEZ:        {"if-lez", shapeSrcLabel, false},
	IF_EQ:         {"if-eq", shapeSrcSrcLabel, false},
	IF_NE:         {"if-ne", shapeSrcSrcLabel, false},
	IF_LT:         {"if-lt", shapeSrcSrcLabel, false},
	IF_GE:         {"if-ge", shapeSrcSrcLabel, false},
	IF_GT:         {"if-gt", shapeSrcSrcLabel, false},
	IF_LE:         {"if-le", shapeSrcSrcLabel, false},
	GOTO:          {"goto", shapeLabel, false},
	RETURN:        {"return", shapeSrc, false},
	RETURN_VOID:   {"return-void", shapeNone, false},
}

// String returns the assembly mnemonic for this opcode.
func (p Opcode) String() string {
	return opcodes[p].name
}

// lookupOpcode finds the opcode with a given mnemonic.
func lookupOpcode(name string) (Opcode, bool) {
	for op, info := range opcodes {
		if info.name == name {
			return Opcode(op), true
		}
	}
	//
	return NOP, false
}
