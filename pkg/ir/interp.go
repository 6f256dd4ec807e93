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
)

// Result describes the outcome of concretely executing a code unit.
type Result struct {
	// Value returned, when the method returns one.
	Value int64
	// HasValue distinguishes a value return from a void return.
	HasValue bool
	// Steps records how many instructions were executed.
	Steps uint
}

// Execute runs a code unit concretely over 64bit registers, reading
// load-param instructions from the given parameter list in execution order.
// Execution stops at the first return, or fails once the given step budget is
// exhausted (so non-terminating methods produce an error rather than a
// hang).  Wide values are modelled in the low register of their pair.
func Execute(code *Code, params []int64, maxSteps uint) (Result, error) {
	var (
		regs   = make(map[RegID]int64)
		pc     = 0
		param  = 0
		result Result
	)
	//
	for steps := uint(0); ; steps++ {
		if steps >= maxSteps {
			return result, fmt.Errorf("step budget exhausted after %d steps", maxSteps)
		} else if pc < 0 || pc >= code.Len() {
			return result, fmt.Errorf("control fell off the end of the method")
		}
		//
		result.Steps = steps + 1
		insn := code.At(pc)
		//
		switch insn.Opcode {
		case NOP:
			pc++
		case CONST, CONST_WIDE:
			regs[insn.Dest] = insn.Literal
			pc++
		case MOVE, MOVE_WIDE:
			regs[insn.Dest] = regs[insn.Srcs[0]]
			pc++
		case LOAD_PARAM:
			if param >= len(params) {
				return result, fmt.Errorf("missing parameter for %s", insn.String())
			}
			//
			regs[insn.Dest] = params[param]
			param++
			pc++
		case INVOKE_STATIC, MOVE_RESULT:
			return result, fmt.Errorf("cannot execute method invocation (%s)", insn.String())
		case CMP_LONG:
			lhs, rhs := regs[insn.Srcs[0]], regs[insn.Srcs[1]]
			//
			switch {
			case lhs < rhs:
				regs[insn.Dest] = -1
			case lhs > rhs:
				regs[insn.Dest] = 1
			default:
				regs[insn.Dest] = 0
			}
			//
			pc++
		case ADD_INT_LIT8, ADD_INT_LIT16:
			// 32bit arithmetic wraps
			regs[insn.Dest] = int64(int32(regs[insn.Srcs[0]] + insn.Literal))
			pc++
		case GOTO:
			pc = branchTarget(code, insn)
		case RETURN:
			result.Value = regs[insn.Srcs[0]]
			result.HasValue = true
			//
			return result, nil
		case RETURN_VOID:
			return result, nil
		default:
			if !insn.IsConditional() {
				return result, fmt.Errorf("unknown instruction %s", insn.String())
			}
			//
			if evalBranch(insn, regs) {
				pc = branchTarget(code, insn)
			} else {
				pc++
			}
		}
	}
}

func branchTarget(code *Code, insn *Instruction) int {
	index, ok := code.LabelIndex(insn.Target)
	//
	if !ok {
		panic(fmt.Sprintf("unbound label :%s", insn.Target))
	}
	//
	return index
}

func evalBranch(insn *Instruction, regs map[RegID]int64) bool {
	var lhs, rhs int64
	//
	lhs = regs[insn.Srcs[0]]
	//
	if !insn.IsZeroTest() {
		rhs = regs[insn.Srcs[1]]
	}
	//
	switch insn.Predicate() {
	case EQ:
		return lhs == rhs
	case NE:
		return lhs != rhs
	case LT:
		return lhs < rhs
	case GE:
		return lhs >= rhs
	case GT:
		return lhs > rhs
	case LE:
		return lhs <= rhs
	}
	//
	return false
}
