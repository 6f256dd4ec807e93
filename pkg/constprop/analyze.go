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
	"math"

	"github.com/dexopt/go-dexopt/pkg/cfg"
	"github.com/dexopt/go-dexopt/pkg/ir"
)

// transfer implements the abstract semantics of instructions and of branch
// predicates.  Both parts are total and monotone: unknown or unmodelled
// semantics degrade to top rather than failing.
type transfer struct {
	config Config
}

// Instruction applies the abstract semantics of one instruction to an
// environment.
func (p *transfer) Instruction(insn *ir.Instruction, env Environment) Environment {
	if env.IsBottom() {
		return env
	}
	//
	switch insn.Opcode {
	case ir.NOP, ir.GOTO, ir.RETURN, ir.RETURN_VOID:
		return env
	case ir.CONST:
		return env.Set(insn.Dest, Of(insn.Literal))
	case ir.CONST_WIDE:
		// The low register of the pair carries the value; the high half is
		// not tracked.
		return env.Set(insn.Dest, Of(insn.Literal)).Set(insn.Dest+1, Top())
	case ir.MOVE:
		return env.Set(insn.Dest, env.Get(insn.Srcs[0]))
	case ir.MOVE_WIDE:
		return env.Set(insn.Dest, env.Get(insn.Srcs[0])).Set(insn.Dest+1, Top())
	case ir.MOVE_RESULT:
		env = env.Set(insn.Dest, env.Get(ir.RESULT_REGISTER))
		//
		return env.Set(ir.RESULT_REGISTER, Top())
	case ir.INVOKE_STATIC:
		return env.Set(ir.RESULT_REGISTER, Top())
	case ir.CMP_LONG:
		return env.Set(insn.Dest, cmpLong(env.Get(insn.Srcs[0]), env.Get(insn.Srcs[1])))
	case ir.ADD_INT_LIT8, ir.ADD_INT_LIT16:
		return env.Set(insn.Dest, p.addLiteral(env.Get(insn.Srcs[0]), insn.Literal))
	}
	//
	if insn.IsConditional() {
		// Branch predicates act on edges, not on the state itself.
		return env
	}
	// Unmodelled semantics: clobber whatever is written.
	if insn.HasDest() {
		env = env.Set(insn.Dest, Top())
	}
	//
	return env.Set(ir.RESULT_REGISTER, Top())
}

// addLiteral models the add-with-literal family.  The fold applies only when
// enabled, when the operand is a single known value, and when the result
// fits the 32bit width of the instruction; otherwise the result is unknown.
func (p *transfer) addLiteral(src Value, literal int64) Value {
	if !p.config.FoldArithmetic {
		return Top()
	}
	//
	val, ok := src.GetConstant()
	//
	if !ok {
		return Top()
	}
	// Guard 64bit wraparound before summing.
	if literal > 0 && val > math.MaxInt64-literal {
		return Top()
	} else if literal < 0 && val < math.MinInt64-literal {
		return Top()
	}
	//
	sum := val + literal
	// Skip folds overflowing the declared operand width.
	if sum < math.MinInt32 || sum > math.MaxInt32 {
		return Top()
	}
	//
	return Of(sum)
}

// cmpLong models the three-way comparison, computing the sign of lhs - rhs
// from the operand bounds alone.
func cmpLong(lhs Value, rhs Value) Value {
	if lhs.IsBottom() || rhs.IsBottom() {
		return Bottom()
	}
	//
	switch {
	case lhs.MaxElement() < rhs.MinElement():
		return Of(-1)
	case lhs.MinElement() > rhs.MaxElement():
		return Of(1)
	}
	// Otherwise join whichever outcomes remain possible.
	result := Bottom()
	//
	if lhs.MinElement() < rhs.MaxElement() {
		result = result.Join(Of(-1))
	}
	// The operands can only be equal when their abstractions intersect.
	if !lhs.Meet(rhs).IsBottom() {
		result = result.Join(Of(0))
	}
	//
	if lhs.MaxElement() > rhs.MinElement() {
		result = result.Join(Of(1))
	}
	//
	return result
}

// ============================================================================
// Edge refinement
// ============================================================================

// Edge refines an environment along one outgoing edge of a block, using the
// predicate of the block's terminating conditional branch.  The refinement
// may collapse to bottom, meaning the edge cannot be crossed.
func (p *transfer) Edge(src *cfg.Block, edge *cfg.Edge, env Environment) Environment {
	branch := src.Branch()
	//
	if branch == nil || env.IsBottom() {
		return env
	} else if edge.Kind != cfg.TAKEN && edge.Kind != cfg.FALLTHROUGH {
		return env
	}
	// When both sides of the branch lead to the same block, the two
	// refinements collapse at the join; strengthening either edge would
	// falsely narrow the successor.
	taken := src.SuccessorByKind(cfg.TAKEN)
	fallthru := src.SuccessorByKind(cfg.FALLTHROUGH)
	//
	if taken != nil && fallthru != nil && taken.Target == fallthru.Target {
		return env
	}
	//
	pred := branch.Predicate()
	//
	if edge.Kind == cfg.FALLTHROUGH {
		pred = pred.Negate()
	}
	//
	if branch.IsZeroTest() {
		return refineZero(pred, branch.Srcs[0], env)
	}
	//
	return refinePair(pred, branch.Srcs[0], branch.Srcs[1], env)
}

// refineZero narrows a register by a comparison against zero.
func refineZero(pred ir.Pred, reg ir.RegID, env Environment) Environment {
	var sign Sign
	//
	switch pred {
	case ir.EQ:
		sign = EQZ
	case ir.NE:
		sign = NEZ
	case ir.LT:
		sign = LTZ
	case ir.GE:
		sign = GEZ
	case ir.GT:
		sign = GTZ
	case ir.LE:
		sign = LEZ
	}
	//
	return env.Set(reg, env.Get(reg).Meet(OfSign(sign)))
}

// refinePair narrows both registers of a two-register comparison.
func refinePair(pred ir.Pred, lhs ir.RegID, rhs ir.RegID, env Environment) Environment {
	var (
		a = env.Get(lhs)
		b = env.Get(rhs)
	)
	// Decide the branch outright when both operands are known.
	aval, aok := a.GetConstant()
	bval, bok := b.GetConstant()
	//
	if aok && bok {
		if evalPred(pred, aval, bval) {
			return env
		}
		//
		return BottomEnvironment()
	}
	//
	switch pred {
	case ir.EQ:
		// Equal operands both lie in the intersection of their
		// abstractions.
		m := a.Meet(b)
		//
		return env.Set(lhs, m).Set(rhs, m)
	case ir.NE:
		// The sign lattice can only express "not equal to zero".
		if aok && aval == 0 {
			env = env.Set(rhs, b.Meet(OfSign(NEZ)))
		}
		//
		if bok && bval == 0 {
			env = env.Set(lhs, a.Meet(OfSign(NEZ)))
		}
		//
		return env
	case ir.LT:
		return refineOrder(env, lhs, a, rhs, b, true)
	case ir.LE:
		return refineOrder(env, lhs, a, rhs, b, false)
	case ir.GT:
		return refineOrder(env, rhs, b, lhs, a, true)
	case ir.GE:
		return refineOrder(env, rhs, b, lhs, a, false)
	}
	//
	return env
}

// refineOrder narrows both operands of "lo < hi" (strict) or "lo <= hi",
// bounding each side by the extremal element of the other.
func refineOrder(env Environment, loReg ir.RegID, lo Value, hiReg ir.RegID, hi Value, strict bool) Environment {
	env = env.Set(loReg, lo.Meet(OfSign(signBelow(hi.MaxElement(), strict))))
	//
	if env.IsBottom() {
		return env
	}
	//
	return env.Set(hiReg, hi.Meet(OfSign(signAbove(lo.MinElement(), strict))))
}

// signBelow returns the sign implied for x by x < bound (strict) or
// x <= bound.
func signBelow(bound int64, strict bool) Sign {
	if strict {
		switch {
		case bound <= 0:
			return LTZ
		case bound == 1:
			return LEZ
		}
		//
		return ALL
	}
	//
	switch {
	case bound < 0:
		return LTZ
	case bound == 0:
		return LEZ
	}
	//
	return ALL
}

// signAbove returns the sign implied for x by x > bound (strict) or
// x >= bound.
func signAbove(bound int64, strict bool) Sign {
	if strict {
		switch {
		case bound >= 0:
			return GTZ
		case bound == -1:
			return GEZ
		}
		//
		return ALL
	}
	//
	switch {
	case bound > 0:
		return GTZ
	case bound == 0:
		return GEZ
	}
	//
	return ALL
}

func evalPred(pred ir.Pred, lhs int64, rhs int64) bool {
	switch pred {
	case ir.EQ:
		return lhs == rhs
	case ir.NE:
		return lhs != rhs
	case ir.LT:
		return lhs < rhs
	case ir.GE:
		return lhs >= rhs
	case ir.GT:
		return lhs > rhs
	case ir.LE:
		return lhs <= rhs
	}
	//
	return false
}
