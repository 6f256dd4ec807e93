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
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/dexopt/go-dexopt/pkg/cfg"
	"github.com/dexopt/go-dexopt/pkg/ir"
)

// Stats reports what a transformation changed.
type Stats struct {
	// BranchesSimplified counts conditional branches whose outcome was
	// statically determined.
	BranchesSimplified uint
	// InstructionsFolded counts instructions replaced by constant
	// materialisation.
	InstructionsFolded uint
}

// Transform rewrites a method using the converged states of a fixpoint
// iterator: conditional branches which can only go one way become
// unconditional (or disappear), and instructions computing a known constant
// are replaced by constant materialisation.  Applying the transform twice
// yields the same code as applying it once.
type Transform struct {
	config   Config
	transfer transfer
}

// NewTransform constructs a transform with a given configuration.
func NewTransform(config Config) *Transform {
	return &Transform{config, transfer{config}}
}

type editKind uint8

const (
	editRemoveBranch editKind = iota
	editGotoReplace
	editFold
)

type edit struct {
	kind  editKind
	index int
	// dead edge to disconnect, for branch edits
	edge *cfg.Edge
	// surviving edge to retag, for branch edits
	kept *cfg.Edge
	// branch target, for goto replacements
	target string
	// destination register and value, for folds
	reg ir.RegID
	val int64
}

// Apply rewrites the code unit underlying a converged iterator, returning
// statistics about what changed.  The graph is updated alongside the code,
// so downstream passes observe consistent control flow.  Unreachable blocks
// are left intact; removing them is the business of dead-code elimination.
func (p *Transform) Apply(iterator *FixpointIterator, code *ir.Code) Stats {
	var (
		stats Stats
		edits []edit
		graph = iterator.graph
	)
	//
	for _, block := range graph.Blocks() {
		edits = p.collectEdits(iterator, block, edits)
	}
	// Apply from the back so indices remain valid as instructions disappear.
	sort.Slice(edits, func(i int, j int) bool {
		return edits[i].index > edits[j].index
	})
	//
	for _, e := range edits {
		switch e.kind {
		case editFold:
			log.Debugf("folding instruction %d to const v%d %d", e.index, e.reg, e.val)
			code.ReplaceInstruction(e.index, ir.Const(e.reg, e.val))
			stats.InstructionsFolded++
		case editGotoReplace:
			log.Debugf("branch %d can only be taken; rewriting to goto :%s", e.index, e.target)
			code.ReplaceWithGoto(e.index, e.target)
			graph.RemoveEdge(e.edge)
			e.kept.Kind = cfg.GOTO
			stats.BranchesSimplified++
		case editRemoveBranch:
			log.Debugf("branch %d can never be taken; removing", e.index)
			code.RemoveInstruction(e.index)
			graph.RemoveEdge(e.edge)
			graph.ShiftIndices(e.index)
			e.kept.Kind = cfg.GOTO
			stats.BranchesSimplified++
		}
	}
	//
	return stats
}

// collectEdits determines the rewrites applicable within one block, without
// yet mutating anything.
func (p *Transform) collectEdits(iterator *FixpointIterator, block *cfg.Block, edits []edit) []edit {
	var (
		code = iterator.graph.Code()
		env  = iterator.GetEntryStateAt(block)
	)
	// Leave unreachable blocks intact.
	if env.IsBottom() {
		return edits
	}
	//
	for i := block.First(); i < block.Last(); i++ {
		insn := code.At(i)
		next := p.transfer.Instruction(insn, env)
		//
		if p.foldable(insn) {
			if val, ok := next.Get(insn.Dest).GetConstant(); ok {
				edits = append(edits, edit{kind: editFold, index: i, reg: insn.Dest, val: val})
			}
		}
		//
		env = next
	}
	//
	branch := block.Branch()
	//
	if branch == nil {
		return edits
	}
	//
	taken := block.SuccessorByKind(cfg.TAKEN)
	fallthru := block.SuccessorByKind(cfg.FALLTHROUGH)
	//
	if taken == nil || fallthru == nil {
		return edits
	}
	//
	var (
		index     = block.Last() - 1
		takenEnv  = p.transfer.Edge(block, taken, env)
		fallthEnv = p.transfer.Edge(block, fallthru, env)
	)
	// Edge refinement is suppressed when both sides reach the same block, so
	// decide the predicate directly; a branch whose outcome is unknown stays.
	if taken.Target == fallthru.Target {
		pred := branch.Predicate()
		//
		if branch.IsZeroTest() {
			takenEnv = refineZero(pred, branch.Srcs[0], env)
			fallthEnv = refineZero(pred.Negate(), branch.Srcs[0], env)
		} else {
			takenEnv = refinePair(pred, branch.Srcs[0], branch.Srcs[1], env)
			fallthEnv = refinePair(pred.Negate(), branch.Srcs[0], branch.Srcs[1], env)
		}
	}
	//
	switch {
	case takenEnv.IsBottom() && fallthEnv.IsBottom():
		// Block is unreachable after all; leave it for dead-code
		// elimination.
	case fallthEnv.IsBottom():
		edits = append(edits, edit{
			kind: editGotoReplace, index: index, edge: fallthru, kept: taken, target: branch.Target,
		})
	case takenEnv.IsBottom():
		// The fall-through successor follows immediately, so the branch can
		// simply disappear.
		edits = append(edits, edit{kind: editRemoveBranch, index: index, edge: taken, kept: fallthru})
	}
	//
	return edits
}

// foldable determines whether an instruction is eligible for rewriting into
// a constant materialisation.
func (p *Transform) foldable(insn *ir.Instruction) bool {
	if !p.config.FoldArithmetic {
		return false
	}
	//
	switch insn.Opcode {
	case ir.ADD_INT_LIT8, ir.ADD_INT_LIT16:
		return true
	}
	//
	return false
}
