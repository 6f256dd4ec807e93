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
package cfg

import (
	"fmt"

	"github.com/dexopt/go-dexopt/pkg/ir"
	"github.com/dexopt/go-dexopt/pkg/util/collection/bit"
)

// EdgeKind tags a control-flow edge with the manner in which control crosses
// it.
type EdgeKind uint8

const (
	// GOTO marks unconditional flow, including straight-line flow into a
	// labelled block.
	GOTO EdgeKind = iota
	// TAKEN marks the branch-taken side of a conditional.
	TAKEN
	// FALLTHROUGH marks the not-taken side of a conditional.
	FALLTHROUGH
	// SWITCH marks a switch case edge, keyed by its case value.
	SWITCH
	// CATCH marks flow into an exception handler.
	CATCH
	// EXIT marks flow from a returning block into the synthetic exit block.
	EXIT
)

// Edge is a directed control-flow edge between two basic blocks.
type Edge struct {
	// Kind of this edge.
	Kind EdgeKind
	// Source block.
	Source *Block
	// Target block.
	Target *Block
	// Key holds the case value for SWITCH edges.
	Key int64
}

// Block is a maximal straight-line run of instructions.  Its instruction
// range indexes into the enclosing code unit.
type Block struct {
	graph *Graph
	id    int
	// Instruction range [first, last).
	first int
	last  int
	//
	succs []*Edge
	preds []*Edge
}

// Id returns a dense identifier for this block, unique within its graph.
func (p *Block) Id() int {
	return p.id
}

// First returns the index of this block's first instruction.
func (p *Block) First() int {
	return p.first
}

// Last returns the index one past this block's final instruction.
func (p *Block) Last() int {
	return p.last
}

// Len returns the number of instructions in this block.
func (p *Block) Len() int {
	return p.last - p.first
}

// Instructions returns the instructions of this block.
func (p *Block) Instructions() []ir.Instruction {
	return p.graph.code.Instructions()[p.first:p.last]
}

// Successors returns the outgoing edges of this block.
func (p *Block) Successors() []*Edge {
	return p.succs
}

// Predecessors returns the incoming edges of this block.
func (p *Block) Predecessors() []*Edge {
	return p.preds
}

// Branch returns this block's terminating conditional branch, or nil when the
// block does not end in one.
func (p *Block) Branch() *ir.Instruction {
	if p.last > p.first {
		insn := p.graph.code.At(p.last - 1)
		//
		if insn.IsConditional() {
			return insn
		}
	}
	//
	return nil
}

// SuccessorByKind returns this block's outgoing edge of a given kind, or nil
// when it has none.
func (p *Block) SuccessorByKind(kind EdgeKind) *Edge {
	for _, e := range p.succs {
		if e.Kind == kind {
			return e
		}
	}
	//
	return nil
}

// Graph is the control-flow graph of a single code unit.
type Graph struct {
	code   *ir.Code
	blocks []*Block
	entry  *Block
	exit   *Block
}

// Code returns the code unit underlying this graph.
func (p *Graph) Code() *ir.Code {
	return p.code
}

// Blocks returns all basic blocks, in instruction order.
func (p *Graph) Blocks() []*Block {
	return p.blocks
}

// Entry returns the block at which execution of the method begins.
func (p *Graph) Entry() *Block {
	return p.entry
}

// Exit returns the block at which every execution of the method ends.  When
// several blocks return, this is a synthetic empty block linked from each of
// them.
func (p *Graph) Exit() *Block {
	return p.exit
}

// RemoveEdge disconnects an edge from both its endpoints.  This is used by
// transformation passes to keep the graph consistent with rewritten code.
func (p *Graph) RemoveEdge(edge *Edge) {
	edge.Source.succs = removeEdge(edge.Source.succs, edge)
	edge.Target.preds = removeEdge(edge.Target.preds, edge)
}

// ShiftIndices adjusts every block's instruction range to account for the
// removal of the instruction at a given index.
func (p *Graph) ShiftIndices(index int) {
	for _, b := range p.blocks {
		if b.first > index {
			b.first--
		}
		//
		if b.last > index {
			b.last--
		}
	}
}

func removeEdge(edges []*Edge, edge *Edge) []*Edge {
	for i, e := range edges {
		if e == edge {
			return append(edges[:i], edges[i+1:]...)
		}
	}
	//
	return edges
}

// ============================================================================
// Construction
// ============================================================================

// Build constructs the control-flow graph of a given code unit.  Blocks are
// split at labels, at branch targets and after every branch or return; a
// synthetic exit block is appended when the method has several return points.
func Build(code *ir.Code) (*Graph, error) {
	if code.Len() == 0 {
		return nil, fmt.Errorf("cannot build control-flow graph of empty method")
	}
	//
	graph := &Graph{code: code}
	leaders := findLeaders(code)
	// Create blocks at leader boundaries.
	blockAt := make([]*Block, code.Len())
	first := 0
	//
	for i := 1; i <= code.Len(); i++ {
		if i == code.Len() || leaders.Contains(uint(i)) {
			block := &Block{graph: graph, id: len(graph.blocks), first: first, last: i}
			graph.blocks = append(graph.blocks, block)
			//
			for j := first; j < i; j++ {
				blockAt[j] = block
			}
			//
			first = i
		}
	}
	// Connect blocks.
	for _, block := range graph.blocks {
		if err := connect(graph, block, blockAt); err != nil {
			return nil, err
		}
	}
	//
	graph.entry = blockAt[0]
	//
	return graph, linkExit(graph)
}

func findLeaders(code *ir.Code) bit.Set {
	var leaders bit.Set
	//
	leaders.Insert(0)
	//
	for _, label := range code.Labels() {
		if label.Index < code.Len() {
			leaders.Insert(uint(label.Index))
		}
	}
	//
	for i := 0; i < code.Len(); i++ {
		insn := code.At(i)
		//
		if insn.IsConditional() || insn.IsTerminator() {
			leaders.Insert(uint(i + 1))
		}
	}
	//
	return leaders
}

func connect(graph *Graph, block *Block, blockAt []*Block) error {
	var (
		code = graph.code
		last = code.At(block.last - 1)
	)
	//
	switch {
	case last.IsConditional():
		target, _ := code.LabelIndex(last.Target)
		//
		if block.last == code.Len() {
			return fmt.Errorf("conditional branch at end of method")
		} else if target >= code.Len() {
			return fmt.Errorf("branch to end of method (:%s)", last.Target)
		}
		//
		addEdge(&Edge{Kind: TAKEN, Source: block, Target: blockAt[target]})
		addEdge(&Edge{Kind: FALLTHROUGH, Source: block, Target: blockAt[block.last]})
	case last.Opcode == ir.GOTO:
		target, _ := code.LabelIndex(last.Target)
		//
		if target >= code.Len() {
			return fmt.Errorf("branch to end of method (:%s)", last.Target)
		}
		//
		addEdge(&Edge{Kind: GOTO, Source: block, Target: blockAt[target]})
	case last.IsTerminator():
		// return; no successor
	case block.last == code.Len():
		// control falls off the end of the method; treated as an exit
	default:
		// straight-line flow into the following block
		addEdge(&Edge{Kind: GOTO, Source: block, Target: blockAt[block.last]})
	}
	//
	return nil
}

func addEdge(edge *Edge) {
	edge.Source.succs = append(edge.Source.succs, edge)
	edge.Target.preds = append(edge.Target.preds, edge)
}

// linkExit determines the exit block, appending a synthetic one when the
// method has several return points (or none, as for a method which loops
// forever).
func linkExit(graph *Graph) error {
	var exits []*Block
	//
	for _, block := range graph.blocks {
		if len(block.succs) == 0 {
			exits = append(exits, block)
		}
	}
	//
	if len(exits) == 1 {
		graph.exit = exits[0]
		//
		return nil
	}
	// Synthesise an empty exit block.
	n := graph.code.Len()
	exit := &Block{graph: graph, id: len(graph.blocks), first: n, last: n}
	graph.blocks = append(graph.blocks, exit)
	graph.exit = exit
	//
	for _, block := range exits {
		addEdge(&Edge{Kind: EXIT, Source: block, Target: exit})
	}
	//
	return nil
}
