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

	log "github.com/sirupsen/logrus"

	"github.com/dexopt/go-dexopt/pkg/cfg"
)

// FixpointIterator computes, for every basic block of a method, a sound
// over-approximation of the register state on entry and exit.  It iterates
// the transfer function over the control-flow graph in weak topological
// order, widening at component heads until every head stabilises.  Since the
// underlying domain has finite height under widening, iteration always
// terminates.
//
// One iterator owns one graph and one state table; distinct methods may be
// analysed in parallel on distinct iterators.
type FixpointIterator struct {
	graph    *cfg.Graph
	transfer transfer
	initial  Environment
	// Per-block entry and exit states, indexed by block id.
	entries []Environment
	exits   []Environment
	// Set once Run has completed.
	converged bool
}

// NewFixpointIterator constructs an iterator over a given control-flow
// graph.
func NewFixpointIterator(graph *cfg.Graph, config Config) *FixpointIterator {
	return &FixpointIterator{
		graph:    graph,
		transfer: transfer{config},
	}
}

// Run computes the fixpoint from a given entry environment.  Non-entry
// blocks start unreachable; blocks never visited by the ordering (i.e.
// structurally unreachable blocks) remain so.
func (p *FixpointIterator) Run(initial Environment) {
	n := len(p.graph.Blocks())
	p.initial = initial
	p.entries = make([]Environment, n)
	p.exits = make([]Environment, n)
	//
	for i := 0; i < n; i++ {
		p.entries[i] = BottomEnvironment()
		p.exits[i] = BottomEnvironment()
	}
	//
	for _, element := range p.graph.WeakTopologicalOrder() {
		p.analyze(element)
	}
	//
	p.converged = true
}

// GetEntryStateAt returns the converged state on entry to a given block.
func (p *FixpointIterator) GetEntryStateAt(block *cfg.Block) Environment {
	p.requireConverged()
	//
	return p.entries[block.Id()]
}

// GetExitStateAt returns the converged state on exit from a given block.
func (p *FixpointIterator) GetExitStateAt(block *cfg.Block) Environment {
	p.requireConverged()
	//
	return p.exits[block.Id()]
}

// GetStateAt returns the converged state immediately before the instruction
// at a given code index, replaying the enclosing block from its cached entry
// state.
func (p *FixpointIterator) GetStateAt(index int) Environment {
	p.requireConverged()
	//
	for _, block := range p.graph.Blocks() {
		if index < block.First() || index >= block.Last() {
			continue
		}
		//
		env := p.entries[block.Id()]
		//
		for i := block.First(); i < index; i++ {
			env = p.transfer.Instruction(p.graph.Code().At(i), env)
		}
		//
		return env
	}
	//
	panic(fmt.Sprintf("no block contains instruction %d", index))
}

func (p *FixpointIterator) requireConverged() {
	if !p.converged {
		panic("fixpoint iterator queried before Run")
	}
}

// ============================================================================
// Iteration strategy
// ============================================================================

func (p *FixpointIterator) analyze(element cfg.WtoElement) {
	switch e := element.(type) {
	case *cfg.WtoVertex:
		p.analyzeBlock(e.Block, p.entryOf(e.Block))
	case *cfg.WtoComponent:
		p.analyzeComponent(e)
	}
}

// analyzeComponent stabilises one component of the ordering.  The head's
// state is widened between rounds; nested components stabilise within each
// round.
func (p *FixpointIterator) analyzeComponent(component *cfg.WtoComponent) {
	var (
		head  = component.Head
		state = p.entryOf(head)
	)
	//
	for round := 1; ; round++ {
		p.analyzeBlock(head, state)
		//
		for _, element := range component.Elements {
			p.analyze(element)
		}
		// Re-evaluate the head, which now sees its back edges.
		next := p.entryOf(head)
		//
		if next.Leq(state) {
			log.Debugf("block %d stable after %d rounds", head.Id(), round)
			//
			return
		}
		//
		state = state.Widen(next)
	}
}

// entryOf evaluates the entry state of a block as the join of its refined
// predecessor contributions.  Unreachable predecessors contribute nothing.
func (p *FixpointIterator) entryOf(block *cfg.Block) Environment {
	env := BottomEnvironment()
	//
	if block == p.graph.Entry() {
		env = p.initial
	}
	//
	for _, edge := range block.Predecessors() {
		out := p.exits[edge.Source.Id()]
		//
		if out.IsBottom() {
			continue
		}
		//
		env = env.Join(p.transfer.Edge(edge.Source, edge, out))
	}
	//
	return env
}

// analyzeBlock records a block's entry state and propagates it through the
// block's instructions.
func (p *FixpointIterator) analyzeBlock(block *cfg.Block, in Environment) {
	p.entries[block.Id()] = in
	env := in
	//
	for i := block.First(); i < block.Last(); i++ {
		env = p.transfer.Instruction(p.graph.Code().At(i), env)
	}
	//
	p.exits[block.Id()] = env
	//
	if log.IsLevelEnabled(log.DebugLevel) {
		log.Debugf("block %d: in %s out %s", block.Id(), in.String(), env.String())
	}
}
