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

// Label associates a name with a position in the instruction sequence.  A
// label precedes the instruction at its index; a label whose index equals the
// sequence length marks the end of the method.
type Label struct {
	// Name of this label (without the leading colon).
	Name string
	// Index of the instruction this label precedes.
	Index int
}

// Code represents the body of a single method as a linear sequence of
// instructions together with its labels.  Code is the unit on which the
// control-flow graph is built and which optimisation passes mutate.
type Code struct {
	insns  []Instruction
	labels []Label
}

// NewCode constructs a code unit from a given instruction sequence and label
// set.
func NewCode(insns []Instruction, labels []Label) *Code {
	return &Code{insns, labels}
}

// Len returns the number of instructions in this code unit.
func (p *Code) Len() int {
	return len(p.insns)
}

// At returns the instruction at a given index.
func (p *Code) At(index int) *Instruction {
	return &p.insns[index]
}

// Instructions returns the underlying instruction sequence.
func (p *Code) Instructions() []Instruction {
	return p.insns
}

// Labels returns all labels of this code unit.
func (p *Code) Labels() []Label {
	return p.labels
}

// LabelIndex returns the instruction index a given label precedes.
func (p *Code) LabelIndex(name string) (int, bool) {
	for _, l := range p.labels {
		if l.Name == name {
			return l.Index, true
		}
	}
	//
	return 0, false
}

// LabelsAt returns the names of all labels preceding the instruction at a
// given index.
func (p *Code) LabelsAt(index int) []string {
	var names []string
	//
	for _, l := range p.labels {
		if l.Index == index {
			names = append(names, l.Name)
		}
	}
	//
	return names
}

// MaxRegister returns the highest register index mentioned in this code unit,
// or zero when no register is mentioned at all.
func (p *Code) MaxRegister() RegID {
	max := RegID(0)
	//
	for i := range p.insns {
		insn := &p.insns[i]
		//
		if insn.HasDest() && insn.Dest > max {
			max = insn.Dest
		}
		//
		for _, src := range insn.Srcs {
			if src > max {
				max = src
			}
		}
	}
	//
	return max
}

// ============================================================================
// Mutation
// ============================================================================

// ReplaceInstruction swaps the instruction at a given index for another of
// equivalent width.  Labels are unaffected.
func (p *Code) ReplaceInstruction(index int, insn Instruction) {
	p.insns[index] = insn
}

// ReplaceWithGoto swaps the conditional branch at a given index for an
// unconditional branch to a given label.
func (p *Code) ReplaceWithGoto(index int, target string) {
	p.insns[index] = Goto(target)
}

// RemoveInstruction deletes the instruction at a given index.  Labels
// preceding later instructions shift down; labels at the removed index now
// precede its successor.
func (p *Code) RemoveInstruction(index int) {
	p.insns = append(p.insns[:index], p.insns[index+1:]...)
	//
	for i := range p.labels {
		if p.labels[i].Index > index {
			p.labels[i].Index--
		}
	}
}

// String returns the canonical assembly form of this code unit, with one
// label or instruction per line.
func (p *Code) String() string {
	var builder strings.Builder
	//
	for i := 0; i <= len(p.insns); i++ {
		for _, name := range p.LabelsAt(i) {
			fmt.Fprintf(&builder, ":%s\n", name)
		}
		//
		if i < len(p.insns) {
			builder.WriteString(p.insns[i].String())
			builder.WriteString("\n")
		}
	}
	//
	return builder.String()
}
