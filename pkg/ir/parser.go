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
	"strconv"
	"strings"
)

// Parse assembles a textual method body into a code unit.  The surface syntax
// is a sequence of s-expressions, one per instruction, interleaved with
// :label markers:
//
//	(const v0 0)
//	(if-eqz v0 :done)
//	(const v0 1)
//	:done
//	(return-void)
//
// The whole sequence may optionally be wrapped in one outer pair of
// parentheses.  Comments run from ';' to the end of the line.
func Parse(input string) (*Code, error) {
	tokens, err := scan(input)
	//
	if err != nil {
		return nil, err
	}
	//
	parser := &parser{tokens: tokens}
	//
	return parser.parse()
}

// ============================================================================
// Lexer
// ============================================================================

const (
	tokLParen uint = iota
	tokRParen
	tokAtom
	tokEOF
)

type token struct {
	kind uint
	text string
	line int
}

func scan(input string) ([]token, error) {
	var (
		tokens []token
		line   = 1
	)
	//
	for i := 0; i < len(input); {
		c := input[i]
		//
		switch {
		case c == '\n':
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == ';':
			// comment to end of line
			for i < len(input) && input[i] != '\n' {
				i++
			}
		case c == '(':
			tokens = append(tokens, token{tokLParen, "(", line})
			i++
		case c == ')':
			tokens = append(tokens, token{tokRParen, ")", line})
			i++
		default:
			j := i
			//
			for j < len(input) && !isDelimiter(input[j]) {
				j++
			}
			//
			tokens = append(tokens, token{tokAtom, input[i:j], line})
			i = j
		}
	}
	//
	return tokens, nil
}

func isDelimiter(c byte) bool {
	return c == '(' || c == ')' || c == ';' || c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// ============================================================================
// Parser
// ============================================================================

type parser struct {
	tokens []token
	index  int
}

func (p *parser) parse() (*Code, error) {
	var (
		insns  []Instruction
		labels []Label
	)
	// Strip an optional outer wrapper.
	if err := p.stripWrapper(); err != nil {
		return nil, err
	}
	//
	for !p.done() {
		tok := p.peek()
		//
		switch {
		case tok.kind == tokAtom && strings.HasPrefix(tok.text, ":"):
			name := tok.text[1:]
			//
			if name == "" {
				return nil, p.errorf(tok, "empty label")
			}
			//
			for _, l := range labels {
				if l.Name == name {
					return nil, p.errorf(tok, "duplicate label :%s", name)
				}
			}
			//
			labels = append(labels, Label{name, len(insns)})
			p.next()
		case tok.kind == tokLParen:
			insn, err := p.parseInstruction()
			//
			if err != nil {
				return nil, err
			}
			//
			insns = append(insns, insn)
		default:
			return nil, p.errorf(tok, "expected instruction or label, found %q", tok.text)
		}
	}
	//
	code := NewCode(insns, labels)
	// Check branch targets resolve.
	for i := range insns {
		insn := &insns[i]
		//
		if insn.Target != "" {
			if _, ok := code.LabelIndex(insn.Target); !ok {
				return nil, fmt.Errorf("undefined label :%s", insn.Target)
			}
		}
	}
	//
	return code, nil
}

// stripWrapper removes one outer pair of parentheses enclosing the whole
// method body, when present.  The wrapper is recognised by its first element
// being a list or a label rather than a mnemonic.
func (p *parser) stripWrapper() error {
	if len(p.tokens) < 2 || p.tokens[0].kind != tokLParen {
		return nil
	}
	//
	second := p.tokens[1]
	//
	if second.kind == tokLParen || (second.kind == tokAtom && strings.HasPrefix(second.text, ":")) {
		last := p.tokens[len(p.tokens)-1]
		//
		if last.kind != tokRParen {
			return p.errorf(last, "unbalanced parentheses")
		}
		//
		p.tokens = p.tokens[1 : len(p.tokens)-1]
	}
	//
	return nil
}

func (p *parser) parseInstruction() (Instruction, error) {
	var insn Instruction
	// consume "("
	p.next()
	//
	tok, err := p.expectAtom("mnemonic")
	if err != nil {
		return insn, err
	}
	//
	opcode, ok := lookupOpcode(tok.text)
	if !ok {
		return insn, p.errorf(tok, "unknown mnemonic %q", tok.text)
	}
	//
	insn.Opcode = opcode
	//
	switch opcodes[opcode].shape {
	case shapeNone:
		// no operands
	case shapeDstLit:
		err = p.operands(regOperand(&insn.Dest), litOperand(&insn.Literal))
	case shapeDst:
		err = p.operands(regOperand(&insn.Dest))
	case shapeDstSrc:
		err = p.operands(regOperand(&insn.Dest), srcOperand(&insn))
	case shapeDstSrcSrc:
		err = p.operands(regOperand(&insn.Dest), srcOperand(&insn), srcOperand(&insn))
	case shapeDstSrcLit:
		err = p.operands(regOperand(&insn.Dest), srcOperand(&insn), litOperand(&insn.Literal))
	case shapeSrc:
		err = p.operands(srcOperand(&insn))
	case shapeSrcLabel:
		err = p.operands(srcOperand(&insn), labelOperand(&insn.Target))
	case shapeSrcSrcLabel:
		err = p.operands(srcOperand(&insn), srcOperand(&insn), labelOperand(&insn.Target))
	case shapeLabel:
		err = p.operands(labelOperand(&insn.Target))
	case shapeInvoke:
		err = p.parseInvoke(&insn)
	}
	//
	if err != nil {
		return insn, err
	}
	// consume ")"
	if tok := p.peek(); tok.kind != tokRParen {
		return insn, p.errorf(tok, "expected ')', found %q", tok.text)
	}
	//
	p.next()
	//
	return insn, nil
}

func (p *parser) parseInvoke(insn *Instruction) error {
	tok, err := p.expectAtom("callee")
	//
	if err != nil {
		return err
	}
	//
	insn.Symbol = tok.text
	// remaining operands are argument registers
	for !p.done() && p.peek().kind == tokAtom {
		reg, err := p.parseRegister()
		//
		if err != nil {
			return err
		}
		//
		insn.Srcs = append(insn.Srcs, reg)
	}
	//
	return nil
}

type operand func(p *parser) error

func regOperand(dst *RegID) operand {
	return func(p *parser) error {
		reg, err := p.parseRegister()
		*dst = reg
		//
		return err
	}
}

func srcOperand(insn *Instruction) operand {
	return func(p *parser) error {
		reg, err := p.parseRegister()
		insn.Srcs = append(insn.Srcs, reg)
		//
		return err
	}
}

func litOperand(dst *int64) operand {
	return func(p *parser) error {
		tok, err := p.expectAtom("literal")
		//
		if err != nil {
			return err
		}
		//
		val, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			return p.errorf(tok, "invalid literal %q", tok.text)
		}
		//
		*dst = val
		//
		return nil
	}
}

func labelOperand(dst *string) operand {
	return func(p *parser) error {
		tok, err := p.expectAtom("label")
		//
		if err != nil {
			return err
		}
		//
		if !strings.HasPrefix(tok.text, ":") || len(tok.text) < 2 {
			return p.errorf(tok, "expected label, found %q", tok.text)
		}
		//
		*dst = tok.text[1:]
		//
		return nil
	}
}

func (p *parser) operands(ops ...operand) error {
	for _, op := range ops {
		if err := op(p); err != nil {
			return err
		}
	}
	//
	return nil
}

func (p *parser) parseRegister() (RegID, error) {
	tok, err := p.expectAtom("register")
	//
	if err != nil {
		return 0, err
	}
	//
	if !strings.HasPrefix(tok.text, "v") {
		return 0, p.errorf(tok, "expected register, found %q", tok.text)
	}
	//
	index, err := strconv.ParseUint(tok.text[1:], 10, 32)
	if err != nil {
		return 0, p.errorf(tok, "invalid register %q", tok.text)
	}
	//
	return RegID(index), nil
}

func (p *parser) expectAtom(what string) (token, error) {
	tok := p.peek()
	//
	if tok.kind != tokAtom {
		return tok, p.errorf(tok, "expected %s, found %q", what, tok.text)
	}
	//
	p.next()
	//
	return tok, nil
}

func (p *parser) peek() token {
	if p.index >= len(p.tokens) {
		return token{tokEOF, "<eof>", 0}
	}
	//
	return p.tokens[p.index]
}

func (p *parser) next() {
	p.index++
}

func (p *parser) done() bool {
	return p.index >= len(p.tokens)
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	//
	return fmt.Errorf("line %d: %s", tok.line, msg)
}
