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

// Config determines which optional behaviours of the constant propagation
// pass are enabled.
type Config struct {
	// FoldArithmetic enables modelling (and subsequently rewriting) additions
	// of a literal whose operand is a known constant.  Folds which would
	// overflow the 32bit result width are skipped.
	FoldArithmetic bool
}
