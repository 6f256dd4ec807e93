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
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func Test_Config_Default(t *testing.T) {
	if Default().FoldArithmetic {
		t.Errorf("arithmetic folding must default to off")
	}
}

func Test_Config_Load(t *testing.T) {
	conf, err := Load(write(t, "fold_arithmetic = true\n"))
	//
	if err != nil {
		t.Fatal(err)
	} else if !conf.FoldArithmetic {
		t.Errorf("fold_arithmetic not read")
	}
}

func Test_Config_EmptyFileIsDefault(t *testing.T) {
	conf, err := Load(write(t, ""))
	//
	if err != nil {
		t.Fatal(err)
	} else if conf != Default() {
		t.Errorf("empty file must yield the defaults")
	}
}

func Test_Config_UnknownKey(t *testing.T) {
	_, err := Load(write(t, "fold_arithmetics = true\n"))
	//
	if err == nil {
		t.Errorf("expected error for unknown key")
	} else if !strings.Contains(err.Error(), "unknown configuration key") {
		t.Errorf("incorrect error: %v", err)
	}
}

func Test_Config_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nonexistent.toml")); err == nil {
		t.Errorf("expected error for missing file")
	}
}

func write(t *testing.T, contents string) string {
	t.Helper()
	//
	path := filepath.Join(t.TempDir(), "dexopt.toml")
	//
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	//
	return path
}
