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
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config holds the optimiser configuration, as read from a TOML file.
type Config struct {
	// FoldArithmetic enables rewriting arithmetic instructions whose result
	// is a known constant.
	FoldArithmetic bool `toml:"fold_arithmetic"`
}

// Default returns the configuration used in the absence of a file: every
// optional behaviour is off.
func Default() Config {
	return Config{
		FoldArithmetic: false,
	}
}

// Load reads a configuration file, starting from the defaults.  Unknown keys
// are an error rather than being silently ignored.
func Load(path string) (Config, error) {
	conf := Default()
	//
	meta, err := toml.DecodeFile(path, &conf)
	if err != nil {
		return conf, err
	}
	//
	if keys := meta.Undecoded(); len(keys) > 0 {
		return conf, fmt.Errorf("%s: unknown configuration key %q", path, keys[0].String())
	}
	//
	return conf, nil
}
