// Copyright 2025 The hwdbg Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package regmap

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// A register map file looks like:
//
//	asic = "gfx1100"
//	blocks = [0x0]
//
//	[registers.SQ_SHADER_TBA_LO]
//	offset = 0x2e00
//	block = 0
//	mode = "mmio"
//
// Every register of the closed set must be present; unknown register names
// are rejected so a map for the wrong ASIC generation fails loudly instead
// of silently dropping entries.

type tomlRegister struct {
	Offset uint64 `toml:"offset"`
	Block  int    `toml:"block"`
	Mode   string `toml:"mode"`
}

type tomlMap struct {
	ASIC      string                  `toml:"asic"`
	Blocks    []uint64                `toml:"blocks"`
	Registers map[string]tomlRegister `toml:"registers"`
}

// Parse builds a Map from TOML data.
func Parse(data []byte) (*Map, error) {
	var tm tomlMap
	if err := toml.Unmarshal(data, &tm); err != nil {
		return nil, fmt.Errorf("decoding register map: %w", err)
	}
	if tm.ASIC == "" {
		return nil, fmt.Errorf("register map: missing asic name")
	}
	if len(tm.Blocks) > NumBlocks {
		return nil, fmt.Errorf("register map: %d block bases, at most %d supported", len(tm.Blocks), NumBlocks)
	}

	byName := make(map[string]Reg, numRegs)
	for r := Reg(0); r < numRegs; r++ {
		byName[regNames[r]] = r
	}

	m := &Map{asic: tm.ASIC}
	copy(m.bases[:], tm.Blocks)

	seen := make(map[Reg]bool, numRegs)
	for name, entry := range tm.Registers {
		r, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("register map: unknown register %q", name)
		}
		if entry.Block < 0 || entry.Block >= len(tm.Blocks) {
			return nil, fmt.Errorf("register map: %s: block %d out of range (have %d blocks)", name, entry.Block, len(tm.Blocks))
		}
		var mode Mode
		switch entry.Mode {
		case "mmio", "":
			mode = MMIO
		case "indirect":
			mode = Indirect
		default:
			return nil, fmt.Errorf("register map: %s: unknown mode %q", name, entry.Mode)
		}
		m.offsets[r] = entry.Offset
		m.infos[r] = Info{Block: entry.Block, Mode: mode}
		seen[r] = true
	}
	for r := Reg(0); r < numRegs; r++ {
		if !seen[r] {
			return nil, fmt.Errorf("register map: missing register %s", r)
		}
	}
	return m, nil
}

// LoadFile reads a per-ASIC register map from a TOML file.
func LoadFile(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading register map: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
