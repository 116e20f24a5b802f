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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGC11Complete(t *testing.T) {
	m := GC11()
	if m.ASIC() != "gfx1100" {
		t.Errorf("ASIC() = %q, want gfx1100", m.ASIC())
	}
	for r := Reg(0); r < numRegs; r++ {
		if m.Offset(r) == 0 {
			t.Errorf("%s: zero offset", r)
		}
		if got := m.Info(r); got.Mode != MMIO {
			t.Errorf("%s: mode = %v, want MMIO", r, got.Mode)
		}
	}
}

func TestTotalByteOffsetScaling(t *testing.T) {
	m := GC11()
	m.bases[0] = 0x1000

	// Word-addressed MMIO registers are scaled by 4 after the base is added.
	for r := Reg(0); r < numRegs; r++ {
		want := 4 * (m.Offset(r) + 0x1000)
		if got := m.TotalByteOffset(r); got != want {
			t.Errorf("%s: TotalByteOffset = %#x, want %#x", r, got, want)
		}
	}

	// Indirect registers take the summed offset unscaled.
	m.infos[SQCmd] = Info{Block: 0, Mode: Indirect}
	if got, want := m.TotalByteOffset(SQCmd), m.Offset(SQCmd)+0x1000; got != want {
		t.Errorf("indirect TotalByteOffset = %#x, want %#x", got, want)
	}
}

func TestInvalidRegisterPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("TotalByteOffset on an invalid register did not panic")
		}
	}()
	GC11().TotalByteOffset(numRegs)
}

const testMapTOML = `
asic = "gfx1100"
blocks = [0x1c00]

[registers.SQ_SHADER_TBA_LO]
offset = 0x2e00
block = 0

[registers.SQ_SHADER_TBA_HI]
offset = 0x2e01
block = 0
mode = "mmio"

[registers.SQ_SHADER_TMA_LO]
offset = 0x2e02
block = 0

[registers.SQ_SHADER_TMA_HI]
offset = 0x2e03
block = 0

[registers.SQ_CMD]
offset = 0x2d00
block = 0
mode = "indirect"
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(testMapTOML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.ASIC() != "gfx1100" {
		t.Errorf("ASIC() = %q, want gfx1100", m.ASIC())
	}
	if got, want := m.Base(0), uint64(0x1C00); got != want {
		t.Errorf("Base(0) = %#x, want %#x", got, want)
	}
	wantInfos := map[Reg]Info{
		SQShaderTBALo: {Block: 0, Mode: MMIO},
		SQShaderTBAHi: {Block: 0, Mode: MMIO},
		SQShaderTMALo: {Block: 0, Mode: MMIO},
		SQShaderTMAHi: {Block: 0, Mode: MMIO},
		SQCmd:         {Block: 0, Mode: Indirect},
	}
	for r, want := range wantInfos {
		if diff := cmp.Diff(want, m.Info(r)); diff != "" {
			t.Errorf("%s info mismatch (-want +got):\n%s", r, diff)
		}
	}
	if got, want := m.TotalByteOffset(SQShaderTBALo), uint64(4*(0x2E00+0x1C00)); got != want {
		t.Errorf("TotalByteOffset(SQ_SHADER_TBA_LO) = %#x, want %#x", got, want)
	}
	if got, want := m.TotalByteOffset(SQCmd), uint64(0x2D00+0x1C00); got != want {
		t.Errorf("TotalByteOffset(SQ_CMD) = %#x, want %#x", got, want)
	}
}

func TestParseRejectsIncompleteMap(t *testing.T) {
	partial := strings.Replace(testMapTOML, "[registers.SQ_CMD]", "[registers.SQ_CMD_TYPO]", 1)
	if _, err := Parse([]byte(partial)); err == nil {
		t.Error("Parse accepted a map with an unknown register name")
	}

	idx := strings.Index(testMapTOML, "[registers.SQ_CMD]")
	if _, err := Parse([]byte(testMapTOML[:idx])); err == nil {
		t.Error("Parse accepted a map missing SQ_CMD")
	}
}

func TestParseRejectsBadBlock(t *testing.T) {
	bad := strings.Replace(testMapTOML, "offset = 0x2d00\nblock = 0", "offset = 0x2d00\nblock = 3", 1)
	if _, err := Parse([]byte(bad)); err == nil {
		t.Error("Parse accepted a block index past the base table")
	}
}
