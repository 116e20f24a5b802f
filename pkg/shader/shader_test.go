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

package shader

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCompileNotImplemented(t *testing.T) {
	p, err := Compile([]byte{0x03, 0x02, 0x23, 0x07}, StageCompute)
	if !errors.Is(err, ErrNotImplemented) {
		t.Errorf("Compile() error = %v, want ErrNotImplemented", err)
	}
	if p != nil {
		t.Errorf("Compile() = %+v, want nil", p)
	}
}

func TestLoadBinary(t *testing.T) {
	code := []byte{0x00, 0x00, 0xB0, 0xBF, 0x00, 0x00, 0x9E, 0xBF} // s_nop, s_endpgm
	path := filepath.Join(t.TempDir(), "kernel.bin")
	if err := os.WriteFile(path, code, 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadBinary(path, 0x60AF0000, 0x0000008C, 0)
	if err != nil {
		t.Fatalf("LoadBinary: %v", err)
	}
	if !bytes.Equal(p.Code, code) {
		t.Errorf("Code = % x, want % x", p.Code, code)
	}
	if p.Rsrc1 != 0x60AF0000 || p.Rsrc2 != 0x0000008C || p.Rsrc3 != 0 {
		t.Errorf("resource registers = %#x %#x %#x", p.Rsrc1, p.Rsrc2, p.Rsrc3)
	}
}

func TestLoadBinaryRejectsRagged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragged.bin")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadBinary(path, 0, 0, 0); err == nil {
		t.Error("LoadBinary accepted a non-instruction-multiple file")
	}
}

func TestLoadBinaryMissing(t *testing.T) {
	if _, err := LoadBinary(filepath.Join(t.TempDir(), "absent.bin"), 0, 0, 0); err == nil {
		t.Error("LoadBinary on a missing file succeeded")
	}
}
