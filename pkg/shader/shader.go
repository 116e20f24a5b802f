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

// Package shader loads GPU shader programs for dispatch. Programs are raw
// RDNA3 machine code plus the COMPUTE_PGM_RSRC register values describing
// their resource requirements; a SPIR-V compilation front end is planned but
// not implemented.
package shader

import (
	"errors"
	"fmt"
	"os"

	"k8s.io/klog/v2"
)

// ErrNotImplemented is returned by Compile until a compiler back end lands.
var ErrNotImplemented = errors.New("not implemented")

// Stage is a shader pipeline stage.
type Stage int

const (
	StageCompute Stage = iota
	StageVertex
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageCompute:
		return "compute"
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// DebugRecord maps a code offset back to a source location, for symbolizing
// a trapped wave's program counter.
type DebugRecord struct {
	CodeOffset uint64
	File       string
	Line       int
}

// Program is a shader ready for dispatch.
type Program struct {
	Code  []byte
	Rsrc1 uint32
	Rsrc2 uint32
	Rsrc3 uint32

	DebugInfo []DebugRecord
}

// Compile translates a SPIR-V module into a Program. Not yet implemented;
// use LoadBinary with code produced by an external assembler.
func Compile(spirv []byte, stage Stage) (*Program, error) {
	klog.V(1).Infof("compile requested for %d bytes of SPIR-V, stage %s", len(spirv), stage)
	return nil, fmt.Errorf("SPIR-V compilation for %s shaders: %w", stage, ErrNotImplemented)
}

// LoadBinary reads pre-assembled shader machine code from path and wraps it
// with the given resource register values.
func LoadBinary(path string, rsrc1, rsrc2, rsrc3 uint32) (*Program, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading shader binary: %w", err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("shader binary %s is empty", path)
	}
	if len(code)%4 != 0 {
		return nil, fmt.Errorf("shader binary %s is %d bytes, not a whole number of instructions", path, len(code))
	}
	return &Program{Code: code, Rsrc1: rsrc1, Rsrc2: rsrc2, Rsrc3: rsrc3}, nil
}
