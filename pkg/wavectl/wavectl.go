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

// Package wavectl inspects and controls halted wavefronts through the trap
// handler's scratch memory and the SQ_CMD broadcast register.
//
// The scratch buffer is the rendezvous between CPU and trap handler: a
// trapped wave spills its identity and a slice of its register file there,
// raises the status flag, and spins on the resume flag. The CPU side reads
// and edits the spilled state and releases the wave. The buffer must be
// mapped uncached on both sides; nothing here issues cache maintenance.
package wavectl

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"k8s.io/klog/v2"

	"hwdbg.dev/hwdbg/pkg/device"
	"hwdbg.dev/hwdbg/pkg/regmap"
)

// Scratch buffer layout. All fields little endian, written by the trap
// handler except the resume flag.
const (
	offStatus     = 0x00 // 0 running, 1 halted in the trap handler
	offResume     = 0x04 // CPU sets nonzero to release the wave
	offHWID       = 0x08 // SQ_WAVE_HW_ID1
	offPC         = 0x10 // program counter, 64 bit
	offStatusSGPR = 0x18 // SQ_WAVE_STATUS
	offMode       = 0x1C // SQ_WAVE_MODE
	offSGPR       = 0x40 // s0..s15 spill area
	numSpillSGPRs = 16
)

// ScratchSize is the required trap scratch buffer size.
const ScratchSize = 0x1000

const (
	statusRunning = 0
	statusHalted  = 1
)

// SQ_CMD encodings for broadcast wave control.
const (
	sqCmdSetHalt = 1 // CMD field, bits 3:0
	haltModeOff  = 0 // DATA clears the halt bit
	haltModeOn   = 1 // DATA sets the halt bit
	haltModeStep = 2 // DATA single-steps
)

// WaveState is the register state a trapped wave spilled to scratch.
type WaveState struct {
	HWID   uint32
	PC     uint64
	Status uint32
	Mode   uint32
	SGPR   [numSpillSGPRs]uint32
}

// Controller drives one trap scratch buffer and the SQ_CMD register.
type Controller struct {
	scratch []byte
	regs    device.RegisterWriter
}

// New returns a controller over a scratch buffer (the CPU mapping of the TMA
// buffer) and a register writer for SQ_CMD broadcasts.
func New(scratch []byte, regs device.RegisterWriter) (*Controller, error) {
	if len(scratch) < ScratchSize {
		return nil, fmt.Errorf("trap scratch buffer is %d bytes, need at least %d", len(scratch), ScratchSize)
	}
	return &Controller{scratch: scratch, regs: regs}, nil
}

var errStillRunning = errors.New("no wave has reached the trap handler")

// WaitHalt polls the scratch status flag until a wave reports halted or ctx
// is done.
func (c *Controller) WaitHalt(ctx context.Context) error {
	op := func() error {
		if c.status() == statusHalted {
			return nil
		}
		return errStillRunning
	}
	b := backoff.WithContext(backoff.NewConstantBackOff(time.Millisecond), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return fmt.Errorf("waiting for a halted wave: %w", err)
	}
	klog.V(1).Info("wave halted in trap handler")
	return nil
}

// Halted reports whether a wave is currently parked in the trap handler.
func (c *Controller) Halted() bool {
	return c.status() == statusHalted
}

// State decodes the halted wave's spilled registers.
func (c *Controller) State() WaveState {
	s := WaveState{
		HWID:   c.load32(offHWID),
		PC:     binary.LittleEndian.Uint64(c.scratch[offPC:]),
		Status: c.load32(offStatusSGPR),
		Mode:   c.load32(offMode),
	}
	for i := range s.SGPR {
		s.SGPR[i] = c.load32(offSGPR + 4*i)
	}
	return s
}

// SetPC rewrites the program counter the wave will resume at.
func (c *Controller) SetPC(pc uint64) {
	binary.LittleEndian.PutUint64(c.scratch[offPC:], pc)
}

// SetSGPR rewrites one spilled scalar register. Panics on an index outside
// the spill area.
func (c *Controller) SetSGPR(i int, value uint32) {
	if i < 0 || i >= numSpillSGPRs {
		panic(fmt.Sprintf("SGPR index %d outside the s0..s%d spill area", i, numSpillSGPRs-1))
	}
	c.store32(offSGPR+4*i, value)
}

// Resume releases the halted wave. Any edited state must be published before
// the wave is released, so the resume flag is raised and the status flag
// cleared only after all other stores.
func (c *Controller) Resume() {
	c.store32(offResume, 1)
	c.store32(offStatus, statusRunning)
}

// Reset clears the handshake flags for the next trap. Call between
// dispatches when reusing a scratch buffer.
func (c *Controller) Reset() {
	c.store32(offStatus, statusRunning)
	c.store32(offResume, 0)
}

// HaltAll broadcasts a halt to every wave on every application VMID.
func (c *Controller) HaltAll() {
	c.broadcast(haltModeOn)
}

// ResumeAll broadcasts a halt-clear to every wave.
func (c *Controller) ResumeAll() {
	c.broadcast(haltModeOff)
}

// StepAll single-steps every halted wave.
func (c *Controller) StepAll() {
	c.broadcast(haltModeStep)
}

func (c *Controller) broadcast(mode uint32) {
	cmd := uint32(sqCmdSetHalt) | mode<<4
	for vmid := uint32(1); vmid <= 8; vmid++ {
		c.regs.WriteReg32(regmap.SQCmd, device.VMIDState(vmid), cmd)
	}
}

func (c *Controller) status() uint32 {
	return c.load32(offStatus)
}

func (c *Controller) load32(off int) uint32 {
	return binary.LittleEndian.Uint32(c.scratch[off:])
}

func (c *Controller) store32(off int, v uint32) {
	binary.LittleEndian.PutUint32(c.scratch[off:], v)
}
