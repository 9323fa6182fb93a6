// Copyright 2026 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package pts

import (
	"bytes"
	"fmt"

	log "github.com/golang/glog"
)

// MaxPCRs is the number of PCRs of a TPM 1.2.
const MaxPCRs = 24

// pcrSelectBytes is the minimum size of a PCR selection bitmap, as used by
// TrouSerS for a TPM with MaxPCRs registers.
const pcrSelectBytes = MaxPCRs / 8

// registry tracks PCR values reported by the measurer and the PCRs selected
// for the next quote.
//
// Bit i of the bitmap is set iff slot i holds a value or was selected with
// selectPCR. Every stored value is exactly pcrLen bytes long.
type registry struct {
	pcrs   [MaxPCRs][]byte
	pcrLen int
	count  int
	max    uint32
	bitmap [pcrSelectBytes]byte
}

func (r *registry) isSelected(pcr uint32) bool {
	return r.bitmap[pcr/8]&(1<<(pcr%8)) != 0
}

func (r *registry) mark(pcr uint32) {
	r.bitmap[pcr/8] |= 1 << (pcr % 8)
	r.count++
	if pcr > r.max {
		r.max = pcr
	}
}

func (r *registry) selectPCR(pcr uint32) error {
	if pcr >= MaxPCRs {
		log.Warningf("pts: PCR %d: number is larger than maximum of %d", pcr, MaxPCRs-1)
		return fmt.Errorf("%w: PCR %d", ErrPCROutOfRange, pcr)
	}
	if !r.isSelected(pcr) {
		r.mark(pcr)
	}
	return nil
}

func (r *registry) addPCR(pcr uint32, before, after []byte, strict bool) error {
	if pcr >= MaxPCRs {
		log.Warningf("pts: PCR %d: number is larger than maximum of %d", pcr, MaxPCRs-1)
		return fmt.Errorf("%w: PCR %d", ErrPCROutOfRange, pcr)
	}
	if r.pcrLen != 0 && len(after) != r.pcrLen {
		log.Warningf("pts: PCR %02d: length is %d bytes but should be %d bytes", pcr, len(after), r.pcrLen)
		return fmt.Errorf("%w: PCR %02d is %d bytes, want %d", ErrPCRLength, pcr, len(after), r.pcrLen)
	}
	if len(after) == 0 {
		return fmt.Errorf("%w: PCR %02d is empty", ErrPCRLength, pcr)
	}

	if old := r.pcrs[pcr]; old != nil {
		if !bytes.Equal(old, before) {
			if strict {
				return fmt.Errorf("%w: PCR %02d", ErrPCRMismatch, pcr)
			}
			log.Warningf("pts: PCR %02d: new pcr_before value does not equal old pcr_after value", pcr)
		}
		wipe(old)
	} else if !r.isSelected(pcr) {
		r.mark(pcr)
	}
	if r.pcrLen == 0 {
		r.pcrLen = len(after)
	}
	r.pcrs[pcr] = clone(after)
	return nil
}

// populated returns the number of slots holding a value.
func (r *registry) populated() int {
	n := 0
	for _, v := range r.pcrs {
		if v != nil {
			n++
		}
	}
	return n
}

// selection returns the selected PCR indices in ascending order.
func (r *registry) selection() []uint32 {
	var out []uint32
	for pcr := uint32(0); pcr < MaxPCRs; pcr++ {
		if r.isSelected(pcr) {
			out = append(out, pcr)
		}
	}
	return out
}

// selectWidth returns the size of the selection bitmap in a composite.
func (r *registry) selectWidth() int {
	if w := 1 + int(r.max)/8; w > pcrSelectBytes {
		return w
	}
	return pcrSelectBytes
}

// consume resets the registry after it backed a quote. The PCR length stays
// fixed for the lifetime of the session.
func (r *registry) consume() {
	for i := range r.pcrs {
		wipe(r.pcrs[i])
		r.pcrs[i] = nil
	}
	r.count = 0
	r.max = 0
	r.bitmap = [pcrSelectBytes]byte{}
}

// SelectPCR marks pcr for inclusion in the next quote even if its value is
// not known.
func (s *Session) SelectPCR(pcr uint32) error {
	return s.pcrs.selectPCR(pcr)
}

// AddPCR records the value of pcr after an extend. The first recorded value
// fixes the PCR length of the session; values of any other length are
// rejected. If a value was recorded for pcr before, it is compared against
// before and a mismatch is logged (or rejected with StrictPCRTracking).
func (s *Session) AddPCR(pcr uint32, before, after []byte) error {
	return s.pcrs.addPCR(pcr, before, after, s.strictPCRTracking)
}

// PCR returns a copy of the value recorded for pcr.
func (s *Session) PCR(pcr uint32) ([]byte, bool) {
	if pcr >= MaxPCRs || s.pcrs.pcrs[pcr] == nil {
		return nil, false
	}
	return clone(s.pcrs.pcrs[pcr]), true
}

// PCRCount returns the number of PCRs selected for the next quote.
func (s *Session) PCRCount() int {
	return s.pcrs.count
}

// SelectedPCRs returns the PCRs selected for the next quote in ascending
// order.
func (s *Session) SelectedPCRs() []uint32 {
	return s.pcrs.selection()
}
