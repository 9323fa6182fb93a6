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

//go:build linux && cgo && tspi
// +build linux,cgo,tspi

package pts

import (
	"errors"
	"fmt"

	"github.com/google/go-tspi/tspi"
	"github.com/google/go-tspi/tspiconst"
)

func init() {
	getTPM12Impl = func() TPM { return trousersTPM{} }
}

// trousersTPM interfaces with a TPM 1.2 device via tcsd.
type trousersTPM struct{}

func (trousersTPM) Open() (TPMSession, error) {
	ctx, err := tspi.NewContext()
	if err != nil {
		return nil, err
	}
	if err := ctx.Connect(); err != nil {
		ctx.Close()
		return nil, err
	}
	return &trousersSession{ctx: ctx}, nil
}

type trousersSession struct {
	ctx *tspi.Context
}

func (t *trousersSession) Close() error {
	if t.ctx == nil {
		return errTPMClosed
	}
	err := t.ctx.Close()
	t.ctx = nil
	return err
}

func (t *trousersSession) ReadPCR(pcr uint32) ([]byte, error) {
	if t.ctx == nil {
		return nil, errTPMClosed
	}
	values, err := t.ctx.GetTPM().GetPCRValues()
	if err != nil {
		return nil, fmt.Errorf("failed to read PCRs: %v", err)
	}
	if int(pcr) >= len(values) {
		return nil, fmt.Errorf("%w: PCR %d", ErrPCROutOfRange, pcr)
	}
	return values[pcr], nil
}

// ExtendPCR extends pcr with the SHA-1 digest of input, which is how the
// trousers bindings submit extend data.
func (t *trousersSession) ExtendPCR(pcr uint32, input []byte) ([]byte, error) {
	if t.ctx == nil {
		return nil, errTPMClosed
	}
	if err := t.ctx.GetTPM().ExtendPCR(int(pcr), input, 0, nil); err != nil {
		return nil, fmt.Errorf("Tspi_TPM_PcrExtend failed: %v", err)
	}
	return t.ReadPCR(pcr)
}

func (t *trousersSession) Quote(aikBlob []byte, quote2 bool, pcrs []uint32, externalData []byte) (*TPMQuote, error) {
	if t.ctx == nil {
		return nil, errTPMClosed
	}
	if quote2 {
		return nil, errors.New("TPM_Quote2 is not supported by the trousers transport")
	}
	if len(aikBlob) == 0 {
		return nil, ErrNoAIK
	}

	srk, err := t.ctx.LoadKeyByUUID(tspiconst.TSS_PS_TYPE_SYSTEM, tspi.TSS_UUID_SRK)
	if err != nil {
		return nil, fmt.Errorf("LoadKeyByUUID failed: %v", err)
	}
	policy, err := srk.GetPolicy(tspiconst.TSS_POLICY_USAGE)
	if err != nil {
		return nil, fmt.Errorf("GetPolicy failed: %v", err)
	}
	if err := policy.SetSecret(tspiconst.TSS_SECRET_MODE_SHA1, wellKnownSecret[:]); err != nil {
		return nil, fmt.Errorf("SetSecret failed: %v", err)
	}
	aik, err := t.ctx.LoadKeyByBlob(srk, aikBlob)
	if err != nil {
		return nil, fmt.Errorf("LoadKeyByBlob failed: %v", err)
	}
	defer aik.Close()

	sel, err := t.ctx.CreatePCRs(tspiconst.TSS_PCRS_STRUCT_DEFAULT)
	if err != nil {
		return nil, fmt.Errorf("failed to get a reference to PCRs: %v", err)
	}
	defer sel.Close()
	nums := make([]int, len(pcrs))
	for i, pcr := range pcrs {
		nums[i] = int(pcr)
	}
	if err := sel.SetPCRs(nums); err != nil {
		return nil, fmt.Errorf("failed to set the PCR bitmap %v", err)
	}

	info, sig, err := t.ctx.GetTPM().GetQuote(aik, sel, externalData)
	if err != nil {
		return nil, fmt.Errorf("Tspi_TPM_Quote failed: %v", err)
	}
	all, err := sel.GetPCRValues()
	if err != nil {
		return nil, err
	}
	values := make([][]byte, 0, len(pcrs))
	for _, pcr := range pcrs {
		values = append(values, all[pcr])
	}
	composite, err := encodeComposite(selectionBitmap(pcrs), values)
	if err != nil {
		return nil, err
	}
	return &TPMQuote{
		Version:      TPMVersion12,
		PCRComposite: composite,
		QuoteInfo:    info,
		Signature:    sig,
	}, nil
}

func (t *trousersSession) VersionInfo() ([]byte, error) {
	if t.ctx == nil {
		return nil, errTPMClosed
	}
	info, err := t.ctx.GetCapability(tspiconst.TSS_TPMCAP_VERSION_VAL, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("tspi::Context::GetCapability failed: %v", err)
	}
	return info, nil
}
