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

//go:build !windows

package pts

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/go-tpm/tpm"
)

// deviceTPM12 talks to a TPM 1.2 through its character device, without a
// TSS daemon.
type deviceTPM12 struct {
	path string
}

// NewTPM12 returns a TPM 1.2 reached through the device (or unix socket) at
// path.
func NewTPM12(path string) TPM {
	return &deviceTPM12{path: path}
}

func (t *deviceTPM12) Open() (TPMSession, error) {
	rwc, err := tpm.OpenTPM(t.path)
	if err != nil {
		return nil, err
	}
	return &deviceTPM12Session{rwc: rwc}, nil
}

type deviceTPM12Session struct {
	rwc io.ReadWriteCloser
}

func (s *deviceTPM12Session) Close() error {
	if s.rwc == nil {
		return errTPMClosed
	}
	err := s.rwc.Close()
	s.rwc = nil
	return err
}

func (s *deviceTPM12Session) ReadPCR(pcr uint32) ([]byte, error) {
	if s.rwc == nil {
		return nil, errTPMClosed
	}
	return tpm.ReadPCR(s.rwc, pcr)
}

func (s *deviceTPM12Session) ExtendPCR(pcr uint32, input []byte) ([]byte, error) {
	if s.rwc == nil {
		return nil, errTPMClosed
	}
	if len(input) != tpm.PCRSize {
		return nil, fmt.Errorf("extend input is %d bytes, want %d", len(input), tpm.PCRSize)
	}
	var digest [tpm.PCRSize]byte
	copy(digest[:], input)
	return tpm.PcrExtend(s.rwc, pcr, digest)
}

func (s *deviceTPM12Session) Quote(aikBlob []byte, quote2 bool, pcrs []uint32, externalData []byte) (*TPMQuote, error) {
	if s.rwc == nil {
		return nil, errTPMClosed
	}
	if quote2 {
		return nil, errors.New("TPM_Quote2 is not supported by the TPM 1.2 device transport")
	}
	if len(aikBlob) == 0 {
		return nil, ErrNoAIK
	}
	h, err := tpm.LoadKey2(s.rwc, aikBlob, wellKnownSecret[:])
	if err != nil {
		return nil, fmt.Errorf("loading AIK: %w", err)
	}
	defer tpm.CloseKey(s.rwc, h)

	nums := make([]int, len(pcrs))
	for i, pcr := range pcrs {
		nums[i] = int(pcr)
	}
	sig, values, err := tpm.Quote(s.rwc, h, externalData, nums, wellKnownSecret[:])
	if err != nil {
		return nil, err
	}
	composite, info, err := quoteInfo12(pcrs, [][]byte{values}, externalData)
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

func (s *deviceTPM12Session) VersionInfo() ([]byte, error) {
	if s.rwc == nil {
		return nil, errTPMClosed
	}
	return tpm.GetCapabilityRaw(s.rwc, tpm.CapVersion, 0)
}
