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
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/google/go-tpm/legacy/tpm2"
	"github.com/google/go-tpm/tpmutil"
)

const (
	tpmPtManufacturer = 0x00000100 + 5 // PT_FIXED + offset of 5
	tpmPtVendorString = 0x00000100 + 6 // PT_FIXED + offset of 6

	// tagCapVersionInfo is TPM_TAG_CAP_VERSION_INFO.
	tagCapVersionInfo tpmutil.Tag = 0x0030
)

// aikTemplate describes the restricted signing key used to quote on a
// TPM 2.0. It is created as a primary key of the owner hierarchy, so the
// same key is derived on every session.
var aikTemplate = tpm2.Public{
	Type:       tpm2.AlgRSA,
	NameAlg:    tpm2.AlgSHA256,
	Attributes: tpm2.FlagSignerDefault | tpm2.FlagNoDA,
	RSAParameters: &tpm2.RSAParams{
		Sign: &tpm2.SigScheme{
			Alg:  tpm2.AlgRSASSA,
			Hash: tpm2.AlgSHA256,
		},
		KeyBits:    2048,
		ModulusRaw: big.NewInt(0).Bytes(),
	},
}

// capVersionInfo mirrors TPM_CAP_VERSION_INFO, filled from TPM 2.0 fixed
// properties.
type capVersionInfo struct {
	Tag            tpmutil.Tag
	Version        [4]byte
	SpecLevel      uint16
	ErrataRev      byte
	VendorID       [4]byte
	VendorSpecific tpmutil.U16Bytes
}

// wrappedTPM20 interfaces with a TPM 2.0 command channel.
type wrappedTPM20 struct {
	open func() (io.ReadWriteCloser, error)
	bank tpm2.Algorithm
}

// NewTPM20 returns a TPM 2.0 reached through the command channels returned
// by open. PCRs are read, extended and quoted in the bank of alg.
func NewTPM20(open func() (io.ReadWriteCloser, error), alg MeasAlgorithm) (TPM, error) {
	var bank tpm2.Algorithm
	switch alg {
	case MeasAlgoSHA1:
		bank = tpm2.AlgSHA1
	case MeasAlgoSHA256:
		bank = tpm2.AlgSHA256
	case MeasAlgoSHA384:
		bank = tpm2.AlgSHA384
	default:
		return nil, fmt.Errorf("%w: PCR bank %v", ErrUnsupportedAlgorithm, alg)
	}
	return &wrappedTPM20{open: open, bank: bank}, nil
}

func (t *wrappedTPM20) Open() (TPMSession, error) {
	rwc, err := t.open()
	if err != nil {
		return nil, err
	}
	return &tpm20Session{rwc: rwc, bank: t.bank}, nil
}

type tpm20Session struct {
	rwc  io.ReadWriteCloser
	bank tpm2.Algorithm
}

func (s *tpm20Session) Close() error {
	if s.rwc == nil {
		return errTPMClosed
	}
	err := s.rwc.Close()
	s.rwc = nil
	return err
}

func (s *tpm20Session) ReadPCR(pcr uint32) ([]byte, error) {
	if s.rwc == nil {
		return nil, errTPMClosed
	}
	return tpm2.ReadPCR(s.rwc, int(pcr), s.bank)
}

func (s *tpm20Session) ExtendPCR(pcr uint32, input []byte) ([]byte, error) {
	if s.rwc == nil {
		return nil, errTPMClosed
	}
	if err := tpm2.PCRExtend(s.rwc, tpmutil.Handle(pcr), s.bank, input, ""); err != nil {
		return nil, fmt.Errorf("tpm2.PCRExtend(%d) failed: %v", pcr, err)
	}
	return tpm2.ReadPCR(s.rwc, int(pcr), s.bank)
}

// Quote signs a TPMS_ATTEST over pcrs with the AIK derived from aikTemplate.
// aikBlob is not used.
func (s *tpm20Session) Quote(aikBlob []byte, quote2 bool, pcrs []uint32, externalData []byte) (*TPMQuote, error) {
	if s.rwc == nil {
		return nil, errTPMClosed
	}
	h, _, err := tpm2.CreatePrimary(s.rwc, tpm2.HandleOwner, tpm2.PCRSelection{}, "", "", aikTemplate)
	if err != nil {
		return nil, fmt.Errorf("CreatePrimary failed: %v", err)
	}
	defer tpm2.FlushContext(s.rwc, h)

	sel := tpm2.PCRSelection{Hash: s.bank}
	for _, pcr := range pcrs {
		sel.PCRs = append(sel.PCRs, int(pcr))
	}
	attest, sig, err := tpm2.Quote(s.rwc, h, "", "", externalData, sel, tpm2.AlgNull)
	if err != nil {
		return nil, err
	}
	if sig.RSA == nil {
		return nil, errors.New("quote is not signed with an RSA key")
	}
	att, err := tpm2.DecodeAttestationData(attest)
	if err != nil {
		return nil, err
	}
	if att.Type != tpm2.TagAttestQuote || att.AttestedQuoteInfo == nil {
		return nil, fmt.Errorf("attestation is tagged %x, want TagAttestQuote", att.Type)
	}
	return &TPMQuote{
		Version:      TPMVersion20,
		PCRComposite: att.AttestedQuoteInfo.PCRDigest,
		QuoteInfo:    attest,
		Signature:    sig.RSA.Signature,
	}, nil
}

// VersionInfo encodes the manufacturer and vendor string of the TPM as a
// TPM_CAP_VERSION_INFO.
func (s *tpm20Session) VersionInfo() ([]byte, error) {
	if s.rwc == nil {
		return nil, errTPMClosed
	}
	manufacturer, vendor, err := readTPM2VendorAttributes(s.rwc)
	if err != nil {
		return nil, err
	}
	info := capVersionInfo{
		Tag:            tagCapVersionInfo,
		Version:        [4]byte{2, 0, 0, 0},
		VendorSpecific: tpmutil.U16Bytes(vendor),
	}
	info.VendorID[0] = byte(manufacturer >> 24)
	info.VendorID[1] = byte(manufacturer >> 16)
	info.VendorID[2] = byte(manufacturer >> 8)
	info.VendorID[3] = byte(manufacturer)
	return tpmutil.Pack(info)
}

func readTPM2VendorAttributes(tpm io.ReadWriter) (uint32, string, error) {
	var vendorInfo []byte
	// The Vendor String is split up into 4 sections of 4 bytes,
	// for a maximum length of 16 octets of ASCII text. We iterate
	// through the 4 indexes to get all 16 bytes & construct vendorInfo.
	// See: TPM_PT_VENDOR_STRING_1 in TPM 2.0 Structures reference.
	for i := 0; i < 4; i++ {
		caps, _, err := tpm2.GetCapability(tpm, tpm2.CapabilityTPMProperties, 1, tpmPtVendorString+uint32(i))
		if err != nil {
			return 0, "", fmt.Errorf("tpm2.GetCapability(PT_VENDOR_STRING_%d) failed: %v", i+1, err)
		}
		subset, ok := caps[0].(tpm2.TaggedProperty)
		if !ok {
			return 0, "", fmt.Errorf("got capability of type %T, want tpm2.TaggedProperty", caps[0])
		}
		// Reconstruct the 4 ASCII octets from the uint32 value.
		for _, shift := range []uint{24, 16, 8, 0} {
			if c := byte(subset.Value >> shift); c != 0 {
				vendorInfo = append(vendorInfo, c)
			}
		}
	}

	caps, _, err := tpm2.GetCapability(tpm, tpm2.CapabilityTPMProperties, 1, tpmPtManufacturer)
	if err != nil {
		return 0, "", fmt.Errorf("tpm2.GetCapability(PT_MANUFACTURER) failed: %v", err)
	}
	manu, ok := caps[0].(tpm2.TaggedProperty)
	if !ok {
		return 0, "", fmt.Errorf("got capability of type %T, want tpm2.TaggedProperty", caps[0])
	}
	return manu.Value, string(vendorInfo), nil
}
