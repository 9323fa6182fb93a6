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
	"crypto/sha1"
	"errors"
	"fmt"
	"io"

	log "github.com/golang/glog"
	"github.com/google/go-tpm/tpmutil"
)

// TPMVersion is used to configure a preference in
// which TPM to use, if multiple are available.
type TPMVersion uint8

// TPM versions
const (
	TPMVersionAgnostic TPMVersion = iota
	TPMVersion12
	TPMVersion20
)

func (v TPMVersion) String() string {
	switch v {
	case TPMVersion12:
		return "TPM 1.2"
	case TPMVersion20:
		return "TPM 2.0"
	default:
		return "unknown TPM version"
	}
}

// TPMQuote is a quote produced by a TPM.
type TPMQuote struct {
	Version TPMVersion
	// PCRComposite is the encoded TPM_PCR_COMPOSITE for TPM 1.2, or the PCR
	// digest of the attestation structure for TPM 2.0.
	PCRComposite []byte
	// QuoteInfo is the signed structure: TPM_QUOTE_INFO, TPM_QUOTE_INFO2 or
	// TPMS_ATTEST.
	QuoteInfo []byte
	Signature []byte
}

// TPM is the hardware root of trust a measurer quotes with.
type TPM interface {
	// Open starts a session with the TPM. The caller must close it.
	Open() (TPMSession, error)
}

// TPMSession is an open connection to a TPM.
type TPMSession interface {
	io.Closer
	// ReadPCR returns the current value of pcr.
	ReadPCR(pcr uint32) ([]byte, error)
	// ExtendPCR extends pcr with the digest input and returns the new value.
	ExtendPCR(pcr uint32, input []byte) ([]byte, error)
	// Quote signs the given PCRs together with externalData using the AIK
	// described by aikBlob.
	Quote(aikBlob []byte, quote2 bool, pcrs []uint32, externalData []byte) (*TPMQuote, error)
	// VersionInfo returns the TPM_CAP_VERSION_INFO of the TPM.
	VersionInfo() ([]byte, error)
}

var errTPMClosed = errors.New("TPM session closed")

// wellKnownSecret is the TSS well known secret used as SRK and AIK usage
// authorization.
var wellKnownSecret [20]byte

// tpm12QuoteVersion is the TPM_STRUCT_VER a TPM 1.2 writes into
// TPM_QUOTE_INFO.
var tpm12QuoteVersion = [4]byte{1, 1, 0, 0}

// selectionBitmap returns the TPM_PCR_SELECTION bitmap of pcrs.
func selectionBitmap(pcrs []uint32) []byte {
	bitmap := make([]byte, pcrSelectBytes)
	for _, pcr := range pcrs {
		bitmap[pcr/8] |= 1 << (pcr % 8)
	}
	return bitmap
}

// quoteInfo12 reconstructs the TPM_QUOTE_INFO a TPM 1.2 signed over the
// composite of pcrs, with externalData hashed into the nonce the way the
// TSS stacks submit it.
func quoteInfo12(pcrs []uint32, values [][]byte, externalData []byte) (composite, info []byte, err error) {
	composite, err = encodeComposite(selectionBitmap(pcrs), values)
	if err != nil {
		return nil, nil, err
	}
	info, err = tpmutil.Pack(tpmQuoteInfo{
		Version:      tpm12QuoteVersion,
		Fixed:        fixedQuote,
		Digest:       sha1.Sum(composite),
		ExternalData: sha1.Sum(externalData),
	})
	return composite, info, err
}

// withTPM runs fn in a fresh TPM session.
func (s *Session) withTPM(fn func(TPMSession) error) error {
	if s.tpm == nil {
		return ErrTPMNotAvailable
	}
	t, err := s.tpm.Open()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTPMNotAvailable, err)
	}
	defer t.Close()
	return fn(t)
}

// probeTPM reports whether the configured TPM answers, recording its version
// info.
func (s *Session) probeTPM() bool {
	if s.tpm == nil {
		log.V(1).Info("no TPM configured")
		return false
	}
	err := s.withTPM(func(t TPMSession) error {
		info, err := t.VersionInfo()
		if err != nil {
			return err
		}
		s.tpmVersionInfo = info
		return nil
	})
	if err != nil {
		log.Warningf("pts: TPM not available: %v", err)
		return false
	}
	log.V(1).Infof("TPM version info: %x", s.tpmVersionInfo)
	return true
}

// ReadPCR reads the current value of pcr from the local TPM.
func (s *Session) ReadPCR(pcr uint32) ([]byte, error) {
	if pcr >= MaxPCRs {
		return nil, fmt.Errorf("%w: PCR %d", ErrPCROutOfRange, pcr)
	}
	var value []byte
	err := s.withTPM(func(t TPMSession) error {
		var err error
		value, err = t.ReadPCR(pcr)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reading PCR %d: %w", pcr, err)
	}
	log.V(2).Infof("PCR %d value: %x", pcr, value)
	return value, nil
}

// ExtendPCR extends pcr of the local TPM with input and returns the new
// value.
func (s *Session) ExtendPCR(pcr uint32, input []byte) ([]byte, error) {
	if pcr >= MaxPCRs {
		return nil, fmt.Errorf("%w: PCR %d", ErrPCROutOfRange, pcr)
	}
	var value []byte
	err := s.withTPM(func(t TPMSession) error {
		var err error
		value, err = t.ExtendPCR(pcr, input)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("extending PCR %d: %w", pcr, err)
	}
	log.V(2).Infof("PCR %d extended with: %x", pcr, input)
	log.V(2).Infof("PCR %d after extension: %x", pcr, value)
	return value, nil
}

// QuoteTPM has the local TPM quote the selected PCRs, bound to the secret
// assessment value. The PCR registry is cleared once a TPM session was
// opened, whether the quote succeeds or not.
func (s *Session) QuoteTPM(useQuote2 bool) (*TPMQuote, error) {
	if !s.hasTPM {
		return nil, ErrTPMNotAvailable
	}
	if len(s.dh.secret) == 0 {
		return nil, ErrSecretUnavailable
	}
	pcrs := s.pcrs.selection()
	if len(pcrs) == 0 {
		log.Warning("pts: no extended PCR entries available")
		return nil, ErrNoPCRs
	}

	var q *TPMQuote
	err := s.withTPM(func(t TPMSession) error {
		defer s.pcrs.consume()
		var err error
		q, err = t.Quote(clone(s.aikBlob), useQuote2, pcrs, clone(s.dh.secret))
		return err
	})
	if err != nil {
		log.Warningf("pts: TPM quote failed: %v", err)
		return nil, fmt.Errorf("TPM quote failed: %w", err)
	}
	log.V(2).Infof("TPM quote info: %x", q.QuoteInfo)
	return q, nil
}
