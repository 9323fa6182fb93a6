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
	"crypto"
	"errors"
	"fmt"
	"sort"

	log "github.com/golang/glog"
	"github.com/google/go-tpm/tpmutil"
)

const (
	// tagQuoteInfo2 is TPM_TAG_QUOTE_INFO2.
	tagQuoteInfo2 tpmutil.Tag = 0x0036
	// quoteInfoLen is the size of an encoded TPM_QUOTE_INFO.
	quoteInfoLen = 56
)

var (
	fixedQuote  = [4]byte{'Q', 'U', 'O', 'T'}
	fixedQuote2 = [4]byte{'Q', 'U', 'T', '2'}
	// quoteVersion is the TPM_STRUCT_VER written into locally built quote
	// infos.
	quoteVersion = [4]byte{1, 0, 0, 0}
)

// tpmQuoteInfo is TPM_QUOTE_INFO.
type tpmQuoteInfo struct {
	Version      [4]byte
	Fixed        [4]byte
	Digest       [20]byte
	ExternalData [20]byte
}

// tpmQuoteInfo2 is TPM_QUOTE_INFO2 without the optional trailing
// TPM_CAP_VERSION_INFO.
type tpmQuoteInfo2 struct {
	Tag          tpmutil.Tag
	Fixed        [4]byte
	ExternalData [20]byte
	Select       tpmutil.U16Bytes
	Locality     byte
	Digest       [20]byte
}

// QuoteInfo is a decoded TPM_QUOTE_INFO or TPM_QUOTE_INFO2 structure.
type QuoteInfo struct {
	// Quote2 is set for TPM_QUOTE_INFO2.
	Quote2 bool
	// Version is the structure version of a TPM_QUOTE_INFO.
	Version [4]byte
	// CompositeDigest is the SHA-1 digest of the PCR composite.
	CompositeDigest [20]byte
	// ExternalData is the nonce bound into the quote.
	ExternalData [20]byte
	// PCRSelect and Locality are only present in TPM_QUOTE_INFO2.
	PCRSelect []byte
	Locality  byte
	// VersionInfo holds a trailing TPM_CAP_VERSION_INFO, if any.
	VersionInfo []byte
}

// ParseQuoteInfo decodes either quote info layout.
func ParseQuoteInfo(b []byte) (*QuoteInfo, error) {
	switch {
	case len(b) >= 6 && bytes.Equal(b[2:6], fixedQuote2[:]):
		var info tpmQuoteInfo2
		n, err := tpmutil.Unpack(b, &info)
		if err != nil {
			return nil, fmt.Errorf("decoding TPM_QUOTE_INFO2: %w", err)
		}
		if info.Tag != tagQuoteInfo2 {
			return nil, fmt.Errorf("quote info is tagged 0x%04x, want 0x%04x", uint16(info.Tag), uint16(tagQuoteInfo2))
		}
		out := &QuoteInfo{
			Quote2:          true,
			CompositeDigest: info.Digest,
			ExternalData:    info.ExternalData,
			PCRSelect:       clone(info.Select),
			Locality:        info.Locality,
		}
		if n < len(b) {
			out.VersionInfo = clone(b[n:])
		}
		return out, nil

	case len(b) == quoteInfoLen && bytes.Equal(b[4:8], fixedQuote[:]):
		var info tpmQuoteInfo
		if _, err := tpmutil.Unpack(b, &info); err != nil {
			return nil, fmt.Errorf("decoding TPM_QUOTE_INFO: %w", err)
		}
		return &QuoteInfo{
			Version:         info.Version,
			CompositeDigest: info.Digest,
			ExternalData:    info.ExternalData,
		}, nil
	}
	return nil, errors.New("not a TPM_QUOTE_INFO or TPM_QUOTE_INFO2 structure")
}

// encodeComposite encodes TPM_PCR_COMPOSITE: the selection bitmap with a
// 16-bit size prefix followed by the values of all populated slots in
// ascending order, with a 32-bit size prefix.
func encodeComposite(bitmap []byte, values [][]byte) ([]byte, error) {
	var data []byte
	for _, v := range values {
		data = append(data, v...)
	}
	return packComposite(bitmap, uint32(len(data)), data)
}

// packComposite writes valueLen as the size of the value block. It exceeds
// len(data) when selected PCRs hold no value.
func packComposite(bitmap []byte, valueLen uint32, data []byte) ([]byte, error) {
	return tpmutil.Pack(tpmutil.U16Bytes(bitmap), valueLen, tpmutil.RawBytes(data))
}

// PCRComposite encodes the TPM_PCR_COMPOSITE over pcrs, as quoted by a
// TPM 1.2.
func PCRComposite(pcrs map[uint32][]byte) ([]byte, error) {
	nums := make([]uint32, 0, len(pcrs))
	for pcr := range pcrs {
		if pcr >= MaxPCRs {
			return nil, fmt.Errorf("%w: PCR %d", ErrPCROutOfRange, pcr)
		}
		nums = append(nums, pcr)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	values := make([][]byte, len(nums))
	for i, pcr := range nums {
		values[i] = pcrs[pcr]
	}
	return encodeComposite(selectionBitmap(nums), values)
}

func (r *registry) composite() (bitmap, composite []byte, err error) {
	bitmap = make([]byte, r.selectWidth())
	copy(bitmap, r.bitmap[:])

	var data []byte
	for _, v := range r.pcrs {
		data = append(data, v...)
	}
	composite, err = packComposite(bitmap, uint32(r.count*r.pcrLen), data)
	return bitmap, composite, err
}

func (s *Session) digest(h crypto.Hash, data []byte) ([]byte, error) {
	hsh, err := s.crypto.NewHash(h)
	if err != nil {
		return nil, err
	}
	hsh.Write(data)
	return hsh.Sum(nil), nil
}

// BuildQuoteInfo encodes the PCR composite of the selected PCRs together with
// the TPM_QUOTE_INFO (useQuote2 false) or TPM_QUOTE_INFO2 (useQuote2 true)
// structure a TPM signs over them, bound to the secret assessment value.
//
// pcrComposite is the composite digested with compHashAlgo, or the raw
// composite if compHashAlgo is MeasAlgoNone. useVersionInfo appends the TPM
// version info to a TPM_QUOTE_INFO2.
//
// The PCR registry is cleared when BuildQuoteInfo returns, whether it
// succeeds or not.
func (s *Session) BuildQuoteInfo(useQuote2, useVersionInfo bool, compHashAlgo MeasAlgorithm) (pcrComposite, quoteInfo []byte, err error) {
	defer s.pcrs.consume()

	if s.pcrs.count == 0 {
		log.Warning("pts: no extended PCR entries available")
		return nil, nil, ErrNoPCRs
	}
	if len(s.dh.secret) == 0 {
		log.Warning("pts: secret assessment value unavailable")
		return nil, nil, ErrSecretUnavailable
	}
	if useQuote2 && useVersionInfo && len(s.tpmVersionInfo) == 0 {
		log.Warning("pts: TPM version information unavailable")
		return nil, nil, ErrVersionInfoUnavailable
	}

	bitmap, composite, err := s.pcrs.composite()
	if err != nil {
		return nil, nil, fmt.Errorf("encoding PCR composite: %w", err)
	}
	log.V(2).Infof("PCR composite: %x", composite)

	if compHashAlgo != MeasAlgoNone {
		ch, err := compHashAlgo.cryptoHash()
		if err != nil {
			return nil, nil, err
		}
		if pcrComposite, err = s.digest(ch, composite); err != nil {
			return nil, nil, err
		}
	} else {
		pcrComposite = composite
	}

	sum, err := s.digest(crypto.SHA1, composite)
	if err != nil {
		return nil, nil, err
	}
	var digest, nonce [20]byte
	copy(digest[:], sum)
	copy(nonce[:], s.dh.secret)

	if useQuote2 {
		quoteInfo, err = tpmutil.Pack(tpmQuoteInfo2{
			Tag:          tagQuoteInfo2,
			Fixed:        fixedQuote2,
			ExternalData: nonce,
			Select:       bitmap,
			Locality:     0,
			Digest:       digest,
		})
		if err == nil && useVersionInfo {
			quoteInfo = append(quoteInfo, s.tpmVersionInfo...)
		}
	} else {
		quoteInfo, err = tpmutil.Pack(tpmQuoteInfo{
			Version:      quoteVersion,
			Fixed:        fixedQuote,
			Digest:       digest,
			ExternalData: nonce,
		})
	}
	if err != nil {
		return nil, nil, fmt.Errorf("encoding quote info: %w", err)
	}
	log.V(2).Infof("quote info: %x", quoteInfo)
	return pcrComposite, quoteInfo, nil
}
