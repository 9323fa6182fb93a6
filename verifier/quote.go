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

// Package verifier checks quotes produced by a measurer against the PCR
// values it reported.
package verifier

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"fmt"
	"sort"

	log "github.com/golang/glog"
	"github.com/google/go-pts/pts"
	"github.com/google/go-tpm/legacy/tpm2"
)

// Results describes the outcome of verifying a quote. PCRDigest is the PCR
// digest claimed by the quote.
type Results struct {
	Succeeded         bool
	SignatureMismatch bool
	PCRDigest         []byte
	PCRDigestMismatch bool
	NonceMismatch     bool
}

// nonceMatches reports whether externalData binds secret. TSS stacks hash
// the external data before handing it to a TPM 1.2, so both the padded
// secret and its SHA-1 digest are accepted.
func nonceMatches(externalData [20]byte, secret []byte) bool {
	var padded [20]byte
	copy(padded[:], secret)
	return externalData == padded || externalData == sha1.Sum(secret)
}

// VerifyQuote returns information about the validity of a quote & signature.
//
// For TPM 1.2, quoteInfo is a TPM_QUOTE_INFO or TPM_QUOTE_INFO2 signed with
// RSA PKCS #1 v1.5 over SHA-1, and pcrs must hold exactly the quoted PCRs.
// For TPM 2.0, quoteInfo is a TPMS_ATTEST signed with RSASSA over SHA-256,
// and pcrs must hold at least the quoted PCRs of the quoted bank.
func VerifyQuote(tpmVersion pts.TPMVersion, pub *rsa.PublicKey, quoteInfo, signature []byte, pcrs map[uint32][]byte, secret []byte) (*Results, error) {
	var (
		pcrDigestMatched bool
		nonceMatched     bool
		verifyErr        error
		digest           []byte
	)
	if pub == nil {
		return nil, pts.ErrNoAIK
	}
	if len(signature) < 8 {
		return nil, fmt.Errorf("signature is too short to be valid: only %d bytes", len(signature))
	}

	switch tpmVersion {
	case pts.TPMVersion20:
		att, err := tpm2.DecodeAttestationData(quoteInfo)
		if err != nil {
			return nil, err
		}
		if att.Type != tpm2.TagAttestQuote || att.AttestedQuoteInfo == nil {
			return nil, fmt.Errorf("attestation is tagged %x, want TagAttestQuote", att.Type)
		}
		digest = att.AttestedQuoteInfo.PCRDigest

		// The PCR digest and the signature use the hash of the signing scheme.
		hash := crypto.SHA256
		var compositeData []byte
		for _, pcr := range att.AttestedQuoteInfo.PCRSelection.PCRs {
			value, ok := pcrs[uint32(pcr)]
			if !ok {
				return nil, fmt.Errorf("PCR %d missing but used to compute PCR digest", pcr)
			}
			compositeData = append(compositeData, value...)
		}
		compositeDigest := hash.New()
		compositeDigest.Write(compositeData)
		pcrDigestMatched = bytes.Equal(compositeDigest.Sum(nil), digest)

		nonceMatched = bytes.Equal(att.ExtraData, secret)

		hsh := hash.New()
		hsh.Write(quoteInfo)
		verifyErr = rsa.VerifyPKCS1v15(pub, hash, hsh.Sum(nil), signature)

	case pts.TPMVersion12:
		info, err := pts.ParseQuoteInfo(quoteInfo)
		if err != nil {
			return nil, err
		}
		digest = info.CompositeDigest[:]
		composite, err := pts.PCRComposite(pcrs)
		if err != nil {
			return nil, err
		}
		if info.Quote2 {
			want := selection(sortPCRs(pcrs))
			if !bytes.Equal(info.PCRSelect, want) {
				return nil, fmt.Errorf("quote selects PCRs %x, want %x", info.PCRSelect, want)
			}
		}
		pcrDigestMatched = sha1.Sum(composite) == info.CompositeDigest
		nonceMatched = nonceMatches(info.ExternalData, secret)

		sum := sha1.Sum(quoteInfo)
		verifyErr = rsa.VerifyPKCS1v15(pub, crypto.SHA1, sum[:], signature)

	default:
		return nil, fmt.Errorf("TPM version %d not supported", tpmVersion)
	}

	res := &Results{
		SignatureMismatch: verifyErr != nil,
		Succeeded:         verifyErr == nil && pcrDigestMatched && nonceMatched,
		PCRDigest:         digest,
		PCRDigestMismatch: !pcrDigestMatched,
		NonceMismatch:     !nonceMatched,
	}
	log.V(1).Infof("%v quote verification: %+v", tpmVersion, res)
	return res, nil
}

func sortPCRs(pcrs map[uint32][]byte) []int {
	pcrNums := []int{}
	for pcr := range pcrs {
		pcrNums = append(pcrNums, int(pcr))
	}
	sort.Slice(pcrNums, func(i int, j int) bool {
		return pcrNums[i] < pcrNums[j]
	})
	return pcrNums
}

// selection returns the three byte TPM_PCR_SELECTION bitmap of pcrs.
func selection(pcrs []int) []byte {
	bitmap := make([]byte, 3)
	for _, pcr := range pcrs {
		bitmap[pcr/8] |= 1 << (pcr % 8)
	}
	return bitmap
}
