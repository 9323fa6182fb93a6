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
	"crypto"
	"fmt"
	"strings"
)

// MeasAlgorithm identifies a PTS measurement (hashing) algorithm, encoded
// with the bit values used on the wire.
type MeasAlgorithm uint16

// Measurement algorithms.
const (
	MeasAlgoNone   MeasAlgorithm = 0
	MeasAlgoSHA384 MeasAlgorithm = 1 << 13
	MeasAlgoSHA256 MeasAlgorithm = 1 << 14
	MeasAlgoSHA1   MeasAlgorithm = 1 << 15
)

func (a MeasAlgorithm) String() string {
	switch a {
	case MeasAlgoNone:
		return "none"
	case MeasAlgoSHA1:
		return "sha1"
	case MeasAlgoSHA256:
		return "sha256"
	case MeasAlgoSHA384:
		return "sha384"
	default:
		return fmt.Sprintf("MeasAlgorithm<0x%04x>", uint16(a))
	}
}

// cryptoHash translates a measurement algorithm into the digest it selects.
func (a MeasAlgorithm) cryptoHash() (crypto.Hash, error) {
	switch a {
	case MeasAlgoSHA1:
		return crypto.SHA1, nil
	case MeasAlgoSHA256:
		return crypto.SHA256, nil
	case MeasAlgoSHA384:
		return crypto.SHA384, nil
	default:
		return crypto.Hash(0), fmt.Errorf("%w: measurement algorithm %v", ErrUnsupportedAlgorithm, a)
	}
}

// ParseMeasAlgorithm maps a name such as "sha256" onto a MeasAlgorithm.
func ParseMeasAlgorithm(name string) (MeasAlgorithm, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "-", "")) {
	case "sha1":
		return MeasAlgoSHA1, nil
	case "sha256":
		return MeasAlgoSHA256, nil
	case "sha384":
		return MeasAlgoSHA384, nil
	case "", "none":
		return MeasAlgoNone, nil
	}
	return MeasAlgoNone, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, name)
}

// DHGroup identifies a PTS Diffie-Hellman group, encoded with the bit values
// used on the wire. Each value names the IKE group it is taken from.
type DHGroup uint16

// Diffie-Hellman groups.
const (
	DHGroupNone  DHGroup = 0
	DHGroupIKE20 DHGroup = 1 << 11 // 384-bit random ECP group
	DHGroupIKE19 DHGroup = 1 << 12 // 256-bit random ECP group
	DHGroupIKE14 DHGroup = 1 << 13 // 2048-bit MODP group
	DHGroupIKE5  DHGroup = 1 << 14 // 1536-bit MODP group
	DHGroupIKE2  DHGroup = 1 << 15 // 1024-bit MODP group
)

func (g DHGroup) String() string {
	switch g {
	case DHGroupNone:
		return "none"
	case DHGroupIKE2:
		return "MODP_1024"
	case DHGroupIKE5:
		return "MODP_1536"
	case DHGroupIKE14:
		return "MODP_2048"
	case DHGroupIKE19:
		return "ECP_256"
	case DHGroupIKE20:
		return "ECP_384"
	default:
		return fmt.Sprintf("DHGroup<0x%04x>", uint16(g))
	}
}

// ParseDHGroup maps an IKE group name ("ike2", "ike14", "ecp256", ...) onto a
// DHGroup.
func ParseDHGroup(name string) (DHGroup, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "")) {
	case "ike2", "modp1024":
		return DHGroupIKE2, nil
	case "ike5", "modp1536":
		return DHGroupIKE5, nil
	case "ike14", "modp2048":
		return DHGroupIKE14, nil
	case "ike19", "ecp256":
		return DHGroupIKE19, nil
	case "ike20", "ecp384":
		return DHGroupIKE20, nil
	}
	return DHGroupNone, fmt.Errorf("%w: DH group %q", ErrUnsupportedAlgorithm, name)
}

// ProtoCaps is the set of PTS protocol capabilities negotiated by a session.
type ProtoCaps uint8

// Protocol capability flags.
const (
	// ProtoCapsX indicates support for extended (XML) reference manifests.
	ProtoCapsX ProtoCaps = 1 << iota
	// ProtoCapsT indicates a trusted platform backed by a hardware root of trust.
	ProtoCapsT
	// ProtoCapsD indicates support for DH nonce negotiation.
	ProtoCapsD
	// ProtoCapsV indicates support for verification.
	ProtoCapsV
	// ProtoCapsC indicates support for current (composite) evidence comparison.
	ProtoCapsC
)

// String renders the flags in the conventional "CVDTX" form, with a dot in
// place of each missing capability.
func (c ProtoCaps) String() string {
	flags := []struct {
		f ProtoCaps
		c byte
	}{
		{ProtoCapsC, 'C'},
		{ProtoCapsV, 'V'},
		{ProtoCapsD, 'D'},
		{ProtoCapsT, 'T'},
		{ProtoCapsX, 'X'},
	}
	out := make([]byte, len(flags))
	for i, f := range flags {
		out[i] = '.'
		if c&f.f != 0 {
			out[i] = f.c
		}
	}
	return string(out)
}
