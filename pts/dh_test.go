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
	"crypto/rand"
	"errors"
	"testing"
)

func TestDHPublicValueSizes(t *testing.T) {
	for group, want := range map[DHGroup]int{
		DHGroupIKE2:  128,
		DHGroupIKE5:  192,
		DHGroupIKE14: 256,
		DHGroupIKE19: 64,
		DHGroupIKE20: 96,
	} {
		dh, err := newDH(group, rand.Reader)
		if err != nil {
			t.Fatalf("newDH(%v) failed: %v", group, err)
		}
		if got := len(dh.PublicValue()); got != want {
			t.Errorf("%v public value is %d bytes, want %d", group, got, want)
		}
	}
	if _, err := newDH(DHGroupNone, rand.Reader); !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Errorf("newDH(none) returned err %v, want ErrUnsupportedAlgorithm", err)
	}
}

func TestDHSharedSecret(t *testing.T) {
	for _, group := range []DHGroup{DHGroupIKE2, DHGroupIKE19} {
		a, err := newDH(group, rand.Reader)
		if err != nil {
			t.Fatal(err)
		}
		b, err := newDH(group, rand.Reader)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := a.SharedSecret(); !errors.Is(err, errNoPeerValue) {
			t.Errorf("%v: SharedSecret() without peer returned err %v, want errNoPeerValue", group, err)
		}
		if err := a.SetPeerPublicValue(b.PublicValue()); err != nil {
			t.Fatalf("%v: SetPeerPublicValue() failed: %v", group, err)
		}
		if err := b.SetPeerPublicValue(a.PublicValue()); err != nil {
			t.Fatalf("%v: SetPeerPublicValue() failed: %v", group, err)
		}
		za, err := a.SharedSecret()
		if err != nil {
			t.Fatal(err)
		}
		zb, err := b.SharedSecret()
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(za, zb) {
			t.Errorf("%v: shared secrets differ: %x != %x", group, za, zb)
		}
	}
}

func TestDHInvalidPeerValue(t *testing.T) {
	modp, err := newDH(DHGroupIKE2, rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	ecp, err := newDH(DHGroupIKE19, rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	one := make([]byte, 128)
	one[127] = 1

	for _, tc := range []struct {
		name  string
		dh    DiffieHellman
		value []byte
	}{
		{"modp short", modp, []byte{0x02}},
		{"modp one", modp, one},
		{"modp prime", modp, modp1024.Bytes()},
		{"ecp short", ecp, bytes.Repeat([]byte{0x01}, 32)},
		{"ecp off curve", ecp, bytes.Repeat([]byte{0x01}, 64)},
	} {
		if err := tc.dh.SetPeerPublicValue(tc.value); err == nil {
			t.Errorf("%s: SetPeerPublicValue() succeeded", tc.name)
		}
	}
}
