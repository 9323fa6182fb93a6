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
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	stdx509 "crypto/x509"
	"errors"
	"testing"
)

func TestVerifyQuoteSignature(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	data := []byte("quote info")
	digest := sha1.Sum(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA1, digest[:])
	if err != nil {
		t.Fatal(err)
	}

	s := newTestSession(RoleVerifier, nil)
	if err := s.VerifyQuoteSignature(data, sig); !errors.Is(err, ErrNoAIK) {
		t.Errorf("VerifyQuoteSignature() without AIK returned err %v, want ErrNoAIK", err)
	}

	s.SetAIK(&Credential{PublicKey: &key.PublicKey})
	if err := s.VerifyQuoteSignature(data, sig); err != nil {
		t.Errorf("VerifyQuoteSignature() failed: %v", err)
	}
	if err := s.VerifyQuoteSignature([]byte("other info"), sig); err == nil {
		t.Error("VerifyQuoteSignature() accepted a signature over other data")
	}
	bad := bytes.Clone(sig)
	bad[0] ^= 0xff
	if err := s.VerifyQuoteSignature(data, bad); err == nil {
		t.Error("VerifyQuoteSignature() accepted a corrupted signature")
	}

	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	s.SetAIK(&Credential{PublicKey: &ecKey.PublicKey})
	if err := s.VerifyQuoteSignature(data, sig); err == nil {
		t.Error("VerifyQuoteSignature() with an ECDSA AIK succeeded")
	}
}

func TestAIKKeyID(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	der, err := stdx509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	want := sha1.Sum(der)

	s := newTestSession(RoleVerifier, nil)
	if _, err := s.AIKKeyID(); !errors.Is(err, ErrNoAIK) {
		t.Errorf("AIKKeyID() without AIK returned err %v, want ErrNoAIK", err)
	}
	s.SetAIK(&Credential{PublicKey: &key.PublicKey})
	got, err := s.AIKKeyID()
	if err != nil {
		t.Fatalf("AIKKeyID() failed: %v", err)
	}
	if !bytes.Equal(got, want[:]) {
		t.Errorf("AIKKeyID() = %x, want %x", got, want)
	}
}
