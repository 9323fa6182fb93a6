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
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	stdx509 "crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// tpmPubKeyHex is a TPM_PUBKEY of a TPM 1.2 AIK.
const tpmPubKeyHex = "00000001000100020000000c00000800000000020000000000000100be855eadb504443ec1a85f5894cf9ae6b97fe75c39debe2376d13e49632ea34dc917c99f0ea29c52349eba9b1abfd2a92e814057568338ea68a32a45f92ae23944d0765805489414f9c588778220a3f384b7b2c4be8132515e276eefde7cb807303f7a7d57900f94dda27e6abe5e411026b8be7637483747073fa731643807e4c3d7e6fdad0ea297beaaeb208465aa4906447fcddf1955f5ac0a439295f7b43fbe38d018009456c17426e4ebf1581c99e3a97ff151a0c649335a46ec8189849b4efe932cb3a7d57e2ee45e67a7fcb64da5041604f24fd6153898fbe5d8432d95b2ad5d4b89088f6306f6b1a7d8c55c748838a96d106efc39ce119b11ac51211b"

func writeFile(t *testing.T, dir, name string, b []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, b, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// testCertificate returns a self-signed AIK certificate for key in DER form.
func testCertificate(t *testing.T, key *rsa.PrivateKey) []byte {
	t.Helper()
	tmpl := &stdx509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test AIK"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := stdx509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate() failed: %v", err)
	}
	return der
}

func TestLoadCertificate(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	der := testCertificate(t, key)
	dir := t.TempDir()

	for name, contents := range map[string][]byte{
		"cert.der":    der,
		"cert.pem":    pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		"cert.padded": append(append([]byte{}, der...), 0, 0, 0, 0),
	} {
		t.Run(name, func(t *testing.T) {
			cert, err := LoadCertificate(writeFile(t, dir, name, contents))
			if err != nil {
				t.Fatalf("LoadCertificate() failed: %v", err)
			}
			pub, ok := cert.PublicKey.(*rsa.PublicKey)
			if !ok || !pub.Equal(&key.PublicKey) {
				t.Errorf("certificate public key = %v, want the AIK", cert.PublicKey)
			}
		})
	}

	if _, err := LoadCertificate(writeFile(t, dir, "garbage", []byte("not a certificate"))); err == nil {
		t.Error("LoadCertificate() of garbage succeeded")
	}
}

func TestLoadPublicKey(t *testing.T) {
	dir := t.TempDir()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	spki, err := stdx509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	tpmPub, err := hex.DecodeString(tpmPubKeyHex)
	if err != nil {
		t.Fatal(err)
	}

	got, err := LoadPublicKey(writeFile(t, dir, "pub.pem", pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: spki})))
	if err != nil {
		t.Fatalf("LoadPublicKey(PEM) failed: %v", err)
	}
	if pub, ok := got.(*ecdsa.PublicKey); !ok || !pub.Equal(&key.PublicKey) {
		t.Errorf("LoadPublicKey(PEM) = %v, want the generated key", got)
	}

	if _, err := LoadPublicKey(writeFile(t, dir, "pub.der", spki)); err != nil {
		t.Errorf("LoadPublicKey(DER) failed: %v", err)
	}

	got, err = LoadPublicKey(writeFile(t, dir, "pub.tpm", tpmPub))
	if err != nil {
		t.Fatalf("LoadPublicKey(TPM_PUBKEY) failed: %v", err)
	}
	if pub, ok := got.(*rsa.PublicKey); !ok || pub.N.BitLen() != 2048 {
		t.Errorf("LoadPublicKey(TPM_PUBKEY) = %v, want a 2048 bit RSA key", got)
	}

	if _, err := LoadPublicKey(writeFile(t, dir, "garbage", []byte("garbage"))); err == nil {
		t.Error("LoadPublicKey() of garbage succeeded")
	}
}

func TestLoadAIK(t *testing.T) {
	dir := t.TempDir()
	certKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	certPath := writeFile(t, dir, "aikCert.der", testCertificate(t, certKey))
	keyPath := writeFile(t, dir, "aikPub.tpm", mustDecodeHex(t, tpmPubKeyHex))
	missing := filepath.Join(dir, "missing")

	aik, err := LoadAIK(certPath, keyPath)
	if err != nil {
		t.Fatalf("LoadAIK() failed: %v", err)
	}
	if aik.Certificate == nil {
		t.Error("LoadAIK() did not prefer the certificate")
	}
	if pub, _ := aik.Public(); !certKey.PublicKey.Equal(pub) {
		t.Errorf("AIK public key = %v, want the certificate key", pub)
	}

	aik, err = LoadAIK(missing, keyPath)
	if err != nil {
		t.Fatalf("LoadAIK() without certificate failed: %v", err)
	}
	if aik.Certificate != nil || aik.PublicKey == nil {
		t.Errorf("LoadAIK() = %+v, want the bare public key", aik)
	}

	if _, err := LoadAIK(missing, missing); !errors.Is(err, ErrNoAIK) {
		t.Errorf("LoadAIK() of missing files returned err %v, want ErrNoAIK", err)
	}
	if _, err := LoadAIK("", ""); !errors.Is(err, ErrNoAIK) {
		t.Errorf("LoadAIK() without paths returned err %v, want ErrNoAIK", err)
	}
}

func TestCredentialPublic(t *testing.T) {
	var c *Credential
	if _, err := c.Public(); !errors.Is(err, ErrNoAIK) {
		t.Errorf("nil Credential.Public() returned err %v, want ErrNoAIK", err)
	}
	if _, err := (&Credential{}).Public(); err == nil {
		t.Error("empty Credential.Public() succeeded")
	}
}

func mustDecodeHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestLoadAIKBlob(t *testing.T) {
	dir := t.TempDir()
	blob := []byte{0x01, 0x01, 0x00, 0x00, 0x00, 0x14}

	got, err := LoadAIKBlob(writeFile(t, dir, "aikBlob.bin", blob))
	if err != nil {
		t.Fatalf("LoadAIKBlob(raw) failed: %v", err)
	}
	if !bytes.Equal(got, blob) {
		t.Errorf("LoadAIKBlob(raw) = %x, want %x", got, blob)
	}

	got, err = LoadAIKBlob(writeFile(t, dir, "aik.json", []byte(`{"TPMVersion": 1, "Public": "AQID", "KeyBlob": "AQEAAAAU"}`)))
	if err != nil {
		t.Fatalf("LoadAIKBlob(json) failed: %v", err)
	}
	if !bytes.Equal(got, blob) {
		t.Errorf("LoadAIKBlob(json) = %x, want %x", got, blob)
	}

	for name, contents := range map[string][]byte{
		"empty":    nil,
		"no blob":  []byte(`{"TPMVersion": 1}`),
		"bad json": []byte(`{"KeyBlob": `),
	} {
		if _, err := LoadAIKBlob(writeFile(t, dir, name, contents)); err == nil {
			t.Errorf("LoadAIKBlob(%s) succeeded", name)
		}
	}
	if _, err := LoadAIKBlob(filepath.Join(dir, "missing")); err == nil {
		t.Error("LoadAIKBlob() of a missing file succeeded")
	}
}
