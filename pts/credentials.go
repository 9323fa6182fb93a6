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
	"encoding/asn1"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	log "github.com/golang/glog"
	"github.com/google/certificate-transparency-go/x509"
	"github.com/google/go-tpm/tpm"
)

// Credential is an attestation identity credential: an AIK certificate or a
// bare AIK public key.
type Credential struct {
	Certificate *x509.Certificate
	PublicKey   crypto.PublicKey
}

// Public returns the public key of the credential.
func (c *Credential) Public() (crypto.PublicKey, error) {
	switch {
	case c == nil:
		return nil, ErrNoAIK
	case c.Certificate != nil && c.Certificate.PublicKey != nil:
		return c.Certificate.PublicKey, nil
	case c.PublicKey != nil:
		return c.PublicKey, nil
	}
	return nil, errors.New("credential holds no public key")
}

// pemOrDER returns the DER contents of a PEM block of the given type, or b
// itself if it is not PEM encoded.
func pemOrDER(b []byte, blockType string) []byte {
	if block, _ := pem.Decode(b); block != nil && block.Type == blockType {
		return block.Bytes
	}
	return b
}

func parseCert(der []byte) (*x509.Certificate, error) {
	// If the cert parses fine without any changes, we are G2G.
	if c, err := x509.ParseCertificate(der); !x509.IsFatal(err) {
		return c, nil
	}
	// There might be trailing nonsense in the cert, which Go
	// does not parse correctly. As ASN1 data is TLV encoded, we should
	// be able to just get the certificate, and then send that to Go's
	// certificate parser.
	var cert struct {
		Raw asn1.RawContent
	}
	if _, err := asn1.Unmarshal(der, &cert); err != nil {
		return nil, err
	}
	c, err := x509.ParseCertificate(cert.Raw)
	if x509.IsFatal(err) {
		return nil, err
	}
	return c, nil
}

// LoadCertificate reads a PEM or DER encoded X.509 certificate.
func LoadCertificate(path string) (*x509.Certificate, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cert, err := parseCert(pemOrDER(b, "CERTIFICATE"))
	if err != nil {
		return nil, fmt.Errorf("parsing certificate %q: %w", path, err)
	}
	return cert, nil
}

// LoadPublicKey reads a public key encoded as PEM or DER
// SubjectPublicKeyInfo, or as a TPM_PUBKEY structure.
func LoadPublicKey(path string) (crypto.PublicKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	der := pemOrDER(b, "PUBLIC KEY")
	if pub, err := x509.ParsePKIXPublicKey(der); err == nil {
		return pub, nil
	}
	pub, err := tpm.UnmarshalPubRSAPublicKey(b)
	if err != nil {
		return nil, fmt.Errorf("parsing public key %q: not a SubjectPublicKeyInfo or TPM_PUBKEY", path)
	}
	return pub, nil
}

// LoadAIK loads the AIK certificate from certPath or, failing that, the AIK
// public key from keyPath.
func LoadAIK(certPath, keyPath string) (*Credential, error) {
	if certPath != "" {
		cert, err := LoadCertificate(certPath)
		if err == nil {
			log.V(1).Infof("loaded AIK certificate from %q", certPath)
			return &Credential{Certificate: cert}, nil
		}
		log.Warningf("pts: %v", err)
	}
	if keyPath != "" {
		pub, err := LoadPublicKey(keyPath)
		if err == nil {
			log.V(1).Infof("loaded AIK public key from %q", keyPath)
			return &Credential{PublicKey: pub}, nil
		}
		log.Warningf("pts: %v", err)
	}
	return nil, ErrNoAIK
}

// serializedKey is the persisted form of a TPM-backed key. Only the key blob
// is used here.
type serializedKey struct {
	TPMVersion TPMVersion
	Public     []byte
	Blob       []byte `json:"KeyBlob"`
}

// LoadAIKBlob reads the TSS key blob of the AIK. Both raw TPM_KEY blobs and
// JSON serialized keys are accepted.
func LoadAIKBlob(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read AIK Blob file %q: %w", path, err)
	}
	if t := bytes.TrimSpace(b); len(t) > 0 && t[0] == '{' {
		var k serializedKey
		if err := json.Unmarshal(t, &k); err != nil {
			return nil, fmt.Errorf("json.Unmarshal() failed: %v", err)
		}
		if len(k.Blob) == 0 {
			return nil, fmt.Errorf("serialized key %q holds no key blob", path)
		}
		return k.Blob, nil
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("AIK Blob file %q is empty", path)
	}
	return b, nil
}
