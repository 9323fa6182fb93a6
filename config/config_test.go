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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-pts/pts"
)

const testConfig = `
libimcv:
  plugins:
    imc-attestation:
      aik_cert: /etc/pts/aikCert.der
      aik_key: /etc/pts/aikPub.der
      aik_blob: /etc/pts/aikBlob.bin
pts:
  measurement_algorithm: sha384
  dh_hash_algorithm: sha1
  dh_group: ike14
  nonce_length: 32
  strict_pcr_tracking: true
  platform_info: Debian 12 x86_64
  use_tpm: false
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	got, err := Load(writeConfig(t, testConfig))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	want := &Config{
		AIKCertPath:          "/etc/pts/aikCert.der",
		AIKKeyPath:           "/etc/pts/aikPub.der",
		AIKBlobPath:          "/etc/pts/aikBlob.bin",
		MeasurementAlgorithm: pts.MeasAlgoSHA384,
		DHHashAlgorithm:      pts.MeasAlgoSHA1,
		DHGroup:              pts.DHGroupIKE14,
		NonceLength:          32,
		StrictPCRTracking:    true,
		PlatformInfo:         "Debian 12 x86_64",
		UseTPM:               false,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() returned diff (-want +got):\n%s", diff)
	}
}

func TestDefaults(t *testing.T) {
	got, err := fromViper(newViper())
	if err != nil {
		t.Fatalf("fromViper() failed: %v", err)
	}
	want := &Config{
		MeasurementAlgorithm: pts.MeasAlgoSHA256,
		DHHashAlgorithm:      pts.MeasAlgoSHA256,
		DHGroup:              pts.DHGroupIKE19,
		NonceLength:          defaultNonceLen,
		UseTPM:               true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("defaults differ (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	tcs := []struct {
		name     string
		contents string
	}{
		{"bad measurement algorithm", "pts:\n  measurement_algorithm: md5\n"},
		{"bad dh hash", "pts:\n  dh_hash_algorithm: sm3\n"},
		{"bad dh group", "pts:\n  dh_group: ike1\n"},
		{"bad nonce length", "pts:\n  nonce_length: 0\n"},
		{"malformed", "pts: [\n"},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.contents)); err == nil {
				t.Error("Load() succeeded, want error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of a missing file succeeded, want error")
	}
}

type fakeTPM struct{}

func (fakeTPM) Open() (pts.TPMSession, error) { return nil, pts.ErrTPMNotAvailable }

func TestSessionConfig(t *testing.T) {
	c := &Config{
		AIKCertPath:       "cert",
		AIKKeyPath:        "key",
		AIKBlobPath:       "blob",
		PlatformInfo:      "test platform",
		StrictPCRTracking: true,
		UseTPM:            true,
	}
	got := c.SessionConfig(fakeTPM{})
	if got.TPM == nil {
		t.Error("SessionConfig().TPM = nil, want the given TPM")
	}
	if got.AIKCertPath != "cert" || got.AIKKeyPath != "key" || got.AIKBlobPath != "blob" {
		t.Errorf("SessionConfig() AIK paths = %q, %q, %q", got.AIKCertPath, got.AIKKeyPath, got.AIKBlobPath)
	}
	if got.PlatformInfo != "test platform" || !got.StrictPCRTracking {
		t.Errorf("SessionConfig() = %+v, settings not carried over", got)
	}

	c.UseTPM = false
	if got := c.SessionConfig(fakeTPM{}); got.TPM != nil {
		t.Errorf("SessionConfig().TPM = %v with use_tpm disabled, want nil", got.TPM)
	}
}

func TestApply(t *testing.T) {
	s := pts.New(pts.RoleVerifier, nil)
	c := &Config{MeasurementAlgorithm: pts.MeasAlgoSHA1, DHHashAlgorithm: pts.MeasAlgoSHA384}
	if err := c.Apply(s); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if s.MeasAlgorithm() != pts.MeasAlgoSHA1 {
		t.Errorf("MeasAlgorithm() = %v, want %v", s.MeasAlgorithm(), pts.MeasAlgoSHA1)
	}
	if s.DHHashAlgorithm() != pts.MeasAlgoSHA384 {
		t.Errorf("DHHashAlgorithm() = %v, want %v", s.DHHashAlgorithm(), pts.MeasAlgoSHA384)
	}

	c.MeasurementAlgorithm = pts.MeasAlgoNone
	if err := c.Apply(s); err == nil {
		t.Error("Apply() with measurement algorithm none succeeded")
	}
}
