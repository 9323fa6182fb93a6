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

//go:build linux
// +build linux

package pts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mkdirs(t *testing.T, dirs ...string) {
	t.Helper()
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatal(err)
		}
	}
}

func TestProbeSystemTPMs(t *testing.T) {
	root := t.TempDir()
	mkdirs(t,
		filepath.Join(root, "tpm0", "device", "tpmrm", "tpmrm0"),
		filepath.Join(root, "tpm1"),
		filepath.Join(root, "other"),
	)
	if err := os.WriteFile(filepath.Join(root, "tpm1", "caps"), []byte("TCG version: 1.2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := probeSystemTPMs(root)
	if err != nil {
		t.Fatalf("probeSystemTPMs() failed: %v", err)
	}
	want := []probedTPM{
		{Version: TPMVersion20, Path: filepath.Join(root, "tpm0")},
		{Version: TPMVersion12, Path: filepath.Join(root, "tpm1")},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("probeSystemTPMs() differs (-want +got):\n%s", diff)
	}

	dev, err := got[0].devicePath()
	if err != nil {
		t.Fatalf("devicePath() failed: %v", err)
	}
	if dev != "/dev/tpmrm0" {
		t.Errorf("devicePath() = %q, want /dev/tpmrm0", dev)
	}
	dev, err = got[1].devicePath()
	if err != nil {
		t.Fatalf("devicePath() failed: %v", err)
	}
	if dev != "/dev/tpm1" {
		t.Errorf("devicePath() = %q, want /dev/tpm1", dev)
	}
}

func TestProbeSystemTPMsMissingRoot(t *testing.T) {
	got, err := probeSystemTPMs(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("probeSystemTPMs() failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("probeSystemTPMs() = %v, want none", got)
	}
}
