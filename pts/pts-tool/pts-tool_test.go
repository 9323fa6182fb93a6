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

package main

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-pts/pts"
	"github.com/google/go-pts/pts/pts-tool/internal"
	"github.com/spf13/pflag"
)

func TestExchange(t *testing.T) {
	imc := pts.New(pts.RoleMeasurer, &pts.Config{PlatformInfo: "test platform"})
	imv := pts.New(pts.RoleVerifier, nil)
	if err := exchange(imc, imv, pts.DHGroupIKE19, 20); err != nil {
		t.Fatalf("exchange() failed: %v", err)
	}
	if len(imc.Secret()) != 20 {
		t.Errorf("len(Secret()) = %d, want 20", len(imc.Secret()))
	}
	if !bytes.Equal(imc.Secret(), imv.Secret()) {
		t.Errorf("secrets differ: measurer %x, verifier %x", imc.Secret(), imv.Secret())
	}
}

func TestParsePCR(t *testing.T) {
	tcs := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{"0", 0, false},
		{"23", 23, false},
		{"24", 0, true},
		{"-1", 0, true},
		{"ten", 0, true},
	}
	for _, tc := range tcs {
		got, err := parsePCR(tc.in)
		if gotErr := err != nil; gotErr != tc.wantErr {
			t.Errorf("parsePCR(%q) returned err %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("parsePCR(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestNewMeasurements(t *testing.T) {
	got := internal.NewMeasurements(pts.MeasAlgoSHA1, &pts.FileMeasurements{
		RequestID: 7,
		Entries: []pts.FileMeasurement{
			{Filename: "a", Digest: []byte{0xde, 0xad}},
			{Filename: "b", Digest: []byte{0xbe, 0xef}},
		},
	})
	want := &internal.Measurements{
		RequestID: 7,
		Algorithm: "sha1",
		Files: []internal.FileDigest{
			{Filename: "a", Digest: "dead"},
			{Filename: "b", Digest: "beef"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NewMeasurements() returned diff (-want +got):\n%s", diff)
	}
}

func TestRegisterGlobalFlags(t *testing.T) {
	fs := pflag.NewFlagSet("pts-tool", pflag.ContinueOnError)
	var got toolFlags
	registerGlobalFlags(fs, &got)
	if err := fs.Parse([]string{"-c", "/etc/pts/config.yaml", "--algorithm=sha1", "--no-tpm"}); err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	want := toolFlags{ConfigPath: "/etc/pts/config.yaml", Algorithm: "sha1", NoTPM: true}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(toolFlags{})); diff != "" {
		t.Errorf("parsed flags differ (-want +got):\n%s", diff)
	}
}
