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
	"crypto/sha256"
	"crypto/sha512"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, contents := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestMeasureFile(t *testing.T) {
	dir := t.TempDir()
	// Larger than the hash buffer.
	contents := strings.Repeat("measure me ", 1000)
	writeFiles(t, dir, map[string]string{"file": contents})

	s := newTestSession(RoleMeasurer, nil)
	got, err := s.Measure(42, filepath.Join(dir, "file"), false)
	if err != nil {
		t.Fatalf("Measure() failed: %v", err)
	}
	digest := sha256.Sum256([]byte(contents))
	want := &FileMeasurements{
		RequestID: 42,
		Entries:   []FileMeasurement{{Filename: "file", Digest: digest[:]}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Measure() returned diff (-want +got):\n%s", diff)
	}
}

func TestMeasureDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a":       "first",
		"b":       "second",
		".hidden": "skipped",
	})
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(dir, "a"), filepath.Join(dir, "link")); err != nil {
		t.Fatal(err)
	}

	s := newTestSession(RoleMeasurer, nil)
	if err := s.SetMeasAlgorithm(MeasAlgoSHA384); err != nil {
		t.Fatalf("SetMeasAlgorithm() failed: %v", err)
	}
	got, err := s.Measure(1, dir, true)
	if err != nil {
		t.Fatalf("Measure() failed: %v", err)
	}
	a, b := sha512.Sum384([]byte("first")), sha512.Sum384([]byte("second"))
	want := &FileMeasurements{
		RequestID: 1,
		Entries: []FileMeasurement{
			{Filename: "a", Digest: a[:]},
			{Filename: "b", Digest: b[:]},
			{Filename: "link", Digest: a[:]},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Measure() returned diff (-want +got):\n%s", diff)
	}
}

func TestMeasureDirectoryLinkedFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "target")
	if err := os.WriteFile(target, []byte("linked"), 0644); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	if err := os.Symlink(target, filepath.Join(dir, "link")); err != nil {
		t.Fatal(err)
	}

	s := newTestSession(RoleMeasurer, nil)
	got, err := s.Measure(2, dir, true)
	if err != nil {
		t.Fatalf("Measure() failed: %v", err)
	}
	sum := sha256.Sum256([]byte("linked"))
	want := &FileMeasurements{
		RequestID: 2,
		Entries:   []FileMeasurement{{Filename: "link", Digest: sum[:]}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Measure() returned diff (-want +got):\n%s", diff)
	}

	// A dangling link fails the whole request.
	if err := os.Symlink(filepath.Join(dir, "missing"), filepath.Join(dir, "dangling")); err != nil {
		t.Fatal(err)
	}
	if m, err := s.Measure(2, dir, true); err == nil {
		t.Errorf("Measure() with a dangling link = %+v, want error", m)
	}
}

func TestMeasureErrors(t *testing.T) {
	dir := t.TempDir()
	s := newTestSession(RoleMeasurer, nil)
	if _, err := s.Measure(1, filepath.Join(dir, "missing"), false); err == nil {
		t.Error("Measure() of a missing file succeeded")
	}
	if _, err := s.Measure(1, filepath.Join(dir, "missing"), true); err == nil {
		t.Error("Measure() of a missing directory succeeded")
	}
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"empty": ""})
	h := sha256.New()
	h.Write([]byte("stale state"))
	got, err := HashFile(h, filepath.Join(dir, "empty"))
	if err != nil {
		t.Fatalf("HashFile() failed: %v", err)
	}
	want := sha256.Sum256(nil)
	if diff := cmp.Diff(want[:], got); diff != "" {
		t.Errorf("HashFile() returned diff (-want +got):\n%s", diff)
	}
}
