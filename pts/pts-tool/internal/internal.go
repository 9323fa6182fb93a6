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

// Package internal contains marshalling structures for pts-tool and tests.
package internal

import (
	"encoding/hex"
	"time"

	"github.com/google/go-pts/pts"
)

// FileDigest is one measured file.
type FileDigest struct {
	Filename string `yaml:"filename"`
	Digest   string `yaml:"digest"`
}

// Measurements describes the output of the measure command.
type Measurements struct {
	RequestID uint16       `yaml:"request_id"`
	Algorithm string       `yaml:"algorithm"`
	Files     []FileDigest `yaml:"files"`
}

// NewMeasurements converts the measurements of a request made with alg.
func NewMeasurements(alg pts.MeasAlgorithm, m *pts.FileMeasurements) *Measurements {
	out := &Measurements{RequestID: m.RequestID, Algorithm: alg.String()}
	for _, e := range m.Entries {
		out.Files = append(out.Files, FileDigest{Filename: e.Filename, Digest: hex.EncodeToString(e.Digest)})
	}
	return out
}

// FileInfo is the metadata of one file.
type FileInfo struct {
	Filename string    `yaml:"filename"`
	Type     string    `yaml:"type"`
	Size     uint64    `yaml:"size"`
	Created  time.Time `yaml:"created"`
	Modified time.Time `yaml:"modified"`
	Accessed time.Time `yaml:"accessed"`
	Owner    uint64    `yaml:"owner"`
	Group    uint64    `yaml:"group"`
}

// NewFileInfos converts file metadata entries.
func NewFileInfos(md []*pts.FileMetadata) []FileInfo {
	out := make([]FileInfo, 0, len(md))
	for _, m := range md {
		out = append(out, FileInfo{
			Filename: m.Filename,
			Type:     m.Type.String(),
			Size:     m.Size,
			Created:  m.Created.UTC(),
			Modified: m.Modified.UTC(),
			Accessed: m.Accessed.UTC(),
			Owner:    m.Owner,
			Group:    m.Group,
		})
	}
	return out
}

// PathStatus describes the output of the validate command.
type PathStatus struct {
	Path  string `yaml:"path"`
	Code  uint32 `yaml:"code"`
	Error string `yaml:"error,omitempty"`
}

// PCR is a register value.
type PCR struct {
	Index uint32 `yaml:"index"`
	Value string `yaml:"value"`
}

// Quote describes the output of the quote command: a quote over the
// selected PCRs bound to a locally negotiated secret, and its verification.
type Quote struct {
	TPMVersion   string `yaml:"tpm_version"`
	PCRs         []PCR  `yaml:"pcrs"`
	Secret       string `yaml:"secret"`
	PCRComposite string `yaml:"pcr_composite"`
	QuoteInfo    string `yaml:"quote_info"`
	Signature    string `yaml:"signature"`

	Verification struct {
		Succeeded         bool `yaml:"succeeded"`
		SignatureMismatch bool `yaml:"signature_mismatch"`
		PCRDigestMismatch bool `yaml:"pcr_digest_mismatch"`
		NonceMismatch     bool `yaml:"nonce_mismatch"`
	} `yaml:"verification"`
}
