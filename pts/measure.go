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
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/golang/glog"
)

const hashBufferSize = 4096

// FileMeasurement is the digest of a single file.
type FileMeasurement struct {
	Filename string
	Digest   []byte
}

// FileMeasurements is the answer to one file measurement request.
type FileMeasurements struct {
	RequestID uint16
	Entries   []FileMeasurement
}

// HashFile streams the file at path through h and returns the digest.
func HashFile(h hash.Hash, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h.Reset()
	buf := make([]byte, hashBufferSize)
	// Hide WriterTo so that buf is used.
	if _, err := io.CopyBuffer(h, struct{ io.Reader }{f}, buf); err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	return h.Sum(nil), nil
}

// directoryFiles returns the names of the regular files directly inside dir
// that do not start with a dot. Symbolic links are followed.
func directoryFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		fi, err := os.Stat(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("stat %q: %w", e.Name(), err)
		}
		if !fi.Mode().IsRegular() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Measure computes the digest of the file at path, or of every regular file
// directly inside path if isDirectory is set, with the session's measurement
// algorithm. Nothing is returned if any file cannot be measured.
func (s *Session) Measure(requestID uint16, path string, isDirectory bool) (*FileMeasurements, error) {
	ch, err := s.algorithm.cryptoHash()
	if err != nil {
		return nil, err
	}
	h, err := s.crypto.NewHash(ch)
	if err != nil {
		log.Warningf("pts: hasher %v not available", ch)
		return nil, err
	}

	out := &FileMeasurements{RequestID: requestID}
	if isDirectory {
		names, err := directoryFiles(path)
		if err != nil {
			log.Warningf("pts: opening directory %q failed: %v", path, err)
			return nil, err
		}
		for _, name := range names {
			digest, err := HashFile(h, filepath.Join(path, name))
			if err != nil {
				log.Warningf("pts: hashing %q failed: %v", name, err)
				return nil, err
			}
			log.V(2).Infof("  %x for %q", digest, name)
			out.Entries = append(out.Entries, FileMeasurement{Filename: name, Digest: digest})
		}
		return out, nil
	}

	digest, err := HashFile(h, path)
	if err != nil {
		log.Warningf("pts: hashing %q failed: %v", path, err)
		return nil, err
	}
	name := filepath.Base(path)
	log.V(2).Infof("  %x for %q", digest, name)
	out.Entries = append(out.Entries, FileMeasurement{Filename: name, Digest: digest})
	return out, nil
}
