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
	"path/filepath"
	"time"

	log "github.com/golang/glog"
)

// FileType is the PTS file type of a file metadata entry.
type FileType uint8

// File types, with their PTS wire values.
const (
	FileTypeOther     FileType = 0x0
	FileTypeFIFO      FileType = 0x1
	FileTypeCharSpec  FileType = 0x2
	FileTypeDirectory FileType = 0x4
	FileTypeBlockSpec FileType = 0x6
	FileTypeRegular   FileType = 0x8
	FileTypeSymlink   FileType = 0xA
	FileTypeSocket    FileType = 0xC
)

func (t FileType) String() string {
	switch t {
	case FileTypeOther:
		return "other"
	case FileTypeFIFO:
		return "fifo"
	case FileTypeCharSpec:
		return "char"
	case FileTypeDirectory:
		return "dir"
	case FileTypeBlockSpec:
		return "block"
	case FileTypeRegular:
		return "reg"
	case FileTypeSymlink:
		return "link"
	case FileTypeSocket:
		return "sock"
	default:
		return fmt.Sprintf("FileType<%d>", int(t))
	}
}

// FileMetadata describes one file.
type FileMetadata struct {
	Filename string
	Type     FileType
	Size     uint64
	Created  time.Time
	Modified time.Time
	Accessed time.Time
	Owner    uint64
	Group    uint64
}

// Metadata collects the metadata of the file at path, or of every regular
// file directly inside path if isDirectory is set. Nothing is returned if any
// file cannot be examined.
func Metadata(path string, isDirectory bool) ([]*FileMetadata, error) {
	if !isDirectory {
		m, err := statFile(path)
		if err != nil {
			log.Warningf("pts: failed to obtain stat for %q: %v", path, err)
			return nil, err
		}
		m.Filename = filepath.Base(path)
		return []*FileMetadata{m}, nil
	}

	names, err := directoryFiles(path)
	if err != nil {
		log.Warningf("pts: opening directory %q failed: %v", path, err)
		return nil, err
	}
	var out []*FileMetadata
	for _, name := range names {
		m, err := statFile(filepath.Join(path, name))
		if err != nil {
			log.Warningf("pts: failed to obtain stat for %q: %v", name, err)
			return nil, err
		}
		m.Filename = name
		out = append(out, m)
	}
	return out, nil
}
