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

//go:build !linux
// +build !linux

package pts

import (
	"io/fs"
	"os"
)

// statFile falls back to os.Stat where the stat structure is not known.
// Creation and access times are reported as the modification time and
// ownership is not available.
func statFile(path string) (*FileMetadata, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &FileMetadata{
		Type:     fileTypeOf(fi.Mode()),
		Size:     uint64(fi.Size()),
		Created:  fi.ModTime(),
		Modified: fi.ModTime(),
		Accessed: fi.ModTime(),
	}, nil
}

func fileTypeOf(mode fs.FileMode) FileType {
	switch {
	case mode.IsRegular():
		return FileTypeRegular
	case mode&fs.ModeDir != 0:
		return FileTypeDirectory
	case mode&fs.ModeSymlink != 0:
		return FileTypeSymlink
	case mode&fs.ModeNamedPipe != 0:
		return FileTypeFIFO
	case mode&fs.ModeSocket != 0:
		return FileTypeSocket
	case mode&fs.ModeCharDevice != 0:
		return FileTypeCharSpec
	case mode&fs.ModeDevice != 0:
		return FileTypeBlockSpec
	default:
		return FileTypeOther
	}
}
