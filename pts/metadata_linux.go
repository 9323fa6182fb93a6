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
	"time"

	"golang.org/x/sys/unix"
)

func unixFileType(mode uint32) FileType {
	switch mode & unix.S_IFMT {
	case unix.S_IFREG:
		return FileTypeRegular
	case unix.S_IFDIR:
		return FileTypeDirectory
	case unix.S_IFCHR:
		return FileTypeCharSpec
	case unix.S_IFBLK:
		return FileTypeBlockSpec
	case unix.S_IFIFO:
		return FileTypeFIFO
	case unix.S_IFLNK:
		return FileTypeSymlink
	case unix.S_IFSOCK:
		return FileTypeSocket
	default:
		return FileTypeOther
	}
}

func statFile(path string) (*FileMetadata, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return nil, &os.PathError{Op: "stat", Path: path, Err: err}
	}
	return &FileMetadata{
		Type:     unixFileType(st.Mode),
		Size:     uint64(st.Size),
		Created:  time.Unix(st.Ctim.Unix()),
		Modified: time.Unix(st.Mtim.Unix()),
		Accessed: time.Unix(st.Atim.Unix()),
		Owner:    uint64(st.Uid),
		Group:    uint64(st.Gid),
	}, nil
}
