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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/golang/glog"
)

// Distribution release files, in order of preference.
var releaseFiles = []string{
	"/etc/lsb-release", "/etc/debian_version",
	"/etc/SuSE-release", "/etc/novell-release",
	"/etc/sles-release", "/etc/redhat-release",
	"/etc/fedora-release", "/etc/gentoo-release",
	"/etc/slackware-version", "/etc/annvix-release",
	"/etc/arch-release", "/etc/arklinux-release",
	"/etc/aurox-release", "/etc/blackcat-release",
	"/etc/cobalt-release", "/etc/conectiva-release",
	"/etc/debian_release", "/etc/immunix-release",
	"/etc/lfs-release", "/etc/linuxppc-release",
	"/etc/mandrake-release", "/etc/mandriva-release",
	"/etc/mandrakelinux-release", "/etc/mklinux-release",
	"/etc/pld-release", "/etc/redhat_version",
	"/etc/slackware-release", "/etc/e-smith-release",
	"/etc/release", "/etc/sun-release",
	"/etc/tinysofa-release", "/etc/turbolinux-release",
	"/etc/ultrapenguin-release", "/etc/UnitedLinux-release",
	"/etc/va-release", "/etc/yellowdog-release",
}

const (
	lsbRelease     = "/etc/lsb-release"
	debianVersion  = "/etc/debian_version"
	lsbDescription = `DISTRIB_DESCRIPTION="`
)

// ExtractPlatformInfo describes the host as its distribution release string
// followed by the machine architecture, e.g. "Ubuntu 10.04 LTS x86_64".
func ExtractPlatformInfo() (string, error) {
	return extractPlatformInfo("/", machine)
}

func extractPlatformInfo(root string, machine func() (string, error)) (string, error) {
	release, err := distributionRelease(root)
	if err != nil {
		return "", err
	}
	arch, err := machine()
	if err != nil {
		return "", fmt.Errorf("could not retrieve machine architecture: %w", err)
	}
	info := release + " " + arch
	log.V(1).Infof("platform is %q", info)
	return info, nil
}

func distributionRelease(root string) (string, error) {
	for _, name := range releaseFiles {
		b, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			continue
		}
		switch name {
		case lsbRelease:
			start := bytes.Index(b, []byte(lsbDescription))
			if start < 0 {
				return "", errors.New("failed to find begin of lsb-release DESCRIPTION field")
			}
			value := b[start+len(lsbDescription):]
			end := bytes.IndexByte(value, '"')
			if end < 0 {
				return "", errors.New("failed to find end of lsb-release DESCRIPTION field")
			}
			return string(value[:end]), nil
		default:
			end := bytes.IndexByte(b, '\n')
			if end < 0 {
				return "", errors.New("failed to find end of release string")
			}
			if name == debianVersion {
				return "Debian " + string(b[:end]), nil
			}
			return string(b[:end]), nil
		}
	}
	return "", errors.New("no distribution release file found")
}
