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
	"io"
	"os"
	"path"
	"strings"

	log "github.com/golang/glog"
	"github.com/google/go-tpm/legacy/tpm2"
)

const (
	tpmRoot = "/sys/class/tpm"
)

// This will be initialized if we build with the tspi tag (needed for TPM 1.2
// access through tcsd).
var getTPM12Impl func() TPM

type probedTPM struct {
	Version TPMVersion
	Path    string
}

func probeSystemTPMs(root string) ([]probedTPM, error) {
	var tpms []probedTPM

	tpmDevs, err := os.ReadDir(root)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	for _, tpmDev := range tpmDevs {
		if !strings.HasPrefix(tpmDev.Name(), "tpm") {
			continue
		}
		tpm := probedTPM{
			Path: path.Join(root, tpmDev.Name()),
		}
		if _, err := os.Stat(path.Join(tpm.Path, "caps")); err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			tpm.Version = TPMVersion20
		} else {
			tpm.Version = TPMVersion12
		}
		tpms = append(tpms, tpm)
	}
	return tpms, nil
}

// devicePath returns the character device of a probed TPM 2.0, preferring
// the kernel resource manager.
func (t probedTPM) devicePath() (string, error) {
	devPath := path.Join("/dev", path.Base(t.Path))
	f, err := os.ReadDir(path.Join(t.Path, "device", "tpmrm"))
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
	} else if len(f) > 0 {
		devPath = path.Join("/dev", f[0].Name())
	}
	return devPath, nil
}

// OpenTPM returns the first TPM of the system. TPM 1.2 devices are reached
// through tcsd when built with the tspi tag and directly otherwise. TPM 2.0
// PCRs are used in the bank of bank.
func OpenTPM(bank MeasAlgorithm) (TPM, error) {
	tpms, err := probeSystemTPMs(tpmRoot)
	if err != nil {
		return nil, err
	}
	if len(tpms) == 0 {
		return nil, ErrTPMNotAvailable
	}
	t := tpms[0]
	log.V(1).Infof("found %v at %s", t.Version, t.Path)

	switch t.Version {
	case TPMVersion12:
		if getTPM12Impl != nil {
			return getTPM12Impl(), nil
		}
		return NewTPM12(path.Join("/dev", path.Base(t.Path))), nil
	default:
		devPath, err := t.devicePath()
		if err != nil {
			return nil, err
		}
		return NewTPM20(func() (io.ReadWriteCloser, error) {
			return tpm2.OpenTPM(devPath)
		}, bank)
	}
}
