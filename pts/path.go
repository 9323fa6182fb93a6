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
	"os"

	log "github.com/golang/glog"
)

// ErrorCode is a TCG PTS error code as reported to the peer.
type ErrorCode uint32

// TCG PTS error codes.
const (
	ErrorReserved              ErrorCode = 0
	ErrorHashAlgNotSupported   ErrorCode = 1
	ErrorInvalidPath           ErrorCode = 2
	ErrorFileNotFound          ErrorCode = 3
	ErrorRegNotSupported       ErrorCode = 4
	ErrorRegSkipped            ErrorCode = 5
	ErrorDHGroupsNotSupported  ErrorCode = 6
	ErrorBadNonceLength        ErrorCode = 7
	ErrorInvalidNameFamily     ErrorCode = 8
	ErrorTPMVersNotSupported   ErrorCode = 9
	ErrorInvalidDelimiter      ErrorCode = 10
	ErrorOperationNotSupported ErrorCode = 11
	ErrorRMError               ErrorCode = 12
	ErrorUnableLocalVal        ErrorCode = 13
	ErrorUnableCurEvid         ErrorCode = 14
	ErrorUnableDetTTC          ErrorCode = 15
	ErrorUnableDetPCR          ErrorCode = 16
)

var errorCodeNames = map[ErrorCode]string{
	ErrorReserved:              "Reserved Error",
	ErrorHashAlgNotSupported:   "Hash Algorithm Not Supported",
	ErrorInvalidPath:           "Invalid Path",
	ErrorFileNotFound:          "File Not Found",
	ErrorRegNotSupported:       "Registry Not Supported",
	ErrorRegSkipped:            "Registry Skipped",
	ErrorDHGroupsNotSupported:  "DH Groups Not Supported",
	ErrorBadNonceLength:        "Bad Nonce Length",
	ErrorInvalidNameFamily:     "Invalid Name Family",
	ErrorTPMVersNotSupported:   "TPM Version Not Supported",
	ErrorInvalidDelimiter:      "Invalid Delimiter",
	ErrorOperationNotSupported: "Operation Not Supported",
	ErrorRMError:               "Reference Manifest Error",
	ErrorUnableLocalVal:        "Unable To Perform Local Validation",
	ErrorUnableCurEvid:         "Unable To Collect Current Evidence",
	ErrorUnableDetTTC:          "Unable To Determine Transitive Trust Chain",
	ErrorUnableDetPCR:          "Unable To Determine PCR",
}

func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode<%d>", uint32(c))
}

// ValidatePath checks that path can be measured. A missing file or directory
// yields ErrorFileNotFound and a malformed path ErrorInvalidPath, both with a
// nil error. Other failures are returned as errors.
func ValidatePath(path string) (ErrorCode, error) {
	_, err := os.Stat(path)
	if err == nil {
		return 0, nil
	}
	switch code := classifyPathError(err); code {
	case ErrorFileNotFound:
		log.V(1).Infof("file/directory does not exist %q", path)
		return code, nil
	case ErrorInvalidPath:
		log.V(1).Infof("bad address %q", path)
		return code, nil
	}
	log.Warningf("pts: error %v occurred while validating path %q", err, path)
	return 0, err
}
