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
	"crypto"
	"crypto/rsa"
	"fmt"

	log "github.com/golang/glog"
)

// VerifyQuoteSignature checks that signature is an RSA PKCS #1 v1.5
// signature with SHA-1 over data made by the AIK of the session.
func (s *Session) VerifyQuoteSignature(data, signature []byte) error {
	if s.aik == nil {
		return ErrNoAIK
	}
	pub, err := s.aik.Public()
	if err != nil {
		log.Warningf("pts: failed to get public key from AIK certificate: %v", err)
		return err
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("AIK public key is %T, want *rsa.PublicKey", pub)
	}
	digest, err := s.digest(crypto.SHA1, data)
	if err != nil {
		return err
	}
	if err := rsa.VerifyPKCS1v15(rsaPub, crypto.SHA1, digest, signature); err != nil {
		log.Warningf("pts: quote signature verification failed: %v", err)
		return fmt.Errorf("quote signature verification failed: %w", err)
	}
	log.V(1).Info("quote signature verification succeeded")
	return nil
}
