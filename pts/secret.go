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

	log "github.com/golang/glog"
)

// maxSecretLen is the size of the ExternalData argument of TPM_Quote and
// TPM_Quote2.
const maxSecretLen = 20

// negotiator holds the DH state of a session. The initiator nonce belongs to
// the verifier, the responder nonce to the measurer.
type negotiator struct {
	dh             DiffieHellman
	initiatorNonce []byte
	responderNonce []byte
	secret         []byte
}

// ownNonce returns the nonce slot written by this side.
func (s *Session) ownNonce() *[]byte {
	if s.role == RoleMeasurer {
		return &s.dh.responderNonce
	}
	return &s.dh.initiatorNonce
}

// peerNonce returns the nonce slot written by the peer.
func (s *Session) peerNonce() *[]byte {
	if s.role == RoleMeasurer {
		return &s.dh.initiatorNonce
	}
	return &s.dh.responderNonce
}

// BeginExchange discards any previous key pair and secret, creates a fresh
// DH key pair in group and generates this side's nonce of nonceLen bytes.
func (s *Session) BeginExchange(group DHGroup, nonceLen int) error {
	log.V(1).Infof("selected PTS DH group is %v", group)
	s.dh.dh = nil
	wipe(s.dh.secret)
	s.dh.secret = nil

	dh, err := s.crypto.NewDH(group)
	if err != nil {
		return fmt.Errorf("creating DH key pair: %w", err)
	}
	s.dh.dh = dh

	log.V(1).Infof("nonce length is %d", nonceLen)
	nonce, err := s.crypto.Random(nonceLen)
	if err != nil {
		return err
	}
	*s.ownNonce() = nonce
	return nil
}

// OwnPublicValue returns this side's DH public value and nonce, to be sent
// to the peer.
func (s *Session) OwnPublicValue() (value, nonce []byte, err error) {
	if s.dh.dh == nil {
		return nil, nil, ErrNoExchange
	}
	return s.dh.dh.PublicValue(), clone(*s.ownNonce()), nil
}

// AcceptPeer stores the peer's DH public value and nonce.
func (s *Session) AcceptPeer(value, nonce []byte) error {
	if s.dh.dh == nil {
		return ErrNoExchange
	}
	if err := s.dh.dh.SetPeerPublicValue(value); err != nil {
		return err
	}
	*s.peerNonce() = clone(nonce)
	return nil
}

// DeriveSecret computes the secret assessment value
//
//	H("1" | measurer nonce | verifier nonce | DH shared secret)
//
// truncated to 20 bytes, using the DH hash algorithm. The shared secret is
// wiped before returning. The value is fixed until the next BeginExchange.
func (s *Session) DeriveSecret() error {
	if s.dh.secret != nil {
		return ErrSecretAlreadyDerived
	}
	if len(s.dh.initiatorNonce) == 0 || len(s.dh.responderNonce) == 0 {
		log.Warning("pts: initiator and/or responder nonce is not available")
		return ErrNonceUnavailable
	}
	if s.dh.dh == nil {
		return ErrNoExchange
	}
	log.V(2).Infof("initiator nonce: %x", s.dh.initiatorNonce)
	log.V(2).Infof("responder nonce: %x", s.dh.responderNonce)

	ch, err := s.dhHashAlgorithm.cryptoHash()
	if err != nil {
		return err
	}
	h, err := s.crypto.NewHash(ch)
	if err != nil {
		return err
	}

	shared, err := s.dh.dh.SharedSecret()
	if err != nil {
		log.Warningf("pts: shared DH secret computation failed: %v", err)
		return fmt.Errorf("shared DH secret computation failed: %w", err)
	}
	defer wipe(shared)

	h.Write([]byte{'1'})
	h.Write(s.dh.responderNonce)
	h.Write(s.dh.initiatorNonce)
	h.Write(shared)
	secret := h.Sum(nil)
	h.Reset()

	if len(secret) > maxSecretLen {
		secret = secret[:maxSecretLen]
	}
	s.dh.secret = secret
	log.V(2).Infof("secret assessment value: %x", secret)
	return nil
}

// Secret returns a copy of the secret assessment value, or nil if it has not
// been derived.
func (s *Session) Secret() []byte {
	return clone(s.dh.secret)
}
