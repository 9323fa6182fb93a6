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

// Package pts implements the Platform Trust Service used by the measuring
// (IMC) and verifying (IMV) sides of a TCG attestation exchange: DH nonce
// negotiation, file measurements, PCR bookkeeping and TPM 1.2 quote
// structures.
//
// A Session is not safe for concurrent use.
package pts

import (
	"crypto/sha1"
	"errors"
	"fmt"

	log "github.com/golang/glog"
	"github.com/google/certificate-transparency-go/x509"
)

var (
	// ErrUnsupportedAlgorithm is returned when a measurement, hash or DH
	// algorithm has no local implementation.
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	// ErrNonceUnavailable is returned by DeriveSecret if either nonce is missing.
	ErrNonceUnavailable = errors.New("initiator and/or responder nonce is not available")
	// ErrNoExchange is returned when DH operations are attempted before
	// BeginExchange.
	ErrNoExchange = errors.New("no DH exchange in progress")
	// ErrSecretUnavailable is returned when the secret assessment value is
	// required but has not been derived.
	ErrSecretUnavailable = errors.New("secret assessment value unavailable")
	// ErrSecretAlreadyDerived is returned by DeriveSecret if the secret for the
	// current exchange exists already.
	ErrSecretAlreadyDerived = errors.New("secret assessment value already derived")
	// ErrNoPCRs is returned when a quote is requested without any selected PCR.
	ErrNoPCRs = errors.New("no extended PCR entries available")
	// ErrVersionInfoUnavailable is returned when TPM version info is required
	// but missing.
	ErrVersionInfoUnavailable = errors.New("TPM version information unavailable")
	// ErrPCROutOfRange is returned for PCR indices beyond MaxPCRs.
	ErrPCROutOfRange = errors.New("PCR number is larger than maximum")
	// ErrPCRLength is returned when a PCR value does not match the PCR length
	// fixed for the session.
	ErrPCRLength = errors.New("PCR value has wrong length")
	// ErrPCRMismatch is returned in strict PCR tracking mode if the reported
	// value before an extend does not match the recorded value.
	ErrPCRMismatch = errors.New("pcr_before value does not equal old pcr_after value")
	// ErrNoAIK is returned when an operation needs the AIK and none is held.
	ErrNoAIK = errors.New("no AIK certificate available")
	// ErrTPMNotAvailable is returned when no TPM is configured or reachable.
	ErrTPMNotAvailable = errors.New("TPM not available")
)

// Role fixes which side of the exchange a Session plays.
type Role uint8

// Roles.
const (
	// RoleVerifier is the IMV side. It owns the initiator nonce.
	RoleVerifier Role = iota
	// RoleMeasurer is the IMC side. It owns the responder nonce.
	RoleMeasurer
)

func (r Role) String() string {
	switch r {
	case RoleVerifier:
		return "verifier"
	case RoleMeasurer:
		return "measurer"
	default:
		return fmt.Sprintf("Role<%d>", int(r))
	}
}

// Config holds the collaborators and settings used when creating a Session.
// The zero value is usable.
type Config struct {
	// Crypto provides hashers, randomness and DH. Defaults to
	// DefaultProvider().
	Crypto Provider
	// TPM is the hardware root of trust. Only consulted on the measurer side.
	// A nil TPM means no hardware is present.
	TPM TPM

	// AIKCertPath and AIKKeyPath locate the attestation identity credential.
	// The certificate takes precedence if both load.
	AIKCertPath string
	AIKKeyPath  string
	// AIKBlobPath locates the TSS key blob used for hardware quotes.
	AIKBlobPath string

	// PlatformInfo overrides the platform string probed from the host.
	PlatformInfo string

	// StrictPCRTracking turns the pcr_before consistency warning of AddPCR
	// into an error.
	StrictPCRTracking bool
}

// Session holds the state of one attestation exchange.
type Session struct {
	role   Role
	crypto Provider
	tpm    TPM

	protoCaps       ProtoCaps
	algorithm       MeasAlgorithm
	dhHashAlgorithm MeasAlgorithm

	platformInfo   string
	hasTPM         bool
	tpmVersionInfo []byte
	aikBlob        []byte
	aik            *Credential

	strictPCRTracking bool

	dh   negotiator
	pcrs registry
}

// New creates a Session for role. On the measurer side the platform
// information is collected and the configured TPM probed; when it answers,
// the AIK and AIK blob are loaded from the configured paths.
func New(role Role, cfg *Config) *Session {
	if cfg == nil {
		cfg = &Config{}
	}
	s := &Session{
		role:              role,
		crypto:            cfg.Crypto,
		tpm:               cfg.TPM,
		protoCaps:         ProtoCapsV,
		algorithm:         MeasAlgoSHA256,
		dhHashAlgorithm:   MeasAlgoSHA256,
		platformInfo:      cfg.PlatformInfo,
		strictPCRTracking: cfg.StrictPCRTracking,
	}
	if s.crypto == nil {
		s.crypto = DefaultProvider()
	}

	if role != RoleMeasurer {
		s.protoCaps |= ProtoCapsT | ProtoCapsD
		return s
	}

	if s.platformInfo == "" {
		info, err := ExtractPlatformInfo()
		if err != nil {
			log.Warningf("pts: %v", err)
		}
		s.platformInfo = info
	}
	if s.probeTPM() {
		s.hasTPM = true
		s.protoCaps |= ProtoCapsT | ProtoCapsD
		s.loadAIK(cfg.AIKCertPath, cfg.AIKKeyPath)
		s.loadAIKBlob(cfg.AIKBlobPath)
	}
	return s
}

// Role returns the role the session was created with.
func (s *Session) Role() Role {
	return s.role
}

// ProtoCaps returns the negotiated protocol capabilities.
func (s *Session) ProtoCaps() ProtoCaps {
	return s.protoCaps
}

// SetProtoCaps replaces the negotiated protocol capabilities.
func (s *Session) SetProtoCaps(flags ProtoCaps) {
	s.protoCaps = flags
	log.V(1).Infof("supported PTS protocol capabilities: %s", flags)
}

// MeasAlgorithm returns the algorithm used for file measurements.
func (s *Session) MeasAlgorithm() MeasAlgorithm {
	return s.algorithm
}

// SetMeasAlgorithm selects the file measurement algorithm. An algorithm
// without a hasher leaves the current selection unchanged and returns
// ErrUnsupportedAlgorithm.
func (s *Session) SetMeasAlgorithm(alg MeasAlgorithm) error {
	h, err := alg.cryptoHash()
	if err != nil {
		log.Warningf("pts: measurement algorithm %v rejected, keeping %v", alg, s.algorithm)
		return err
	}
	log.V(1).Infof("selected PTS measurement algorithm is %v", h)
	s.algorithm = alg
	return nil
}

// DHHashAlgorithm returns the algorithm used to derive the secret assessment
// value.
func (s *Session) DHHashAlgorithm() MeasAlgorithm {
	return s.dhHashAlgorithm
}

// SetDHHashAlgorithm selects the algorithm used to derive the secret
// assessment value, with the same rules as SetMeasAlgorithm.
func (s *Session) SetDHHashAlgorithm(alg MeasAlgorithm) error {
	h, err := alg.cryptoHash()
	if err != nil {
		log.Warningf("pts: DH hash algorithm %v rejected, keeping %v", alg, s.dhHashAlgorithm)
		return err
	}
	log.V(1).Infof("selected DH hash algorithm is %v", h)
	s.dhHashAlgorithm = alg
	return nil
}

// PlatformInfo returns the platform and OS description.
func (s *Session) PlatformInfo() string {
	return s.platformInfo
}

// SetPlatformInfo replaces the platform and OS description, typically with
// the value reported by the peer.
func (s *Session) SetPlatformInfo(info string) {
	s.platformInfo = info
}

// HasTPM reports whether an active TPM was found when the session was
// created.
func (s *Session) HasTPM() bool {
	return s.hasTPM
}

// TPMVersionInfo returns a copy of the TPM_CAP_VERSION_INFO structure of the
// local TPM. The second return value is false if no TPM is present.
func (s *Session) TPMVersionInfo() ([]byte, bool) {
	if !s.hasTPM {
		return nil, false
	}
	return clone(s.tpmVersionInfo), true
}

// SetTPMVersionInfo stores the TPM version info reported by the peer.
func (s *Session) SetTPMVersionInfo(info []byte) {
	s.tpmVersionInfo = clone(info)
	log.V(1).Infof("TPM version info: %x", info)
}

// PCRLen returns the PCR length in bytes, or 0 if no PCR was recorded yet.
func (s *Session) PCRLen() int {
	return s.pcrs.pcrLen
}

// AIK returns the attestation identity credential held by the session.
func (s *Session) AIK() *Credential {
	return s.aik
}

// SetAIK replaces the attestation identity credential.
func (s *Session) SetAIK(aik *Credential) {
	s.aik = aik
}

// AIKBlob returns a copy of the loaded TSS AIK key blob.
func (s *Session) AIKBlob() []byte {
	return clone(s.aikBlob)
}

// AIKKeyID returns the SHA-1 digest over the DER encoded
// SubjectPublicKeyInfo of the AIK.
func (s *Session) AIKKeyID() ([]byte, error) {
	if s.aik == nil {
		return nil, ErrNoAIK
	}
	pub, err := s.aik.Public()
	if err != nil {
		return nil, fmt.Errorf("no AIK public key available: %w", err)
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("no SHA-1 AIK public key info ID available: %w", err)
	}
	id := sha1.Sum(der)
	return id[:], nil
}

func (s *Session) loadAIK(certPath, keyPath string) {
	aik, err := LoadAIK(certPath, keyPath)
	if err != nil {
		log.Warningf("pts: %v", err)
		return
	}
	s.aik = aik
}

func (s *Session) loadAIKBlob(path string) {
	if path == "" {
		log.Warning("pts: AIK Blob is not available")
		return
	}
	blob, err := LoadAIKBlob(path)
	if err != nil {
		log.Warningf("pts: %v", err)
		return
	}
	log.V(1).Infof("loaded AIK Blob from %q", path)
	s.aikBlob = blob
}
