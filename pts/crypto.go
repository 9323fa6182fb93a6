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
	"crypto/rand"
	"fmt"
	"hash"
	"io"

	// Register the digests reachable from MeasAlgorithm.
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"
)

// Provider supplies the cryptographic primitives a Session relies on. It is
// passed in through Config so that tests and alternative backends can replace
// the default implementation.
type Provider interface {
	// NewHash returns a streaming hasher for h.
	NewHash(h crypto.Hash) (hash.Hash, error)
	// Random returns n bytes from a cryptographically strong source.
	Random(n int) ([]byte, error)
	// NewDH creates a fresh key pair in the given group.
	NewDH(group DHGroup) (DiffieHellman, error)
}

// DiffieHellman is a single Diffie-Hellman key pair together with the
// public value received from the peer.
type DiffieHellman interface {
	// PublicValue returns this side's public value in its wire encoding.
	PublicValue() []byte
	// SetPeerPublicValue stores and validates the peer's public value.
	SetPeerPublicValue(v []byte) error
	// SharedSecret computes the shared secret. The caller owns the returned
	// slice and is expected to wipe it.
	SharedSecret() ([]byte, error)
}

type stdProvider struct {
	rand io.Reader
}

// DefaultProvider returns a Provider backed by the Go standard crypto
// packages and crypto/rand.
func DefaultProvider() Provider {
	return &stdProvider{rand: rand.Reader}
}

func (p *stdProvider) NewHash(h crypto.Hash) (hash.Hash, error) {
	if !h.Available() {
		return nil, fmt.Errorf("%w: hasher %v not available", ErrUnsupportedAlgorithm, h)
	}
	return h.New(), nil
}

func (p *stdProvider) Random(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("invalid random length %d", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(p.rand, b); err != nil {
		return nil, fmt.Errorf("no rng available: %w", err)
	}
	return b, nil
}

func (p *stdProvider) NewDH(group DHGroup) (DiffieHellman, error) {
	return newDH(group, p.rand)
}

// wipe overwrites b with zeros.
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
