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
	"crypto/ecdh"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
)

// MODP primes from RFC 2409 (group 2) and RFC 3526 (groups 5 and 14). All of
// them use the generator 2.
var (
	modp1024 = mustParsePrime(`
		FFFFFFFF FFFFFFFF C90FDAA2 2168C234 C4C6628B 80DC1CD1
		29024E08 8A67CC74 020BBEA6 3B139B22 514A0879 8E3404DD
		EF9519B3 CD3A431B 302B0A6D F25F1437 4FE1356D 6D51C245
		E485B576 625E7EC6 F44C42E9 A637ED6B 0BFF5CB6 F406B7ED
		EE386BFB 5A899FA5 AE9F2411 7C4B1FE6 49286651 ECE65381
		FFFFFFFF FFFFFFFF`)
	modp1536 = mustParsePrime(`
		FFFFFFFF FFFFFFFF C90FDAA2 2168C234 C4C6628B 80DC1CD1
		29024E08 8A67CC74 020BBEA6 3B139B22 514A0879 8E3404DD
		EF9519B3 CD3A431B 302B0A6D F25F1437 4FE1356D 6D51C245
		E485B576 625E7EC6 F44C42E9 A637ED6B 0BFF5CB6 F406B7ED
		EE386BFB 5A899FA5 AE9F2411 7C4B1FE6 49286651 ECE45B3D
		C2007CB8 A163BF05 98DA4836 1C55D39A 69163FA8 FD24CF5F
		83655D23 DCA3AD96 1C62F356 208552BB 9ED52907 7096966D
		670C354E 4ABC9804 F1746C08 CA237327 FFFFFFFF FFFFFFFF`)
	modp2048 = mustParsePrime(`
		FFFFFFFF FFFFFFFF C90FDAA2 2168C234 C4C6628B 80DC1CD1
		29024E08 8A67CC74 020BBEA6 3B139B22 514A0879 8E3404DD
		EF9519B3 CD3A431B 302B0A6D F25F1437 4FE1356D 6D51C245
		E485B576 625E7EC6 F44C42E9 A637ED6B 0BFF5CB6 F406B7ED
		EE386BFB 5A899FA5 AE9F2411 7C4B1FE6 49286651 ECE45B3D
		C2007CB8 A163BF05 98DA4836 1C55D39A 69163FA8 FD24CF5F
		83655D23 DCA3AD96 1C62F356 208552BB 9ED52907 7096966D
		670C354E 4ABC9804 F1746C08 CA18217C 32905E46 2E36CE3B
		E39E772C 180E8603 9B2783A2 EC07A28F B5C55DF0 6F4C52C9
		DE2BCBF6 95581718 3995497C EA956AE5 15D22618 98FA0510
		15728E5A 8AACAA68 FFFFFFFF FFFFFFFF`)

	modpGenerator = big.NewInt(2)
)

var errNoPeerValue = errors.New("peer public value not set")

func mustParsePrime(s string) *big.Int {
	p, ok := new(big.Int).SetString(strings.Join(strings.Fields(s), ""), 16)
	if !ok {
		panic("invalid MODP prime")
	}
	return p
}

func newDH(group DHGroup, r io.Reader) (DiffieHellman, error) {
	switch group {
	case DHGroupIKE2:
		return newModpDH(modp1024, r)
	case DHGroupIKE5:
		return newModpDH(modp1536, r)
	case DHGroupIKE14:
		return newModpDH(modp2048, r)
	case DHGroupIKE19:
		return newECDH(ecdh.P256(), r)
	case DHGroupIKE20:
		return newECDH(ecdh.P384(), r)
	default:
		return nil, fmt.Errorf("%w: DH group %v", ErrUnsupportedAlgorithm, group)
	}
}

// modpDH implements finite field Diffie-Hellman. Public values and the shared
// secret are encoded big-endian, left-padded to the length of the prime.
type modpDH struct {
	p    *big.Int
	priv *big.Int
	pub  *big.Int
	peer *big.Int
}

func newModpDH(p *big.Int, r io.Reader) (*modpDH, error) {
	// Private exponent in [2, p-2].
	x, err := rand.Int(r, new(big.Int).Sub(p, big.NewInt(3)))
	if err != nil {
		return nil, fmt.Errorf("no rng available: %w", err)
	}
	x.Add(x, big.NewInt(2))
	return &modpDH{
		p:    p,
		priv: x,
		pub:  new(big.Int).Exp(modpGenerator, x, p),
	}, nil
}

func (d *modpDH) size() int {
	return (d.p.BitLen() + 7) / 8
}

func (d *modpDH) PublicValue() []byte {
	return d.pub.FillBytes(make([]byte, d.size()))
}

func (d *modpDH) SetPeerPublicValue(v []byte) error {
	if len(v) != d.size() {
		return fmt.Errorf("invalid DH public value length %d, want %d", len(v), d.size())
	}
	y := new(big.Int).SetBytes(v)
	pMinus1 := new(big.Int).Sub(d.p, big.NewInt(1))
	if y.Cmp(big.NewInt(1)) <= 0 || y.Cmp(pMinus1) >= 0 {
		return errors.New("DH public value out of range")
	}
	d.peer = y
	return nil
}

func (d *modpDH) SharedSecret() ([]byte, error) {
	if d.peer == nil {
		return nil, errNoPeerValue
	}
	z := new(big.Int).Exp(d.peer, d.priv, d.p)
	out := z.FillBytes(make([]byte, d.size()))
	z.SetInt64(0)
	return out, nil
}

// ecpDH implements elliptic curve Diffie-Hellman. Public values are the
// concatenated affine coordinates without the SEC 1 point format prefix.
type ecpDH struct {
	priv *ecdh.PrivateKey
	peer *ecdh.PublicKey
}

func newECDH(curve ecdh.Curve, r io.Reader) (*ecpDH, error) {
	priv, err := curve.GenerateKey(r)
	if err != nil {
		return nil, fmt.Errorf("generating ECDH key: %w", err)
	}
	return &ecpDH{priv: priv}, nil
}

func (d *ecpDH) PublicValue() []byte {
	return d.priv.PublicKey().Bytes()[1:]
}

func (d *ecpDH) SetPeerPublicValue(v []byte) error {
	pub, err := d.priv.Curve().NewPublicKey(append([]byte{0x04}, v...))
	if err != nil {
		return fmt.Errorf("invalid ECDH public value: %w", err)
	}
	d.peer = pub
	return nil
}

func (d *ecpDH) SharedSecret() ([]byte, error) {
	if d.peer == nil {
		return nil, errNoPeerValue
	}
	return d.priv.ECDH(d.peer)
}
