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

// Binary pts-tool performs Platform Trust Service operations on the local
// system.
package main

import (
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-yaml"
	"github.com/google/go-pts/config"
	"github.com/google/go-pts/pts"
	"github.com/google/go-pts/pts/pts-tool/internal"
	"github.com/google/go-pts/verifier"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type toolFlags struct {
	ConfigPath string
	Algorithm  string
	Directory  bool
	RequestID  uint16
	PCRs       []uint
	UseQuote2  bool
	NoTPM      bool
	cfg        *config.Config
}

var flags toolFlags

var rootCmd = &cobra.Command{
	Use:           "pts-tool",
	Short:         "Platform Trust Service operations on the local system",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flags.ConfigPath)
		if err != nil {
			return err
		}
		if flags.Algorithm != "" {
			if cfg.MeasurementAlgorithm, err = pts.ParseMeasAlgorithm(flags.Algorithm); err != nil {
				return err
			}
		}
		if flags.NoTPM {
			cfg.UseTPM = false
		}
		flags.cfg = cfg
		return nil
	},
}

var measureCmd = &cobra.Command{
	Use:   "measure PATH",
	Short: "Measure a file or the files of a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(pts.RoleMeasurer, nil)
		if err != nil {
			return err
		}
		m, err := s.Measure(flags.RequestID, args[0], flags.Directory)
		if err != nil {
			return fmt.Errorf("measuring %q: %w", args[0], err)
		}
		return printYAML(internal.NewMeasurements(s.MeasAlgorithm(), m))
	},
}

var metadataCmd = &cobra.Command{
	Use:   "metadata PATH",
	Short: "Show the metadata of a file or the files of a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		md, err := pts.Metadata(args[0], flags.Directory)
		if err != nil {
			return fmt.Errorf("reading metadata of %q: %w", args[0], err)
		}
		return printYAML(internal.NewFileInfos(md))
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate PATH",
	Short: "Check that a path can be measured",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := pts.ValidatePath(args[0])
		if err != nil {
			return err
		}
		out := internal.PathStatus{Path: args[0], Code: uint32(code)}
		if code != 0 {
			out.Error = code.String()
		}
		return printYAML(out)
	},
}

var platformCmd = &cobra.Command{
	Use:   "platform",
	Short: "Show the platform information string",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := flags.cfg.PlatformInfo
		if info == "" {
			var err error
			if info, err = pts.ExtractPlatformInfo(); err != nil {
				return err
			}
		}
		fmt.Println(info)
		return nil
	},
}

var pcrCmd = &cobra.Command{
	Use:   "pcr",
	Short: "Read or extend PCRs of the local TPM",
}

var pcrReadCmd = &cobra.Command{
	Use:   "read INDEX...",
	Short: "Read PCR values",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := tpmSession(pts.RoleMeasurer)
		if err != nil {
			return err
		}
		var out []internal.PCR
		for _, arg := range args {
			pcr, err := parsePCR(arg)
			if err != nil {
				return err
			}
			v, err := s.ReadPCR(pcr)
			if err != nil {
				return err
			}
			out = append(out, internal.PCR{Index: pcr, Value: hex.EncodeToString(v)})
		}
		return printYAML(out)
	},
}

var pcrExtendCmd = &cobra.Command{
	Use:   "extend INDEX DIGEST",
	Short: "Extend a PCR with a hex encoded digest",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pcr, err := parsePCR(args[0])
		if err != nil {
			return err
		}
		digest, err := hex.DecodeString(args[1])
		if err != nil {
			return fmt.Errorf("failed decoding digest hex: %v", err)
		}
		s, err := tpmSession(pts.RoleMeasurer)
		if err != nil {
			return err
		}
		v, err := s.ExtendPCR(pcr, digest)
		if err != nil {
			return err
		}
		return printYAML(internal.PCR{Index: pcr, Value: hex.EncodeToString(v)})
	},
}

var aikCmd = &cobra.Command{
	Use:   "aik",
	Short: "Attestation identity key operations",
}

var aikKeyIDCmd = &cobra.Command{
	Use:   "keyid",
	Short: "Show the SHA-1 key identifier of the configured AIK",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		aik, err := pts.LoadAIK(flags.cfg.AIKCertPath, flags.cfg.AIKKeyPath)
		if err != nil {
			return err
		}
		s := pts.New(pts.RoleVerifier, nil)
		s.SetAIK(aik)
		id, err := s.AIKKeyID()
		if err != nil {
			return err
		}
		fmt.Println(hex.EncodeToString(id))
		return nil
	},
}

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Quote PCRs with a locally negotiated secret and verify the quote",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(flags.PCRs) == 0 {
			return errors.New("no PCRs selected, use --pcr")
		}
		out, err := runQuote()
		if err != nil {
			return err
		}
		return printYAML(out)
	},
}

// registerGlobalFlags adds the flags shared by all commands to fs.
func registerGlobalFlags(fs *pflag.FlagSet, f *toolFlags) {
	fs.StringVarP(&f.ConfigPath, "config", "c", "", "Path to the config file")
	fs.StringVarP(&f.Algorithm, "algorithm", "a", "", "Measurement algorithm (sha1, sha256, sha384)")
	fs.BoolVar(&f.NoTPM, "no-tpm", false, "Do not use the local TPM")
}

func init() {
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	registerGlobalFlags(rootCmd.PersistentFlags(), &flags)

	for _, c := range []*cobra.Command{measureCmd, metadataCmd} {
		c.Flags().BoolVarP(&flags.Directory, "dir", "d", false, "Treat PATH as a directory")
	}
	measureCmd.Flags().Uint16Var(&flags.RequestID, "request-id", 0, "Request ID of the measurement")
	quoteCmd.Flags().UintSliceVarP(&flags.PCRs, "pcr", "p", nil, "PCR to quote, may be repeated")
	quoteCmd.Flags().BoolVar(&flags.UseQuote2, "quote2", false, "Use TPM_Quote2")

	pcrCmd.AddCommand(pcrReadCmd, pcrExtendCmd)
	aikCmd.AddCommand(aikKeyIDCmd)
	rootCmd.AddCommand(measureCmd, metadataCmd, validateCmd, platformCmd, pcrCmd, aikCmd, quoteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printYAML(v interface{}) error {
	b, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(b)
	return err
}

func parsePCR(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid PCR index %q: %v", s, err)
	}
	if n >= pts.MaxPCRs {
		return 0, fmt.Errorf("%w: PCR %d", pts.ErrPCROutOfRange, n)
	}
	return uint32(n), nil
}

// newSession creates a session for role from the loaded config.
func newSession(role pts.Role, tpm pts.TPM) (*pts.Session, error) {
	s := pts.New(role, flags.cfg.SessionConfig(tpm))
	if err := flags.cfg.Apply(s); err != nil {
		return nil, err
	}
	return s, nil
}

// tpmSession creates a session for role backed by the local TPM.
func tpmSession(role pts.Role) (*pts.Session, error) {
	if !flags.cfg.UseTPM {
		return nil, pts.ErrTPMNotAvailable
	}
	tpm, err := pts.OpenTPM(flags.cfg.MeasurementAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("opening the TPM: %w", err)
	}
	return newSession(role, tpm)
}

// exchange runs the DH nonce negotiation between both sessions.
func exchange(imc, imv *pts.Session, group pts.DHGroup, nonceLen int) error {
	for _, s := range []*pts.Session{imv, imc} {
		if err := s.BeginExchange(group, nonceLen); err != nil {
			return err
		}
	}
	mValue, mNonce, err := imc.OwnPublicValue()
	if err != nil {
		return err
	}
	vValue, vNonce, err := imv.OwnPublicValue()
	if err != nil {
		return err
	}
	if err := imc.AcceptPeer(vValue, vNonce); err != nil {
		return err
	}
	if err := imv.AcceptPeer(mValue, mNonce); err != nil {
		return err
	}
	for _, s := range []*pts.Session{imc, imv} {
		if err := s.DeriveSecret(); err != nil {
			return err
		}
	}
	return nil
}

func runQuote() (*internal.Quote, error) {
	measurer, err := tpmSession(pts.RoleMeasurer)
	if err != nil {
		return nil, err
	}
	if !measurer.HasTPM() {
		return nil, pts.ErrTPMNotAvailable
	}
	v, err := newSession(pts.RoleVerifier, nil)
	if err != nil {
		return nil, err
	}
	if err := exchange(measurer, v, flags.cfg.DHGroup, flags.cfg.NonceLength); err != nil {
		return nil, fmt.Errorf("negotiating the secret: %w", err)
	}

	var out internal.Quote
	pcrs := map[uint32][]byte{}
	for _, n := range flags.PCRs {
		if n >= pts.MaxPCRs {
			return nil, fmt.Errorf("%w: PCR %d", pts.ErrPCROutOfRange, n)
		}
		pcr := uint32(n)
		value, err := measurer.ReadPCR(pcr)
		if err != nil {
			return nil, err
		}
		if err := measurer.AddPCR(pcr, value, value); err != nil {
			return nil, err
		}
		pcrs[pcr] = value
		out.PCRs = append(out.PCRs, internal.PCR{Index: pcr, Value: hex.EncodeToString(value)})
	}

	q, err := measurer.QuoteTPM(flags.UseQuote2)
	if err != nil {
		return nil, err
	}
	out.TPMVersion = q.Version.String()
	out.Secret = hex.EncodeToString(v.Secret())
	out.PCRComposite = hex.EncodeToString(q.PCRComposite)
	out.QuoteInfo = hex.EncodeToString(q.QuoteInfo)
	out.Signature = hex.EncodeToString(q.Signature)

	aik := measurer.AIK()
	if aik == nil {
		return nil, pts.ErrNoAIK
	}
	pub, err := aik.Public()
	if err != nil {
		return nil, err
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("AIK public key is %T, want *rsa.PublicKey", pub)
	}
	res, err := verifier.VerifyQuote(q.Version, rsaPub, q.QuoteInfo, q.Signature, pcrs, v.Secret())
	if err != nil {
		return nil, fmt.Errorf("verifying the quote: %w", err)
	}
	out.Verification.Succeeded = res.Succeeded
	out.Verification.SignatureMismatch = res.SignatureMismatch
	out.Verification.PCRDigestMismatch = res.PCRDigestMismatch
	out.Verification.NonceMismatch = res.NonceMismatch
	return &out, nil
}
