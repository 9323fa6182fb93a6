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

// Package config reads the settings of the PTS tools: AIK credential
// locations and algorithm defaults.
package config

import (
	"errors"
	"fmt"
	"strings"

	log "github.com/golang/glog"
	"github.com/google/go-pts/pts"
	"github.com/spf13/viper"
)

const (
	// config file name
	confName = "config"
	confExt  = "yaml"
	// environment variables are named PTS_<KEY>
	envPrefix = "pts"

	// credential keys
	confAIKCert = "libimcv.plugins.imc-attestation.aik_cert"
	confAIKKey  = "libimcv.plugins.imc-attestation.aik_key"
	confAIKBlob = "libimcv.plugins.imc-attestation.aik_blob"
	// algorithm keys
	confMeasAlgo   = "pts.measurement_algorithm"
	confDHHashAlgo = "pts.dh_hash_algorithm"
	confDHGroup    = "pts.dh_group"
	confNonceLen   = "pts.nonce_length"
	// registry and platform keys
	confStrictPCR    = "pts.strict_pcr_tracking"
	confPlatformInfo = "pts.platform_info"
	confUseTPM       = "pts.use_tpm"

	defaultNonceLen = 20
)

var defaultPaths = []string{
	".",
	"$HOME/.config/pts",
	"/etc/pts",
}

// Config holds the PTS settings.
type Config struct {
	AIKCertPath string
	AIKKeyPath  string
	AIKBlobPath string

	MeasurementAlgorithm pts.MeasAlgorithm
	DHHashAlgorithm      pts.MeasAlgorithm
	DHGroup              pts.DHGroup
	NonceLength          int

	StrictPCRTracking bool
	PlatformInfo      string
	UseTPM            bool
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(confMeasAlgo, pts.MeasAlgoSHA256.String())
	v.SetDefault(confDHHashAlgo, pts.MeasAlgoSHA256.String())
	v.SetDefault(confDHGroup, "ike19")
	v.SetDefault(confNonceLen, defaultNonceLen)
	v.SetDefault(confStrictPCR, false)
	v.SetDefault(confUseTPM, true)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the settings from the file at path. An empty path searches
// config.yaml in the working directory, $HOME/.config/pts and /etc/pts, and
// falls back to the defaults if none exists.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(confName)
		v.SetConfigType(confExt)
		for _, p := range defaultPaths {
			v.AddConfigPath(p)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		log.V(1).Info("no config file found, using defaults")
	} else {
		log.V(1).Infof("loaded config from %q", v.ConfigFileUsed())
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	c := &Config{
		AIKCertPath:       v.GetString(confAIKCert),
		AIKKeyPath:        v.GetString(confAIKKey),
		AIKBlobPath:       v.GetString(confAIKBlob),
		NonceLength:       v.GetInt(confNonceLen),
		StrictPCRTracking: v.GetBool(confStrictPCR),
		PlatformInfo:      v.GetString(confPlatformInfo),
		UseTPM:            v.GetBool(confUseTPM),
	}
	var err error
	if c.MeasurementAlgorithm, err = pts.ParseMeasAlgorithm(v.GetString(confMeasAlgo)); err != nil {
		return nil, fmt.Errorf("%s: %w", confMeasAlgo, err)
	}
	if c.DHHashAlgorithm, err = pts.ParseMeasAlgorithm(v.GetString(confDHHashAlgo)); err != nil {
		return nil, fmt.Errorf("%s: %w", confDHHashAlgo, err)
	}
	if c.DHGroup, err = pts.ParseDHGroup(v.GetString(confDHGroup)); err != nil {
		return nil, fmt.Errorf("%s: %w", confDHGroup, err)
	}
	if c.NonceLength <= 0 {
		return nil, fmt.Errorf("%s: nonce length %d is not positive", confNonceLen, c.NonceLength)
	}
	return c, nil
}

// SessionConfig returns the pts.Config for a session backed by tpm, which
// may be nil.
func (c *Config) SessionConfig(tpm pts.TPM) *pts.Config {
	if !c.UseTPM {
		tpm = nil
	}
	return &pts.Config{
		TPM:               tpm,
		AIKCertPath:       c.AIKCertPath,
		AIKKeyPath:        c.AIKKeyPath,
		AIKBlobPath:       c.AIKBlobPath,
		PlatformInfo:      c.PlatformInfo,
		StrictPCRTracking: c.StrictPCRTracking,
	}
}

// Apply sets the configured algorithms on s.
func (c *Config) Apply(s *pts.Session) error {
	if err := s.SetMeasAlgorithm(c.MeasurementAlgorithm); err != nil {
		return err
	}
	return s.SetDHHashAlgorithm(c.DHHashAlgorithm)
}
