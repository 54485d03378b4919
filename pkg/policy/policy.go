// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package policy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules are the grouping parameters applied to one session.
type Rules struct {
	GroupSize          int   `yaml:"groupSize"`
	AutoGroupThreshold int   `yaml:"autoGroupThreshold"`
	CountdownMs        int64 `yaml:"countdownMs"`
}

// DefaultRules apply when neither config nor policy file says otherwise.
var DefaultRules = Rules{GroupSize: 2, AutoGroupThreshold: 3}

// Override replaces selected default rules for one session key.
type Override struct {
	Key                string `yaml:"key"`
	GroupSize          *int   `yaml:"groupSize,omitempty"`
	AutoGroupThreshold *int   `yaml:"autoGroupThreshold,omitempty"`
	CountdownMs        *int64 `yaml:"countdownMs,omitempty"`
}

// Policy is the grouping configuration file.
//
// ============================================================
// DEVELOPER: Grouping policy file (config/grouping.yaml)
// ============================================================
// Example:
//
//	defaults:
//	  groupSize: 2
//	  autoGroupThreshold: 3
//	  countdownMs: 0
//	sessions:
//	  - key: finale
//	    groupSize: ${FINALE_GROUP_SIZE:4}
//	    countdownMs: 180000
//
// Fields missing from defaults fall back to DEFAULT_GROUP_SIZE and
// AUTO_GROUP_THRESHOLD.
// ============================================================
type Policy struct {
	Defaults Rules      `yaml:"defaults"`
	Sessions []Override `yaml:"sessions,omitempty"`

	byKey map[string]Override
}

// New builds a policy with only defaults.
func New(defaults Rules) *Policy {
	p := &Policy{Defaults: defaults}
	p.index()
	return p
}

// Load reads a grouping policy from a YAML file.
// Supports environment variable expansion in the form ${VAR_NAME} or ${VAR_NAME:default}.
func Load(path string, fallback Rules) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file %s: %w", path, err)
	}

	return Parse(data, fallback)
}

// Parse decodes a policy document; zero defaults are taken from fallback.
func Parse(data []byte, fallback Rules) (*Policy, error) {
	expanded := expandEnvVars(string(data))

	var p Policy
	if err := yaml.Unmarshal([]byte(expanded), &p); err != nil {
		return nil, fmt.Errorf("failed to parse YAML policy: %w", err)
	}

	if p.Defaults.GroupSize == 0 {
		p.Defaults.GroupSize = fallback.GroupSize
	}
	if p.Defaults.AutoGroupThreshold == 0 {
		p.Defaults.AutoGroupThreshold = fallback.AutoGroupThreshold
	}
	if p.Defaults.CountdownMs == 0 {
		p.Defaults.CountdownMs = fallback.CountdownMs
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}

	p.index()
	return &p, nil
}

// Validate validates the policy for common errors.
func (p *Policy) Validate() error {
	if err := p.Defaults.validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}

	keys := make(map[string]bool)
	for _, o := range p.Sessions {
		if o.Key == "" {
			return fmt.Errorf("session override with empty key found")
		}
		if keys[o.Key] {
			return fmt.Errorf("duplicate session override key: %s", o.Key)
		}
		keys[o.Key] = true

		if err := p.apply(o).validate(); err != nil {
			return fmt.Errorf("session %s: %w", o.Key, err)
		}
	}

	return nil
}

// For returns the rules that apply to the given session id.
func (p *Policy) For(id string) Rules {
	if o, ok := p.byKey[id]; ok {
		return p.apply(o)
	}
	return p.Defaults
}

func (p *Policy) apply(o Override) Rules {
	r := p.Defaults
	if o.GroupSize != nil {
		r.GroupSize = *o.GroupSize
	}
	if o.AutoGroupThreshold != nil {
		r.AutoGroupThreshold = *o.AutoGroupThreshold
	}
	if o.CountdownMs != nil {
		r.CountdownMs = *o.CountdownMs
	}
	return r
}

func (p *Policy) index() {
	p.byKey = make(map[string]Override, len(p.Sessions))
	for _, o := range p.Sessions {
		p.byKey[o.Key] = o
	}
}

func (r Rules) validate() error {
	if r.GroupSize < 1 {
		return fmt.Errorf("groupSize must be at least 1, got %d", r.GroupSize)
	}
	if r.AutoGroupThreshold < 1 {
		return fmt.Errorf("autoGroupThreshold must be at least 1, got %d", r.AutoGroupThreshold)
	}
	if r.CountdownMs < 0 {
		return fmt.Errorf("countdownMs must not be negative, got %d", r.CountdownMs)
	}
	return nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		parts := strings.SplitN(key, ":", 2)
		varName := parts[0]
		defaultValue := ""
		if len(parts) == 2 {
			defaultValue = parts[1]
		}

		value := os.Getenv(varName)
		if value == "" {
			return defaultValue
		}
		return value
	})
}
