// Copyright 2025 Swiftmeter Authors
// SPDX-License-Identifier: Apache-2.0

package keystone

import (
	"errors"
	"time"
)

// Config holds identity service credentials and connection settings.
// Values come from the config file or the standard OS_* environment
// variables; see cmd for the binding.
type Config struct {
	// AuthURL is the Keystone v3 base URL, e.g. https://identity.example.com:5000.
	AuthURL string `mapstructure:"auth_url"`

	// Username and Password authenticate the reporting user. The user needs
	// permission to list projects and read every project's storage account.
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// DomainName scopes the user and project. Default: "Default".
	DomainName string `mapstructure:"domain_name"`

	// ProjectName is the project the session is scoped to.
	ProjectName string `mapstructure:"project_name"`

	// Timeout bounds each identity request. Default: 30 seconds.
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		DomainName: "Default",
		Timeout:    30 * time.Second,
	}
}

// Validate checks required fields and applies defaults.
func (c *Config) Validate() error {
	if c.AuthURL == "" {
		return errors.New("keystone: auth_url is required")
	}
	if c.Username == "" {
		return errors.New("keystone: username is required")
	}
	if c.Password == "" {
		return errors.New("keystone: password is required")
	}
	if c.DomainName == "" {
		c.DomainName = "Default"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return nil
}
