// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/tomtom215/recommender/internal/validation"
)

// Validate checks struct tags first, then the rules that span fields.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	if err := c.validateNATS(); err != nil {
		return err
	}

	if _, ok := c.Flags.Types[c.Recommend.FlagType]; !ok {
		return fmt.Errorf("recommend.flag_type %q is not defined in flags.types", c.Recommend.FlagType)
	}

	if !c.Flags.InMemory && c.Flags.Path == "" {
		return errors.New("flags.path is required unless flags.in_memory is set")
	}

	if c.Scheduler.QueueBudget > c.Scheduler.QueueInterval {
		return fmt.Errorf("scheduler.queue_budget (%s) must not exceed scheduler.queue_interval (%s)",
			c.Scheduler.QueueBudget, c.Scheduler.QueueInterval)
	}

	if _, err := c.ToRecommend(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled || c.NATS.EmbeddedServer {
		return nil
	}
	if c.NATS.URL == "" {
		return errors.New("nats.url is required when NATS is enabled without the embedded server")
	}
	if err := validateNATSURL(c.NATS.URL); err != nil {
		return fmt.Errorf("nats.url is invalid: %w", err)
	}
	return nil
}

func validateNATSURL(rawURL string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}

	validSchemes := map[string]bool{"nats": true, "tls": true, "ws": true, "wss": true}
	if !validSchemes[parsedURL.Scheme] {
		return fmt.Errorf("scheme must be nats, tls, ws, or wss, got: %s", parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return errors.New("host is required (e.g., localhost:4222)")
	}

	return nil
}
