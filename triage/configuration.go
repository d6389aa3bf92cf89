// SPDX-License-Identifier: GPL-3.0-or-later
package triage

import "fmt"

const DefaultMaxPerRun = 10

type ConfigFunc func(c *configuration) error

func MaxPerRun(max int) ConfigFunc {
	return func(c *configuration) error {
		if max < 1 {
			return fmt.Errorf("MaxPerRun must be at least 1, got %d", max)
		}

		c.MaxPerRun = max
		return nil
	}
}

// WithoutDrafts disables proactive drafting for important mail.
func WithoutDrafts() ConfigFunc {
	return func(c *configuration) error {
		c.Drafts = false
		return nil
	}
}

type configuration struct {
	MaxPerRun int
	Drafts    bool
}

func defaultConfiguration() *configuration {
	return &configuration{
		MaxPerRun: DefaultMaxPerRun,
		Drafts:    true,
	}
}
