package providers

import (
	"fmt"
	"wearsync/internal/models"
	"wearsync/internal/structures"

	"github.com/gookit/validate"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

func (c *CnfValidator) Validate() error {
	v := validate.Struct(c.conf)
	if !v.Validate() {
		return v.Errors
	}

	if _, err := c.conf.Location(); err != nil {
		return fmt.Errorf("connection.timezone: %w", err)
	}
	if _, err := c.conf.LowerBoundary(); err != nil {
		return fmt.Errorf("connection.lowerDateBoundary: %w", err)
	}
	if c.conf.Store.Backend != "memory" && c.conf.Store.Path == "" {
		return fmt.Errorf("store.path is required for backend %q", c.conf.Store.Backend)
	}
	for _, m := range c.conf.Schedule.Metrics {
		if _, err := models.ParseMetricType(m); err != nil {
			return fmt.Errorf("schedule.metrics: %w", err)
		}
	}
	for _, f := range c.conf.Schedule.ProfileFields {
		if _, err := models.ParseProfileField(f); err != nil {
			return fmt.Errorf("schedule.profileFields: %w", err)
		}
	}
	return nil
}
