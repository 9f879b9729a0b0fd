package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetFeatureFlags returns the feature flags evaluated for the caller.
// Authentication is optional; anonymous callers are evaluated as a
// single default bucket so percentage rollouts stay deterministic.
// @Summary Feature flags
// @Description Evaluate all configured feature flags for the caller
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]bool
// @Router /api/flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID, _ := s.optionalUserID(c)
	return c.JSON(fiber.Map{
		"flags": s.flags.Snapshot(userID),
	})
}
