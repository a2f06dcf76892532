package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/routesketch/routesketch/internal/core/domain"
	"github.com/routesketch/routesketch/internal/core/usecases"
)

// SynthesizeHandler runs the freehand-to-road pipeline on a drawn trace.
// Invalid input is a 400; a timed-out or cancelled synthesis is a 503.
// Everything else returns a route, even with the road oracle down.
func SynthesizeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req domain.SynthesisRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}

		route, err := deps.Synthesizer.Synthesize(c.Context(), req)
		switch {
		case err == nil:
			return c.JSON(route)
		case isSynthesisInputError(err):
			return errBadRequest(c, err.Error())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return errUnavailable(c, "synthesis did not finish in time")
		default:
			return errInternal(c, err.Error())
		}
	}
}

func isSynthesisInputError(err error) bool {
	for _, e := range []error{
		usecases.ErrTraceTooShort,
		usecases.ErrInvalidCanvas,
		usecases.ErrNoProjection,
		usecases.ErrInvalidBounds,
		usecases.ErrInvalidAnchor,
		usecases.ErrInvalidProfile,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// SaveRouteHandler persists a synthesized route the user wants to keep.
func SaveRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var route domain.Route
		if err := c.BodyParser(&route); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if !route.Valid() {
			return errBadRequest(c, "route needs at least 2 valid coordinates")
		}

		if err := deps.Routes.Save(c.Context(), &route); err != nil {
			return errInternal(c, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(route)
	}
}

// ListRoutesHandler returns saved routes, newest first.
func ListRoutesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 50)
		offset := c.QueryInt("offset", 0)

		routes, err := deps.Routes.List(c.Context(), limit, offset)
		if err != nil {
			return errInternal(c, err.Error())
		}
		if routes == nil {
			routes = []domain.Route{}
		}
		return c.JSON(routes)
	}
}

// GetRouteHandler returns a saved route by ID.
func GetRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "route id is required")
		}
		route, err := deps.Routes.GetByID(c.Context(), id)
		if err != nil {
			return errNotFound(c, "route not found")
		}
		return c.JSON(route)
	}
}

// DeleteRouteHandler removes a saved route.
func DeleteRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "route id is required")
		}
		if err := deps.Routes.Delete(c.Context(), id); err != nil {
			return errNotFound(c, "route not found")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
