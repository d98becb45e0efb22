package server

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ppiankov/precedent/internal/retrieval"
)

// CheckRequest is the body of POST /api/v1/check
type CheckRequest struct {
	Claim string `json:"claim"`
}

// SpeakerRequest is the body of POST /api/v1/speaker
type SpeakerRequest struct {
	Text string `json:"text"`
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"time":   s.now().Unix(),
	})
}

func (s *Server) check(c *fiber.Ctx) error {
	var req CheckRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	claim := strings.TrimSpace(req.Claim)
	if claim == "" {
		return fiber.NewError(fiber.StatusBadRequest, "claim is required")
	}

	ctx := c.UserContext()
	if s.cfg.CheckTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CheckTimeout)
		defer cancel()
	}

	analysis, err := s.checker.Check(ctx, claim)
	if err != nil {
		s.log.Error("check failed", zap.String("claim", claim), zap.Error(err))
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return fiber.NewError(fiber.StatusGatewayTimeout, "check timed out")
		case errors.Is(err, retrieval.ErrRetrieval):
			return fiber.NewError(fiber.StatusBadGateway, "archive retrieval failed")
		default:
			return fiber.NewError(fiber.StatusInternalServerError, "check failed")
		}
	}
	return c.JSON(analysis)
}

func (s *Server) lookupSpeaker(c *fiber.Ctx) error {
	var req SpeakerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "text is required")
	}

	profile := s.speakers.Lookup(req.Text)
	if profile == nil {
		return fiber.NewError(fiber.StatusNotFound, "no known speaker in text")
	}
	return c.JSON(profile)
}

func (s *Server) roster(c *fiber.Ctx) error {
	roster := s.speakers.Roster()
	if roster == nil {
		roster = []string{}
	}
	return c.JSON(fiber.Map{
		"speakers": roster,
		"count":    len(roster),
	})
}

func (s *Server) profile(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid speaker name")
	}
	profile := s.speakers.Profile(strings.TrimSpace(name))
	if profile == nil {
		return fiber.NewError(fiber.StatusNotFound, "unknown speaker")
	}
	return c.JSON(profile)
}
