package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/khaledhikmat/vs-live/model"
	"github.com/khaledhikmat/vs-live/pipeline"
	"github.com/khaledhikmat/vs-live/service/analysis"
	"github.com/khaledhikmat/vs-live/service/lgr"
)

// Replies mirror the analysis backend: {"status": ..., "message": ...}.
func reply(c *fiber.Ctx, code int, message string) error {
	status := "success"
	if code >= fiber.StatusBadRequest {
		status = "error"
	}
	return c.Status(code).JSON(fiber.Map{
		"status":  status,
		"message": message,
	})
}

func (s *Server) replyError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, pipeline.ErrCameraUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":      "error",
			"message":     err.Error(),
			"cameraError": s.ctrl.Snapshot().CameraError,
		})
	case errors.Is(err, pipeline.ErrNoSuspects), errors.Is(err, pipeline.ErrNotLive):
		return reply(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, pipeline.ErrInvalidSuspect):
		return reply(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, analysis.ErrNotFound):
		return reply(c, fiber.StatusNotFound, err.Error())
	default:
		lgr.Logger.Error("request failed", slog.String("path", c.Path()), slog.Any("error", err))
		return reply(c, fiber.StatusBadGateway, err.Error())
	}
}

func (s *Server) handleStartCamera(c *fiber.Ctx) error {
	if err := s.ctrl.Start(c.UserContext()); err != nil {
		return s.replyError(c, err)
	}
	return c.JSON(s.ctrl.Snapshot())
}

func (s *Server) handleStopCamera(c *fiber.Ctx) error {
	s.ctrl.Stop()
	return c.JSON(s.ctrl.Snapshot())
}

func (s *Server) handleStartDetection(c *fiber.Ctx) error {
	if err := s.ctrl.StartDetection(c.UserContext()); err != nil {
		return s.replyError(c, err)
	}
	return c.JSON(s.ctrl.Snapshot())
}

func (s *Server) handleStopDetection(c *fiber.Ctx) error {
	s.ctrl.DisableProcessing()
	return c.JSON(s.ctrl.Snapshot())
}

func (s *Server) handleAddSuspect(c *fiber.Ctx) error {
	suspect := model.Suspect{
		Name:  c.FormValue("name"),
		Crime: c.FormValue("crime"),
	}

	if fh, err := c.FormFile("photo"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return reply(c, fiber.StatusBadRequest, "unreadable photo")
		}
		defer f.Close()

		photo, err := io.ReadAll(f)
		if err != nil {
			return reply(c, fiber.StatusBadRequest, "unreadable photo")
		}
		suspect.Photo = photo
		suspect.PhotoName = fh.Filename
	}

	if err := s.ctrl.AddSuspect(c.UserContext(), suspect); err != nil {
		return s.replyError(c, err)
	}
	return reply(c, fiber.StatusCreated, "Suspect uploaded successfully")
}

func (s *Server) handleListSuspects(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Suspects())
}

func (s *Server) handleState(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Snapshot())
}

func (s *Server) handleFrame(c *fiber.Ctx) error {
	frame, err := s.ctrl.Frame()
	if err != nil {
		return reply(c, fiber.StatusNotFound, "no frame available")
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(frame)
}

func (s *Server) handleRecords(c *fiber.Ctx) error {
	records, err := s.analysisSvc.RetrieveRecords(c.UserContext())
	if err != nil {
		return s.replyError(c, err)
	}
	return c.JSON(records)
}

func (s *Server) handleDeleteRecord(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return reply(c, fiber.StatusBadRequest, "record id must be a positive integer")
	}

	if err := s.analysisSvc.DeleteRecord(c.UserContext(), id); err != nil {
		return s.replyError(c, err)
	}
	return reply(c, fiber.StatusOK, fmt.Sprintf("record %d deleted", id))
}
