package handler

import (
	"github.com/gofiber/fiber/v2"

	"kawach/internal/http/middleware"
	"kawach/internal/service"
)

type grantRequest struct {
	DocumentID string `json:"documentId"`
}

type grantResponse struct {
	Success bool `json:"success"`
	*service.GrantResult
}

// RequestGrant issues a fresh time-boxed grant for one of the caller's documents.
//
// @Summary  Request an access grant
// @Tags     grants
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    body body grantRequest true "document to grant"
// @Success  201 {object} grantResponse
// @Failure  403 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Failure  422 {object} errorPayload
// @Router   /grant [post]
func RequestGrant(grantSvc service.GrantService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req grantRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if !validID(req.DocumentID) {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		res, err := grantSvc.RequestGrant(c.UserContext(), req.DocumentID, middleware.Subject(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(grantResponse{Success: true, GrantResult: res})
	}
}

// GrantStatus reports the caller's current grant and its countdown.
//
// @Summary  Grant status
// @Tags     grants
// @Produce  json
// @Security BearerAuth
// @Param    documentId path string true "document id"
// @Success  200 {object} service.GrantStatusResult
// @Failure  404 {object} errorPayload
// @Router   /grant/{documentId} [get]
func GrantStatus(grantSvc service.GrantService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("documentId")
		if !validID(id) {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		res, err := grantSvc.Status(c.UserContext(), id, middleware.Subject(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// GrantArtifact streams the PNG of the caller's current grant.
//
// @Summary  Grant artifact image
// @Tags     grants
// @Produce  png
// @Security BearerAuth
// @Param    documentId path string true "document id"
// @Success  200 {file} binary
// @Failure  404 {object} errorPayload
// @Router   /grant/{documentId}/artifact [get]
func GrantArtifact(grantSvc service.GrantService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("documentId")
		if !validID(id) {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		rc, info, err := grantSvc.Artifact(c.UserContext(), id, middleware.Subject(c))
		if err != nil {
			return writeServiceError(c, err)
		}

		ct := info.ContentType
		if ct == "" {
			ct = "image/png"
		}
		c.Set(fiber.HeaderContentType, ct)
		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.SendStream(rc, streamSize(info.Size))
	}
}

// streamSize converts an object size to SendStream's convention, where -1 means unknown.
func streamSize(n int64) int {
	if n <= 0 {
		return -1
	}
	return int(n)
}
