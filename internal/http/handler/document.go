package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"kawach/internal/http/middleware"
	"kawach/internal/service"
)

// validID rejects ids that cannot name a document. Document ids are UUIDs.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// ListDocuments lists the caller's documents with limit & offset.
//
// @Summary  List own documents
// @Tags     documents
// @Produce  json
// @Security BearerAuth
// @Param    limit  query int false "page size" default(10)
// @Param    offset query int false "page offset" default(0)
// @Success  200 {object} service.DocumentListResult
// @Failure  401 {object} errorPayload
// @Router   /documents [get]
func ListDocuments(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := docSvc.List(c.UserContext(), middleware.Subject(c), limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// UploadDocument stores a multipart upload (field name: file) owned by the caller.
//
// @Summary  Upload a document
// @Tags     documents
// @Accept   multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param    file formData file true "document"
// @Success  201 {object} model.Document
// @Failure  400 {object} errorPayload
// @Router   /documents [post]
func UploadDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		doc, err := docSvc.Upload(c.UserContext(), middleware.Subject(c), f, fh.Filename, ct, fh.Size)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// GetDocument returns the metadata of one of the caller's documents.
//
// @Summary  Get document metadata
// @Tags     documents
// @Produce  json
// @Security BearerAuth
// @Param    id path string true "document id"
// @Success  200 {object} model.Document
// @Failure  403 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Router   /documents/{id} [get]
func GetDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if !validID(id) {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := docSvc.Get(c.UserContext(), id, middleware.Subject(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DeleteDocument revokes a document on behalf of its owner.
// Deleting a document that is already gone answers 204 as well.
//
// @Summary  Revoke a document
// @Tags     documents
// @Security BearerAuth
// @Param    id path string true "document id"
// @Success  204
// @Failure  403 {object} errorPayload
// @Failure  500 {object} errorPayload
// @Failure  503 {object} errorPayload
// @Router   /documents/{id} [delete]
func DeleteDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if !validID(id) {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if _, err := docSvc.Delete(c.UserContext(), id, middleware.Subject(c)); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
