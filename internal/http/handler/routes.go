package handler

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"filevault/internal/http/middleware"
	"filevault/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay free of business logic: parse, delegate, map errors.
func RegisterRoutes(app *fiber.App, db *sql.DB, fileSvc service.FileService, versionSvc service.VersionService) {
	// Serve OpenAPI spec and Swagger UI
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	})

	// Health endpoint: checks DB connectivity only
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	})

	// Simple liveness probe
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	// Upload a new file (multipart/form-data, field name: file)
	app.Post("/files", func(c *fiber.Ctx) error {
		uid := userFrom(c)
		if uid == "" {
			return writeError(c, fiber.StatusBadRequest, "USER_REQUIRED", "X-User-ID header is required")
		}
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

		stored, err := fileSvc.Upload(c.UserContext(), f, fh.Filename, ct, fh.Size, uid)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(stored)
	})

	// Get file metadata
	app.Get("/files/:id", func(c *fiber.Ctx) error {
		uid := userFrom(c)
		if uid == "" {
			return writeError(c, fiber.StatusBadRequest, "USER_REQUIRED", "X-User-ID header is required")
		}
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		file, err := fileSvc.Get(c.UserContext(), id, uid)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(file)
	})

	// Download current file content
	app.Get("/files/:id/download", func(c *fiber.Ctx) error {
		uid := userFrom(c)
		if uid == "" {
			return writeError(c, fiber.StatusBadRequest, "USER_REQUIRED", "X-User-ID header is required")
		}
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		rc, file, err := fileSvc.Download(c.UserContext(), id, uid)
		if err != nil {
			return writeServiceError(c, err)
		}
		c.Set(fiber.HeaderContentType, file.ContentType)
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+file.Filename+`"`)
		return c.SendStream(rc, int(file.Size))
	})

	// Hand out a pre-signed URL so big downloads bypass this service
	app.Get("/files/:id/presign", func(c *fiber.Ctx) error {
		uid := userFrom(c)
		if uid == "" {
			return writeError(c, fiber.StatusBadRequest, "USER_REQUIRED", "X-User-ID header is required")
		}
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		expirySec, err := strconv.Atoi(c.Query("expiry_sec", "900"))
		if err != nil || expirySec < 1 || expirySec > 86400 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_EXPIRY", "expiry_sec must be between 1 and 86400")
		}
		expiry := time.Duration(expirySec) * time.Second
		url, err := fileSvc.PresignDownload(c.UserContext(), id, uid, expiry)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"url": url, "expires_in": expirySec})
	})

	// Soft-delete a file
	app.Delete("/files/:id", func(c *fiber.Ctx) error {
		uid := userFrom(c)
		if uid == "" {
			return writeError(c, fiber.StatusBadRequest, "USER_REQUIRED", "X-User-ID header is required")
		}
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := fileSvc.Delete(c.UserContext(), id, uid); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	// List a file's versions, newest first
	app.Get("/files/:id/versions", func(c *fiber.Ctx) error {
		uid := userFrom(c)
		if uid == "" {
			return writeError(c, fiber.StatusBadRequest, "USER_REQUIRED", "X-User-ID header is required")
		}
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		items, err := versionSvc.ListVersions(c.UserContext(), id, uid)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"data": items, "total": len(items)})
	})

	// Supersede a file's content, snapshotting the previous state
	// (multipart/form-data, field name: file, optional field: comment)
	app.Post("/files/:id/versions", func(c *fiber.Ctx) error {
		uid := userFrom(c)
		if uid == "" {
			return writeError(c, fiber.StatusBadRequest, "USER_REQUIRED", "X-User-ID header is required")
		}
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		v, err := versionSvc.CreateVersion(c.UserContext(), id, f, fh.Size, c.FormValue("comment"), uid)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(v)
	})

	// Restore a file to one of its versions
	app.Post("/files/:id/versions/:versionID/restore", func(c *fiber.Ctx) error {
		uid := userFrom(c)
		if uid == "" {
			return writeError(c, fiber.StatusBadRequest, "USER_REQUIRED", "X-User-ID header is required")
		}
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		versionID := c.Params("versionID")
		if _, err := uuid.Parse(versionID); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid version id format")
		}
		snap, err := versionSvc.RestoreVersion(c.UserContext(), id, versionID, uid)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(snap)
	})

	// Delete a single version
	app.Delete("/versions/:id", func(c *fiber.Ctx) error {
		uid := userFrom(c)
		if uid == "" {
			return writeError(c, fiber.StatusBadRequest, "USER_REQUIRED", "X-User-ID header is required")
		}
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := versionSvc.DeleteVersion(c.UserContext(), id, uid); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	// Quota readout for the acting user
	app.Get("/quota", func(c *fiber.Ctx) error {
		uid := userFrom(c)
		if uid == "" {
			return writeError(c, fiber.StatusBadRequest, "USER_REQUIRED", "X-User-ID header is required")
		}
		usage, err := fileSvc.Quota(c.UserContext(), uid)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(usage)
	})

	// On-demand retention sweep for batch jobs and operators
	app.Post("/admin/retention/sweep", func(c *fiber.Ctx) error {
		maxStr := c.Query("max", "0")
		max, err := strconv.Atoi(maxStr)
		if err != nil || max < 1 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_MAX", "max must be a positive integer")
		}
		deleted, err := versionSvc.CleanupOldVersions(c.UserContext(), max)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"deleted": deleted})
	})
}

// userFrom resolves the acting user from context locals (set by
// middleware.User) or the header directly. Empty means the caller did not
// identify itself.
func userFrom(c *fiber.Ctx) string {
	if v, ok := c.Locals(middleware.UserIDLocalKey).(string); ok && v != "" {
		return v
	}
	return c.Get(middleware.UserIDHeader)
}
