package handler

import (
	"html/template"
	"mime"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"kawach/internal/model"
	"kawach/internal/service"
)

// Retrieve streams the document a retrieval token grants access to.
// Revoked, superseded and expired tokens all answer 404.
//
// @Summary  Retrieve a granted document
// @Tags     public
// @Param    documentId path  string true "document id"
// @Param    token      query string true "retrieval token"
// @Success  200 {file} binary
// @Failure  404 {object} errorPayload
// @Failure  503 {object} errorPayload
// @Router   /retrieve/{documentId} [get]
func Retrieve(grantSvc service.GrantService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, token := c.Params("documentId"), c.Query("token")
		if !validID(id) || token == "" {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
		}

		content, err := grantSvc.Retrieve(c.UserContext(), id, token)
		if err != nil {
			return writeServiceError(c, err)
		}

		ct := content.Document.ContentType
		if ct == "" {
			ct = content.Info.ContentType
		}
		if ct == "" {
			ct = fiber.MIMEOctetStream
		}
		c.Set(fiber.HeaderContentType, ct)
		c.Set(fiber.HeaderCacheControl, "no-store")
		if cd := mime.FormatMediaType("inline", map[string]string{"filename": content.Document.OriginalName}); cd != "" {
			c.Set(fiber.HeaderContentDisposition, cd)
		}
		return c.SendStream(content.Body, streamSize(content.Info.Size))
	}
}

var printTemplate = template.Must(template.New("print").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>{{.Name}}</title>
  <style>
    body { font-family: sans-serif; margin: 2rem; }
    img { max-width: 100%; }
    .info { border: 1px solid #ccc; border-radius: 6px; padding: 1rem 1.5rem; max-width: 32rem; }
    @media print { .no-print { display: none; } }
  </style>
</head>
<body>
{{- if .Image}}
  <img src="{{.Route}}" alt="{{.Name}}" onload="window.print()" />
{{- else}}
  <div class="info">
    <h1>{{.Name}}</h1>
    <p>Type: {{.ContentType}}</p>
    <p>Size: {{.SizeKB}} KB</p>
    <p>Uploaded: {{.Uploaded}}</p>
    <p class="no-print"><a href="{{.Route}}">Open document</a></p>
  </div>
{{- end}}
</body>
</html>`))

type printView struct {
	Name        string
	ContentType string
	SizeKB      string
	Uploaded    string
	Route       string
	Image       bool
}

func newPrintView(doc *model.Document, route string, loc *time.Location) printView {
	return printView{
		Name:        doc.OriginalName,
		ContentType: doc.ContentType,
		SizeKB:      formatKB(doc.Size),
		Uploaded:    doc.CreatedAt.In(loc).Format("2 Jan 2006 15:04"),
		Route:       route,
		Image:       strings.HasPrefix(doc.ContentType, "image/"),
	}
}

func formatKB(size int64) string {
	return strconv.FormatFloat(float64(size)/1024, 'f', 2, 64)
}

// Print renders a printable view of a granted document. PDFs are sent
// straight to the retrieval route, images get a print page and everything
// else an info panel.
//
// @Summary  Printable view of a granted document
// @Tags     public
// @Produce  html
// @Param    documentId path  string true "document id"
// @Param    token      query string true "retrieval token"
// @Success  200 {string} string "html"
// @Success  302
// @Failure  404 {object} errorPayload
// @Router   /print/{documentId} [get]
func Print(grantSvc service.GrantService, loc *time.Location) fiber.Handler {
	if loc == nil {
		loc = time.UTC
	}
	return func(c *fiber.Ctx) error {
		id, token := c.Params("documentId"), c.Query("token")
		if !validID(id) || token == "" {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
		}

		doc, err := grantSvc.Resolve(c.UserContext(), id, token)
		if err != nil {
			return writeServiceError(c, err)
		}

		route := "/retrieve/" + url.PathEscape(doc.ID) + "?token=" + url.QueryEscape(token)
		c.Set(fiber.HeaderCacheControl, "no-store")
		if doc.ContentType == "application/pdf" {
			return c.Redirect(route, fiber.StatusFound)
		}

		var sb strings.Builder
		if err := printTemplate.Execute(&sb, newPrintView(doc, route, loc)); err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(sb.String())
	}
}
