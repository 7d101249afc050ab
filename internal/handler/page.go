package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/deppfellow/magnetite/internal/errs"
	"github.com/deppfellow/magnetite/internal/model"
	"github.com/deppfellow/magnetite/internal/server"
	"github.com/deppfellow/magnetite/internal/validation"
	"github.com/labstack/echo/v4"
)

// PageReader is the part of the content service the page handler needs.
type PageReader interface {
	GetPage(ctx context.Context, path string, skipCache bool) (model.Page, error)
}

type PageHandler struct {
	Handler
	pages PageReader
}

func NewPageHandler(s *server.Server, pages PageReader) *PageHandler {
	return &PageHandler{
		Handler: NewHandler(s),
		pages:   pages,
	}
}

// PageRequest addresses a page by the request's URL path. Refresh bypasses
// the cache.
type PageRequest struct {
	Path    string `validate:"required,startswith=/"`
	Refresh bool   `query:"refresh"`
}

func (r *PageRequest) Validate() error {
	return validation.Struct(r)
}

func newPageRequest(c echo.Context) *PageRequest {
	return &PageRequest{Path: c.Request().URL.Path}
}

// ServePage renders the published page at the request path.
func (h *PageHandler) ServePage() echo.HandlerFunc {
	return HandleHTML(h.Handler, h.renderPage, http.StatusOK, newPageRequest)
}

func (h *PageHandler) renderPage(c echo.Context, req *PageRequest) (string, error) {
	page, err := h.pages.GetPage(c.Request().Context(), req.Path, req.Refresh)
	if err != nil {
		return "", err
	}

	// Drafts are indistinguishable from missing pages.
	if !page.Published {
		return "", errs.NewNotFoundError("Page not found", false)
	}

	return RenderPage(page), nil
}

// RenderPage wraps a page in the fixed HTML shell: metadata lines in the
// head, the body verbatim.
func RenderPage(page model.Page) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head>")
	b.WriteString(strings.Join(page.Metadata, "\n"))
	b.WriteString("</head><body>")
	b.WriteString(page.Body)
	b.WriteString("</body></html>")
	return b.String()
}
