package server

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/domainledger/internal/observability/context"
	"github.com/smallbiznis/domainledger/internal/notification"
	"github.com/smallbiznis/domainledger/internal/queue"
	"github.com/smallbiznis/domainledger/pkg/db/pagination"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
)

func (s *Server) SyncRdaps(c *gin.Context) {
	ctx := c.Request.Context()
	if err := s.queue.Enqueue(ctx, queue.SyncRdaps(obscontext.UserIDFromContext(ctx))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"data": gin.H{"queued": true}})
}

func (s *Server) GetPriceCompare(c *gin.Context) {
	if s.report == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	resp, err := s.report.Matrix(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ExportPriceCompareXLSX(c *gin.Context) {
	if s.report == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	// Render fully before writing so a failure still yields a JSON error.
	var buf bytes.Buffer
	if err := s.report.WriteXLSX(c.Request.Context(), &buf); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="price-compare.xlsx"`)
	c.Data(http.StatusOK, contentTypeXLSX, buf.Bytes())
}

func (s *Server) ExportPriceComparePDF(c *gin.Context) {
	if s.report == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	var buf bytes.Buffer
	if err := s.report.WritePDF(c.Request.Context(), &buf); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="price-compare.pdf"`)
	c.Data(http.StatusOK, contentTypePDF, buf.Bytes())
}

// ListNotifications returns the caller's notices, newest first.
func (s *Server) ListNotifications(c *gin.Context) {
	if s.notifications == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	resp, err := s.notifications.List(ctx, notification.ListRequest{
		UserID:     obscontext.UserIDFromContext(ctx),
		Pagination: query,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
