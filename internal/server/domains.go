package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	domaindomain "github.com/smallbiznis/domainledger/internal/domains/domain"
	"github.com/smallbiznis/domainledger/pkg/db/pagination"
)

type createDomainRequest struct {
	Name        string `json:"domain_name"`
	RegistrarID *int64 `json:"registrar_id,string,omitempty"`
}

type updateDomainRequest struct {
	Name        *string `json:"domain_name,omitempty"`
	RegistrarID *int64  `json:"registrar_id,string,omitempty"`
}

func (s *Server) CreateDomain(c *gin.Context) {
	var req createDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.domainSvc.Create(c.Request.Context(), domaindomain.CreateRequest{
		Name:        strings.TrimSpace(req.Name),
		RegistrarID: req.RegistrarID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListDomains(c *gin.Context) {
	var query struct {
		RegistrarID string `form:"registrar_id"`
		Status      string `form:"status"`
		pagination.Pagination
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	registrarID, err := parseOptionalInt64(query.RegistrarID)
	if err != nil {
		AbortWithError(c, newValidationError("registrar_id", "invalid_registrar_id", "invalid registrar_id"))
		return
	}
	status, ok := parseSyncStatus(query.Status)
	if !ok {
		AbortWithError(c, newValidationError("status", "invalid_status", "invalid status"))
		return
	}

	resp, err := s.domainSvc.List(c.Request.Context(), domaindomain.ListRequest{
		RegistrarID: registrarID,
		Status:      status,
		Pagination:  query.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetDomain(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	resp, err := s.domainSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateDomain(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req updateDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.domainSvc.Update(c.Request.Context(), id, domaindomain.UpdateRequest{
		Name:        trimStringPtr(req.Name),
		RegistrarID: req.RegistrarID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// SyncDomain queues a fact refresh. The outcome arrives as a notification.
func (s *Server) SyncDomain(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := s.domainSvc.RequestSync(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"data": gin.H{"queued": true}})
}
