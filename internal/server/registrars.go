package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/domainledger/internal/observability/context"
	"github.com/smallbiznis/domainledger/internal/queue"
	registrardomain "github.com/smallbiznis/domainledger/internal/registrar/domain"
)

type createRegistrarRequest struct {
	Name       string               `json:"name"`
	APISupport registrardomain.Code `json:"api_support"`
	Currency   string               `json:"currency"`
	Notes      string               `json:"notes"`
}

type credentialsRequest struct {
	APIKey    string `json:"api_key"`
	SecretKey string `json:"secret_key"`
	Cookies   string `json:"cookies"`
}

func (s *Server) ListRegistrars(c *gin.Context) {
	resp, err := s.registrarSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateRegistrar(c *gin.Context) {
	var req createRegistrarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.registrarSvc.Create(c.Request.Context(), registrardomain.CreateRequest{
		Name:       strings.TrimSpace(req.Name),
		APISupport: req.APISupport,
		Currency:   strings.TrimSpace(req.Currency),
		Notes:      strings.TrimSpace(req.Notes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetRegistrar(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	resp, err := s.registrarSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListRegistrarFees(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := s.registrarSvc.Get(ctx, id); err != nil {
		AbortWithError(c, err)
		return
	}
	resp, err := s.feeSvc.List(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// SetRegistrarCredentials seals and stores the registrar's credential bag. Secrets are
// never echoed back.
func (s *Server) SetRegistrarCredentials(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	creds := registrardomain.Credentials{
		APIKey:    req.APIKey,
		SecretKey: req.SecretKey,
		Cookies:   req.Cookies,
	}.Normalize()
	if creds.Empty() {
		AbortWithError(c, newValidationError("credentials", "invalid_credentials", "credentials are empty"))
		return
	}

	if err := s.registrarSvc.SetCredentials(c.Request.Context(), id, creds); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ValidateRegistrarCredentials(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := s.registrarSvc.ValidateCredentials(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"valid": true}})
}

// SyncRegistrarPrices queues a price sync. Precondition failures such as a registrar
// without API support are reported to the caller as notifications by the job.
func (s *Server) SyncRegistrarPrices(c *gin.Context) {
	s.enqueueRegistrarJob(c, queue.SyncRegistrarPrices)
}

func (s *Server) SyncRegistrarDomains(c *gin.Context) {
	s.enqueueRegistrarJob(c, queue.SyncRegistrarDomains)
}

func (s *Server) enqueueRegistrarJob(c *gin.Context, build func(registrarID int64, userID string) queue.WorkItem) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := s.registrarSvc.Get(ctx, id); err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.queue.Enqueue(ctx, build(id, obscontext.UserIDFromContext(ctx))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"data": gin.H{"queued": true}})
}
