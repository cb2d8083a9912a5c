package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	usagedomain "github.com/prepdeck/metering/internal/usage/domain"
)

type planResponse struct {
	Message string                  `json:"message"`
	Status  usagedomain.UsageStatus `json:"status"`
}

func (s *Server) StartTrial(c *gin.Context) {
	accountID := accountIDFromContext(c)

	if _, err := s.accountSvc.StartTrial(c.Request.Context(), accountID); err != nil {
		AbortWithError(c, err)
		return
	}

	status, err := s.usageSvc.Check(c.Request.Context(), usagedomain.Request{AccountID: accountID})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, planResponse{
		Message: "Trial started",
		Status:  status,
	})
}

func (s *Server) ActivatePaid(c *gin.Context) {
	accountID := accountIDFromContext(c)

	if _, err := s.accountSvc.ActivatePaid(c.Request.Context(), accountID); err != nil {
		AbortWithError(c, err)
		return
	}

	status, err := s.usageSvc.Check(c.Request.Context(), usagedomain.Request{AccountID: accountID})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, planResponse{
		Message: "Plan activated",
		Status:  status,
	})
}
