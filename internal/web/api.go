package web

import (
	"net/http"

	"github.com/Alias1177/FraudShield/internal/session"
	"github.com/Alias1177/FraudShield/internal/theme"
	"github.com/Alias1177/FraudShield/models"
	"github.com/gin-gonic/gin"
)

type PredictRequest struct {
	Conversation string `json:"conversation"`
}

type PredictResponse struct {
	Record  models.HistoryRecord `json:"record"`
	Summary string               `json:"summary"`
	Warning string               `json:"warning,omitempty"`
}

type ThemeRequest struct {
	Theme string `json:"theme" binding:"required"`
}

type FeedbackRequest struct {
	Correct bool `json:"correct"`
}

func (s *Server) Predict(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	rec, err := s.session.Submit(c.Request.Context(), req.Conversation)
	if err != nil && !isPersistenceWarning(err) {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	resp := PredictResponse{Record: rec, Summary: session.FormatResult(rec.Result)}
	if err != nil {
		resp.Warning = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	text, err := s.session.ReadUpload(f)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": text})
}

func (s *Server) Reset(c *gin.Context) {
	s.session.Reset()
	c.Status(http.StatusNoContent)
}

func (s *Server) Sample(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"conversation": session.SampleConversation})
}

func (s *Server) Feedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": session.FeedbackMessage(req.Correct)})
}

func (s *Server) History(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"records": s.session.History()})
}

func (s *Server) ClearHistory(c *gin.Context) {
	if err := s.session.ClearHistory(c.Request.Context()); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) Export(c *gin.Context) {
	writeCSV(c, s.session.Export())
}

func (s *Server) Import(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	n, err := s.session.Import(c.Request.Context(), f)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "imported": n})
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": n})
}

func (s *Server) Theme(c *gin.Context) {
	t, err := s.session.Theme(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"theme": t})
}

func (s *Server) SetTheme(c *gin.Context) {
	var req ThemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	t, err := theme.Parse(req.Theme)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.session.SetTheme(c.Request.Context(), t); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"theme": t})
}

func (s *Server) ToggleTheme(c *gin.Context) {
	t, err := s.session.ToggleTheme(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"theme": t})
}
