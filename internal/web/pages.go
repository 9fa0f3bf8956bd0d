package web

import (
	"net/http"
	"strconv"

	"github.com/Alias1177/FraudShield/internal/session"
	"github.com/gin-gonic/gin"
)

func (s *Server) Index(c *gin.Context) {
	s.page(c, http.StatusOK, pageData{})
}

func (s *Server) SubmitForm(c *gin.Context) {
	conversation := c.PostForm("conversation")

	rec, err := s.session.Submit(c.Request.Context(), conversation)
	if err != nil && !isPersistenceWarning(err) {
		s.page(c, statusFor(err), pageData{Conversation: conversation, Error: err.Error()})
		return
	}

	data := pageData{Conversation: conversation, Result: &rec}
	if err != nil {
		data.Notice = err.Error()
	}
	s.page(c, http.StatusOK, data)
}

func (s *Server) UploadForm(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		s.page(c, http.StatusBadRequest, pageData{Error: "Please choose a text file to upload."})
		return
	}
	f, err := file.Open()
	if err != nil {
		s.page(c, http.StatusBadRequest, pageData{Error: err.Error()})
		return
	}
	defer f.Close()

	text, err := s.session.ReadUpload(f)
	if err != nil {
		s.page(c, statusFor(err), pageData{Error: err.Error()})
		return
	}
	s.page(c, http.StatusOK, pageData{Conversation: text})
}

func (s *Server) SampleForm(c *gin.Context) {
	s.page(c, http.StatusOK, pageData{Conversation: session.SampleConversation})
}

func (s *Server) ResetForm(c *gin.Context) {
	s.session.Reset()
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) FeedbackForm(c *gin.Context) {
	correct, err := strconv.ParseBool(c.PostForm("correct"))
	if err != nil {
		s.page(c, http.StatusBadRequest, pageData{Error: "Invalid feedback."})
		return
	}
	s.page(c, http.StatusOK, pageData{Notice: session.FeedbackMessage(correct)})
}

func (s *Server) ClearHistoryForm(c *gin.Context) {
	if err := s.session.ClearHistory(c.Request.Context()); err != nil {
		s.page(c, http.StatusOK, pageData{Notice: err.Error()})
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) ToggleThemeForm(c *gin.Context) {
	if _, err := s.session.ToggleTheme(c.Request.Context()); err != nil {
		s.page(c, http.StatusInternalServerError, pageData{Error: err.Error()})
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}
