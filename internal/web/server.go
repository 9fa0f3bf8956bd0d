package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/Alias1177/FraudShield/internal/classifier"
	"github.com/Alias1177/FraudShield/internal/export"
	"github.com/Alias1177/FraudShield/internal/history"
	"github.com/Alias1177/FraudShield/internal/session"
	"github.com/Alias1177/FraudShield/internal/theme"
	"github.com/Alias1177/FraudShield/models"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templates embed.FS

type Server struct {
	session  *session.Session
	location *time.Location
	logger   zerolog.Logger
}

func NewServer(sess *session.Session, loc *time.Location) *Server {
	if loc == nil {
		loc = time.Local
	}
	return &Server{
		session:  sess,
		location: loc,
		logger:   log.With().Str("component", "web").Logger(),
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	tmpl := template.Must(template.New("").Funcs(template.FuncMap{
		"percent":     models.Percent,
		"displayTime": func(rec models.HistoryRecord) string { return rec.DisplayTime(s.location) },
		"labelClass":  labelClass,
	}).ParseFS(templates, "templates/*.html"))
	r.SetHTMLTemplate(tmpl)

	r.GET("/", s.Index)
	r.POST("/submit", s.SubmitForm)
	r.POST("/upload", s.UploadForm)
	r.POST("/sample", s.SampleForm)
	r.POST("/reset", s.ResetForm)
	r.POST("/feedback", s.FeedbackForm)
	r.POST("/history/clear", s.ClearHistoryForm)
	r.POST("/theme/toggle", s.ToggleThemeForm)

	api := r.Group("/api")
	api.POST("/predict", s.Predict)
	api.POST("/upload", s.Upload)
	api.POST("/reset", s.Reset)
	api.GET("/sample", s.Sample)
	api.POST("/feedback", s.Feedback)
	api.GET("/history", s.History)
	api.DELETE("/history", s.ClearHistory)
	api.GET("/history/export", s.Export)
	api.POST("/history/import", s.Import)
	api.GET("/theme", s.Theme)
	api.PUT("/theme", s.SetTheme)
	api.POST("/theme/toggle", s.ToggleTheme)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info().Msg("Shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("Request")
	}
}

// statusFor maps session errors onto HTTP statuses
func statusFor(err error) int {
	var (
		vErr *session.ValidationError
		cErr *classifier.ConnectivityFailure
	)
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrDiscarded):
		return http.StatusConflict
	case errors.As(err, &cErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// isPersistenceWarning reports a write failure that leaves the session usable
func isPersistenceWarning(err error) bool {
	var pErr *history.PersistenceWriteError
	return errors.As(err, &pErr)
}

func labelClass(l models.Label) string {
	if l.IsFraud() {
		return "fraud"
	}
	return "not-fraud"
}

type pageData struct {
	BodyClass    string
	Dark         bool
	Conversation string
	Length       int
	MaxLength    int
	Result       *models.HistoryRecord
	Error        string
	Notice       string
	History      []models.HistoryRecord
}

func (s *Server) page(c *gin.Context, status int, data pageData) {
	t, err := s.session.Theme(c.Request.Context())
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read theme")
	}
	data.BodyClass = t.BodyClass()
	data.Dark = t == theme.Dark
	data.Length = utf8.RuneCountInString(data.Conversation)
	data.MaxLength = s.session.MaxLength()
	data.History = s.session.History()
	c.HTML(status, "index.html", data)
}

func writeCSV(c *gin.Context, data []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+export.FileName+`"`)
	c.Data(http.StatusOK, export.ContentType, data)
}
