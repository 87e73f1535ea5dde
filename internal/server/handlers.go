package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jfmyers9/lyricqueue/internal/library"
	"github.com/jfmyers9/lyricqueue/internal/service"
	"github.com/jfmyers9/lyricqueue/internal/window"
)

type addArtistRequest struct {
	Name       string `json:"name"`
	ExternalID string `json:"externalId"`
}

type scrapeRequest struct {
	SongIDs []string `json:"songIds" binding:"required"`
}

func (s *Server) addArtist(c *gin.Context) {
	var req addArtistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	var (
		sum     *service.Summary
		created bool
		err     error
	)
	switch {
	case req.ExternalID != "":
		sum, created, err = s.svc.AddArtistByExternalID(c.Request.Context(), req.ExternalID)
	case req.Name != "":
		sum, created, err = s.svc.AddArtist(c.Request.Context(), req.Name)
	default:
		errorResponse(c, http.StatusBadRequest, "INVALID_INPUT", "name or externalId is required")
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, sum)
}

func (s *Server) listArtists(c *gin.Context) {
	sums, err := s.svc.ListSummaries(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"artists": sums, "count": len(sums)})
}

func (s *Server) getArtist(c *gin.Context) {
	sum, err := s.svc.ArtistSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) populate(c *gin.Context) {
	res, err := s.svc.PopulateCatalog(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) scrape(c *gin.Context) {
	var req scrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	res, err := s.svc.ScrapeLyrics(c.Request.Context(), c.Param("id"), req.SongIDs)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) loadWindow(c *gin.Context) {
	dir, err := window.ParseDirection(c.Query("direction"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	size := s.opts.DefaultWindowSize
	if raw := c.Query("size"); raw != "" {
		size, err = strconv.Atoi(raw)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "INVALID_INPUT", "size must be an integer")
			return
		}
	}

	w, err := s.svc.LoadWindow(c.Request.Context(), c.Param("id"), c.Query("cursor"), dir, size)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (s *Server) repair(c *gin.Context) {
	report, err := s.svc.RepairCache(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// fail maps err onto a status code and error body.
func (s *Server) fail(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}
	_ = c.Error(err)
	errorResponse(c, status, code, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, library.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, library.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	default:
		return http.StatusInternalServerError, "SERVER_ERROR"
	}
}

func errorResponse(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"code": code, "message": message})
}
