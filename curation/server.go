// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

package curation

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/selbybotany/gqc/spatial"
)

// Server exposes the engine over HTTP. Requests are served one at a time so
// that the cache and the service pacing see the same strictly ordered
// sequence of lookups as a batch run.
type Server struct {
	mu     sync.Mutex
	engine *Engine
}

// NewServer creates a Server around engine.
func NewServer(engine *Engine) *Server {
	return &Server{engine: engine}
}

// Router returns the HTTP handler.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/api/health", s.health)
	r.POST("/api/verify", s.verify)
	r.GET("/api/reverse", s.reverse)

	return r
}

// Run serves on addr until the listener fails.
func (s *Server) Run(addr string) error {
	log.Printf("Serving on http://%s\n", addr)

	return s.Router().Run(addr)
}

// flexString accepts a JSON string or number, since spreadsheet exports are
// not consistent about quoting accession numbers and coordinates.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)

		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("want a string or a number, got %s", b)
	}

	*f = flexString(n.String())

	return nil
}

// VerifyRequest is one record to verify.
type VerifyRequest struct {
	AccessionNumber flexString `json:"accession-number"`
	Country         string     `json:"country"`
	PD1             string     `json:"pd1"`
	PD2             string     `json:"pd2"`
	PD3             string     `json:"pd3"`
	PD4             string     `json:"pd4"`
	PD5             string     `json:"pd5"`
	Latitude        flexString `json:"latitude"`
	Longitude       flexString `json:"longitude"`
}

// Row converts the request into the row the engine verifies.
func (req VerifyRequest) Row() Row {
	trim := strings.TrimSpace

	return Row{
		AccessionNumber: trim(string(req.AccessionNumber)),
		Division: spatial.NewPoliticalDivision(
			trim(req.Country), trim(req.PD1), trim(req.PD2), trim(req.PD3), trim(req.PD4), trim(req.PD5)),
		Latitude:  trim(string(req.Latitude)),
		Longitude: trim(string(req.Longitude)),
	}
}

func (s *Server) health(ctx *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"cache-only": s.engine.Options().CacheOnly,
		"rows":       s.engine.Metrics.Rows,
		"lookups":    s.engine.Metrics.Lookups,
		"cache-hits": s.engine.Metrics.CacheHits,
	})
}

func (s *Server) verify(ctx *gin.Context) {
	var req VerifyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx.JSON(http.StatusOK, s.engine.Verify(ctx.Request.Context(), req.Row()))
}

func (s *Server) reverse(ctx *gin.Context) {
	c, err := spatial.ParseCoordinate(ctx.Query("latitude"), ctx.Query("longitude"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	c = s.engine.Options().Canonicalizer.Coordinate(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	loc, err := s.engine.ReverseGeolocate(ctx.Request.Context(), c, s.engine.Options().CacheEnabled, false)
	if err != nil {
		ctx.JSON(http.StatusBadGateway, gin.H{"error": errorNote(err)})

		return
	}

	if loc == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no location found at %v", c)})

		return
	}

	ctx.JSON(http.StatusOK, loc)
}
