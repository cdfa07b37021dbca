package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"leaderwatch/pkg/cluster"
	"leaderwatch/pkg/metrics"
)

const (
	defaultWaitTimeout = 10 * time.Second

	// maxWaitTimeout keeps blocking requests inside the server's write
	// timeout; an unbounded wait does not fit an HTTP request.
	maxWaitTimeout = 25 * time.Second
)

// getLeader handles GET /api/v1/cluster/leader
func (s *Server) getLeader(c *gin.Context) {
	addr, err := s.cache.GetAddress()
	if err != nil {
		// Present but undecodable: a protocol mismatch, not absence.
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if addr == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no leader currently published"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"host":    addr.Host,
		"port":    addr.Port,
		"address": addr.String(),
	})
}

// waitLeader handles GET /api/v1/cluster/leader/wait?timeout=5s
func (s *Server) waitLeader(c *gin.Context) {
	timeout := defaultWaitTimeout
	if raw := c.Query("timeout"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timeout"})
			return
		}
		timeout = parsed
	}
	if timeout > maxWaitTimeout {
		timeout = maxWaitTimeout
	}

	start := time.Now()
	addr, err := s.cache.WaitForAddress(c.Request.Context(), timeout)
	metrics.WaitDuration.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, cluster.ErrMalformedAddress):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	case err != nil:
		// Client went away while we were blocked.
		c.Status(499)
		return
	case addr == nil:
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "no leader observed within the deadline"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"host":    addr.Host,
		"port":    addr.Port,
		"address": addr.String(),
	})
}
