package api

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/ctrl-shift-projects/b402-facilitator-go/utils"
)

// Rate limit: 100 requests per minute per client IP.
const (
	rateLimitPerMinute = 100
	rateLimitBurst     = 100
)

// authenticate enforces the optional API key on the payment endpoints.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := s.auth.Authenticate(c.Request)
		if err == nil {
			c.Next()
			return
		}
		var se utils.StatusError
		if errors.As(err, &se) {
			c.AbortWithStatusJSON(se.Status(), gin.H{"error": err.Error()})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
	}
}

// rateLimit applies a per-IP token bucket to every endpoint.
func (s *Server) rateLimit() gin.HandlerFunc {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)
	perSecond := rate.Limit(float64(rateLimitPerMinute) / 60.0)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		limiter, ok := limiters[ip]
		if !ok {
			limiter = rate.NewLimiter(perSecond, rateLimitBurst)
			limiters[ip] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests, please try again later",
			})
			return
		}
		c.Next()
	}
}

// observe records the request duration histogram.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		s.metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
