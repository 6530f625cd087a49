package api

import (
	"fmt"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/emicklei/go-restful/v3"

	"github.com/custodia-labs/ragline/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/logger"
)

// unlimitedPaths bypass the per-client rate limit.
var unlimitedPaths = []string{basePath + "/health", openAPIPath}

// Logger writes one structured line per request.
func Logger(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	start := time.Now()
	chain.ProcessFilter(req, resp)

	logger.Logger().Info().
		Str("method", req.Request.Method).
		Str("path", req.Request.URL.Path).
		Int("status", resp.StatusCode()).
		Str("client", clientIP(req.Request)).
		Dur("duration", time.Since(start)).
		Msg("Request")
}

// RecoverPanic converts a handler panic into a generic 500.
func RecoverPanic(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	defer func() {
		if r := recover(); r != nil {
			logger.Logger().Error().
				Str("path", req.Request.URL.Path).
				Interface("panic", r).
				Msg("Recovered from panic")
			writeError(resp, http.StatusInternalServerError, genericMessage)
		}
	}()
	chain.ProcessFilter(req, resp)
}

// RateLimit rejects clients that exceed their per-minute allowance.
func RateLimit(limiter *ratelimit.KeyedLimiter) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		if slices.Contains(unlimitedPaths, req.Request.URL.Path) {
			chain.ProcessFilter(req, resp)
			return
		}
		ip := clientIP(req.Request)
		if !limiter.Allow(ip) {
			resp.AddHeader("Retry-After", "60")
			HandleError(resp, fmt.Errorf("%w: client %s", domain.ErrRateLimited, ip))
			return
		}
		chain.ProcessFilter(req, resp)
	}
}

// clientIP is the host part of the connection's remote address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
