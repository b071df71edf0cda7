/*******************************************************************************
* Copyright (C) 2026 the Titan-AAS Authors
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-oidc"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/titan-aas/titan-go-components/internal/common"
)

// RateLimiter is a Redis-backed sliding-window limiter keyed by client IP.
// A Redis outage fails open: throttling is load protection, not a security
// boundary.
type RateLimiter struct {
	rdb      *redis.Client
	requests int
	window   time.Duration
}

// NewRateLimiter returns nil when limiting is disabled or unconfigured.
func NewRateLimiter(rdb *redis.Client, cfg common.RateLimitConfig) *RateLimiter {
	if rdb == nil || !cfg.Enabled || cfg.Requests <= 0 || cfg.WindowSeconds <= 0 {
		return nil
	}
	return &RateLimiter{
		rdb:      rdb,
		requests: cfg.Requests,
		window:   time.Duration(cfg.WindowSeconds) * time.Second,
	}
}

// Middleware counts requests per client inside the sliding window and
// rejects with 429 once the budget is exhausted.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if rl == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count, err := rl.hit(r.Context(), clientIP(r))
		if err != nil {
			log.Warnf("rate limiter unavailable, failing open: %v", err)
			next.ServeHTTP(w, r)
			return
		}
		if count > rl.requests {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			common.WriteErrorResponse(w, common.NewErrTooManyRequests("request rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// hit records the request in the client's window ZSET and returns the number
// of requests inside the window, this one included.
func (rl *RateLimiter) hit(ctx context.Context, client string) (int, error) {
	key := "titan:ratelimit:" + client
	now := time.Now()
	windowStart := now.Add(-rl.window)

	pipe := rl.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: strconv.FormatInt(now.UnixNano(), 10) + ":" + uuid.NewString(),
	})
	card := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return int(card.Val()), nil
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Claims is the decoded token claim set of an authenticated request.
type Claims map[string]interface{}

type claimsCtxKey struct{}

// ClaimsFromContext returns the request's claims, nil for anonymous access.
func ClaimsFromContext(ctx context.Context) Claims {
	claims, _ := ctx.Value(claimsCtxKey{}).(Claims)
	return claims
}

// Authenticator verifies bearer tokens against the configured OIDC issuer.
// A nil authenticator grants anonymous full access.
type Authenticator struct {
	verifier *oidc.IDTokenVerifier
}

// NewAuthenticator builds the verifier from the issuer's discovery document.
// Returns nil when no issuer is configured.
func NewAuthenticator(ctx context.Context, cfg common.OIDCConfig) (*Authenticator, error) {
	if cfg.Issuer == "" {
		return nil, nil
	}
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, err
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.Audience})
	log.Infof("OIDC verification enabled, issuer=%s audience=%s", cfg.Issuer, cfg.Audience)
	return &Authenticator{verifier: verifier}, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// verified claims in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	if a == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			common.WriteErrorResponse(w, common.NewErrUnauthorized("missing bearer token"))
			return
		}
		token, err := a.verifier.Verify(r.Context(), strings.TrimPrefix(authz, "Bearer "))
		if err != nil {
			common.WriteErrorResponse(w, common.NewErrUnauthorized("invalid bearer token"))
			return
		}
		var claims Claims
		if err := token.Claims(&claims); err != nil {
			common.WriteErrorResponse(w, common.NewErrUnauthorized("token claims are not readable"))
			return
		}
		ctx := context.WithValue(r.Context(), claimsCtxKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
