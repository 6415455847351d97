// Package lnurl forwards LNURL-pay traffic to the upstream Lightning
// address service, re-attaching CORS headers on the way back.
package lnurl

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type Proxy struct {
	upstream string
	client   *http.Client
	cb       *gobreaker.CircuitBreaker
	logger   *zap.SugaredLogger
}

func NewProxy(upstream string, logger *zap.SugaredLogger) *Proxy {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "lnurl-upstream",
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Proxy{
		upstream: upstream,
		client:   &http.Client{Timeout: 15 * time.Second},
		cb:       cb,
		logger:   logger,
	}
}

type upstreamResult struct {
	status      int
	contentType string
	body        []byte
}

func corsHeaders(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type")
}

// Handler proxies the incoming request path and query verbatim to the
// upstream. Any upstream failure, including an open breaker, becomes
// a 502.
func (p *Proxy) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		corsHeaders(c)
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		result, err := p.cb.Execute(func() (interface{}, error) {
			target := p.upstream + c.Request.URL.Path
			if c.Request.URL.RawQuery != "" {
				target += "?" + c.Request.URL.RawQuery
			}

			req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, target, c.Request.Body)
			if err != nil {
				return nil, err
			}
			if ct := c.GetHeader("Content-Type"); ct != "" {
				req.Header.Set("Content-Type", ct)
			}

			res, err := p.client.Do(req)
			if err != nil {
				return nil, err
			}
			defer res.Body.Close()

			body, err := io.ReadAll(res.Body)
			if err != nil {
				return nil, err
			}

			return &upstreamResult{
				status:      res.StatusCode,
				contentType: res.Header.Get("Content-Type"),
				body:        body,
			}, nil
		})
		if err != nil {
			p.logger.Errorw("lnurl upstream failed", "path", c.Request.URL.Path, "err", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "upstream unavailable"})
			return
		}

		res := result.(*upstreamResult)
		contentType := res.contentType
		if contentType == "" {
			contentType = "application/json"
		}
		c.Data(res.status, contentType, res.body)
	}
}
