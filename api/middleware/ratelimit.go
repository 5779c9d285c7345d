package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/anoixa/image-gallery/api/common"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

func (c *clientLimiter) touch(now time.Time) {
	c.mu.Lock()
	c.lastSeen = now
	c.mu.Unlock()
}

func (c *clientLimiter) idleSince(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now.Sub(c.lastSeen)
}

// IPRateLimiter 按客户端 IP 的令牌桶限流
type IPRateLimiter struct {
	rps        float64       // 每秒请求数
	burst      int           // 令牌桶的容量
	expireTime time.Duration // 过期时间
	limiterMap *sync.Map
	stopChan   chan struct{}
	stopOnce   sync.Once
}

// NewIPRateLimiter 创建 IP 限流器并启动后台清理
func NewIPRateLimiter(rps float64, burst int, expireTime time.Duration) *IPRateLimiter {
	if expireTime <= 0 {
		expireTime = 10 * time.Minute
	}
	limiter := &IPRateLimiter{
		rps:        rps,
		burst:      burst,
		expireTime: expireTime,
		limiterMap: &sync.Map{},
		stopChan:   make(chan struct{}),
	}

	go limiter.cleanupStaleClients(time.Minute)

	return limiter
}

// Middleware 返回 Gin 中间件
func (rl *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.rps <= 0 {
			c.Next()
			return
		}

		if !rl.allow(getClientIP(c), time.Now()) {
			common.RespondErrorAbort(c, http.StatusTooManyRequests, "Too many requests")
			return
		}

		c.Next()
	}
}

func (rl *IPRateLimiter) allow(ip string, now time.Time) bool {
	val, ok := rl.limiterMap.Load(ip)
	if !ok {
		val, _ = rl.limiterMap.LoadOrStore(ip, &clientLimiter{
			limiter:  rate.NewLimiter(rate.Limit(rl.rps), rl.burst),
			lastSeen: now,
		})
	}

	client := val.(*clientLimiter)
	client.touch(now)
	return client.limiter.AllowN(now, 1)
}

// StopCleanup 停止后台清理
func (rl *IPRateLimiter) StopCleanup() {
	rl.stopOnce.Do(func() { close(rl.stopChan) })
}

func (rl *IPRateLimiter) cleanupStaleClients(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evict(time.Now())
		case <-rl.stopChan:
			return
		}
	}
}

// evict 删除过期的客户端
func (rl *IPRateLimiter) evict(now time.Time) {
	rl.limiterMap.Range(func(key, value interface{}) bool {
		if value.(*clientLimiter).idleSince(now) > rl.expireTime {
			rl.limiterMap.Delete(key)
		}
		return true
	})
}

// getClientIP 获取客户端真实 IP
func getClientIP(c *gin.Context) string {
	if ip := c.GetHeader("X-Forwarded-For"); ip != "" {
		ips := strings.Split(ip, ",")
		if first := strings.TrimSpace(ips[0]); first != "" {
			return first
		}
	}
	if ip := c.GetHeader("X-Real-IP"); ip != "" {
		return ip
	}
	return c.ClientIP()
}
