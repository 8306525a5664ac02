package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSPolicy 一类路由的跨域策略，按 PathPrefix 匹配
// AllowOrigins 为空表示该类路由不开放跨域（如支付回调），包含 "*" 表示任意来源（不带凭证）
type CORSPolicy struct {
	PathPrefix       string
	AllowOrigins     []string
	AllowMethods     []string
	AllowCredentials bool
}

type corsRule struct {
	prefix      string
	origins     map[string]bool
	anyOrigin   bool
	methods     string
	credentials bool
}

// CORS 按请求路径选择第一条匹配的策略；官网下单与后台管理的来源不同
func CORS(policies ...CORSPolicy) gin.HandlerFunc {
	rules := make([]corsRule, 0, len(policies))
	for _, p := range policies {
		rule := corsRule{
			prefix:      p.PathPrefix,
			origins:     make(map[string]bool, len(p.AllowOrigins)),
			methods:     strings.Join(append(append([]string(nil), p.AllowMethods...), http.MethodOptions), ", "),
			credentials: p.AllowCredentials,
		}
		for _, o := range p.AllowOrigins {
			if o == "*" {
				rule.anyOrigin = true
				continue
			}
			rule.origins[strings.TrimRight(o, "/")] = true
		}
		rules = append(rules, rule)
	}

	return func(c *gin.Context) {
		rule := matchCORSRule(rules, c.Request.URL.Path)
		if rule == nil {
			c.Next()
			return
		}

		origin := c.GetHeader("Origin")
		switch {
		case origin == "":
		case rule.origins[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			if rule.credentials {
				c.Header("Access-Control-Allow-Credentials", "true")
			}
			setCORSHeaders(c, rule)
		case rule.anyOrigin:
			c.Header("Access-Control-Allow-Origin", "*")
			setCORSHeaders(c, rule)
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func matchCORSRule(rules []corsRule, path string) *corsRule {
	for i := range rules {
		if strings.HasPrefix(path, rules[i].prefix) {
			return &rules[i]
		}
	}
	return nil
}

func setCORSHeaders(c *gin.Context, rule *corsRule) {
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	c.Header("Access-Control-Allow-Methods", rule.methods)
	c.Header("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID, Retry-After")
	c.Header("Access-Control-Max-Age", "86400")
}
