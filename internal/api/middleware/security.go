package middleware

import (
	"github.com/gin-gonic/gin"
)

// SecurityHeaders 安全 HTTP 头中间件
// 纯 JSON / 文件下载接口，不需要加载任何页面资源
// 对外地址为 HTTPS 时附加 HSTS，本地 HTTP 开发环境不发送
func SecurityHeaders(https bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		// 学员手机号、交易金额不允许被中间代理缓存
		c.Header("Cache-Control", "no-store")
		if https {
			c.Header("Strict-Transport-Security", "max-age=31536000")
		}

		c.Next()
	}
}
