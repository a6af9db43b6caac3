package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/d60-Lab/feedmix/internal/feed"
	"github.com/d60-Lab/feedmix/pkg/response"
)

const viewerKey = "feedmix.viewer"

// Auth 解析 Bearer token，sub 作为当前用户；没有 token 的请求以匿名身份继续，
// 由业务层决定是否需要登录。token 无效时直接 401。
func Auth(secret, issuer string) gin.HandlerFunc {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)
	key := []byte(secret)

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			response.Unauthorized(c, "malformed authorization header")
			c.Abort()
			return
		}
		var claims jwt.RegisteredClaims
		if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		}); err != nil {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token expired"
			}
			response.Unauthorized(c, msg)
			c.Abort()
			return
		}
		if claims.Subject == "" {
			response.Unauthorized(c, "token has no subject")
			c.Abort()
			return
		}
		c.Set(viewerKey, claims.Subject)
		c.Next()
	}
}

// Viewer 返回当前请求的用户；未登录时 UserID 为空
func Viewer(c *gin.Context) feed.Viewer {
	return feed.Viewer{UserID: c.GetString(viewerKey)}
}
