package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/d60-Lab/travel-relation/pkg/response"
)

const ctxUIDKey = "uid"

// JWTAuth 校验 Bearer token，把 sub 作为当前 uid 写入上下文。
// 签发由外部认证服务负责。
func JWTAuth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			response.Unauthorized(c, "missing bearer token")
			return
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			response.Unauthorized(c, "invalid token")
			return
		}

		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			response.Unauthorized(c, "token has no subject")
			return
		}
		c.Set(ctxUIDKey, sub)
		c.Next()
	}
}

// UID 当前请求的用户 ID
func UID(c *gin.Context) string { return c.GetString(ctxUIDKey) }

// IssueToken 生成测试/开发用 token
func IssueToken(secret, uid string, claims jwt.RegisteredClaims) (string, error) {
	if uid == "" {
		return "", errors.New("empty uid")
	}
	claims.Subject = uid
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
