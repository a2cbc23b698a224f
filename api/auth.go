package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"offerhouse/lifecycle"
	"offerhouse/models"
)

type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

func ParseAndValidateJWT(tokenString string, secret []byte) (*Claims, error) {
	const op = "ParseJWT"
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%s: token is invalid", op)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("%s: token claims are invalid", op)
	}
	return claims, nil
}

// AuthMiddleware 解析 Bearer token，並將使用者轉換為操作者放入 request context
// 使用者的角色與啟用狀態以資料庫為準，token 內的角色只用於初步檢查
func (impl *ServerImpl) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			abortWithError(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := ParseAndValidateJWT(tokenString, []byte(impl.config.Auth.JWTSecret))
		if err != nil {
			impl.logger.Debug("Reject invalid token", slog.Any("error", err))
			abortWithError(c, http.StatusUnauthorized, "invalid token")
			return
		}
		if claims.Role != models.RoleUser && claims.Role != models.RoleAdmin {
			abortWithError(c, http.StatusUnauthorized, "invalid role")
			return
		}
		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "invalid subject")
			return
		}
		user, err := impl.repo.GetUser(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, lifecycle.ErrUserNotFound) {
				abortWithError(c, http.StatusUnauthorized, "unknown user")
				return
			}
			impl.logger.Error("Fail to load user", slog.Any("error", err))
			abortWithError(c, http.StatusInternalServerError, "internal error")
			return
		}

		if user.Role != models.RoleUser && user.Role != models.RoleAdmin {
			abortWithError(c, http.StatusUnauthorized, "invalid role")
			return
		}
		if user.Role != claims.Role {
			impl.logger.Debug("Token role differs from stored role",
				slog.String("userID", user.ID.String()),
				slog.String("tokenRole", string(claims.Role)),
				slog.String("storedRole", string(user.Role)),
			)
		}

		ctx := lifecycle.WithPrincipal(c.Request.Context(), lifecycle.Principal{
			ID:       user.ID,
			Role:     user.Role,
			IsActive: user.IsActive,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
