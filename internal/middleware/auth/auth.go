// Visitor identity middleware. Every client gets a signed cookie with
// a stable visitor id; short links record it as createdBy.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Claims struct {
	jwt.RegisteredClaims
	VisitorID string
}

const (
	tokenExp     = time.Hour * 24 * 30
	maxAge       = 3600 * 24 * 30
	cookieName   = "zc-visitor"
	VisitorIDKey = "visitorID"
)

var (
	ErrTokenNotValid    = errors.New("token is not valid")
	ErrNoVisitorInToken = errors.New("no visitor data in token")
	ErrBuildJWTString   = errors.New("error building JWT string")
)

func BuildJWTString(secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenExp)),
		},
		VisitorID: uuid.New().String(),
	})

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("error creating signed JWT: %w", err)
	}

	return tokenString, nil
}

func GetVisitorID(tokenString string, secret string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		})
	if err != nil {
		return "", ErrTokenNotValid
	}
	if !token.Valid {
		return "", ErrTokenNotValid
	}

	if claims.VisitorID == "" {
		return "", ErrNoVisitorInToken
	}

	return claims.VisitorID, nil
}

func AuthMiddleware(secret string, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(cookieName)
		if err != nil {
			if errors.Is(err, http.ErrNoCookie) {
				token, err := BuildJWTString(secret)
				if err != nil {
					logger.Error(ErrBuildJWTString, err)
					c.AbortWithStatus(http.StatusInternalServerError)
					return
				}
				c.SetCookie(cookieName, token, maxAge, "", "", false, true)
				cookie = token
			} else {
				logger.Errorf("error reading cookie[%v]: %v", cookieName, err)
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
		}

		visitorID, err := GetVisitorID(cookie, secret)
		if err != nil {
			if errors.Is(err, ErrTokenNotValid) || errors.Is(err, ErrNoVisitorInToken) {
				token, err := BuildJWTString(secret)
				if err != nil {
					logger.Error(ErrBuildJWTString, err)
					c.AbortWithStatus(http.StatusInternalServerError)
					return
				}
				visitorID, err = GetVisitorID(token, secret)
				if err != nil {
					logger.Errorf("revalidate error visitor id from renewed token: %v", err)
					c.AbortWithStatus(http.StatusInternalServerError)
					return
				}
				c.SetCookie(cookieName, token, maxAge, "", "", false, true)
			}
		}

		c.Set(VisitorIDKey, visitorID)
		c.Next()
	}
}
