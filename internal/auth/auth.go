// Package auth implements the optional access gate: username/password login
// backed by a JWT cookie, or a static API key for non-browser clients. When
// neither is configured the API is open and access control is left to the
// deployment (reverse proxy, network policy).
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/bucketpilot/bucketpilot/internal/config"
)

const cookieName = "auth_token"
const tokenLifetime = 24 * time.Hour

var jwtSecret []byte

var (
	loginLimiters sync.Map
	loginRate     = rate.Every(time.Minute / 5) // 5 attempts per minute per IP
)

func init() {
	if secret := config.Get("JWT_SECRET", ""); secret != "" {
		jwtSecret = []byte(secret)
	} else {
		jwtSecret = make([]byte, 32)
		rand.Read(jwtSecret)
	}
}

// Enabled reports whether any form of authentication is configured.
func Enabled() bool {
	if config.Get("API_KEY", "") != "" {
		return true
	}
	return config.Get("AUTH_USERNAME", "") != "" && config.Get("AUTH_PASSWORD", "") != ""
}

func getLoginLimiter(ip string) *rate.Limiter {
	if val, ok := loginLimiters.Load(ip); ok {
		return val.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(loginRate, 5)
	loginLimiters.Store(ip, limiter)
	return limiter
}

func allowInsecure() bool {
	return config.GetBool("ALLOW_INSECURE", false)
}

// passwordMatches compares a candidate against the configured password,
// which may be stored as a bcrypt hash (see the hashpw subcommand) or plain.
func passwordMatches(configured, candidate string) bool {
	if strings.HasPrefix(configured, "$2a$") || strings.HasPrefix(configured, "$2b$") || strings.HasPrefix(configured, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(configured), []byte(candidate)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(candidate)) == 1
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func issueToken(c *gin.Context, username string) error {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": username,
		"exp":      time.Now().Add(tokenLifetime).Unix(),
		"iat":      time.Now().Unix(),
	})
	signed, err := token.SignedString(jwtSecret)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(cookieName, signed, int(tokenLifetime.Seconds()), "/", "", !allowInsecure(), true)
	return nil
}

func validCookie(c *gin.Context) bool {
	tokenString, err := c.Cookie(cookieName)
	if err != nil {
		return false
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return jwtSecret, nil
	})
	return err == nil && token.Valid
}

// validAPIKey checks Authorization: Bearer and X-API-Key against API_KEY.
func validAPIKey(c *gin.Context) bool {
	envKey := config.Get("API_KEY", "")
	if envKey == "" {
		return false
	}
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		if subtle.ConstantTimeCompare([]byte(strings.TrimPrefix(header, "Bearer ")), []byte(envKey)) == 1 {
			return true
		}
	}
	if key := c.GetHeader("X-API-Key"); key != "" {
		return subtle.ConstantTimeCompare([]byte(key), []byte(envKey)) == 1
	}
	return false
}

func LoginHandler(c *gin.Context) {
	if !getLoginLimiter(c.ClientIP()).Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts"})
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	username := config.Get("AUTH_USERNAME", "")
	password := config.Get("AUTH_PASSWORD", "")
	if username == "" || password == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login is not configured"})
		return
	}

	if req.Username != username || !passwordMatches(password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if err := issueToken(c, req.Username); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue session token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func LogoutHandler(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(cookieName, "", -1, "/", "", !allowInsecure(), true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func CheckAuthHandler(c *gin.Context) {
	if !Enabled() || validAPIKey(c) || validCookie(c) {
		c.JSON(http.StatusOK, gin.H{"authenticated": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": false})
}

// Middleware gates a route group behind the API key or a valid JWT cookie.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if validAPIKey(c) || validCookie(c) {
			c.Next()
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		c.Abort()
	}
}
