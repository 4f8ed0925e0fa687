package server

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"productivity-hub/internal/config"
	"productivity-hub/internal/errs"
)

const (
	ctxUserID   = "hub.userId"
	ctxUsername = "hub.username"
)

// ErrEmptySecret 未配置签名密钥
var ErrEmptySecret = errors.New("server: jwt secret is empty")

// Claims 访问令牌，Subject 为用户ID
type Claims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer HS256 令牌签发与校验
type TokenIssuer struct {
	secret []byte
	issuer string
	expire time.Duration
	now    func() time.Time
}

func NewTokenIssuer(cfg config.JWTConfig) (*TokenIssuer, error) {
	if cfg.Secret == "" {
		return nil, ErrEmptySecret
	}
	return &TokenIssuer{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		expire: cfg.Expire,
		now:    time.Now,
	}, nil
}

// Issue 签发令牌，expire<=0 时不设置过期时间
func (t *TokenIssuer) Issue(userID, username string) (string, error) {
	now := t.now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID,
			Issuer:   t.issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if t.expire > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(t.expire))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse 校验签名、签发者和有效期
func (t *TokenIssuer) Parse(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("token subject is empty")
	}
	return claims, nil
}

// authMiddleware 校验令牌并记录用户，WebSocket 握手可以用 token 查询参数
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			s.fail(c, errs.Unauthorized("missing access token"))
			return
		}
		claims, err := s.tokens.Parse(raw)
		if err != nil {
			s.logger.Debug("reject token", zap.Error(err))
			s.fail(c, errs.Unauthorized("invalid access token"))
			return
		}

		if s.svc.Users != nil {
			if err := s.svc.Users.Touch(c.Request.Context(), claims.Subject, claims.Username); err != nil {
				s.logger.Warn("touch user failed", zap.String("userId", claims.Subject), zap.Error(err))
			}
		}
		c.Set(ctxUserID, claims.Subject)
		c.Set(ctxUsername, claims.Username)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return c.Query("token")
}

func currentUser(c *gin.Context) string {
	return c.GetString(ctxUserID)
}
