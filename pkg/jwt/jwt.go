package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/izeinnn/University-management-system/config"
)

var (
	ErrTokenExpired = errors.New("token 已过期")
	ErrTokenInvalid = errors.New("token 无效")
)

// TokenType 固定为 bearer（无 refresh token，过期后需重新登录）
const TokenType = "bearer"

// Claims 自定义 JWT 声明
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwtv5.RegisteredClaims
}

// Manager JWT 管理器
type Manager struct {
	secret         []byte
	method         jwtv5.SigningMethod
	accessTokenTTL time.Duration
	issuer         string
	now            func() time.Time
}

// NewManager 创建 JWT 管理器
// 算法已在 config.Validate 中校验，未知算法时回退 HS256
func NewManager(cfg *config.AuthConfig) *Manager {
	method := jwtv5.GetSigningMethod(cfg.JWTAlgorithm)
	if _, ok := method.(*jwtv5.SigningMethodHMAC); !ok {
		method = jwtv5.SigningMethodHS256
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "university-records"
	}
	return &Manager{
		secret:         []byte(cfg.JWTSecret),
		method:         method,
		accessTokenTTL: cfg.AccessTokenTTL,
		issuer:         issuer,
		now:            time.Now,
	}
}

// WithClock 替换时钟，签发与校验共用同一时钟
func (m *Manager) WithClock(now func() time.Time) *Manager {
	cp := *m
	cp.now = now
	return &cp
}

// AccessTokenTTL 返回 Access Token 有效期
func (m *Manager) AccessTokenTTL() time.Duration {
	return m.accessTokenTTL
}

// GenerateAccessToken 生成 Access Token
func (m *Manager) GenerateAccessToken(userID, role string) (string, error) {
	now := m.now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(m.accessTokenTTL)),
			Issuer:    m.issuer,
		},
	}

	token := jwtv5.NewWithClaims(m.method, claims)
	return token.SignedString(m.secret)
}

// ParseToken 解析并验证 Token
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, func(t *jwtv5.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	},
		jwtv5.WithValidMethods([]string{m.method.Alg()}),
		jwtv5.WithIssuer(m.issuer),
		jwtv5.WithTimeFunc(m.now),
		jwtv5.WithExpirationRequired(),
	)

	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
