package api

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session 会话令牌信息（从 JWT 载荷提取，不做签名校验——
// 校验是服务端的事，客户端只用它提前感知过期）
type Session struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// SessionInfo 解析会话令牌
func SessionInfo(token string) (Session, error) {
	parser := jwt.NewParser()

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return Session{}, ErrInvalidToken.Wrap(err)
	}

	var s Session
	if sub, err := claims.GetSubject(); err == nil {
		s.Subject = sub
	}
	if email, ok := claims["email"].(string); ok {
		s.Email = email
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		s.IssuedAt = iat.Time
	}

	return s, nil
}

// Expired 判断会话是否已过期（无 exp 声明视为未过期）
func (s Session) Expired(now time.Time) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt)
}

// ExpiresWithin 判断会话是否将在 d 时间内过期
// 用于在请求失败之前主动发出未认证信号
func (s Session) ExpiresWithin(now time.Time, d time.Duration) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return now.Add(d).After(s.ExpiresAt)
}
