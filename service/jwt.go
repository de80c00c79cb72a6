package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/kinkando/family-task-service/model"
	"github.com/kinkando/family-task-service/pkg/profile"
	"github.com/mitchellh/mapstructure"
)

// JWTService signs and verifies the access and refresh credentials. Each class has its own
// secret and lifetime, so a credential routed to the wrong verifier always fails its signature.
type JWTService interface {
	IssueAccess(p profile.Profile) (string, error)
	IssueRefresh(p profile.Profile) (string, error)
	VerifyAccess(token string) (profile.Claims, error)
	VerifyRefresh(token string) (profile.Claims, error)
	AccessTokenExpireTime() time.Duration
	RefreshTokenExpireTime() time.Duration
}

type VerificationReason int

const (
	ReasonMalformed VerificationReason = iota + 1
	ReasonSignature
	ReasonExpired
	ReasonClaims
)

func (r VerificationReason) String() string {
	switch r {
	case ReasonMalformed:
		return "malformed"
	case ReasonSignature:
		return "signature"
	case ReasonExpired:
		return "expired"
	case ReasonClaims:
		return "claims"
	default:
		return "unknown"
	}
}

type VerificationError struct {
	Reason VerificationReason
	Err    error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verify token: %s: %v", e.Reason, e.Err)
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

// ClassifyVerificationError maps a verification failure onto the refresh error taxonomy.
func ClassifyVerificationError(err error) model.ErrorCode {
	var vErr *VerificationError
	if !errors.As(err, &vErr) {
		return model.ErrorCodeUnknown
	}
	if vErr.Reason == ReasonExpired {
		return model.ErrorCodeExpiredToken
	}
	return model.ErrorCodeInvalidToken
}

type JWTOption interface {
	apply(*jwtService)
}

type jwtOptionFunc func(*jwtService)

func (o jwtOptionFunc) apply(s *jwtService) {
	o(s)
}

// WithClock overrides the time used to stamp issued credentials.
func WithClock(now func() time.Time) JWTOption {
	return jwtOptionFunc(func(s *jwtService) {
		s.now = now
	})
}

type jwtService struct {
	accessSecret           []byte
	refreshSecret          []byte
	accessTokenExpireTime  time.Duration
	refreshTokenExpireTime time.Duration
	now                    func() time.Time
}

func NewJWTService(accessSecret, refreshSecret string, accessTokenExpireTime, refreshTokenExpireTime time.Duration, opts ...JWTOption) (JWTService, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("jwt: access and refresh secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("jwt: access and refresh secrets must differ")
	}
	if accessTokenExpireTime <= 0 || refreshTokenExpireTime <= accessTokenExpireTime {
		return nil, fmt.Errorf("jwt: refresh lifetime %s must exceed access lifetime %s", refreshTokenExpireTime, accessTokenExpireTime)
	}

	s := &jwtService{
		accessSecret:           []byte(accessSecret),
		refreshSecret:          []byte(refreshSecret),
		accessTokenExpireTime:  accessTokenExpireTime,
		refreshTokenExpireTime: refreshTokenExpireTime,
		now:                    time.Now,
	}
	for _, opt := range opts {
		opt.apply(s)
	}
	return s, nil
}

func (s *jwtService) IssueAccess(p profile.Profile) (string, error) {
	return s.sign(p, profile.Access, s.accessTokenExpireTime, s.accessSecret)
}

func (s *jwtService) IssueRefresh(p profile.Profile) (string, error) {
	return s.sign(p, profile.Refresh, s.refreshTokenExpireTime, s.refreshSecret)
}

func (s *jwtService) VerifyAccess(token string) (profile.Claims, error) {
	return s.verify(token, profile.Access, s.accessSecret)
}

func (s *jwtService) VerifyRefresh(token string) (profile.Claims, error) {
	return s.verify(token, profile.Refresh, s.refreshSecret)
}

func (s *jwtService) AccessTokenExpireTime() time.Duration {
	return s.accessTokenExpireTime
}

func (s *jwtService) RefreshTokenExpireTime() time.Duration {
	return s.refreshTokenExpireTime
}

func (s *jwtService) sign(p profile.Profile, tokenType profile.TokenType, lifetime time.Duration, secret []byte) (string, error) {
	if p.UserID == "" {
		return "", errors.New("jwt: subject is required")
	}

	now := s.now()
	claims := profile.Claims{
		SubjectID: p.UserID,
		Role:      p.Role,
		Email:     p.Email,
		Type:      tokenType,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(lifetime).Unix(),
	}

	signedToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign %s token: %w", tokenType, err)
	}
	return signedToken, nil
}

func (s *jwtService) verify(tokenString string, tokenType profile.TokenType, secret []byte) (profile.Claims, error) {
	if tokenString == "" {
		return profile.Claims{}, &VerificationError{Reason: ReasonMalformed, Err: errors.New("token is empty")}
	}

	jwtClaims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, jwtClaims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return profile.Claims{}, &VerificationError{Reason: verificationReason(err), Err: err}
	}

	if !token.Valid {
		return profile.Claims{}, &VerificationError{Reason: ReasonSignature, Err: errors.New("invalid jwt token")}
	}

	var claims profile.Claims
	if err = mapstructure.Decode(jwtClaims, &claims); err != nil {
		return profile.Claims{}, &VerificationError{Reason: ReasonClaims, Err: fmt.Errorf("invalid token structure: %w", err)}
	}

	if claims.Type != tokenType {
		return profile.Claims{}, &VerificationError{Reason: ReasonClaims, Err: fmt.Errorf("unexpected token type %q", claims.Type)}
	}
	if claims.SubjectID == "" || claims.ExpiresAt == 0 {
		return profile.Claims{}, &VerificationError{Reason: ReasonClaims, Err: errors.New("subject and expiry are required")}
	}

	return claims, nil
}

// verificationReason reads the jwt validation flags. Signature problems win over expiry so
// a tampered credential is never reported as merely expired.
func verificationReason(err error) VerificationReason {
	var vErr *jwt.ValidationError
	if !errors.As(err, &vErr) {
		return ReasonMalformed
	}

	switch {
	case vErr.Errors&jwt.ValidationErrorMalformed != 0:
		return ReasonMalformed
	case vErr.Errors&(jwt.ValidationErrorSignatureInvalid|jwt.ValidationErrorUnverifiable) != 0:
		return ReasonSignature
	case vErr.Errors&jwt.ValidationErrorExpired != 0:
		return ReasonExpired
	default:
		return ReasonClaims
	}
}
