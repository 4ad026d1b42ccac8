package auth

import (
	"crypto/subtle"
	"log"
	"time"
)

// Service authenticates operator logins and issues access tokens. There is
// no user database: a single operator credential pair is configured at boot
// (env var or Vault secret, see internal/secrets), matching the rest of this
// deployment's single-tenant scope.
type Service struct {
	jwtManager      *JWTManager
	passwordManager *PasswordManager
	config          Config
}

// NewService creates a new authentication service.
func NewService(config Config) *Service {
	if config.JWTSecret == "" {
		log.Fatal("JWT secret is required")
	}
	if config.AccessTokenDuration == 0 {
		config.AccessTokenDuration = 12 * time.Hour
	}

	return &Service{
		jwtManager:      NewJWTManager(config.JWTSecret, config.AccessTokenDuration),
		passwordManager: NewPasswordManager(DefaultBcryptCost),
		config:          config,
	}
}

// GetJWTManager returns the JWT manager for use in middleware.
func (s *Service) GetJWTManager() *JWTManager {
	return s.jwtManager
}

// Login validates credentials against the configured operator account and
// issues an access token.
func (s *Service) Login(req LoginRequest) (*LoginResponse, error) {
	if subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.config.OperatorUsername)) != 1 {
		return nil, ErrInvalidCredentials
	}
	if !s.passwordManager.VerifyPassword(req.Password, s.config.OperatorPasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwtManager.GenerateAccessToken(OperatorClaims{
		Subject: req.Username,
		Role:    "admin",
	})
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   s.jwtManager.AccessTokenDurationSeconds(),
	}, nil
}
