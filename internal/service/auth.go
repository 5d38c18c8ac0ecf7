package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/flicky/moodshop-api/internal/checkout"
	"github.com/flicky/moodshop-api/internal/config"
	"github.com/flicky/moodshop-api/internal/dto"
	"github.com/flicky/moodshop-api/internal/metrics"
	"github.com/flicky/moodshop-api/internal/model"
	"github.com/flicky/moodshop-api/internal/repository"
)

// OTPSender delivers a freshly generated code to its owner.
type OTPSender interface {
	SendOTP(ctx context.Context, email, code string) error
}

// SessionClaims are carried by the bearer token issued after OTP login.
type SessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type AuthService struct {
	userRepo    repository.UserRepository
	otpStore    repository.OTPStore
	denylist    repository.TokenDenylist
	sender      OTPSender
	jwtSecret   []byte
	jwtExpiry   time.Duration
	otpTTL      time.Duration
	maxAttempts int
	demoMode    bool

	bcryptCost int
	newCode    func() (string, error)
	now        func() time.Time
}

func NewAuthService(
	userRepo repository.UserRepository,
	otpStore repository.OTPStore,
	denylist repository.TokenDenylist,
	sender OTPSender,
	jwtCfg config.JWTConfig,
	otpCfg config.OTPConfig,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		otpStore:    otpStore,
		denylist:    denylist,
		sender:      sender,
		jwtSecret:   []byte(jwtCfg.Secret),
		jwtExpiry:   jwtCfg.Expiration,
		otpTTL:      otpCfg.TTL,
		maxAttempts: otpCfg.MaxAttempts,
		demoMode:    otpCfg.DemoMode,
		bcryptCost:  bcrypt.DefaultCost,
		newCode:     generateCode,
		now:         time.Now,
	}
}

// generateCode returns a uniformly random six digit code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SendOTP replaces any pending code for email with a new one and delivers it.
func (s *AuthService) SendOTP(ctx context.Context, email string) (*dto.SendOTPResponse, error) {
	email = normalizeEmail(email)
	if !checkout.ValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	code, err := s.newCode()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash code: %w", err)
	}
	if err := s.otpStore.Save(ctx, email, string(hash), s.otpTTL); err != nil {
		return nil, fmt.Errorf("store code: %w", err)
	}
	if err := s.sender.SendOTP(ctx, email, code); err != nil {
		return nil, fmt.Errorf("send code: %w", err)
	}
	metrics.RecordOTP("sent")

	resp := &dto.SendOTPResponse{
		Message:   "verification code sent",
		ExpiresIn: int(s.otpTTL.Seconds()),
	}
	if s.demoMode {
		resp.DemoCode = code
	}
	return resp, nil
}

// VerifyOTP consumes the pending code for email and issues a session token.
// A code verifies at most once.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (*dto.AuthResponse, error) {
	email = normalizeEmail(email)

	if err := s.checkCode(ctx, email, code); err != nil {
		metrics.RecordOTP("rejected")
		return nil, err
	}
	metrics.RecordOTP("verified")

	user, isNew, err := s.getOrCreateUser(ctx, email)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.generateToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &dto.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		IsNewUser: isNew,
		User:      dto.UserResponse{ID: user.ID, Email: user.Email},
	}, nil
}

func (s *AuthService) checkCode(ctx context.Context, email, code string) error {
	rec, err := s.otpStore.Get(ctx, email)
	if err != nil {
		return fmt.Errorf("get code: %w", err)
	}
	if rec == nil {
		return ErrOTPNotFound
	}
	if rec.Attempts >= s.maxAttempts {
		_, _ = s.otpStore.Delete(ctx, email)
		return ErrOTPAttemptsExceeded
	}

	if bcrypt.CompareHashAndPassword([]byte(rec.Hash), []byte(code)) != nil {
		attempts, err := s.otpStore.IncrementAttempts(ctx, email)
		if err != nil {
			return fmt.Errorf("count attempt: %w", err)
		}
		if attempts == 0 {
			return ErrOTPNotFound
		}
		if attempts >= s.maxAttempts {
			_, _ = s.otpStore.Delete(ctx, email)
			return ErrOTPAttemptsExceeded
		}
		return ErrOTPMismatch
	}

	// Only the request that actually deletes the code wins a concurrent replay.
	deleted, err := s.otpStore.Delete(ctx, email)
	if err != nil {
		return fmt.Errorf("consume code: %w", err)
	}
	if !deleted {
		return ErrOTPNotFound
	}
	return nil
}

func (s *AuthService) getOrCreateUser(ctx context.Context, email string) (*model.User, bool, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("get user: %w", err)
	}
	if user != nil {
		return user, false, nil
	}

	user = &model.User{Email: email}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	return user, true, nil
}

func (s *AuthService) generateToken(user *model.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.jwtExpiry)
	claims := SessionClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// ParseToken validates a bearer token and rejects revoked ones.
func (s *AuthService) ParseToken(ctx context.Context, raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, ErrInvalidToken
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check token: %w", err)
	}
	if revoked {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Logout revokes the token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, claims *SessionClaims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return errors.New("logout: token has no expiry")
	}
	if err := s.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Sub(s.now())); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
