package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"freshcart-api/models"
	"freshcart-api/utils"
)

const (
	AccessTokenDuration  = 15 * time.Minute
	RefreshTokenDuration = 7 * 24 * time.Hour

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	minPasswordLength = 8
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidToken       = errors.New("invalid token")
)

type CustomerStore interface {
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error)
	GetCustomerByID(ctx context.Context, id string) (*models.Customer, error)
}

type JWTService struct {
	secretKey []byte
	issuer    string
	customers CustomerStore
}

type Claims struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

func NewJWTService(secretKey, issuer string, customers CustomerStore) *JWTService {
	return &JWTService{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		customers: customers,
	}
}

func (j *JWTService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if name == "" {
		return nil, models.NewValidationError("Name is required", nil)
	}
	if !utils.ValidEmail(email) {
		return nil, models.NewValidationError("Please enter a valid email address", nil)
	}
	if len(req.Password) < minPasswordLength {
		return nil, models.NewValidationError(fmt.Sprintf("Password must be at least %d characters", minPasswordLength), nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	customer := &models.Customer{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := j.customers.CreateCustomer(ctx, customer); err != nil {
		if errors.Is(err, models.ErrEmailTaken) {
			return nil, models.NewConflictError("An account with this email already exists", err)
		}
		return nil, models.NewExternalError(err)
	}

	return j.issue(toAuthUser(customer))
}

func (j *JWTService) Authenticate(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	customer, err := j.customers.GetCustomerByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return j.issue(toAuthUser(customer))
}

func (j *JWTService) issue(user models.AuthUser) (*models.AuthResponse, error) {
	accessToken, err := j.GenerateToken(user, tokenTypeAccess, AccessTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("error generating access token: %w", err)
	}

	refreshToken, err := j.GenerateToken(user, tokenTypeRefresh, RefreshTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("error generating refresh token: %w", err)
	}

	return &models.AuthResponse{
		Token:        accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(AccessTokenDuration),
		User:         user,
	}, nil
}

func (j *JWTService) GenerateToken(user models.AuthUser, tokenType string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Name:      user.Name,
		Email:     user.Email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.CustomerID,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secretKey)
}

func (j *JWTService) parse(tokenString, wantType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	}, jwt.WithIssuer(j.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != wantType || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateToken accepts access tokens only.
func (j *JWTService) ValidateToken(tokenString string) (*models.AuthUser, error) {
	claims, err := j.parse(tokenString, tokenTypeAccess)
	if err != nil {
		return nil, err
	}
	return &models.AuthUser{
		CustomerID: claims.Subject,
		Name:       claims.Name,
		Email:      claims.Email,
	}, nil
}

// RefreshToken exchanges a refresh token for a new pair, re-reading the
// customer so deleted accounts cannot refresh.
func (j *JWTService) RefreshToken(ctx context.Context, refreshTokenString string) (*models.AuthResponse, error) {
	claims, err := j.parse(refreshTokenString, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	customer, err := j.customers.GetCustomerByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return j.issue(toAuthUser(customer))
}

func toAuthUser(c *models.Customer) models.AuthUser {
	return models.AuthUser{CustomerID: c.ID, Name: c.Name, Email: c.Email}
}
