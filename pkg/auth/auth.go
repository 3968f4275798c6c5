package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/babisteps/admin-api/pkg/database"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var jwtAlgorithm = jwt.SigningMethodHS256

// ErrDisabled is returned when the secret a call needs is not configured
var ErrDisabled = errors.New("auth secret not configured")

// Claims represents the JWT claims
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Keys holds the signing secrets. An empty secret disables that scheme.
type Keys struct {
	JWTSecret    []byte
	MasterSecret []byte
	TokenTTL     time.Duration
}

// NewKeys builds Keys from the configured secrets
func NewKeys(jwtSecret, masterSecret string) *Keys {
	return &Keys{JWTSecret: []byte(jwtSecret), MasterSecret: []byte(masterSecret), TokenTTL: 24 * time.Hour}
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	return string(bytes), err
}

// CheckPasswordHash compares a password with its hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CreateToken creates a new JWT token for a user
func (k *Keys) CreateToken(username string) (string, error) {
	if len(k.JWTSecret) == 0 {
		return "", ErrDisabled
	}
	ttl := k.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwtAlgorithm, claims)
	return token.SignedString(k.JWTSecret)
}

// VerifyToken verifies a JWT token
func (k *Keys) VerifyToken(tokenString string) (*Claims, error) {
	if len(k.JWTSecret) == 0 {
		return nil, ErrDisabled
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwtAlgorithm {
			return nil, errors.New("unexpected signing method")
		}
		return k.JWTSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// GenerateHMACKey creates a signed API key using HMAC-SHA256
func (k *Keys) GenerateHMACKey(userID string) (string, error) {
	if len(k.MasterSecret) == 0 {
		return "", ErrDisabled
	}
	if userID == "" || strings.Contains(userID, ".") {
		return "", errors.New("user id must be non-empty and contain no dots")
	}
	return userID + "." + k.sign(userID), nil
}

// VerifyHMACKey validates an HMAC-signed API key and returns its user id
func (k *Keys) VerifyHMACKey(key string) (string, error) {
	if len(k.MasterSecret) == 0 {
		return "", ErrDisabled
	}
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return "", errors.New("invalid key format")
	}

	userID := parts[0]
	providedSignature := parts[1]

	// constant-time comparison
	if !hmac.Equal([]byte(providedSignature), []byte(k.sign(userID))) {
		return "", errors.New("invalid signature")
	}

	return userID, nil
}

func (k *Keys) sign(userID string) string {
	h := hmac.New(sha256.New, k.MasterSecret)
	h.Write([]byte(userID))
	return hex.EncodeToString(h.Sum(nil))
}

// TrackAPIKey fetches or creates the record of a verified key and stamps its last use
func TrackAPIKey(db *gorm.DB, key, name string) (*database.APIKey, error) {
	var apiKey database.APIKey
	if err := db.Where(database.APIKey{Key: key}).FirstOrCreate(&apiKey, database.APIKey{
		Key:  key,
		Name: name,
	}).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	apiKey.LastUsed = &now
	if err := db.Model(&apiKey).Update("last_used", now).Error; err != nil {
		slog.Warn("could not stamp api key use", "key_id", apiKey.ID, "error", err)
	}
	return &apiKey, nil
}

// EnsureAdminExists creates the admin user from the given credentials when
// there are no users yet. Without a password nothing is created.
func EnsureAdminExists(db *gorm.DB, username, password string) error {
	var count int64
	if err := db.Model(&database.MasterUser{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if password == "" {
		slog.Warn("no admin user and ADMIN_PASSWORD is empty; admin login disabled")
		return nil
	}
	if username == "" {
		username = "admin"
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	user := database.MasterUser{
		Username:     username,
		PasswordHash: hash,
	}
	if err := db.Create(&user).Error; err != nil {
		return err
	}
	slog.Info("default admin user created", "username", username)
	return nil
}

// Authenticate checks a username and password against the master users
func Authenticate(db *gorm.DB, username, password string) (*database.MasterUser, bool) {
	var user database.MasterUser
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, false
	}
	if !CheckPasswordHash(password, user.PasswordHash) {
		return nil, false
	}
	return &user, true
}
