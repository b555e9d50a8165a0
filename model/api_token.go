package model

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"gorm.io/gorm"
)

// APIToken authorizes programmatic access to the JSON API. Only a salted
// hash and a lookup prefix are persisted; the plaintext is shown once.
type APIToken struct {
	ID          uint    `gorm:"primaryKey"`
	UserID      string  `gorm:"size:36;index;not null"`
	TokenPrefix string  `gorm:"size:16;index;not null"`
	TokenHash   string  `gorm:"size:64;uniqueIndex;not null"`
	Salt        string  `gorm:"size:64;not null"`
	Name        string  `gorm:"size:100"`
	Scope       string  `gorm:"size:200"`
	ExpiresAt   *time.Time
	LastUsedAt  *time.Time
	Disabled    bool `gorm:"not null;default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (APIToken) TableName() string { return "api_tokens" }

func makeToken() (plain, prefix, saltHex, tokenHash string, err error) {
	randBytes := make([]byte, 32)
	if _, e := rand.Read(randBytes); e != nil {
		return "", "", "", "", e
	}
	plain = base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(randBytes)
	if len(plain) < 8 {
		return "", "", "", "", errors.New("token generation failed")
	}
	prefix = plain[:8]

	salt := make([]byte, 16)
	if _, e := rand.Read(salt); e != nil {
		return "", "", "", "", e
	}
	saltHex = hex.EncodeToString(salt)

	h := sha256.Sum256(append(salt, []byte(plain)...))
	tokenHash = hex.EncodeToString(h[:])
	return
}

// CreateAPIToken creates a token record and returns its plaintext once.
func (d *DB) CreateAPIToken(userID, name, scope string, expiresAt *time.Time) (plain string, rec *APIToken, err error) {
	plain, prefix, saltHex, hash, err := makeToken()
	if err != nil {
		return "", nil, err
	}
	rec = &APIToken{
		UserID:      userID,
		TokenPrefix: prefix,
		TokenHash:   hash,
		Salt:        saltHex,
		Name:        name,
		Scope:       scope,
		ExpiresAt:   expiresAt,
	}
	if err = d.db.Create(rec).Error; err != nil {
		return "", nil, err
	}
	return plain, rec, nil
}

// RevokeAPIToken disables a token owned by the user.
func (d *DB) RevokeAPIToken(userID string, id uint) error {
	res := d.db.Model(&APIToken{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("disabled", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// ValidateAPIToken verifies a raw token: prefix lookup, constant-time
// hash compare, disabled/expiry checks, best-effort last-used update.
func (d *DB) ValidateAPIToken(raw string) (*APIToken, error) {
	if len(raw) < 12 {
		return nil, ErrTokenInvalid
	}
	prefix := raw[:8]

	var rec APIToken
	if err := d.db.Where("token_prefix = ?", prefix).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	salt, err := hex.DecodeString(rec.Salt)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	h := sha256.Sum256(append(salt, []byte(raw)...))
	got := hex.EncodeToString(h[:])
	if subtle.ConstantTimeCompare([]byte(got), []byte(rec.TokenHash)) != 1 {
		return nil, ErrTokenInvalid
	}

	if rec.Disabled {
		return nil, ErrTokenDisabled
	}
	if rec.ExpiresAt != nil && time.Now().After(*rec.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	now := time.Now()
	_ = d.db.Model(&rec).Update("last_used_at", now).Error
	rec.LastUsedAt = &now
	return &rec, nil
}
