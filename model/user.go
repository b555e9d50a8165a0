package model

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidPassword = fmt.Errorf("invalid password")
	ErrTokenExpired    = fmt.Errorf("token expired")
	ErrTokenInvalid    = fmt.Errorf("token invalid")
	ErrTokenNotFound   = fmt.Errorf("token not found")
	ErrTokenDisabled   = fmt.Errorf("token disabled")
	ErrUnauthorized    = fmt.Errorf("unauthorized")
)

// User is the invoicing user. IDs are UUID strings so they line up with
// the ids the managed backend hands out.
type User struct {
	ID          string `gorm:"primaryKey;size:36"`
	Email       string `gorm:"uniqueIndex;not null"` // always stored lowercase
	FullName    string
	CompanyName string
	AvatarURL   string
	Password    string `gorm:"not null"`

	PasswordResetToken  []byte
	PasswordResetExpiry time.Time
	Verified            bool `gorm:"not null;default:false"`
	LastLoginAt         *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) BeforeSave(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = NormalizeEmail(u.Email)
	return nil
}

// QuickPayPath is the per-user shareable payment link path.
func (u *User) QuickPayPath() string {
	return "/pay/" + u.ID
}

func (d *DB) TouchLastLogin(u *User) error {
	now := time.Now().UTC()
	u.LastLoginAt = &now
	return d.db.Model(u).Update("last_login_at", now).Error
}

func (d *DB) AuthenticateUser(email, password string) (*User, error) {
	user, err := d.GetUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if !d.CheckPassword(user, password) {
		return nil, ErrInvalidPassword
	}
	return user, nil
}

func (d *DB) GetUserByID(id string) (*User, error) {
	if id == "" {
		return nil, fmt.Errorf("user ID cannot be empty")
	}
	var user User
	if err := d.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *DB) GetUserByEmail(email string) (*User, error) {
	email = NormalizeEmail(email)
	var user User
	if err := d.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *DB) SetPassword(u *User, password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

func (d *DB) CheckPassword(u *User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

func (d *DB) CreateUser(u *User) error {
	// Email normalized by hook
	return d.db.Create(u).Error
}

func (d *DB) UpdateUser(u *User) error {
	return d.db.Save(u).Error
}

// ---- Password reset ----

// SetPasswordResetToken stores the hash of the plaintext token plus expiry.
func (d *DB) SetPasswordResetToken(u *User, token string, expiry time.Time) error {
	sum := sha256.Sum256([]byte(token))
	u.PasswordResetToken = sum[:]
	u.PasswordResetExpiry = expiry
	return d.db.Save(u).Error
}

// GetUserByResetToken finds the user by plaintext token, validating
// expiry with a constant-time compare. A missing token yields (nil, nil).
func (d *DB) GetUserByResetToken(token string) (*User, error) {
	sum := sha256.Sum256([]byte(token))
	var u User

	if err := d.db.
		Where("password_reset_token = ?", sum[:]).
		First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if time.Now().After(u.PasswordResetExpiry) {
		return nil, ErrTokenExpired
	}
	if !hmac.Equal(u.PasswordResetToken, sum[:]) {
		return nil, ErrTokenInvalid
	}
	return &u, nil
}

func (d *DB) ClearPasswordResetToken(u *User) error {
	u.PasswordResetToken = nil
	u.PasswordResetExpiry = time.Time{}
	return d.db.Save(u).Error
}
