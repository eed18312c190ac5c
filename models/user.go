// models/user.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User представляет учетную запись сотрудника школы.
type User struct {
	gorm.Model
	Login        string     `json:"login" gorm:"uniqueIndex;not null"`
	FullName     string     `json:"fullName" gorm:"not null"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-" gorm:"not null"`
	IsActive     *bool      `json:"isActive" gorm:"default:true"`
	LastLoginAt  *time.Time `json:"lastLoginAt"`

	Roles []Role `json:"roles,omitempty" gorm:"many2many:user_roles;"`
}

func (User) TableName() string { return "users" }

// SetPassword хэширует пароль через bcrypt и сохраняет хэш.
func (u *User) SetPassword(raw string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword сверяет пароль с сохраненным хэшем.
func (u *User) CheckPassword(raw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(raw)) == nil
}

// HasRole проверяет наличие роли по имени.
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}
