// models/activity.go
package models

import (
	"log/slog"
	"time"

	"github.com/FCEB2022/bbs-gestion-escolar/config"
)

// UserActivity — журнал действий пользователей (вход, валидации, отклонения).
type UserActivity struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"userId" gorm:"index;not null"`
	User      *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Action    string    `json:"action" gorm:"not null"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"createdAt"`
}

func (UserActivity) TableName() string { return "user_activities" }

// LogActivity пишет запись в журнал. Ошибка записи не прерывает основной поток.
func LogActivity(userID uint, action, ip, userAgent, details string) {
	if userID == 0 {
		return
	}
	entry := UserActivity{
		UserID:    userID,
		Action:    action,
		IP:        ip,
		UserAgent: userAgent,
		Details:   details,
	}
	if err := config.DB.Create(&entry).Error; err != nil {
		slog.Warn("Не удалось записать действие пользователя", "action", action, "user_id", userID, "error", err)
	}
}
