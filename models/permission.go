// models/permission.go
package models

import "github.com/FCEB2022/bbs-gestion-escolar/config"

// Permission представляет модель права доступа в базе данных.
// Все проверки доступа в приложении сводятся к именам прав,
// а не к сравнению строк ролей по месту использования.
type Permission struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"unique;not null"`
	Description string `json:"description"`
	Category    string `json:"category" gorm:"not null"` // Категория для группировки ("Платежи", "Курсы", ...)
}

func (Permission) TableName() string { return "permissions" }

// GetUserPermissions получает все уникальные права доступа пользователя через его роли.
func GetUserPermissions(userID uint) ([]Permission, error) {
	var user User
	db := config.DB

	if err := db.Preload("Roles.Permissions").First(&user, userID).Error; err != nil {
		return nil, err
	}

	permissionMap := make(map[uint]Permission)
	for _, role := range user.Roles {
		for _, permission := range role.Permissions {
			permissionMap[permission.ID] = permission
		}
	}

	permissions := make([]Permission, 0, len(permissionMap))
	for _, permission := range permissionMap {
		permissions = append(permissions, permission)
	}

	return permissions, nil
}
