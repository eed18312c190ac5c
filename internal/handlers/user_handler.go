// internal/handlers/user_handler.go
package handlers

import (
	"net/http"
	"strings"

	"github.com/FCEB2022/bbs-gestion-escolar/config"
	"github.com/FCEB2022/bbs-gestion-escolar/internal/middleware"
	"github.com/FCEB2022/bbs-gestion-escolar/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListUsersHandler возвращает пользователей с ролями, с фильтром по строке поиска.
func ListUsersHandler(c *gin.Context) {
	var users []models.User
	query := config.DB.Preload("Roles").Order("full_name")

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(login) LIKE ? OR LOWER(full_name) LIKE ?", pattern, pattern)
	}

	var totalRows int64
	query.Model(&models.User{}).Count(&totalRows)

	if err := query.Scopes(Paginate(c)).Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить пользователей"})
		return
	}
	if users == nil {
		users = make([]models.User, 0)
	}

	c.JSON(http.StatusOK, CreatePaginatedResponse(c, users, totalRows))
}

// GetUserHandler возвращает одного пользователя.
func GetUserHandler(c *gin.Context) {
	var user models.User
	if err := config.DB.Preload("Roles.Permissions").First(&user, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Пользователь не найден"})
		return
	}
	c.JSON(http.StatusOK, user)
}

type updateUserInput struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	IsActive *bool  `json:"isActive"`
	RoleIDs  []uint `json:"roleIds"`
}

// UpdateUserHandler обновляет данные и роли пользователя.
func UpdateUserHandler(c *gin.Context) {
	var user models.User
	if err := config.DB.First(&user, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Пользователь не найден"})
		return
	}

	var input updateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.FullName != "" {
		user.FullName = input.FullName
	}
	if input.Email != "" {
		user.Email = input.Email
	}
	if input.IsActive != nil {
		user.IsActive = input.IsActive
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&user).Error; err != nil {
			return err
		}
		if input.RoleIDs != nil {
			var roles []models.Role
			if len(input.RoleIDs) > 0 {
				if err := tx.Where("id IN ?", input.RoleIDs).Find(&roles).Error; err != nil {
					return err
				}
			}
			if err := tx.Model(&user).Association("Roles").Replace(roles); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось обновить пользователя"})
		return
	}

	// Состав ролей изменился — кэшированные права устарели.
	middleware.InvalidateUserCache(user.ID)

	c.JSON(http.StatusOK, user)
}

// ListUserActivityHandler возвращает журнал действий пользователя.
func ListUserActivityHandler(c *gin.Context) {
	var activities []models.UserActivity
	query := config.DB.Where("user_id = ?", c.Param("id")).Order("created_at desc")

	var totalRows int64
	query.Model(&models.UserActivity{}).Count(&totalRows)

	if err := query.Scopes(Paginate(c)).Find(&activities).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить журнал действий"})
		return
	}
	if activities == nil {
		activities = make([]models.UserActivity, 0)
	}

	c.JSON(http.StatusOK, CreatePaginatedResponse(c, activities, totalRows))
}
