// internal/handlers/expediente_handler.go
package handlers

import (
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/FCEB2022/bbs-gestion-escolar/config"
	"github.com/FCEB2022/bbs-gestion-escolar/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// expedienteRow — строка списка экспедиентов: уникальный студент,
// сгруппированный по документу (отдельной таблицы студентов нет).
type expedienteRow struct {
	IdentityDoc      string    `json:"identityDoc"`
	StudentName      string    `json:"studentName"`
	EnrollmentCount  int64     `json:"enrollmentCount"`
	LatestEnrollment time.Time `json:"latestEnrollment"`
}

// ListExpedientesHandler возвращает экспедиенты: уникальных студентов
// по документу с количеством матрикул и датой последней записи.
func ListExpedientesHandler(c *gin.Context) {
	query := config.DB.Model(&models.Enrollment{}).
		Select("identity_doc, student_name, COUNT(id) AS enrollment_count, MAX(created_at) AS latest_enrollment").
		Where("identity_doc <> ''").
		Group("identity_doc, student_name").
		Order("latest_enrollment DESC")

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(student_name) LIKE ? OR LOWER(identity_doc) LIKE ?", pattern, pattern)
	}

	var rows []expedienteRow
	if err := query.Scan(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить экспедиенты"})
		return
	}
	if rows == nil {
		rows = make([]expedienteRow, 0)
	}

	c.JSON(http.StatusOK, gin.H{"students": rows})
}

// GetExpedienteHandler возвращает академическую историю студента:
// все его матрикулы с предметами и оценками, от новых к старым.
// Личные данные берутся из самой свежей матрикулы.
func GetExpedienteHandler(c *gin.Context) {
	identityDoc := c.Param("identityDoc")

	var enrollments []models.Enrollment
	err := config.DB.
		Preload("Course").
		Preload("Subjects.Module").
		Preload("Subjects.Grades", func(db *gorm.DB) *gorm.DB {
			return db.Order("date")
		}).
		Where("identity_doc = ?", identityDoc).
		Order("created_at DESC").
		Find(&enrollments).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить экспедиент"})
		return
	}
	if len(enrollments) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Экспедиент не найден"})
		return
	}

	latest := enrollments[0]
	history := make([]gin.H, 0, len(enrollments))
	for i := range enrollments {
		history = append(history, gin.H{
			"enrollment":   enrollments[i],
			"course":       enrollments[i].Course,
			"subjects":     enrollments[i].Subjects,
			"averageGrade": averageFinalGrade(enrollments[i].Subjects),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"student": gin.H{
			"name":        latest.StudentName,
			"identityDoc": latest.IdentityDoc,
			"email":       latest.Email,
			"phone":       latest.Phone,
			"address":     latest.Address,
		},
		"history": history,
	})
}

// averageFinalGrade — средний балл по предметам с выставленным итогом.
// Если итогов нет, среднего нет.
func averageFinalGrade(subjects []models.EnrollmentSubject) *float64 {
	sum := 0.0
	n := 0
	for i := range subjects {
		if subjects[i].FinalGrade != nil {
			sum += *subjects[i].FinalGrade
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := math.Round(sum/float64(n)*100) / 100
	return &avg
}
