// internal/handlers/grade_handler.go
package handlers

import (
	"net/http"
	"time"

	"github.com/FCEB2022/bbs-gestion-escolar/config"
	"github.com/FCEB2022/bbs-gestion-escolar/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type gradeInput struct {
	Type  string  `json:"type" binding:"required,oneof=ORDINARIO PARCIAL FINAL RECUPERACION"`
	Value float64 `json:"value" binding:"min=0,max=10"`
	Date  string  `json:"date"`
	Note  string  `json:"note"`
}

// ListSubjectGradesHandler возвращает предмет матрикулы со всеми оценками.
func ListSubjectGradesHandler(c *gin.Context) {
	var subject models.EnrollmentSubject
	err := config.DB.Preload("Module").Preload("Grades", func(db *gorm.DB) *gorm.DB {
		return db.Order("date")
	}).First(&subject, c.Param("subjectId")).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Предмет не найден"})
		return
	}
	c.JSON(http.StatusOK, subject)
}

// AddGradeHandler добавляет оценку и пересчитывает итог по предмету.
// FINAL и RECUPERACION допускаются не больше одной на предмет.
func AddGradeHandler(c *gin.Context) {
	var subject models.EnrollmentSubject
	if err := config.DB.Preload("Grades").First(&subject, c.Param("subjectId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Предмет не найден"})
		return
	}

	var input gradeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверные данные оценки: " + err.Error()})
		return
	}

	if input.Type == models.GradeTypeFinal || input.Type == models.GradeTypeRetake {
		for _, g := range subject.Grades {
			if g.Type == input.Type {
				c.JSON(http.StatusConflict, gin.H{"error": "Оценка типа " + input.Type + " уже выставлена"})
				return
			}
		}
	}

	gradeDate := time.Now().UTC()
	if input.Date != "" {
		if parsed, err := parseDate(input.Date); err == nil {
			gradeDate = parsed
		}
	}

	entry := models.GradeEntry{
		SubjectID: subject.ID,
		Type:      input.Type,
		Value:     input.Value,
		Date:      gradeDate,
		Note:      input.Note,
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		subject.Grades = append(subject.Grades, entry)
		subject.ComputeFinalGrade()
		return tx.Model(&subject).Updates(map[string]interface{}{
			"final_grade": subject.FinalGrade,
			"result":      subject.Result,
		}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось сохранить оценку"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"grade": entry, "finalGrade": subject.FinalGrade, "result": subject.Result})
}

// DeleteGradeHandler удаляет оценку и пересчитывает итог по предмету.
func DeleteGradeHandler(c *gin.Context) {
	var entry models.GradeEntry
	if err := config.DB.First(&entry, c.Param("gradeId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Оценка не найдена"})
		return
	}
	if entry.SubjectID != paramUint(c, "subjectId") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Оценка не найдена"})
		return
	}

	var subject models.EnrollmentSubject
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Delete(&entry).Error; err != nil {
			return err
		}
		if err := tx.Preload("Grades").First(&subject, entry.SubjectID).Error; err != nil {
			return err
		}
		if len(subject.Grades) == 0 {
			return tx.Model(&subject).Updates(map[string]interface{}{
				"final_grade": nil,
				"result":      "",
			}).Error
		}
		subject.ComputeFinalGrade()
		return tx.Model(&subject).Updates(map[string]interface{}{
			"final_grade": subject.FinalGrade,
			"result":      subject.Result,
		}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось удалить оценку"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Оценка удалена", "finalGrade": subject.FinalGrade, "result": subject.Result})
}
