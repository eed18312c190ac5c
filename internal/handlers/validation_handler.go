// internal/handlers/validation_handler.go
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/FCEB2022/bbs-gestion-escolar/config"
	"github.com/FCEB2022/bbs-gestion-escolar/internal/ledger"
	"github.com/FCEB2022/bbs-gestion-escolar/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetValidationPanelHandler возвращает очереди панели валидации:
// платежи и матрикулы на проверке, курсы на согласовании, просроченные платежи.
func GetValidationPanelHandler(c *gin.Context) {
	var pendingPayments []models.Installment
	config.DB.Preload("Enrollment.Course").
		Where("status = ?", models.InstallmentStatusPendingValidation).
		Order("updated_at").
		Find(&pendingPayments)

	var pendingEnrollments []models.Enrollment
	config.DB.Preload("Course").
		Where("status = ?", models.EnrollmentStatusPendingValidation).
		Order("created_at").
		Find(&pendingEnrollments)

	var pendingCourses []models.Course
	config.DB.Where("status = ?", models.CourseStatusPendingValidation).
		Order("created_at").
		Find(&pendingCourses)

	var overdue []models.Installment
	config.DB.Preload("Enrollment").
		Where("due_date IS NOT NULL AND due_date < ? AND status IN ?",
			today(),
			[]string{models.InstallmentStatusPending, models.InstallmentStatusPendingValidation}).
		Order("due_date").
		Find(&overdue)

	c.JSON(http.StatusOK, gin.H{
		"pendingPayments":    pendingPayments,
		"pendingEnrollments": pendingEnrollments,
		"pendingCourses":     pendingCourses,
		"overduePayments":    overdue,
	})
}

// ValidatePaymentHandler подтверждает платеж и перераспределяет остаток
// долга по оставшимся ожидающим платежам. Обе операции выполняются в
// одной транзакции с блокировкой графика матрикулы.
func ValidatePaymentHandler(c *gin.Context) {
	var installment models.Installment

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&installment, c.Param("installmentId")).Error; err != nil {
			return err
		}

		var enrollment models.Enrollment
		if err := tx.First(&enrollment, installment.EnrollmentID).Error; err != nil {
			return err
		}

		if err := ledger.Validate(&installment); err != nil {
			return err
		}
		if err := tx.Save(&installment).Error; err != nil {
			return err
		}

		return ledger.RedistributePending(tx, enrollment.ID, enrollment.TotalCost)
	})

	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Платеж не найден"})
		return
	default:
		var transition *ledger.TransitionError
		if errors.As(err, &transition) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось валидировать платеж: " + err.Error()})
		return
	}

	models.LogActivity(currentUserID(c), "payment_validated", c.ClientIP(), c.Request.UserAgent(),
		installment.Describe())
	c.JSON(http.StatusOK, gin.H{"message": "Платеж валидирован", "installment": installment})
}

// RejectPaymentHandler отклоняет платеж с обязательной причиной.
// Сумма и место платежа в графике сохраняются для повторной подачи.
// Строка перечитывается под блокировкой: решение по уже валидированному
// параллельной сессией платежу не должно перезаписать терминальный статус.
func RejectPaymentHandler(c *gin.Context) {
	var input rejectInput
	if err := c.ShouldBindJSON(&input); err != nil || strings.TrimSpace(input.Reason) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Укажите причину отклонения"})
		return
	}

	var installment models.Installment
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&installment, c.Param("installmentId")).Error; err != nil {
			return err
		}
		if err := ledger.Reject(&installment, strings.TrimSpace(input.Reason)); err != nil {
			return err
		}
		return tx.Save(&installment).Error
	})

	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Платеж не найден"})
		return
	default:
		var transition *ledger.TransitionError
		var validation *ledger.ValidationError
		if errors.As(err, &transition) || errors.As(err, &validation) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось отклонить платеж"})
		return
	}

	models.LogActivity(currentUserID(c), "payment_rejected", c.ClientIP(), c.Request.UserAgent(),
		installment.Describe())
	c.JSON(http.StatusOK, gin.H{"message": "Платеж отклонен", "installment": installment})
}
