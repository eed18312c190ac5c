// internal/handlers/payment_handler.go
package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/FCEB2022/bbs-gestion-escolar/config"
	"github.com/FCEB2022/bbs-gestion-escolar/internal/ledger"
	"github.com/FCEB2022/bbs-gestion-escolar/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func receiptUploadDir() string {
	return filepath.Join("static", "uploads", "pagos")
}

// GetPaymentAccountHandler возвращает лицевой счет матрикулы: график
// платежей и сводку по балансу.
func GetPaymentAccountHandler(c *gin.Context) {
	var enrollment models.Enrollment
	err := config.DB.
		Preload("Course").
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("installment_index")
		}).
		First(&enrollment, c.Param("id")).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Матрикула не найдена"})
		return
	}

	paid := ledger.PaidAmount(enrollment.Installments)
	owed := enrollment.TotalCost.Sub(paid)
	progress := decimal.Zero
	if enrollment.TotalCost.IsPositive() {
		progress = paid.Div(enrollment.TotalCost).Mul(decimal.NewFromInt(100)).Round(1)
	}

	validatedCount := 0
	overdueCount := 0
	now := today()
	for _, ins := range enrollment.Installments {
		if ins.Status == models.InstallmentStatusValidated {
			validatedCount++
		}
		if ins.OverdueAt(now) {
			overdueCount++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"enrollment":   enrollment,
		"installments": enrollment.Installments,
		"balance": gin.H{
			"totalCost":         enrollment.TotalCost,
			"paidAmount":        paid,
			"owedAmount":        owed,
			"progressPercent":   progress,
			"validatedCount":    validatedCount,
			"overdueCount":      overdueCount,
			"installmentsTotal": len(enrollment.Installments),
		},
	})
}

// SubmitReceiptHandler принимает квитанцию об оплате платежа и переводит
// его на проверку. Повторная подача после отклонения разрешена: старый
// файл квитанции при этом удаляется. Статус проверяется по строке,
// перечитанной под блокировкой: параллельная валидация не должна быть
// перезаписана устаревшей копией.
func SubmitReceiptHandler(c *gin.Context) {
	receiptPath, err := saveUploadedFile(c, "receipt", receiptUploadDir())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Дата оплаты — всегда дата подачи квитанции.
	paidOn := today()

	var installment models.Installment
	oldReceipt := ""
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&installment, c.Param("installmentId")).Error; err != nil {
			return err
		}
		if installment.EnrollmentID != paramUint(c, "id") {
			return gorm.ErrRecordNotFound
		}

		if installment.ReceiptPath != nil {
			oldReceipt = *installment.ReceiptPath
		}

		if err := ledger.SubmitReceipt(&installment, receiptPath, paidOn); err != nil {
			return err
		}
		return tx.Save(&installment).Error
	})

	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		removeFileIfExists(receiptPath)
		c.JSON(http.StatusNotFound, gin.H{"error": "Платеж не найден"})
		return
	default:
		removeFileIfExists(receiptPath)
		var transition *ledger.TransitionError
		var validation *ledger.ValidationError
		if errors.As(err, &transition) || errors.As(err, &validation) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось сохранить платеж"})
		return
	}

	if oldReceipt != "" && oldReceipt != receiptPath {
		removeFileIfExists(oldReceipt)
	}

	models.LogActivity(currentUserID(c), "payment_submitted", c.ClientIP(), c.Request.UserAgent(),
		installment.Describe())
	c.JSON(http.StatusOK, installment)
}

// DownloadReceiptHandler отдает файл квитанции платежа.
func DownloadReceiptHandler(c *gin.Context) {
	var installment models.Installment
	if err := config.DB.First(&installment, c.Param("installmentId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Платеж не найден"})
		return
	}
	if installment.EnrollmentID != paramUint(c, "id") || !installment.HasReceipt() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Квитанция не найдена"})
		return
	}
	path := *installment.ReceiptPath
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Файл квитанции отсутствует на диске"})
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}
