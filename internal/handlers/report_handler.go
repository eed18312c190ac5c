// internal/handlers/report_handler.go
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/FCEB2022/bbs-gestion-escolar/config"
	"github.com/FCEB2022/bbs-gestion-escolar/internal/ledger"
	"github.com/FCEB2022/bbs-gestion-escolar/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// GetDashboardStatsHandler возвращает сводную статистику для панели:
// матрикулы по статусам и кампусам, собранные и ожидаемые суммы, просрочка.
func GetDashboardStatsHandler(c *gin.Context) {
	var totalEnrollments, pendingEnrollments, validatedEnrollments int64
	config.DB.Model(&models.Enrollment{}).Count(&totalEnrollments)
	config.DB.Model(&models.Enrollment{}).
		Where("status = ?", models.EnrollmentStatusPendingValidation).Count(&pendingEnrollments)
	config.DB.Model(&models.Enrollment{}).
		Where("status = ?", models.EnrollmentStatusValidated).Count(&validatedEnrollments)

	byCampus := map[string]int64{}
	for _, campus := range []string{models.CampusBata, models.CampusMalabo} {
		var n int64
		config.DB.Model(&models.Enrollment{}).Where("campus = ?", campus).Count(&n)
		byCampus[campus] = n
	}

	var byCourse []struct {
		CourseID   uint   `json:"courseId"`
		CourseName string `json:"courseName"`
		Count      int64  `json:"count"`
	}
	config.DB.Model(&models.Enrollment{}).
		Select("enrollments.course_id, courses.name AS course_name, COUNT(*) AS count").
		Joins("JOIN courses ON courses.id = enrollments.course_id").
		Group("enrollments.course_id, courses.name").
		Order("count DESC").
		Scan(&byCourse)

	// Суммы считаем через decimal по выбранным строкам, а не через SUM:
	// числовые типы БД не должны проходить через float64.
	var validatedInstallments []models.Installment
	config.DB.Where("status = ?", models.InstallmentStatusValidated).Find(&validatedInstallments)
	collected := ledger.PaidAmount(validatedInstallments)

	var pendingInstallments []models.Installment
	config.DB.Where("status IN ?",
		[]string{models.InstallmentStatusPending, models.InstallmentStatusPendingValidation}).
		Find(&pendingInstallments)
	expected := decimal.Zero
	for _, ins := range pendingInstallments {
		expected = expected.Add(ins.Amount)
	}

	var overdueCount int64
	config.DB.Model(&models.Installment{}).
		Where("due_date IS NOT NULL AND due_date < ? AND status IN ?",
			today(),
			[]string{models.InstallmentStatusPending, models.InstallmentStatusPendingValidation}).
		Count(&overdueCount)

	var pendingPayments int64
	config.DB.Model(&models.Installment{}).
		Where("status = ?", models.InstallmentStatusPendingValidation).Count(&pendingPayments)

	c.JSON(http.StatusOK, gin.H{
		"enrollments": gin.H{
			"total":     totalEnrollments,
			"pending":   pendingEnrollments,
			"validated": validatedEnrollments,
			"byCampus":  byCampus,
			"byCourse":  byCourse,
		},
		"payments": gin.H{
			"collectedAmount":   collected,
			"expectedAmount":    expected,
			"pendingValidation": pendingPayments,
			"overdueCount":      overdueCount,
		},
	})
}

// ExportPaymentsReportHandler выгружает график платежей в Excel.
// Фильтры status и campus совпадают с фильтрами списка матрикул.
func ExportPaymentsReportHandler(c *gin.Context) {
	query := config.DB.Preload("Enrollment.Course").
		Joins("JOIN enrollments ON enrollments.id = installments.enrollment_id").
		Order("installments.enrollment_id, installments.installment_index")

	if status := c.Query("status"); status != "" {
		query = query.Where("installments.status = ?", status)
	}
	if campus := c.Query("campus"); campus != "" {
		query = query.Where("enrollments.campus = ?", campus)
	}

	var installments []models.Installment
	if err := query.Find(&installments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось собрать данные отчета"})
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Pagos"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Матрикула", "Студент", "Курс", "Кампус", "№ платежа",
		"Сумма", "Статус", "Срок оплаты", "Дата оплаты"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	f.SetCellStyle(sheet, "A1", "I1", headerStyle)

	for row, ins := range installments {
		values := []interface{}{
			ins.EnrollmentID,
			"",
			"",
			"",
			ins.Index,
			ins.Amount.InexactFloat64(),
			ins.Status,
			formatOptionalDate(ins.DueDate),
			formatOptionalDate(ins.PaidDate),
		}
		if ins.Enrollment != nil {
			values[1] = ins.Enrollment.StudentName
			values[3] = ins.Enrollment.Campus
			if ins.Enrollment.Course != nil {
				values[2] = ins.Enrollment.Course.Name
			}
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	f.SetColWidth(sheet, "B", "C", 30)
	f.SetColWidth(sheet, "F", "I", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось сформировать файл отчета"})
		return
	}

	filename := fmt.Sprintf("pagos_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
