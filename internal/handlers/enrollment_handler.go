// internal/handlers/enrollment_handler.go
package handlers

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/FCEB2022/bbs-gestion-escolar/config"
	"github.com/FCEB2022/bbs-gestion-escolar/internal/ledger"
	"github.com/FCEB2022/bbs-gestion-escolar/models"

	"github.com/Knetic/govaluate"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// enrollmentUploadDir — каталог документов матрикул.
func enrollmentUploadDir() string {
	return filepath.Join("static", "uploads", "matriculas")
}

// ListEnrollmentsHandler возвращает матрикулы с фильтрами по строке поиска,
// статусу и кампусу.
func ListEnrollmentsHandler(c *gin.Context) {
	var enrollments []models.Enrollment
	query := config.DB.Preload("Course").Order("created_at desc")

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(student_name) LIKE ? OR LOWER(identity_doc) LIKE ?", pattern, pattern)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if campus := c.Query("campus"); campus != "" {
		query = query.Where("campus = ?", campus)
	}
	if courseID := c.Query("course_id"); courseID != "" {
		query = query.Where("course_id = ?", courseID)
	}

	var totalRows int64
	query.Model(&models.Enrollment{}).Count(&totalRows)

	if err := query.Scopes(Paginate(c)).Find(&enrollments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить матрикулы"})
		return
	}
	if enrollments == nil {
		enrollments = make([]models.Enrollment, 0)
	}

	c.JSON(http.StatusOK, CreatePaginatedResponse(c, enrollments, totalRows))
}

// GetEnrollmentHandler возвращает матрикулу с документами, предметами и графиком.
func GetEnrollmentHandler(c *gin.Context) {
	var enrollment models.Enrollment
	err := config.DB.
		Preload("Course.Modules").
		Preload("Documents").
		Preload("Subjects.Module").
		Preload("Subjects.Grades").
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("installment_index")
		}).
		First(&enrollment, c.Param("id")).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Матрикула не найдена"})
		return
	}
	c.JSON(http.StatusOK, enrollment)
}

// enrollmentForm — общие поля multipart-формы создания и редактирования.
type enrollmentForm struct {
	courseID         uint
	studentName      string
	identityDoc      string
	phone            string
	email            string
	address          string
	campus           string
	fpYear           string
	totalCost        decimal.Decimal
	initialAmount    decimal.Decimal
	installmentCount int
}

func parseEnrollmentForm(c *gin.Context, course *models.Course) (*enrollmentForm, error) {
	f := &enrollmentForm{
		studentName: strings.TrimSpace(c.PostForm("studentName")),
		identityDoc: strings.TrimSpace(c.PostForm("identityDoc")),
		phone:       strings.TrimSpace(c.PostForm("phone")),
		email:       strings.TrimSpace(c.PostForm("email")),
		address:     strings.TrimSpace(c.PostForm("address")),
		campus:      c.PostForm("campus"),
		fpYear:      c.PostForm("fpYear"),
	}
	if f.studentName == "" {
		return nil, fmt.Errorf("укажите имя студента")
	}
	if f.campus != models.CampusBata && f.campus != models.CampusMalabo {
		return nil, fmt.Errorf("кампус должен быть BATA или MALABO")
	}

	count, err := strconv.Atoi(c.DefaultPostForm("installmentCount", "1"))
	if err != nil || count < 1 {
		return nil, fmt.Errorf("количество платежей должно быть целым числом не меньше 1")
	}
	f.installmentCount = count

	f.initialAmount, err = decimal.NewFromString(c.DefaultPostForm("initialAmount", "0"))
	if err != nil {
		return nil, fmt.Errorf("неверный формат начального взноса")
	}

	// Стоимость: явное значение из формы, иначе формула цены курса,
	// иначе базовая стоимость курса.
	if raw := c.PostForm("totalCost"); raw != "" {
		f.totalCost, err = decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("неверный формат общей стоимости")
		}
	} else {
		f.totalCost, err = resolveCoursePrice(course)
		if err != nil {
			return nil, err
		}
	}

	return f, nil
}

// resolveCoursePrice вычисляет стоимость обучения по формуле курса.
// Формула получает параметр "Сумма" (базовая стоимость).
func resolveCoursePrice(course *models.Course) (decimal.Decimal, error) {
	if course.PriceFormula == "" {
		return course.BaseCost, nil
	}

	expr, err := govaluate.NewEvaluableExpression(course.PriceFormula)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ошибка в формуле цены курса: %s", course.PriceFormula)
	}

	base, _ := course.BaseCost.Float64()
	parameters := map[string]interface{}{
		"Сумма": base,
	}
	result, err := expr.Evaluate(parameters)
	if err != nil {
		return decimal.Zero, fmt.Errorf("не удалось вычислить формулу цены: %s", course.PriceFormula)
	}
	value, ok := result.(float64)
	if !ok {
		return decimal.Zero, fmt.Errorf("результат формулы цены не является числом")
	}
	return decimal.NewFromFloat(value).Round(2), nil
}

// CreateEnrollmentHandler создает матрикулу: запись, документы, предметы FP
// и полный график платежей — одной транзакцией.
func CreateEnrollmentHandler(c *gin.Context) {
	var course models.Course
	if err := config.DB.Preload("Modules").First(&course, c.PostForm("courseId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Курс не найден"})
		return
	}

	form, err := parseEnrollmentForm(c, &course)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	enrollment := models.Enrollment{
		CourseID:         course.ID,
		StudentName:      form.studentName,
		IdentityDoc:      form.identityDoc,
		Phone:            form.phone,
		Email:            form.email,
		Address:          form.address,
		Campus:           form.campus,
		FPYear:           form.fpYear,
		Status:           models.EnrollmentStatusPendingValidation,
		TotalCost:        form.totalCost,
		InitialAmount:    form.initialAmount,
		InstallmentCount: form.installmentCount,
		CreatedByID:      currentUserID(c),
	}

	// Проверяем финансовые условия до записи чего-либо в БД.
	if _, err := ledger.CreateSchedule(0, form.totalCost, form.initialAmount, form.installmentCount, time.Now().UTC()); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Документы сохраняем на диск до транзакции; пути попадут в БД внутри нее.
	recordPath, err := saveOptionalFile(c, "academicRecord", enrollmentUploadDir())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	invoicePath, err := saveOptionalFile(c, "firstPaymentInvoice", enrollmentUploadDir())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&enrollment).Error; err != nil {
			return err
		}

		if err := attachEnrollmentDocs(tx, &enrollment, recordPath, invoicePath, c); err != nil {
			return err
		}

		// Для FP автоматически назначаются модули выбранного года.
		if course.Type == models.CourseTypeFP {
			if err := assignFPModules(tx, &enrollment, &course); err != nil {
				return err
			}
		}

		return installSchedule(tx, &enrollment, invoicePath)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось создать матрикулу: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, enrollment)
}

// attachEnrollmentDocs создает записи документов для сохраненных файлов.
func attachEnrollmentDocs(tx *gorm.DB, enrollment *models.Enrollment, recordPath, invoicePath string, c *gin.Context) error {
	if recordPath != "" {
		file, _ := c.FormFile("academicRecord")
		doc := models.EnrollmentDocument{
			EnrollmentID: enrollment.ID,
			Type:         models.EnrollmentDocAcademicRecord,
			Filename:     file.Filename,
			Path:         recordPath,
		}
		if err := tx.Create(&doc).Error; err != nil {
			return err
		}
	}
	if invoicePath != "" {
		file, _ := c.FormFile("firstPaymentInvoice")
		doc := models.EnrollmentDocument{
			EnrollmentID: enrollment.ID,
			Type:         models.EnrollmentDocFirstPaymentInvoice,
			Filename:     file.Filename,
			Path:         invoicePath,
		}
		if err := tx.Create(&doc).Error; err != nil {
			return err
		}
	}
	return nil
}

func assignFPModules(tx *gorm.DB, enrollment *models.Enrollment, course *models.Course) error {
	wantYear := 1
	if enrollment.FPYear == models.FPSecondYear {
		wantYear = 2
	}
	for _, module := range course.Modules {
		if module.FPYear == nil || *module.FPYear != wantYear {
			continue
		}
		subject := models.EnrollmentSubject{
			EnrollmentID: enrollment.ID,
			ModuleID:     module.ID,
		}
		if err := tx.Create(&subject).Error; err != nil {
			return err
		}
	}
	return nil
}

// installSchedule заменяет график платежей матрикулы: старый набор
// удаляется, новый устанавливается атомарно. Начальный взнос сразу
// получает квитанцию (счет первого платежа), если она загружена.
func installSchedule(tx *gorm.DB, enrollment *models.Enrollment, invoicePath string) error {
	if err := tx.Unscoped().Where("enrollment_id = ?", enrollment.ID).
		Delete(&models.Installment{}).Error; err != nil {
		return err
	}

	schedule, err := ledger.CreateSchedule(
		enrollment.ID,
		enrollment.TotalCost,
		enrollment.InitialAmount,
		enrollment.InstallmentCount,
		enrollment.CreatedAt,
	)
	if err != nil {
		return err
	}

	if invoicePath != "" {
		now := today()
		schedule[0].ReceiptPath = &invoicePath
		schedule[0].PaidDate = &now
	}

	return tx.Create(&schedule).Error
}

// UpdateEnrollmentHandler редактирует матрикулу. Финансовые изменения
// приводят к полной замене графика платежей.
func UpdateEnrollmentHandler(c *gin.Context) {
	var enrollment models.Enrollment
	if err := config.DB.Preload("Course").First(&enrollment, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Матрикула не найдена"})
		return
	}
	if !enrollment.CanEdit() {
		c.JSON(http.StatusConflict, gin.H{"error": "Матрикулу в текущем статусе редактировать нельзя"})
		return
	}

	form, err := parseEnrollmentForm(c, enrollment.Course)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	enrollment.StudentName = form.studentName
	enrollment.IdentityDoc = form.identityDoc
	enrollment.Phone = form.phone
	enrollment.Email = form.email
	enrollment.Address = form.address
	enrollment.Campus = form.campus
	enrollment.FPYear = form.fpYear
	enrollment.TotalCost = form.totalCost
	enrollment.InitialAmount = form.initialAmount
	enrollment.InstallmentCount = form.installmentCount

	// Отредактированная после отклонения матрикула возвращается на проверку.
	if enrollment.Status == models.EnrollmentStatusRejected {
		enrollment.Status = models.EnrollmentStatusPendingValidation
		enrollment.RejectionReason = ""
	}

	invoicePath, err := saveOptionalFile(c, "firstPaymentInvoice", enrollmentUploadDir())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&enrollment).Error; err != nil {
			return err
		}
		if invoicePath != "" {
			if err := attachEnrollmentDocs(tx, &enrollment, "", invoicePath, c); err != nil {
				return err
			}
		}
		return installSchedule(tx, &enrollment, invoicePath)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось обновить матрикулу: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, enrollment)
}

// DeleteEnrollmentHandler удаляет матрикулу вместе с графиком и документами.
func DeleteEnrollmentHandler(c *gin.Context) {
	if result := config.DB.Select("Documents", "Subjects", "Installments").
		Delete(&models.Enrollment{Model: gorm.Model{ID: paramUint(c, "id")}}); result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось удалить матрикулу"})
	} else if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Матрикула не найдена"})
	} else {
		c.JSON(http.StatusOK, gin.H{"message": "Матрикула удалена"})
	}
}

func paramUint(c *gin.Context, name string) uint {
	id, _ := strconv.ParseUint(c.Param(name), 10, 64)
	return uint(id)
}

// ValidateEnrollmentHandler подтверждает матрикулу.
func ValidateEnrollmentHandler(c *gin.Context) {
	var enrollment models.Enrollment
	if err := config.DB.First(&enrollment, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Матрикула не найдена"})
		return
	}

	updates := map[string]interface{}{
		"status":           models.EnrollmentStatusValidated,
		"rejection_reason": "",
	}
	if err := config.DB.Model(&enrollment).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось валидировать матрикулу"})
		return
	}

	models.LogActivity(currentUserID(c), "enrollment_validated", c.ClientIP(), c.Request.UserAgent(), enrollment.StudentName)
	c.JSON(http.StatusOK, gin.H{"message": "Матрикула валидирована"})
}

// RejectEnrollmentHandler отклоняет матрикулу с указанием причины.
func RejectEnrollmentHandler(c *gin.Context) {
	var enrollment models.Enrollment
	if err := config.DB.First(&enrollment, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Матрикула не найдена"})
		return
	}

	var input rejectInput
	if err := c.ShouldBindJSON(&input); err != nil || strings.TrimSpace(input.Reason) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Укажите причину отклонения"})
		return
	}

	updates := map[string]interface{}{
		"status":           models.EnrollmentStatusRejected,
		"rejection_reason": strings.TrimSpace(input.Reason),
	}
	if err := config.DB.Model(&enrollment).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось отклонить матрикулу"})
		return
	}

	models.LogActivity(currentUserID(c), "enrollment_rejected", c.ClientIP(), c.Request.UserAgent(), enrollment.StudentName)
	c.JSON(http.StatusOK, gin.H{"message": "Матрикула отклонена"})
}

// DownloadEnrollmentDocumentHandler отдает один документ матрикулы.
func DownloadEnrollmentDocumentHandler(c *gin.Context) {
	var doc models.EnrollmentDocument
	if err := config.DB.First(&doc, c.Param("docId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Документ не найден"})
		return
	}
	if doc.EnrollmentID != paramUint(c, "id") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Документ не найден"})
		return
	}
	if _, err := os.Stat(doc.Path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Файл документа отсутствует на диске"})
		return
	}
	c.FileAttachment(doc.Path, doc.Filename)
}

// DownloadEnrollmentArchiveHandler собирает все документы матрикулы в ZIP.
func DownloadEnrollmentArchiveHandler(c *gin.Context) {
	var enrollment models.Enrollment
	if err := config.DB.Preload("Documents").First(&enrollment, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Матрикула не найдена"})
		return
	}

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, doc := range enrollment.Documents {
		f, err := os.Open(doc.Path)
		if err != nil {
			continue
		}
		w, err := zw.Create(doc.Filename)
		if err == nil {
			_, _ = io.Copy(w, f)
		}
		f.Close()
	}
	if err := zw.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось собрать архив"})
		return
	}

	filename := fmt.Sprintf("matricula_%d_%s.zip", enrollment.ID,
		strings.ReplaceAll(enrollment.StudentName, " ", "_"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}
