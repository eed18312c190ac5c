// internal/handlers/course_handler.go
package handlers

import (
	"net/http"
	"strings"

	"github.com/FCEB2022/bbs-gestion-escolar/config"
	"github.com/FCEB2022/bbs-gestion-escolar/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type courseModuleInput struct {
	Name        string `json:"name" binding:"required"`
	ModuleHours int    `json:"moduleHours" binding:"required"`
	TeacherName string `json:"teacherName"`
	Syllabus    string `json:"syllabus"`
	FPYear      *int   `json:"fpYear"`
	FPSemester  *int   `json:"fpSemester"`
}

type courseInput struct {
	Name         string              `json:"name" binding:"required"`
	Type         string              `json:"type" binding:"required"`
	TotalHours   int                 `json:"totalHours" binding:"required"`
	WeeklyHours  int                 `json:"weeklyHours" binding:"required"`
	IsTemplate   bool                `json:"isTemplate"`
	BaseCost     decimal.Decimal     `json:"baseCost"`
	PriceFormula string              `json:"priceFormula"`
	Modules      []courseModuleInput `json:"modules"`
}

// ListCoursesHandler возвращает курсы с модулями и расписанием.
func ListCoursesHandler(c *gin.Context) {
	var courses []models.Course
	query := config.DB.Preload("Modules").Preload("Schedule").Order("name")

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if courseType := c.Query("type"); courseType != "" {
		query = query.Where("type = ?", courseType)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var totalRows int64
	query.Model(&models.Course{}).Count(&totalRows)

	if err := query.Scopes(Paginate(c)).Find(&courses).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить курсы"})
		return
	}
	if courses == nil {
		courses = make([]models.Course, 0)
	}

	c.JSON(http.StatusOK, CreatePaginatedResponse(c, courses, totalRows))
}

// GetCourseHandler возвращает один курс.
func GetCourseHandler(c *gin.Context) {
	var course models.Course
	if err := config.DB.Preload("Modules").Preload("Schedule").Preload("CreatedBy").
		First(&course, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Курс не найден"})
		return
	}
	c.JSON(http.StatusOK, course)
}

// CreateCourseHandler создает курс в статусе BORRADOR вместе с модулями.
func CreateCourseHandler(c *gin.Context) {
	var input courseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Type != models.CourseTypeFP && input.Type != models.CourseTypeIntensive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Тип курса должен быть FP или INTENSIVO"})
		return
	}

	course := models.Course{
		Name:         input.Name,
		Type:         input.Type,
		TotalHours:   input.TotalHours,
		WeeklyHours:  input.WeeklyHours,
		Status:       models.CourseStatusDraft,
		IsTemplate:   input.IsTemplate,
		BaseCost:     input.BaseCost,
		PriceFormula: input.PriceFormula,
		CreatedByID:  currentUserID(c),
	}
	for _, m := range input.Modules {
		course.Modules = append(course.Modules, models.CourseModule{
			Name:        m.Name,
			ModuleHours: m.ModuleHours,
			TeacherName: m.TeacherName,
			Syllabus:    m.Syllabus,
			FPYear:      m.FPYear,
			FPSemester:  m.FPSemester,
		})
	}

	if err := config.DB.Create(&course).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось создать курс"})
		return
	}
	c.JSON(http.StatusCreated, course)
}

// UpdateCourseHandler обновляет курс и пересоздает его модули.
func UpdateCourseHandler(c *gin.Context) {
	var course models.Course
	if err := config.DB.First(&course, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Курс не найден"})
		return
	}
	if !course.CanEdit() {
		c.JSON(http.StatusConflict, gin.H{"error": "Курс в текущем статусе редактировать нельзя"})
		return
	}

	var input courseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	course.Name = input.Name
	course.TotalHours = input.TotalHours
	course.WeeklyHours = input.WeeklyHours
	course.IsTemplate = input.IsTemplate
	course.BaseCost = input.BaseCost
	course.PriceFormula = input.PriceFormula

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&course).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", course.ID).Delete(&models.CourseModule{}).Error; err != nil {
			return err
		}
		for _, m := range input.Modules {
			module := models.CourseModule{
				CourseID:    course.ID,
				Name:        m.Name,
				ModuleHours: m.ModuleHours,
				TeacherName: m.TeacherName,
				Syllabus:    m.Syllabus,
				FPYear:      m.FPYear,
				FPSemester:  m.FPSemester,
			}
			if err := tx.Create(&module).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось обновить курс"})
		return
	}
	c.JSON(http.StatusOK, course)
}

// DeleteCourseHandler удаляет курс.
func DeleteCourseHandler(c *gin.Context) {
	if result := config.DB.Delete(&models.Course{}, c.Param("id")); result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось удалить курс"})
	} else if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Курс не найден"})
	} else {
		c.JSON(http.StatusOK, gin.H{"message": "Курс удален"})
	}
}

type courseScheduleInput struct {
	SchoolYearStart string `json:"schoolYearStart"`
	SchoolYearEnd   string `json:"schoolYearEnd"`
	StartDate       string `json:"startDate"`
}

// ScheduleCourseHandler назначает программирование курса.
// Для интенсива дата окончания вычисляется из часов курса.
func ScheduleCourseHandler(c *gin.Context) {
	var course models.Course
	if err := config.DB.First(&course, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Курс не найден"})
		return
	}
	if !course.CanSchedule() {
		c.JSON(http.StatusConflict, gin.H{"error": "Программировать можно только валидированный курс"})
		return
	}

	var input courseScheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schedule := models.CourseSchedule{
		CourseID: course.ID,
		Type:     course.Type,
		Status:   models.ScheduleStatusPending,
	}

	switch course.Type {
	case models.CourseTypeFP:
		if input.SchoolYearStart == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Для курса FP укажите учебный год"})
			return
		}
		schedule.SchoolYearStart = input.SchoolYearStart
		schedule.SchoolYearEnd = input.SchoolYearEnd
	case models.CourseTypeIntensive:
		start, err := parseDate(input.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты начала. Используйте YYYY-MM-DD."})
			return
		}
		end := models.IntensiveEndDate(start, course.TotalHours, course.WeeklyHours)
		schedule.StartDate = &start
		schedule.EndDate = &end
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		// Старое программирование заменяется целиком.
		if err := tx.Where("course_id = ?", course.ID).Delete(&models.CourseSchedule{}).Error; err != nil {
			return err
		}
		if err := tx.Create(&schedule).Error; err != nil {
			return err
		}
		return tx.Model(&course).Update("status", models.CourseStatusScheduled).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось сохранить программирование"})
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// ValidateCourseHandler переводит курс в статус VALIDADO.
func ValidateCourseHandler(c *gin.Context) {
	var course models.Course
	if err := config.DB.First(&course, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Курс не найден"})
		return
	}
	if !course.CanValidate() {
		c.JSON(http.StatusConflict, gin.H{"error": "Курс не в статусе, допускающем валидацию"})
		return
	}

	updates := map[string]interface{}{"status": models.CourseStatusValidated, "rejection_reason": ""}
	if err := config.DB.Model(&course).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось валидировать курс"})
		return
	}

	models.LogActivity(currentUserID(c), "course_validated", c.ClientIP(), c.Request.UserAgent(), course.Name)
	c.JSON(http.StatusOK, gin.H{"message": "Курс валидирован"})
}

type rejectInput struct {
	Reason string `json:"reason" binding:"required"`
}

// RejectCourseHandler отклоняет курс с указанием причины.
func RejectCourseHandler(c *gin.Context) {
	var course models.Course
	if err := config.DB.First(&course, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Курс не найден"})
		return
	}

	var input rejectInput
	if err := c.ShouldBindJSON(&input); err != nil || strings.TrimSpace(input.Reason) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Укажите причину отклонения"})
		return
	}

	updates := map[string]interface{}{
		"status":           models.CourseStatusRejected,
		"rejection_reason": strings.TrimSpace(input.Reason),
	}
	if err := config.DB.Model(&course).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось отклонить курс"})
		return
	}

	models.LogActivity(currentUserID(c), "course_rejected", c.ClientIP(), c.Request.UserAgent(), course.Name)
	c.JSON(http.StatusOK, gin.H{"message": "Курс отклонен"})
}
