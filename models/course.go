// models/course.go
package models

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Типы курсов.
const (
	CourseTypeFP        = "FP"        // профессиональное обучение, двухлетний цикл
	CourseTypeIntensive = "INTENSIVO" // краткосрочный интенсив
)

// Статусы жизненного цикла курса.
const (
	CourseStatusDraft             = "BORRADOR"
	CourseStatusPendingValidation = "PENDIENTE_VALIDACION"
	CourseStatusValidated         = "VALIDADO"
	CourseStatusScheduled         = "PROGRAMADO"
	CourseStatusRejected          = "RECHAZADO"
)

// Статусы программирования (расписания) курса.
const (
	ScheduleStatusPending   = "PENDIENTE"
	ScheduleStatusValidated = "VALIDADA"
)

// Course описывает курс из каталога школы.
type Course struct {
	gorm.Model
	Name        string `json:"name" gorm:"not null;index"`
	Type        string `json:"type" gorm:"not null"` // FP | INTENSIVO
	TotalHours  int    `json:"totalHours" gorm:"not null"`
	WeeklyHours int    `json:"weeklyHours" gorm:"not null"`
	Status      string `json:"status" gorm:"not null;default:'BORRADOR'"`
	IsTemplate  bool   `json:"isTemplate" gorm:"not null;default:false"`

	RejectionReason string `json:"rejectionReason"`

	// Базовая стоимость обучения и необязательная формула цены.
	// Формула вычисляется через govaluate с параметрами "Сумма" и "Скидка"
	// при создании матрикулы, если стоимость не указана явно.
	BaseCost     decimal.Decimal `json:"baseCost" gorm:"type:numeric(12,2)"`
	PriceFormula string          `json:"priceFormula"`

	CreatedByID uint  `json:"createdById" gorm:"index"`
	CreatedBy   *User `json:"createdBy,omitempty" gorm:"foreignKey:CreatedByID"`

	Modules  []CourseModule  `json:"modules,omitempty" gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE"`
	Schedule *CourseSchedule `json:"schedule,omitempty" gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE"`
}

func (Course) TableName() string { return "courses" }

func (c *Course) CanEdit() bool {
	return c.Status == CourseStatusDraft || c.Status == CourseStatusValidated
}

func (c *Course) CanValidate() bool {
	return c.Status == CourseStatusDraft || c.Status == CourseStatusPendingValidation
}

func (c *Course) CanSchedule() bool {
	return c.Status == CourseStatusValidated
}

// CourseModule — учебный модуль (предмет) внутри курса.
type CourseModule struct {
	gorm.Model
	CourseID    uint   `json:"courseId" gorm:"index;not null"`
	Name        string `json:"name" gorm:"not null"`
	ModuleHours int    `json:"moduleHours" gorm:"not null"`
	TeacherName string `json:"teacherName"`
	Syllabus    string `json:"syllabus"`

	// Только для FP:
	FPYear     *int `json:"fpYear"`     // 1 | 2
	FPSemester *int `json:"fpSemester"` // 1 | 2
}

func (CourseModule) TableName() string { return "course_modules" }

// CourseSchedule — программирование курса: учебные годы для FP
// или конкретные даты для интенсива.
type CourseSchedule struct {
	gorm.Model
	CourseID uint   `json:"courseId" gorm:"index;not null"`
	Type     string `json:"type" gorm:"not null"` // кэш типа курса

	// FP
	SchoolYearStart string `json:"schoolYearStart"` // "YYYY-YYYY"
	SchoolYearEnd   string `json:"schoolYearEnd"`

	// Интенсив
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`

	Status string `json:"status" gorm:"not null;default:'PENDIENTE'"`
}

func (CourseSchedule) TableName() string { return "course_schedules" }

// IntensiveEndDate вычисляет дату окончания интенсива:
// недели = ceil(часы всего / часы в неделю), минимум одна неделя.
func IntensiveEndDate(startDate time.Time, totalHours, weeklyHours int) time.Time {
	if weeklyHours < 1 {
		weeklyHours = 1
	}
	weeks := int(math.Ceil(float64(totalHours) / float64(weeklyHours)))
	if weeks < 1 {
		weeks = 1
	}
	return startDate.AddDate(0, 0, weeks*7)
}
