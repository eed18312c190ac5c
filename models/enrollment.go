// models/enrollment.go
package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Кампусы школы.
const (
	CampusBata   = "BATA"
	CampusMalabo = "MALABO"
)

// Годы обучения FP.
const (
	FPFirstYear  = "PRIMER_ANO"
	FPSecondYear = "SEGUNDO_ANO"
)

// Статусы матрикулы.
const (
	EnrollmentStatusPendingValidation = "PENDIENTE_VALIDACION"
	EnrollmentStatusValidated         = "VALIDADA"
	EnrollmentStatusRejected          = "RECHAZADA"
)

// Enrollment — матрикула: запись студента на курс с финансовыми условиями.
// График платежей (Installments) живет и умирает вместе с матрикулой.
type Enrollment struct {
	gorm.Model
	CourseID uint    `json:"courseId" gorm:"index;not null"`
	Course   *Course `json:"course,omitempty" gorm:"foreignKey:CourseID"`

	StudentName string `json:"studentName" gorm:"not null"`
	IdentityDoc string `json:"identityDoc" gorm:"index"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Address     string `json:"address"`

	Campus string `json:"campus" gorm:"not null"` // BATA | MALABO
	FPYear string `json:"fpYear"`                 // PRIMER_ANO | SEGUNDO_ANO, только для FP

	Status          string `json:"status" gorm:"not null;default:'PENDIENTE_VALIDACION'"`
	RejectionReason string `json:"rejectionReason"`

	// Финансовые условия. Инвариант: 0 <= InitialAmount <= TotalCost,
	// InstallmentCount >= 1. Проверяется в internal/ledger при построении графика.
	TotalCost        decimal.Decimal `json:"totalCost" gorm:"type:numeric(12,2);not null"`
	InitialAmount    decimal.Decimal `json:"initialAmount" gorm:"type:numeric(12,2);not null"`
	InstallmentCount int             `json:"installmentCount" gorm:"not null;default:1"`

	CreatedByID uint  `json:"createdById" gorm:"index"`
	CreatedBy   *User `json:"createdBy,omitempty" gorm:"foreignKey:CreatedByID"`

	Documents    []EnrollmentDocument `json:"documents,omitempty" gorm:"foreignKey:EnrollmentID;constraint:OnDelete:CASCADE"`
	Subjects     []EnrollmentSubject  `json:"subjects,omitempty" gorm:"foreignKey:EnrollmentID;constraint:OnDelete:CASCADE"`
	Installments []Installment        `json:"installments,omitempty" gorm:"foreignKey:EnrollmentID;constraint:OnDelete:CASCADE"`
}

func (Enrollment) TableName() string { return "enrollments" }

// CanEdit: редактировать можно только непроведенные или отклоненные матрикулы.
func (e *Enrollment) CanEdit() bool {
	return e.Status == EnrollmentStatusPendingValidation || e.Status == EnrollmentStatusRejected
}

// Типы документов матрикулы.
const (
	EnrollmentDocAcademicRecord      = "EXPEDIENTE_ACADEMICO"
	EnrollmentDocFirstPaymentInvoice = "FACTURA_PRIMER_PAGO"
)

// EnrollmentDocument — загруженный документ матрикулы. Содержимое файла
// для приложения непрозрачно, хранится только путь.
type EnrollmentDocument struct {
	gorm.Model
	EnrollmentID uint   `json:"enrollmentId" gorm:"index;not null"`
	Type         string `json:"type" gorm:"not null"`
	Filename     string `json:"filename" gorm:"not null"`
	Path         string `json:"-" gorm:"not null"`
}

func (EnrollmentDocument) TableName() string { return "enrollment_documents" }
