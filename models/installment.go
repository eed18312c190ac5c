// models/installment.go
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Статусы платежа (cuota). Переходы обрабатывает internal/ledger:
// PENDIENTE -> PENDIENTE_VALIDACION -> {VALIDADO, RECHAZADO},
// RECHAZADO -> PENDIENTE_VALIDACION (повторная подача квитанции).
// VALIDADO — терминальный: ни сумма, ни статус больше не меняются.
const (
	InstallmentStatusPending           = "PENDIENTE"
	InstallmentStatusPendingValidation = "PENDIENTE_VALIDACION"
	InstallmentStatusValidated         = "VALIDADO"
	InstallmentStatusRejected          = "RECHAZADO"
)

// Installment — один платеж графика матрикулы.
// Index 0 — начальный взнос (создается сразу в PENDIENTE_VALIDACION,
// без срока оплаты), 1..N-1 — регулярные платежи со сроком 10-го числа.
// Схема фиксированная: все поля присутствуют всегда, необязательные — nullable.
type Installment struct {
	gorm.Model
	EnrollmentID uint        `json:"enrollmentId" gorm:"index;not null"`
	Enrollment   *Enrollment `json:"-" gorm:"foreignKey:EnrollmentID"`

	Index  int             `json:"index" gorm:"column:installment_index;not null"`
	Amount decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Status string          `json:"status" gorm:"not null;default:'PENDIENTE'"`

	IsInitial bool `json:"isInitial" gorm:"not null;default:false"`

	DueDate         *time.Time `json:"dueDate"`
	PaidDate        *time.Time `json:"paidDate"`
	ReceiptPath     *string    `json:"-"`
	RejectionReason *string    `json:"rejectionReason"`
}

func (Installment) TableName() string { return "installments" }

// OverdueAt: срок прошел, а платеж все еще не проведен.
// Валидированные и отклоненные платежи просроченными не считаются —
// после состоявшегося события оплаты опоздание больше не отслеживается.
func (i *Installment) OverdueAt(today time.Time) bool {
	if i.DueDate == nil {
		return false
	}
	if i.Status != InstallmentStatusPending && i.Status != InstallmentStatusPendingValidation {
		return false
	}
	y, m, d := today.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return i.DueDate.Before(day)
}

// Describe — короткая подпись платежа для журнала действий.
func (i *Installment) Describe() string {
	return fmt.Sprintf("матрикула %d, платеж %d на %s", i.EnrollmentID, i.Index, i.Amount.StringFixed(2))
}

// HasReceipt — прикреплена ли квитанция.
func (i *Installment) HasReceipt() bool {
	return i.ReceiptPath != nil && *i.ReceiptPath != ""
}
