// internal/ledger/ledger.go
//
// Финансовое ядро: построение графика платежей матрикулы и перераспределение
// остатка долга по нерассмотренным платежам после каждой валидации.
// Все денежные расчеты ведутся в decimal с округлением до 2 знаков;
// остаток округления всегда поглощает последний платеж, чтобы сумма
// графика точно сходилась с общей стоимостью.
package ledger

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/FCEB2022/bbs-gestion-escolar/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DueDay — регулярные платежи всегда назначаются на 10-е число месяца.
const DueDay = 10

// ValidationError — некорректные входные данные. Вызывающая сторона
// возвращает её пользователю как ошибку формы, без записи в БД.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// TransitionError — попытка недопустимого перехода статуса платежа.
// Состояние платежа при этом не меняется.
type TransitionError struct {
	From      string
	Attempted string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("недопустимый переход платежа: %s -> %s", e.From, e.Attempted)
}

// ConsistencyError — после перераспределения сумма графика разошлась
// с общей стоимостью. Указывает на ошибку в логике округления и
// логируется как серьезный сбой, а не тихо игнорируется.
type ConsistencyError struct {
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("сумма графика %s не сходится с общей стоимостью %s", e.Actual, e.Expected)
}

// centTolerance — допуск в один цент на артефакты numeric-колонок.
var centTolerance = decimal.New(1, -2)

// SplitAmount делит сумму на slots частей: все, кроме последней, получают
// round(total/slots, 2), последняя — остаток. Так итог детерминирован и
// точен независимо от делимости.
func SplitAmount(total decimal.Decimal, slots int) []decimal.Decimal {
	amounts := make([]decimal.Decimal, slots)
	if slots == 0 {
		return amounts
	}
	regular := total.Div(decimal.NewFromInt(int64(slots))).Round(2)
	assigned := decimal.Zero
	for i := 0; i < slots-1; i++ {
		amounts[i] = regular
		assigned = assigned.Add(regular)
	}
	amounts[slots-1] = total.Sub(assigned).Round(2)
	return amounts
}

// FirstDueDate: если матрикула создана до 10-го числа включительно,
// первый срок — 10-е текущего месяца, иначе 10-е следующего.
func FirstDueDate(start time.Time) time.Time {
	if start.Day() <= DueDay {
		return time.Date(start.Year(), start.Month(), DueDay, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(start.Year(), start.Month()+1, DueDay, 0, 0, 0, 0, time.UTC)
}

// DueDate — срок оплаты регулярного платежа с номером n (1..N-1):
// первый срок плюс (n-1) месяцев. Переполнение месяцев time.Date
// нормализует переносом года.
func DueDate(start time.Time, n int) time.Time {
	first := FirstDueDate(start)
	return time.Date(first.Year(), first.Month()+time.Month(n-1), DueDay, 0, 0, 0, 0, time.UTC)
}

// CreateSchedule строит полный график платежей матрикулы.
//
// Платеж 0 — начальный взнос: создается сразу в статусе
// PENDIENTE_VALIDACION (он подается синхронно с матрикулой и обязан
// сопровождаться квитанцией), без срока оплаты. Платежи 1..N-1 делят
// остаток поровну, последний поглощает остаток округления.
//
// Функция чистая: сохранение графика — ответственность вызывающего.
func CreateSchedule(enrollmentID uint, totalCost, initialAmount decimal.Decimal, installmentCount int, startDate time.Time) ([]models.Installment, error) {
	if totalCost.IsNegative() {
		return nil, &ValidationError{Reason: "общая стоимость не может быть отрицательной"}
	}
	if initialAmount.IsNegative() {
		return nil, &ValidationError{Reason: "начальный взнос не может быть отрицательным"}
	}
	if initialAmount.GreaterThan(totalCost) {
		return nil, &ValidationError{Reason: "начальный взнос не может превышать общую стоимость"}
	}
	if installmentCount < 1 {
		return nil, &ValidationError{Reason: "количество платежей должно быть не меньше одного"}
	}

	schedule := make([]models.Installment, 0, installmentCount)
	schedule = append(schedule, models.Installment{
		EnrollmentID: enrollmentID,
		Index:        0,
		Amount:       initialAmount.Round(2),
		Status:       models.InstallmentStatusPendingValidation,
		IsInitial:    true,
	})

	if installmentCount > 1 {
		remaining := totalCost.Sub(initialAmount)
		amounts := SplitAmount(remaining, installmentCount-1)
		for i := 1; i < installmentCount; i++ {
			due := DueDate(startDate, i)
			schedule = append(schedule, models.Installment{
				EnrollmentID: enrollmentID,
				Index:        i,
				Amount:       amounts[i-1],
				Status:       models.InstallmentStatusPending,
				DueDate:      &due,
			})
		}
	}

	return schedule, nil
}

// SubmitReceipt прикрепляет квитанцию и переводит платеж на рассмотрение.
// Допустимо из PENDIENTE (первая подача) и из RECHAZADO (повторная подача,
// причина отклонения при этом очищается). Дата оплаты — дата подачи.
func SubmitReceipt(ins *models.Installment, receiptPath string, paidOn time.Time) error {
	if receiptPath == "" {
		return &ValidationError{Reason: "квитанция об оплате обязательна"}
	}
	switch ins.Status {
	case models.InstallmentStatusPending, models.InstallmentStatusRejected:
		ins.ReceiptPath = &receiptPath
		ins.PaidDate = &paidOn
		ins.Status = models.InstallmentStatusPendingValidation
		ins.RejectionReason = nil
		return nil
	default:
		return &TransitionError{From: ins.Status, Attempted: models.InstallmentStatusPendingValidation}
	}
}

// Validate переводит платеж в терминальный статус VALIDADO.
// Право на операцию проверяет вызывающий (middleware прав доступа);
// перераспределение остатка запускает обработчик в той же транзакции.
func Validate(ins *models.Installment) error {
	if ins.Status != models.InstallmentStatusPendingValidation {
		return &TransitionError{From: ins.Status, Attempted: models.InstallmentStatusValidated}
	}
	ins.Status = models.InstallmentStatusValidated
	return nil
}

// Reject отклоняет платеж с обязательной причиной. Перераспределение
// при отклонении не выполняется.
func Reject(ins *models.Installment, reason string) error {
	if reason == "" {
		return &ValidationError{Reason: "укажите причину отклонения"}
	}
	if ins.Status != models.InstallmentStatusPendingValidation {
		return &TransitionError{From: ins.Status, Attempted: models.InstallmentStatusRejected}
	}
	ins.Status = models.InstallmentStatusRejected
	ins.RejectionReason = &reason
	return nil
}

// RedistributeAmounts — чистое ядро перераспределения: остаток долга
// делится по ожидающим платежам тем же правилом, что и при построении
// графика. Сроки оплаты не трогаем, меняются только суммы.
// Повторный вызов без изменения статусов дает те же суммы.
func RedistributeAmounts(pending []*models.Installment, remainingDebt decimal.Decimal) {
	if len(pending) == 0 {
		return
	}
	amounts := SplitAmount(remainingDebt, len(pending))
	for i, ins := range pending {
		ins.Amount = amounts[i]
	}
}

// PaidAmount — сумма валидированных платежей. Начальный взнос учитывается
// только после явной валидации, наравне с остальными.
func PaidAmount(installments []models.Installment) decimal.Decimal {
	paid := decimal.Zero
	for i := range installments {
		if installments[i].Status == models.InstallmentStatusValidated {
			paid = paid.Add(installments[i].Amount)
		}
	}
	return paid
}

// RedistributePending пересчитывает суммы ожидающих платежей матрикулы
// после валидации. Выполняется внутри транзакции вызывающего: строки
// графика блокируются FOR UPDATE, чтобы параллельная валидация по той же
// матрикуле не прочитала устаревшие суммы.
//
// Платежи в PENDIENTE_VALIDACION и RECHAZADO в раздачу не попадают.
// Если ожидающих нет — матрикула оплачена или все платежи на рассмотрении —
// операция завершается без изменений.
func RedistributePending(tx *gorm.DB, enrollmentID uint, totalCost decimal.Decimal) error {
	var installments []models.Installment
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("enrollment_id = ?", enrollmentID).
		Order("installment_index").
		Find(&installments).Error
	if err != nil {
		return err
	}

	remainingDebt := totalCost.Sub(PaidAmount(installments))

	var pending []*models.Installment
	for i := range installments {
		if installments[i].Status == models.InstallmentStatusPending {
			pending = append(pending, &installments[i])
		}
	}
	if len(pending) == 0 {
		return nil
	}

	RedistributeAmounts(pending, remainingDebt)

	for _, ins := range pending {
		if err := tx.Model(&models.Installment{}).
			Where("id = ?", ins.ID).
			Update("amount", ins.Amount).Error; err != nil {
			return err
		}
	}

	return checkScheduleTotal(installments, totalCost, enrollmentID)
}

// checkScheduleTotal — инвариант перераспределения: валидированное плюс
// ожидающее должно сходиться с общей стоимостью (платежи на рассмотрении
// и отклоненные несут транзитные суммы и в проверку не входят).
// Расхождение означает ошибку округления и поднимается громко.
func checkScheduleTotal(installments []models.Installment, totalCost decimal.Decimal, enrollmentID uint) error {
	sum := decimal.Zero
	for i := range installments {
		switch installments[i].Status {
		case models.InstallmentStatusValidated, models.InstallmentStatusPending:
			sum = sum.Add(installments[i].Amount)
		}
	}
	if sum.Sub(totalCost).Abs().GreaterThan(centTolerance) {
		slog.Error("Нарушен инвариант графика платежей",
			"enrollment_id", enrollmentID,
			"expected", totalCost.String(),
			"actual", sum.String())
		return &ConsistencyError{Expected: totalCost, Actual: sum}
	}
	return nil
}
