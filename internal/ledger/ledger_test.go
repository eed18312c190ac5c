package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/FCEB2022/bbs-gestion-escolar/models"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func scheduleTotal(schedule []models.Installment) decimal.Decimal {
	sum := decimal.Zero
	for i := range schedule {
		sum = sum.Add(schedule[i].Amount)
	}
	return sum
}

func TestCreateScheduleSumEqualsTotalCost(t *testing.T) {
	start := date(2025, time.January, 15)
	tests := []struct {
		name    string
		total   string
		initial string
		count   int
	}{
		{"делится нацело", "75000", "15000", 6},
		{"один платеж", "50000", "50000", 1},
		{"остаток округления", "10000", "0", 4},
		{"мелкие суммы", "100.01", "0.01", 7},
		{"без начального взноса", "99999.99", "0", 12},
		{"все в начальный взнос", "1234.5", "1234.5", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schedule, err := CreateSchedule(1, dec(tt.total), dec(tt.initial), tt.count, start)
			if err != nil {
				t.Fatalf("CreateSchedule: %v", err)
			}
			if len(schedule) != tt.count {
				t.Fatalf("получено %d платежей, ожидалось %d", len(schedule), tt.count)
			}
			if got := scheduleTotal(schedule); !got.Equal(dec(tt.total)) {
				t.Errorf("сумма графика %s, ожидалось %s", got, tt.total)
			}
		})
	}
}

func TestCreateScheduleSingleInstallment(t *testing.T) {
	schedule, err := CreateSchedule(7, dec("30000"), dec("30000"), 1, date(2025, time.March, 1))
	if err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	if len(schedule) != 1 {
		t.Fatalf("ожидался ровно один платеж, получено %d", len(schedule))
	}
	ins := schedule[0]
	if !ins.IsInitial || ins.Index != 0 {
		t.Errorf("единственный платеж должен быть начальным взносом с индексом 0")
	}
	if ins.Status != models.InstallmentStatusPendingValidation {
		t.Errorf("статус начального взноса %s, ожидался %s", ins.Status, models.InstallmentStatusPendingValidation)
	}
	if ins.DueDate != nil {
		t.Errorf("у начального взноса не должно быть срока оплаты")
	}
}

func TestCreateScheduleKnownScenario(t *testing.T) {
	// 75000 при взносе 15000 на 6 платежей: остаток 60000 делится
	// на 5 регулярных по 12000 без остатка округления.
	schedule, err := CreateSchedule(3, dec("75000"), dec("15000"), 6, date(2025, time.September, 1))
	if err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	if !schedule[0].Amount.Equal(dec("15000")) {
		t.Errorf("начальный взнос %s, ожидалось 15000", schedule[0].Amount)
	}
	if schedule[0].Status != models.InstallmentStatusPendingValidation {
		t.Errorf("начальный взнос должен создаваться в PENDIENTE_VALIDACION")
	}
	for i := 1; i <= 5; i++ {
		if !schedule[i].Amount.Equal(dec("12000")) {
			t.Errorf("платеж %d: %s, ожидалось 12000", i, schedule[i].Amount)
		}
		if schedule[i].Status != models.InstallmentStatusPending {
			t.Errorf("платеж %d должен создаваться в PENDIENTE", i)
		}
	}
}

func TestCreateSchedulePreconditions(t *testing.T) {
	start := date(2025, time.January, 5)
	tests := []struct {
		name    string
		total   string
		initial string
		count   int
	}{
		{"отрицательная стоимость", "-1", "0", 3},
		{"отрицательный взнос", "1000", "-5", 3},
		{"взнос больше стоимости", "1000", "1500", 3},
		{"ноль платежей", "1000", "100", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateSchedule(1, dec(tt.total), dec(tt.initial), tt.count, start)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("ожидалась ValidationError, получено %v", err)
			}
		})
	}
}

func TestSplitAmountLastAbsorbsRemainder(t *testing.T) {
	amounts := SplitAmount(dec("10000"), 3)
	want := []string{"3333.33", "3333.33", "3333.34"}
	for i, w := range want {
		if !amounts[i].Equal(dec(w)) {
			t.Errorf("часть %d: %s, ожидалось %s", i, amounts[i], w)
		}
	}
}

func TestDueDates(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		n     int
		want  time.Time
	}{
		{"создание после 10-го", date(2025, time.January, 15), 1, date(2025, time.February, 10)},
		{"создание до 10-го", date(2025, time.January, 5), 1, date(2025, time.January, 10)},
		{"создание ровно 10-го", date(2025, time.January, 10), 1, date(2025, time.January, 10)},
		{"второй платеж", date(2025, time.January, 15), 2, date(2025, time.March, 10)},
		{"перенос года с декабря", date(2025, time.December, 20), 1, date(2026, time.January, 10)},
		{"десятый платеж с ноября", date(2025, time.November, 3), 10, date(2026, time.August, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DueDate(tt.start, tt.n); !got.Equal(tt.want) {
				t.Errorf("DueDate(%v, %d) = %v, ожидалось %v", tt.start.Format("2006-01-02"), tt.n, got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
		})
	}
}

func pendingOf(installments []models.Installment) []*models.Installment {
	var pending []*models.Installment
	for i := range installments {
		if installments[i].Status == models.InstallmentStatusPending {
			pending = append(pending, &installments[i])
		}
	}
	return pending
}

func TestRedistributeAfterValidation(t *testing.T) {
	total := dec("70000")
	schedule, err := CreateSchedule(1, total, dec("10000"), 4, date(2025, time.February, 1))
	if err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	// Валидируем начальный взнос и один регулярный платеж.
	if err := Validate(&schedule[0]); err != nil {
		t.Fatalf("Validate взнос: %v", err)
	}
	receipt := "uploads/pagos/rcpt.pdf"
	if err := SubmitReceipt(&schedule[1], receipt, date(2025, time.March, 9)); err != nil {
		t.Fatalf("SubmitReceipt: %v", err)
	}
	if err := Validate(&schedule[1]); err != nil {
		t.Fatalf("Validate платеж 1: %v", err)
	}

	remaining := total.Sub(PaidAmount(schedule))
	if !remaining.Equal(dec("40000")) {
		t.Fatalf("остаток долга %s, ожидалось 40000", remaining)
	}

	pending := pendingOf(schedule)
	if len(pending) != 2 {
		t.Fatalf("ожидалось 2 ожидающих платежа, получено %d", len(pending))
	}
	RedistributeAmounts(pending, remaining)

	sum := decimal.Zero
	for _, p := range pending {
		sum = sum.Add(p.Amount)
	}
	if !sum.Equal(remaining) {
		t.Errorf("сумма ожидающих %s, ожидалось %s", sum, remaining)
	}
}

func TestRedistributeLastAbsorbsRemainder(t *testing.T) {
	// Остаток 10000 на 3 ожидающих: 3333.33 + 3333.33 + 3333.34.
	installments := []models.Installment{
		{Index: 1, Status: models.InstallmentStatusPending},
		{Index: 2, Status: models.InstallmentStatusPending},
		{Index: 3, Status: models.InstallmentStatusPending},
	}
	RedistributeAmounts(pendingOf(installments), dec("10000"))

	if !installments[0].Amount.Equal(dec("3333.33")) ||
		!installments[1].Amount.Equal(dec("3333.33")) ||
		!installments[2].Amount.Equal(dec("3333.34")) {
		t.Errorf("получено %s, %s, %s", installments[0].Amount, installments[1].Amount, installments[2].Amount)
	}
}

func TestRedistributeIdempotent(t *testing.T) {
	installments := []models.Installment{
		{Index: 1, Status: models.InstallmentStatusValidated, Amount: dec("20000")},
		{Index: 2, Status: models.InstallmentStatusPending},
		{Index: 3, Status: models.InstallmentStatusPending},
		{Index: 4, Status: models.InstallmentStatusPending},
	}
	remaining := dec("50000").Sub(PaidAmount(installments))

	RedistributeAmounts(pendingOf(installments), remaining)
	first := []decimal.Decimal{installments[1].Amount, installments[2].Amount, installments[3].Amount}

	// Повторный вызов без изменения статусов ничего не меняет.
	RedistributeAmounts(pendingOf(installments), remaining)
	second := []decimal.Decimal{installments[1].Amount, installments[2].Amount, installments[3].Amount}

	for i := range first {
		if !first[i].Equal(second[i]) {
			t.Errorf("платеж %d: %s после повторного вызова, было %s", i, second[i], first[i])
		}
	}
}

func TestRedistributeSkipsRejectedAndInFlight(t *testing.T) {
	rejectedAmount := dec("11111.11")
	inFlightAmount := dec("22222.22")
	reason := "квитанция нечитаема"
	installments := []models.Installment{
		{Index: 1, Status: models.InstallmentStatusRejected, Amount: rejectedAmount, RejectionReason: &reason},
		{Index: 2, Status: models.InstallmentStatusPendingValidation, Amount: inFlightAmount},
		{Index: 3, Status: models.InstallmentStatusPending, Amount: dec("1")},
	}
	RedistributeAmounts(pendingOf(installments), dec("40000"))

	if !installments[0].Amount.Equal(rejectedAmount) {
		t.Errorf("отклоненный платеж не должен участвовать в раздаче")
	}
	if !installments[1].Amount.Equal(inFlightAmount) {
		t.Errorf("платеж на рассмотрении не должен участвовать в раздаче")
	}
	if !installments[2].Amount.Equal(dec("40000")) {
		t.Errorf("единственный ожидающий должен получить весь остаток, получено %s", installments[2].Amount)
	}
}

func TestRedistributeNoPendingIsNoop(t *testing.T) {
	// Нет ожидающих платежей — перераспределять нечего, это не ошибка.
	RedistributeAmounts(nil, dec("12345"))
}

func TestSubmitReceiptTransitions(t *testing.T) {
	paidOn := date(2025, time.April, 2)

	t.Run("из PENDIENTE", func(t *testing.T) {
		ins := models.Installment{Status: models.InstallmentStatusPending}
		if err := SubmitReceipt(&ins, "uploads/pagos/a.pdf", paidOn); err != nil {
			t.Fatalf("SubmitReceipt: %v", err)
		}
		if ins.Status != models.InstallmentStatusPendingValidation {
			t.Errorf("статус %s, ожидался PENDIENTE_VALIDACION", ins.Status)
		}
		if ins.PaidDate == nil || !ins.PaidDate.Equal(paidOn) {
			t.Errorf("дата оплаты должна равняться дате подачи")
		}
	})

	t.Run("повторная подача после отклонения", func(t *testing.T) {
		reason := "неверная сумма"
		ins := models.Installment{Status: models.InstallmentStatusRejected, RejectionReason: &reason}
		if err := SubmitReceipt(&ins, "uploads/pagos/b.pdf", paidOn); err != nil {
			t.Fatalf("SubmitReceipt: %v", err)
		}
		if ins.RejectionReason != nil {
			t.Errorf("причина отклонения должна очищаться при повторной подаче")
		}
		if ins.Status != models.InstallmentStatusPendingValidation {
			t.Errorf("статус %s, ожидался PENDIENTE_VALIDACION", ins.Status)
		}
	})

	t.Run("без квитанции", func(t *testing.T) {
		ins := models.Installment{Status: models.InstallmentStatusPending}
		var verr *ValidationError
		if err := SubmitReceipt(&ins, "", paidOn); !errors.As(err, &verr) {
			t.Fatalf("ожидалась ValidationError, получено %v", err)
		}
		if ins.Status != models.InstallmentStatusPending {
			t.Errorf("статус не должен меняться при ошибке")
		}
	})

	t.Run("из VALIDADO", func(t *testing.T) {
		ins := models.Installment{Status: models.InstallmentStatusValidated}
		var terr *TransitionError
		if err := SubmitReceipt(&ins, "uploads/pagos/c.pdf", paidOn); !errors.As(err, &terr) {
			t.Fatalf("ожидалась TransitionError, получено %v", err)
		}
	})
}

func TestValidateRequiresPendingValidation(t *testing.T) {
	for _, status := range []string{
		models.InstallmentStatusPending,
		models.InstallmentStatusValidated,
		models.InstallmentStatusRejected,
	} {
		t.Run(status, func(t *testing.T) {
			ins := models.Installment{Status: status, Amount: dec("500")}
			err := Validate(&ins)
			var terr *TransitionError
			if !errors.As(err, &terr) {
				t.Fatalf("ожидалась TransitionError, получено %v", err)
			}
			if ins.Status != status {
				t.Errorf("статус изменился при отклоненной операции: %s", ins.Status)
			}
			if !ins.Amount.Equal(dec("500")) {
				t.Errorf("сумма изменилась при отклоненной операции")
			}
		})
	}
}

func TestRejectRequiresReason(t *testing.T) {
	ins := models.Installment{Status: models.InstallmentStatusPendingValidation}
	var verr *ValidationError
	if err := Reject(&ins, ""); !errors.As(err, &verr) {
		t.Fatalf("ожидалась ValidationError, получено %v", err)
	}
	if ins.Status != models.InstallmentStatusPendingValidation {
		t.Errorf("статус не должен меняться без причины отклонения")
	}

	if err := Reject(&ins, "квитанция не соответствует сумме"); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if ins.Status != models.InstallmentStatusRejected || ins.RejectionReason == nil {
		t.Errorf("после отклонения ожидался статус RECHAZADO с причиной")
	}
}

func TestValidatedTerminalAgainstStaleCopy(t *testing.T) {
	// Решение по платежу обязано приниматься по актуальной строке,
	// перечитанной под блокировкой. Сценарий: копия прочитана в
	// PENDIENTE_VALIDACION, параллельная сессия успела валидировать
	// платеж. Повторное чтение видит VALIDADO, и ни отклонение, ни
	// новая квитанция терминальный статус не перезаписывают.
	current := models.Installment{
		Status: models.InstallmentStatusPendingValidation,
		Amount: dec("12000"),
	}
	stale := current

	if err := Validate(&current); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if stale.Status != models.InstallmentStatusPendingValidation {
		t.Fatalf("устаревшая копия не должна меняться")
	}

	var terr *TransitionError
	if err := Reject(&current, "квитанция нечитаема"); !errors.As(err, &terr) {
		t.Fatalf("ожидалась TransitionError при отклонении валидированного, получено %v", err)
	}
	if err := SubmitReceipt(&current, "static/uploads/pagos/x.pdf", date(2025, time.June, 1)); !errors.As(err, &terr) {
		t.Fatalf("ожидалась TransitionError при повторной подаче по валидированному, получено %v", err)
	}
	if current.Status != models.InstallmentStatusValidated {
		t.Errorf("терминальный статус перезаписан: %s", current.Status)
	}
	if current.RejectionReason != nil {
		t.Errorf("у валидированного платежа появилась причина отклонения")
	}
}

func TestScheduleTotalInvariant(t *testing.T) {
	installments := []models.Installment{
		{Status: models.InstallmentStatusValidated, Amount: dec("15000")},
		{Status: models.InstallmentStatusPending, Amount: dec("30000")},
		{Status: models.InstallmentStatusPending, Amount: dec("30000")},
	}

	if err := checkScheduleTotal(installments, dec("75000"), 1); err != nil {
		t.Fatalf("сходящийся график не должен давать ошибку: %v", err)
	}

	// Расхождение в пределах цента списывается на артефакты numeric-колонок.
	if err := checkScheduleTotal(installments, dec("75000.01"), 1); err != nil {
		t.Fatalf("расхождение в один цент должно проходить: %v", err)
	}

	// Испорченный график: ожидающая сумма потеряла 1000.
	installments[2].Amount = dec("29000")
	err := checkScheduleTotal(installments, dec("75000"), 1)
	var cerr *ConsistencyError
	if !errors.As(err, &cerr) {
		t.Fatalf("ожидалась ConsistencyError, получено %v", err)
	}
	if !cerr.Expected.Equal(dec("75000")) || !cerr.Actual.Equal(dec("74000")) {
		t.Errorf("ConsistencyError{Expected: %s, Actual: %s}", cerr.Expected, cerr.Actual)
	}

	// Суммы на рассмотрении и отклоненные транзитны и в проверку не входят.
	installments = append(installments,
		models.Installment{Status: models.InstallmentStatusPendingValidation, Amount: dec("99999")},
		models.Installment{Status: models.InstallmentStatusRejected, Amount: dec("99999")},
	)
	installments[2].Amount = dec("30000")
	if err := checkScheduleTotal(installments, dec("75000"), 1); err != nil {
		t.Fatalf("транзитные статусы не должны влиять на инвариант: %v", err)
	}
}

func TestOverdue(t *testing.T) {
	today := date(2025, time.June, 15)
	past := date(2025, time.May, 10)
	future := date(2025, time.July, 10)

	tests := []struct {
		name   string
		due    *time.Time
		status string
		want   bool
	}{
		{"просрочен в PENDIENTE", &past, models.InstallmentStatusPending, true},
		{"просрочен на рассмотрении", &past, models.InstallmentStatusPendingValidation, true},
		{"срок не наступил", &future, models.InstallmentStatusPending, false},
		{"без срока (начальный взнос)", nil, models.InstallmentStatusPendingValidation, false},
		{"валидированный не просрочен", &past, models.InstallmentStatusValidated, false},
		{"отклоненный не просрочен", &past, models.InstallmentStatusRejected, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ins := models.Installment{DueDate: tt.due, Status: tt.status}
			if got := ins.OverdueAt(today); got != tt.want {
				t.Errorf("OverdueAt = %v, ожидалось %v", got, tt.want)
			}
		})
	}
}
