// internal/jobs/overdue.go
package jobs

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/FCEB2022/bbs-gestion-escolar/config"
	"github.com/FCEB2022/bbs-gestion-escolar/models"

	"github.com/robfig/cron/v3"
)

// StartScheduler запускает фоновые задачи приложения.
// Ежедневный обход просрочки выполняется в 06:00 и один раз сразу при старте.
func StartScheduler() *cron.Cron {
	c := cron.New()

	if _, err := c.AddFunc("0 6 * * *", SweepOverdue); err != nil {
		slog.Error("Не удалось зарегистрировать задачу обхода просрочки", "error", err)
	}

	c.Start()
	go SweepOverdue()
	return c
}

// SweepOverdue считает просроченные платежи по кампусам, пишет итог в лог
// и выкладывает счетчики в Redis для панели управления.
func SweepOverdue() {
	now := time.Now().UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	total := int64(0)
	for _, campus := range []string{models.CampusBata, models.CampusMalabo} {
		var count int64
		err := config.DB.Model(&models.Installment{}).
			Joins("JOIN enrollments ON enrollments.id = installments.enrollment_id").
			Where("enrollments.campus = ?", campus).
			Where("installments.due_date IS NOT NULL AND installments.due_date < ?", day).
			Where("installments.status IN ?",
				[]string{models.InstallmentStatusPending, models.InstallmentStatusPendingValidation}).
			Count(&count).Error
		if err != nil {
			slog.Error("Обход просрочки: ошибка подсчета", "campus", campus, "error", err)
			continue
		}

		total += count
		if config.RDB != nil {
			key := fmt.Sprintf("overdue:count:%s", campus)
			if err := config.RDB.Set(config.Ctx, key, count, 48*time.Hour).Err(); err != nil {
				slog.Warn("Обход просрочки: не удалось записать счетчик в Redis", "key", key, "error", err)
			}
		}
	}

	slog.Info("Обход просрочки завершен", "date", day.Format("2006-01-02"), "overdue_total", total)
}
