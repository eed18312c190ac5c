package models

import (
	"testing"
	"time"
)

func TestIntensiveEndDate(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name        string
		start       time.Time
		totalHours  int
		weeklyHours int
		want        time.Time
	}{
		{
			name:        "ровное деление",
			start:       day(2025, time.March, 3),
			totalHours:  40,
			weeklyHours: 10,
			want:        day(2025, time.March, 31), // 4 недели
		},
		{
			name:        "остаток округляется вверх",
			start:       day(2025, time.March, 3),
			totalHours:  45,
			weeklyHours: 10,
			want:        day(2025, time.April, 7), // 5 недель
		},
		{
			name:        "минимум одна неделя",
			start:       day(2025, time.March, 3),
			totalHours:  2,
			weeklyHours: 10,
			want:        day(2025, time.March, 10),
		},
		{
			name:        "нулевые часы в неделю не роняют расчет",
			start:       day(2025, time.March, 3),
			totalHours:  3,
			weeklyHours: 0,
			want:        day(2025, time.March, 24), // 3 недели при weekly=1
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := IntensiveEndDate(tc.start, tc.totalHours, tc.weeklyHours)
			if !got.Equal(tc.want) {
				t.Errorf("IntensiveEndDate(%v, %d, %d) = %v, ожидалось %v",
					tc.start.Format("2006-01-02"), tc.totalHours, tc.weeklyHours,
					got.Format("2006-01-02"), tc.want.Format("2006-01-02"))
			}
		})
	}
}

func TestCourseStatusGuards(t *testing.T) {
	tests := []struct {
		status      string
		canEdit     bool
		canValidate bool
		canSchedule bool
	}{
		{CourseStatusDraft, true, true, false},
		{CourseStatusPendingValidation, false, true, false},
		{CourseStatusValidated, true, false, true},
		{CourseStatusScheduled, false, false, false},
		{CourseStatusRejected, false, false, false},
	}

	for _, tc := range tests {
		c := &Course{Status: tc.status}
		if got := c.CanEdit(); got != tc.canEdit {
			t.Errorf("CanEdit() при статусе %s = %v, ожидалось %v", tc.status, got, tc.canEdit)
		}
		if got := c.CanValidate(); got != tc.canValidate {
			t.Errorf("CanValidate() при статусе %s = %v, ожидалось %v", tc.status, got, tc.canValidate)
		}
		if got := c.CanSchedule(); got != tc.canSchedule {
			t.Errorf("CanSchedule() при статусе %s = %v, ожидалось %v", tc.status, got, tc.canSchedule)
		}
	}
}
