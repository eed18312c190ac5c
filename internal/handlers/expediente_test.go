package handlers

import (
	"math"
	"testing"

	"github.com/FCEB2022/bbs-gestion-escolar/models"
)

func TestAverageFinalGrade(t *testing.T) {
	grade := func(v float64) *float64 { return &v }

	tests := []struct {
		name     string
		subjects []models.EnrollmentSubject
		want     *float64
	}{
		{
			name: "среднее по выставленным итогам",
			subjects: []models.EnrollmentSubject{
				{FinalGrade: grade(8)},
				{FinalGrade: grade(6.5)},
				{FinalGrade: grade(7)},
			},
			want: grade(7.17),
		},
		{
			name: "предметы без итога не учитываются",
			subjects: []models.EnrollmentSubject{
				{FinalGrade: grade(9)},
				{FinalGrade: nil},
				{FinalGrade: grade(5)},
			},
			want: grade(7),
		},
		{
			name: "без итогов среднего нет",
			subjects: []models.EnrollmentSubject{
				{FinalGrade: nil},
				{FinalGrade: nil},
			},
			want: nil,
		},
		{
			name:     "пустой список",
			subjects: nil,
			want:     nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := averageFinalGrade(tc.subjects)
			switch {
			case tc.want == nil && got != nil:
				t.Errorf("ожидалось отсутствие среднего, получено %v", *got)
			case tc.want != nil && got == nil:
				t.Errorf("ожидалось %v, среднего нет", *tc.want)
			case tc.want != nil && got != nil && math.Abs(*got-*tc.want) > 1e-9:
				t.Errorf("среднее = %v, ожидалось %v", *got, *tc.want)
			}
		})
	}
}
