package models

import (
	"math"
	"testing"
)

func TestComputeFinalGrade(t *testing.T) {
	grade := func(kind string, value float64) GradeEntry {
		return GradeEntry{Type: kind, Value: value}
	}

	tests := []struct {
		name       string
		grades     []GradeEntry
		wantGrade  float64
		wantResult string
	}{
		{
			name: "взвешенная сумма трех категорий",
			grades: []GradeEntry{
				grade(GradeTypeOrdinary, 8),
				grade(GradeTypeOrdinary, 6),
				grade(GradeTypePartial, 7),
				grade(GradeTypeFinal, 9),
			},
			// avg(8,6)*0.10 + 7*0.30 + 9*0.60 = 0.7 + 2.1 + 5.4
			wantGrade:  8.2,
			wantResult: SubjectResultPassed,
		},
		{
			name: "пересдача перекрывает все остальное",
			grades: []GradeEntry{
				grade(GradeTypeOrdinary, 2),
				grade(GradeTypeFinal, 3),
				grade(GradeTypeRetake, 6.5),
			},
			wantGrade:  6.5,
			wantResult: SubjectResultPassed,
		},
		{
			name: "провальная пересдача",
			grades: []GradeEntry{
				grade(GradeTypeFinal, 7),
				grade(GradeTypeRetake, 3),
			},
			wantGrade:  3,
			wantResult: SubjectResultFailed,
		},
		{
			name: "отсутствующая категория дает ноль в своей части",
			grades: []GradeEntry{
				grade(GradeTypeFinal, 8),
			},
			wantGrade:  4.8,
			wantResult: SubjectResultFailed,
		},
		{
			name: "ровно проходной балл",
			grades: []GradeEntry{
				grade(GradeTypeOrdinary, 5),
				grade(GradeTypePartial, 5),
				grade(GradeTypeFinal, 5),
			},
			wantGrade:  5,
			wantResult: SubjectResultPassed,
		},
		{
			name:       "без оценок итог ноль",
			grades:     nil,
			wantGrade:  0,
			wantResult: SubjectResultFailed,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := &EnrollmentSubject{Grades: tc.grades}
			s.ComputeFinalGrade()

			if s.FinalGrade == nil {
				t.Fatal("FinalGrade не выставлен")
			}
			if math.Abs(*s.FinalGrade-tc.wantGrade) > 1e-9 {
				t.Errorf("итоговая оценка = %v, ожидалось %v", *s.FinalGrade, tc.wantGrade)
			}
			if s.Result != tc.wantResult {
				t.Errorf("результат = %s, ожидалось %s", s.Result, tc.wantResult)
			}
		})
	}
}
