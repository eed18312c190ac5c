// models/grade.go
package models

import (
	"math"
	"time"

	"gorm.io/gorm"
)

// Типы оценок.
const (
	GradeTypeOrdinary = "ORDINARIO"
	GradeTypePartial  = "PARCIAL"
	GradeTypeFinal    = "FINAL"
	GradeTypeRetake   = "RECUPERACION"
)

// Итог по предмету.
const (
	SubjectResultPassed = "APROBADO"
	SubjectResultFailed = "SUSPENSO"
)

// PassMark — проходной балл по десятибалльной шкале.
const PassMark = 5.0

// EnrollmentSubject связывает матрикулу с модулем курса и хранит итоговую оценку.
type EnrollmentSubject struct {
	gorm.Model
	EnrollmentID uint          `json:"enrollmentId" gorm:"index;not null"`
	ModuleID     uint          `json:"moduleId" gorm:"index;not null"`
	Module       *CourseModule `json:"module,omitempty" gorm:"foreignKey:ModuleID"`

	FinalGrade *float64 `json:"finalGrade"`
	Result     string   `json:"result"`

	Grades []GradeEntry `json:"grades,omitempty" gorm:"foreignKey:SubjectID;constraint:OnDelete:CASCADE"`
}

func (EnrollmentSubject) TableName() string { return "enrollment_subjects" }

// GradeEntry — отдельная оценка (ординарная, парциальная, финальная, пересдача).
type GradeEntry struct {
	gorm.Model
	SubjectID uint      `json:"subjectId" gorm:"index;not null"`
	Type      string    `json:"type" gorm:"not null"`
	Value     float64   `json:"value" gorm:"not null"`
	Date      time.Time `json:"date"`
	Note      string    `json:"note"`
}

func (GradeEntry) TableName() string { return "grade_entries" }

// ComputeFinalGrade пересчитывает итоговую оценку предмета по набору оценок.
// Правила:
//   - если есть RECUPERACION — итог равен оценке пересдачи;
//   - иначе: средняя ординарных * 10% + средняя парциальных * 30% + финальный экзамен * 60%.
//     Отсутствующая категория дает 0 в своей части.
func (s *EnrollmentSubject) ComputeFinalGrade() {
	var retake *GradeEntry
	var ordinary, partial []float64
	var finalExam *GradeEntry

	for idx := range s.Grades {
		g := &s.Grades[idx]
		switch g.Type {
		case GradeTypeRetake:
			retake = g
		case GradeTypeOrdinary:
			ordinary = append(ordinary, g.Value)
		case GradeTypePartial:
			partial = append(partial, g.Value)
		case GradeTypeFinal:
			finalExam = g
		}
	}

	var grade float64
	if retake != nil {
		grade = retake.Value
	} else {
		var finalValue float64
		if finalExam != nil {
			finalValue = finalExam.Value
		}
		grade = avg(ordinary)*0.10 + avg(partial)*0.30 + finalValue*0.60
		grade = math.Round(grade*100) / 100
	}

	s.FinalGrade = &grade
	if grade >= PassMark {
		s.Result = SubjectResultPassed
	} else {
		s.Result = SubjectResultFailed
	}
}

func avg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
