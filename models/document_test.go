package models

import (
	"testing"
	"time"
)

func TestFormatReference(t *testing.T) {
	day := time.Date(2025, time.July, 4, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		docType string
		seq     int
		want    string
	}{
		{"входящий", DocumentTypeIncoming, 1, "ENT-20250704-0001"},
		{"исходящий", DocumentTypeOutgoing, 12, "SAL-20250704-0012"},
		{"четырехзначный номер", DocumentTypeIncoming, 2345, "ENT-20250704-2345"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatReference(tc.docType, day, tc.seq); got != tc.want {
				t.Errorf("FormatReference(%s, %d) = %s, ожидалось %s", tc.docType, tc.seq, got, tc.want)
			}
		})
	}
}

func TestStoredVersionFilename(t *testing.T) {
	const ref = "ENT-20250704-0003"

	if got := StoredVersionFilename(ref, "Convenio Marco.PDF", 1); got != "ENT-20250704-0003_v1.pdf" {
		t.Errorf("версия 1 = %s", got)
	}
	if got := StoredVersionFilename(ref, "Convenio Marco.PDF", 4); got != "ENT-20250704-0003_v4.pdf" {
		t.Errorf("версия 4 = %s", got)
	}

	// Файл без расширения тоже получает валидное имя версии.
	if got := StoredVersionFilename(ref, "scan", 2); got != "ENT-20250704-0003_v2" {
		t.Errorf("версия без расширения = %s", got)
	}

	// Повторная загрузка со сменой расширения: имя каждой версии
	// вычисляется из её собственного оригинального имени.
	doc := RegistryDocument{Reference: ref, Filename: "convenio.png", Version: 2}
	if got := doc.StoredFilename(); got != "ENT-20250704-0003_v2.png" {
		t.Errorf("последняя версия = %s", got)
	}
	if got := StoredVersionFilename(doc.Reference, "convenio.pdf", 1); got != "ENT-20250704-0003_v1.pdf" {
		t.Errorf("первая версия после смены расширения = %s", got)
	}
}
