// models/document.go
package models

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Типы записей регистра документов.
const (
	DocumentTypeIncoming = "entrada"
	DocumentTypeOutgoing = "salida"
)

// RegistryDocument — запись регистра входящих/исходящих документов
// с простым целочисленным версионированием файла.
type RegistryDocument struct {
	gorm.Model
	Reference string    `json:"reference" gorm:"uniqueIndex;not null"`
	Type      string    `json:"type" gorm:"not null"` // entrada | salida
	Date      time.Time `json:"date" gorm:"not null"`

	Sender            string `json:"sender"`            // для входящих
	Recipient         string `json:"recipient"`         // для исходящих
	InternalSender    string `json:"internalSender"`    // для исходящих
	Description       string `json:"description" gorm:"not null"`
	Observations      string `json:"observations"`

	Filename string `json:"filename" gorm:"not null"` // имя последней версии
	Version  int    `json:"version" gorm:"not null;default:1"`

	CreatedByID uint  `json:"createdById" gorm:"index"`
	CreatedBy   *User `json:"createdBy,omitempty" gorm:"foreignKey:CreatedByID"`

	Versions []RegistryDocumentVersion `json:"versions,omitempty" gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE"`
}

func (RegistryDocument) TableName() string { return "registry_documents" }

// RegistryDocumentVersion — одна версия файла записи регистра.
// Оригинальное имя хранится на каждую версию: при повторной загрузке
// расширение может смениться, и имя на диске старой версии должно
// оставаться вычислимым.
type RegistryDocumentVersion struct {
	gorm.Model
	DocumentID uint   `json:"documentId" gorm:"index;not null"`
	Version    int    `json:"version" gorm:"not null"`
	Filename   string `json:"filename" gorm:"not null"`
}

func (RegistryDocumentVersion) TableName() string { return "registry_document_versions" }

// FormatReference строит номер ссылки вида ENT-YYYYMMDD-0001 / SAL-YYYYMMDD-0001.
// seq — порядковый номер среди документов того же типа за тот же день.
func FormatReference(docType string, day time.Time, seq int) string {
	prefix := "ENT"
	if docType == DocumentTypeOutgoing {
		prefix = "SAL"
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, day.Format("20060102"), seq)
}

// StoredVersionFilename — имя файла версии на диске. Расширение берется
// из оригинального имени именно этой версии, а не последней.
func StoredVersionFilename(reference, filename string, version int) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%s_v%d%s", reference, version, ext)
}

// StoredFilename — имя файла последней версии на диске.
func (d *RegistryDocument) StoredFilename() string {
	return StoredVersionFilename(d.Reference, d.Filename, d.Version)
}

// NextReference выдает следующий свободный номер для типа документа на сегодня.
// Должен вызываться внутри транзакции создания записи.
func NextReference(tx *gorm.DB, docType string, day time.Time) (string, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	var count int64
	err := tx.Model(&RegistryDocument{}).
		Where("type = ? AND created_at >= ? AND created_at < ?", docType, start, end).
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return FormatReference(docType, day, int(count)+1), nil
}
