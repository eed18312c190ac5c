// internal/handlers/document_handler.go
package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/FCEB2022/bbs-gestion-escolar/config"
	"github.com/FCEB2022/bbs-gestion-escolar/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func registryUploadDir() string {
	return filepath.Join("static", "uploads", "registro")
}

// ListDocumentsHandler возвращает регистр документов с фильтрами по типу,
// периоду и строке поиска.
func ListDocumentsHandler(c *gin.Context) {
	var documents []models.RegistryDocument
	query := config.DB.Preload("CreatedBy").Order("date desc, reference desc")

	if docType := c.Query("type"); docType != "" {
		query = query.Where("type = ?", docType)
	}
	if from := c.Query("from"); from != "" {
		if parsed, err := parseDate(from); err == nil {
			query = query.Where("date >= ?", parsed)
		}
	}
	if to := c.Query("to"); to != "" {
		if parsed, err := parseDate(to); err == nil {
			query = query.Where("date <= ?", parsed)
		}
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(reference) LIKE ? OR LOWER(description) LIKE ? OR LOWER(sender) LIKE ? OR LOWER(recipient) LIKE ?",
			pattern, pattern, pattern, pattern)
	}

	var totalRows int64
	query.Model(&models.RegistryDocument{}).Count(&totalRows)

	if err := query.Scopes(Paginate(c)).Find(&documents).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить регистр документов"})
		return
	}
	if documents == nil {
		documents = make([]models.RegistryDocument, 0)
	}

	c.JSON(http.StatusOK, CreatePaginatedResponse(c, documents, totalRows))
}

// CreateDocumentHandler регистрирует документ: номер выдается внутри
// транзакции, файл сохраняется под именем первой версии.
func CreateDocumentHandler(c *gin.Context) {
	docType := c.PostForm("type")
	if docType != models.DocumentTypeIncoming && docType != models.DocumentTypeOutgoing {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Тип документа должен быть entrada или salida"})
		return
	}
	description := strings.TrimSpace(c.PostForm("description"))
	if description == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Укажите описание документа"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Приложите файл документа"})
		return
	}
	if !allowedFile(file.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Недопустимый тип файла"})
		return
	}

	docDate := today()
	if raw := c.PostForm("date"); raw != "" {
		if parsed, err := parseDate(raw); err == nil {
			docDate = parsed
		}
	}

	doc := models.RegistryDocument{
		Type:           docType,
		Date:           docDate,
		Sender:         strings.TrimSpace(c.PostForm("sender")),
		Recipient:      strings.TrimSpace(c.PostForm("recipient")),
		InternalSender: strings.TrimSpace(c.PostForm("internalSender")),
		Description:    description,
		Observations:   strings.TrimSpace(c.PostForm("observations")),
		Filename:       file.Filename,
		Version:        1,
		CreatedByID:    currentUserID(c),
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		reference, err := models.NextReference(tx, docType, today())
		if err != nil {
			return err
		}
		doc.Reference = reference

		if err := tx.Create(&doc).Error; err != nil {
			return err
		}
		version := models.RegistryDocumentVersion{
			DocumentID: doc.ID,
			Version:    1,
			Filename:   file.Filename,
		}
		if err := tx.Create(&version).Error; err != nil {
			return err
		}

		if err := os.MkdirAll(registryUploadDir(), 0o755); err != nil {
			return err
		}
		stored := filepath.Join(registryUploadDir(), models.StoredVersionFilename(doc.Reference, file.Filename, 1))
		return c.SaveUploadedFile(file, stored)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось зарегистрировать документ: " + err.Error()})
		return
	}

	models.LogActivity(currentUserID(c), "document_registered", c.ClientIP(), c.Request.UserAgent(), doc.Reference)
	c.JSON(http.StatusCreated, doc)
}

// GetDocumentHandler возвращает запись регистра.
func GetDocumentHandler(c *gin.Context) {
	var doc models.RegistryDocument
	if err := config.DB.Preload("CreatedBy").First(&doc, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Документ не найден"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// UpdateDocumentHandler обновляет реквизиты записи. Новый файл создает
// следующую версию; прежние версии остаются на диске.
func UpdateDocumentHandler(c *gin.Context) {
	var doc models.RegistryDocument
	if err := config.DB.First(&doc, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Документ не найден"})
		return
	}

	if v := strings.TrimSpace(c.PostForm("description")); v != "" {
		doc.Description = v
	}
	doc.Sender = strings.TrimSpace(c.DefaultPostForm("sender", doc.Sender))
	doc.Recipient = strings.TrimSpace(c.DefaultPostForm("recipient", doc.Recipient))
	doc.InternalSender = strings.TrimSpace(c.DefaultPostForm("internalSender", doc.InternalSender))
	doc.Observations = strings.TrimSpace(c.DefaultPostForm("observations", doc.Observations))
	if raw := c.PostForm("date"); raw != "" {
		if parsed, err := parseDate(raw); err == nil {
			doc.Date = parsed
		}
	}

	newFile, fileErr := c.FormFile("file")
	if fileErr == nil {
		if !allowedFile(newFile.Filename) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Недопустимый тип файла"})
			return
		}
		doc.Filename = newFile.Filename
		doc.Version++
		stored := filepath.Join(registryUploadDir(), doc.StoredFilename())
		if err := os.MkdirAll(registryUploadDir(), 0o755); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось сохранить файл"})
			return
		}
		if err := c.SaveUploadedFile(newFile, stored); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось сохранить файл"})
			return
		}
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&doc).Error; err != nil {
			return err
		}
		if fileErr != nil {
			return nil
		}
		version := models.RegistryDocumentVersion{
			DocumentID: doc.ID,
			Version:    doc.Version,
			Filename:   doc.Filename,
		}
		return tx.Create(&version).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось обновить документ"})
		return
	}

	c.JSON(http.StatusOK, doc)
}

// DeleteDocumentHandler удаляет запись регистра. Файлы версий остаются
// на диске как архив.
func DeleteDocumentHandler(c *gin.Context) {
	if result := config.DB.Delete(&models.RegistryDocument{}, c.Param("id")); result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось удалить документ"})
	} else if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Документ не найден"})
	} else {
		c.JSON(http.StatusOK, gin.H{"message": "Документ удален"})
	}
}

// DownloadDocumentHandler отдает файл версии документа.
// Параметр version выбирает прежнюю версию; по умолчанию — последняя.
func DownloadDocumentHandler(c *gin.Context) {
	var doc models.RegistryDocument
	if err := config.DB.First(&doc, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Документ не найден"})
		return
	}

	version := doc.Version
	if raw := c.Query("version"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &version); err != nil || version < 1 || version > doc.Version {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный номер версии"})
			return
		}
	}

	// Имя на диске зависит от оригинального имени этой версии:
	// повторная загрузка могла сменить расширение.
	filename := doc.Filename
	if version != doc.Version {
		var versionRow models.RegistryDocumentVersion
		err := config.DB.Where("document_id = ? AND version = ?", doc.ID, version).
			First(&versionRow).Error
		if err == nil {
			filename = versionRow.Filename
		}
	}

	path := filepath.Join(registryUploadDir(), models.StoredVersionFilename(doc.Reference, filename, version))
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Файл версии отсутствует на диске"})
		return
	}
	c.FileAttachment(path, filename)
}
