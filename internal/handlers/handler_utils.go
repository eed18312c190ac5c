// internal/handlers/handler_utils.go
package handlers

import (
	"fmt"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Ограничения на загружаемые файлы (квитанции, документы матрикул, регистр).
const (
	maxUploadMB    = 10
	maxUploadBytes = maxUploadMB << 20
)

var allowedUploadExts = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// allowedFile проверяет расширение загружаемого файла.
func allowedFile(filename string) bool {
	return allowedUploadExts[strings.ToLower(filepath.Ext(filename))]
}

// saveUploadedFile сохраняет файл из multipart-формы и возвращает путь на диске.
// Имя файла генерируется заново (uuid), оригинальное имя не доверяем.
func saveUploadedFile(c *gin.Context, fieldName, uploadDir string) (string, error) {
	file, err := c.FormFile(fieldName)
	if err != nil {
		return "", fmt.Errorf("файл '%s' обязателен", fieldName)
	}
	return saveMultipartFile(c, file, uploadDir)
}

// saveOptionalFile — как saveUploadedFile, но отсутствие файла не ошибка.
func saveOptionalFile(c *gin.Context, fieldName, uploadDir string) (string, error) {
	file, err := c.FormFile(fieldName)
	if err != nil {
		return "", nil
	}
	return saveMultipartFile(c, file, uploadDir)
}

func saveMultipartFile(c *gin.Context, file *multipart.FileHeader, uploadDir string) (string, error) {
	if !allowedFile(file.Filename) {
		return "", fmt.Errorf("недопустимый формат файла, разрешены PDF, JPG и PNG")
	}
	if file.Size > maxUploadBytes {
		return "", fmt.Errorf("файл превышает %d МБ", maxUploadMB)
	}
	if err := os.MkdirAll(uploadDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("не удалось создать каталог загрузки: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	dst := filepath.Join(uploadDir, uuid.NewString()+ext)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		return "", fmt.Errorf("не удалось сохранить файл: %w", err)
	}
	return dst, nil
}

// removeFileIfExists удаляет старый файл при замене. Отсутствие файла не ошибка.
func removeFileIfExists(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Не удалось удалить замененный файл", "path", path, "error", err)
	}
}

// parseDate разбирает дату формата YYYY-MM-DD.
func parseDate(value string) (time.Time, error) {
	return time.Parse("2006-01-02", value)
}

// today — сегодняшняя дата без времени, в UTC.
func today() time.Time {
	y, m, d := time.Now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// currentUserID достает ID пользователя, установленный AuthMiddleware.
func currentUserID(c *gin.Context) uint {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}
