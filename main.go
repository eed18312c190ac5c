// main.go
package main

import (
	"log/slog"
	"os"

	"github.com/FCEB2022/bbs-gestion-escolar/config"
	"github.com/FCEB2022/bbs-gestion-escolar/internal/jobs"
	"github.com/FCEB2022/bbs-gestion-escolar/internal/routes"
	"github.com/FCEB2022/bbs-gestion-escolar/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .env нужен только для локальной разработки; в продакшене
	// переменные приходят из окружения.
	if err := godotenv.Load(); err != nil {
		slog.Info("Файл .env не найден, используются переменные окружения")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	config.LoadJWTKey()
	config.ConnectDB()
	config.ConnectRedis()

	if err := config.DB.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.UserActivity{},
		&models.Course{},
		&models.CourseModule{},
		&models.CourseSchedule{},
		&models.Enrollment{},
		&models.EnrollmentDocument{},
		&models.EnrollmentSubject{},
		&models.GradeEntry{},
		&models.Installment{},
		&models.RegistryDocument{},
		&models.RegistryDocumentVersion{},
	); err != nil {
		slog.Error("Ошибка миграции базы данных", "error", err)
		os.Exit(1)
	}

	seedBaseline()

	r := gin.Default()
	r.MaxMultipartMemory = 16 << 20

	corsConfig := cors.DefaultConfig()
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		corsConfig.AllowOrigins = []string{origins}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowCredentials = !corsConfig.AllowAllOrigins
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	r.Use(cors.New(corsConfig))

	r.Static("/static", "./static")

	routes.SetupRoutes(r)

	scheduler := jobs.StartScheduler()
	defer scheduler.Stop()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	slog.Info("Сервер запущен", "port", port)
	if err := r.Run(":" + port); err != nil {
		slog.Error("Сервер остановлен с ошибкой", "error", err)
		os.Exit(1)
	}
}

// seedBaseline создает базовые права, роль admin и первого администратора.
// Все операции идемпотентны: существующие записи не трогаются.
func seedBaseline() {
	permissions := []models.Permission{
		{Name: "admin", Description: "Полный доступ ко всем разделам", Category: "system"},
		{Name: "courses_view", Description: "Просмотр курсов", Category: "courses"},
		{Name: "courses_create", Description: "Создание курсов", Category: "courses"},
		{Name: "courses_edit", Description: "Редактирование курсов", Category: "courses"},
		{Name: "courses_delete", Description: "Удаление курсов", Category: "courses"},
		{Name: "courses_schedule", Description: "Планирование курсов", Category: "courses"},
		{Name: "courses_validate", Description: "Валидация курсов", Category: "courses"},
		{Name: "enrollments_view", Description: "Просмотр матрикул", Category: "enrollments"},
		{Name: "enrollments_create", Description: "Создание матрикул", Category: "enrollments"},
		{Name: "enrollments_edit", Description: "Редактирование матрикул", Category: "enrollments"},
		{Name: "enrollments_delete", Description: "Удаление матрикул", Category: "enrollments"},
		{Name: "enrollments_validate", Description: "Валидация матрикул", Category: "enrollments"},
		{Name: "payments_view", Description: "Просмотр платежей", Category: "payments"},
		{Name: "payments_submit", Description: "Подача квитанций", Category: "payments"},
		{Name: "payments_validate", Description: "Валидация платежей", Category: "payments"},
		{Name: "grades_view", Description: "Просмотр оценок", Category: "grades"},
		{Name: "grades_edit", Description: "Выставление оценок", Category: "grades"},
		{Name: "documents_view", Description: "Просмотр регистра документов", Category: "documents"},
		{Name: "documents_create", Description: "Регистрация документов", Category: "documents"},
		{Name: "documents_edit", Description: "Редактирование документов", Category: "documents"},
		{Name: "documents_delete", Description: "Удаление документов", Category: "documents"},
		{Name: "reports_view", Description: "Просмотр отчетов", Category: "reports"},
		{Name: "users_manage", Description: "Управление пользователями", Category: "system"},
		{Name: "roles_manage", Description: "Управление ролями", Category: "system"},
	}
	for _, p := range permissions {
		config.DB.Where(models.Permission{Name: p.Name}).FirstOrCreate(&p)
	}

	var adminPerm models.Permission
	config.DB.Where("name = ?", "admin").First(&adminPerm)

	adminRole := models.Role{Name: "admin", Description: "Администратор системы"}
	config.DB.Where(models.Role{Name: "admin"}).FirstOrCreate(&adminRole)
	config.DB.Model(&adminRole).Association("Permissions").Append(&adminPerm)

	login := os.Getenv("ADMIN_LOGIN")
	password := os.Getenv("ADMIN_PASSWORD")
	if login == "" || password == "" {
		return
	}

	var existing models.User
	if err := config.DB.Where("login = ?", login).First(&existing).Error; err == nil {
		return
	}

	admin := models.User{Login: login, FullName: "Администратор"}
	if err := admin.SetPassword(password); err != nil {
		slog.Error("Не удалось захэшировать пароль администратора", "error", err)
		return
	}
	admin.Roles = []models.Role{adminRole}
	if err := config.DB.Create(&admin).Error; err != nil {
		slog.Error("Не удалось создать администратора", "error", err)
		return
	}
	slog.Info("Создан первый администратор", "login", login)
}
