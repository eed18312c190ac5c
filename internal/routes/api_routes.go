// internal/routes/api_routes.go
package routes

import (
	"github.com/FCEB2022/bbs-gestion-escolar/internal/handlers"
	"github.com/FCEB2022/bbs-gestion-escolar/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterAPIRoutes регистрирует все маршруты API, требующие аутентификации.
func RegisterAPIRoutes(api *gin.RouterGroup) {
	// Группа для всех API-запросов с префиксом /api
	apiGroup := api.Group("/api")
	{
		// Профиль пользователя
		profile := apiGroup.Group("/profile")
		{
			profile.GET("", handlers.GetProfileHandler)
			profile.PUT("", handlers.UpdateProfileHandler)
		}

		// --- КУРСЫ ---
		courses := apiGroup.Group("/courses")
		courses.Use(middleware.PermissionMiddleware("courses_view"))
		{
			courses.GET("", handlers.ListCoursesHandler)
			courses.GET("/:id", handlers.GetCourseHandler)
			courses.POST("", middleware.PermissionMiddleware("courses_create"), handlers.CreateCourseHandler)
			courses.PUT("/:id", middleware.PermissionMiddleware("courses_edit"), handlers.UpdateCourseHandler)
			courses.DELETE("/:id", middleware.PermissionMiddleware("courses_delete"), handlers.DeleteCourseHandler)
			courses.POST("/:id/schedule", middleware.PermissionMiddleware("courses_schedule"), handlers.ScheduleCourseHandler)
			courses.POST("/:id/validate", middleware.PermissionMiddleware("courses_validate"), handlers.ValidateCourseHandler)
			courses.POST("/:id/reject", middleware.PermissionMiddleware("courses_validate"), handlers.RejectCourseHandler)
		}

		// --- МАТРИКУЛЫ ---
		enrollments := apiGroup.Group("/enrollments")
		enrollments.Use(middleware.PermissionMiddleware("enrollments_view"))
		{
			enrollments.GET("", handlers.ListEnrollmentsHandler)
			enrollments.GET("/:id", handlers.GetEnrollmentHandler)
			enrollments.POST("", middleware.PermissionMiddleware("enrollments_create"), handlers.CreateEnrollmentHandler)
			enrollments.PUT("/:id", middleware.PermissionMiddleware("enrollments_edit"), handlers.UpdateEnrollmentHandler)
			enrollments.DELETE("/:id", middleware.PermissionMiddleware("enrollments_delete"), handlers.DeleteEnrollmentHandler)
			enrollments.POST("/:id/validate", middleware.PermissionMiddleware("enrollments_validate"), handlers.ValidateEnrollmentHandler)
			enrollments.POST("/:id/reject", middleware.PermissionMiddleware("enrollments_validate"), handlers.RejectEnrollmentHandler)
			enrollments.GET("/:id/documents/:docId/download", handlers.DownloadEnrollmentDocumentHandler)
			enrollments.GET("/:id/documents/download", handlers.DownloadEnrollmentArchiveHandler)

			// Лицевой счет и платежи матрикулы
			enrollments.GET("/:id/payments", middleware.PermissionMiddleware("payments_view"), handlers.GetPaymentAccountHandler)
			enrollments.POST("/:id/payments/:installmentId/receipt", middleware.PermissionMiddleware("payments_submit"), handlers.SubmitReceiptHandler)
			enrollments.GET("/:id/payments/:installmentId/receipt", middleware.PermissionMiddleware("payments_view"), handlers.DownloadReceiptHandler)

			// Оценки по предметам матрикулы
			enrollments.GET("/:id/subjects/:subjectId/grades", middleware.PermissionMiddleware("grades_view"), handlers.ListSubjectGradesHandler)
			enrollments.POST("/:id/subjects/:subjectId/grades", middleware.PermissionMiddleware("grades_edit"), handlers.AddGradeHandler)
			enrollments.DELETE("/:id/subjects/:subjectId/grades/:gradeId", middleware.PermissionMiddleware("grades_edit"), handlers.DeleteGradeHandler)
		}

		// --- ЭКСПЕДИЕНТЫ ---
		// Уникальные студенты по документу и их академическая история.
		expedientes := apiGroup.Group("/expedientes")
		expedientes.Use(middleware.PermissionMiddleware("enrollments_view"))
		{
			expedientes.GET("", handlers.ListExpedientesHandler)
			expedientes.GET("/:identityDoc", handlers.GetExpedienteHandler)
		}

		// --- ПАНЕЛЬ ВАЛИДАЦИИ ---
		validation := apiGroup.Group("/validation")
		validation.Use(middleware.PermissionMiddleware("payments_validate"))
		{
			validation.GET("/panel", handlers.GetValidationPanelHandler)
			validation.POST("/payments/:installmentId/validate", handlers.ValidatePaymentHandler)
			validation.POST("/payments/:installmentId/reject", handlers.RejectPaymentHandler)
		}

		// --- РЕГИСТР ДОКУМЕНТОВ ---
		documents := apiGroup.Group("/documents")
		documents.Use(middleware.PermissionMiddleware("documents_view"))
		{
			documents.GET("", handlers.ListDocumentsHandler)
			documents.GET("/:id", handlers.GetDocumentHandler)
			documents.GET("/:id/download", handlers.DownloadDocumentHandler)
			documents.POST("", middleware.PermissionMiddleware("documents_create"), handlers.CreateDocumentHandler)
			documents.PUT("/:id", middleware.PermissionMiddleware("documents_edit"), handlers.UpdateDocumentHandler)
			documents.DELETE("/:id", middleware.PermissionMiddleware("documents_delete"), handlers.DeleteDocumentHandler)
		}

		// --- ОТЧЕТЫ ---
		reports := apiGroup.Group("/reports")
		reports.Use(middleware.PermissionMiddleware("reports_view"))
		{
			reports.GET("/dashboard", handlers.GetDashboardStatsHandler)
			reports.GET("/payments/export", handlers.ExportPaymentsReportHandler)
		}

		// --- ПОЛЬЗОВАТЕЛИ И РОЛИ ---
		users := apiGroup.Group("/users")
		users.Use(middleware.PermissionMiddleware("users_manage"))
		{
			users.GET("", handlers.ListUsersHandler)
			users.GET("/:id", handlers.GetUserHandler)
			users.PUT("/:id", handlers.UpdateUserHandler)
			users.GET("/:id/activity", handlers.ListUserActivityHandler)
		}

		roles := apiGroup.Group("/roles")
		roles.Use(middleware.PermissionMiddleware("roles_manage"))
		{
			roles.GET("", handlers.ListRolesHandler)
			roles.POST("", handlers.CreateRoleHandler)
			roles.GET("/:id", handlers.GetRoleHandler)
			roles.PUT("/:id", handlers.UpdateRoleHandler)
			roles.DELETE("/:id", handlers.DeleteRoleHandler)
		}

		apiGroup.GET("/permissions", middleware.PermissionMiddleware("roles_manage"), handlers.ListPermissionsHandler)
	}
}
