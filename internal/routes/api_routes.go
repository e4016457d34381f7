package routes

import (
	"advisy-crm/internal/handlers"
	"advisy-crm/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterAPIRoutes enregistre toutes les routes API authentifiées.
func RegisterAPIRoutes(api *gin.RouterGroup) {
	apiGroup := api.Group("/api")
	{
		// --- NOTIFICATIONS ---
		apiGroup.GET("/notifications/ws", handlers.NotificationsWSEndpoint)

		// --- COLLABORATEURS ---
		users := apiGroup.Group("/users")
		users.Use(middleware.PermissionMiddleware("users_view"))
		{
			users.GET("", handlers.ListUsersHandler)
			users.POST("", middleware.PermissionMiddleware("users_create"), handlers.CreateUserHandler)
			users.GET("/:id", handlers.GetUserHandler)
			users.PUT("/:id", middleware.PermissionMiddleware("users_edit"), handlers.UpdateUserHandler)
			users.DELETE("/:id", middleware.PermissionMiddleware("users_delete"), handlers.DeleteUserHandler)
		}

		// --- CLIENTS ---
		clients := apiGroup.Group("/clients")
		clients.Use(middleware.PermissionMiddleware("clients_view"))
		{
			clients.GET("", handlers.ListClientsHandler)
			clients.POST("", middleware.PermissionMiddleware("clients_create"), handlers.CreateClientHandler)
			clients.GET("/:id", handlers.GetClientHandler)
			clients.PUT("/:id", middleware.PermissionMiddleware("clients_edit"), handlers.UpdateClientHandler)
			clients.DELETE("/:id", middleware.PermissionMiddleware("clients_delete"), handlers.DeleteClientHandler)
			clients.POST("/:id/relatives", middleware.PermissionMiddleware("clients_edit"), handlers.AddFamilyLinkHandler)
			clients.DELETE("/:id/relatives/:relativeId", middleware.PermissionMiddleware("clients_edit"), handlers.RemoveFamilyLinkHandler)
			clients.GET("/:id/documents", handlers.ListClientDocumentsHandler)
			clients.POST("/:id/documents", middleware.PermissionMiddleware("clients_edit"), handlers.UploadClientDocumentHandler)
		}

		// --- DOCUMENTS ---
		documents := apiGroup.Group("/documents")
		{
			documents.GET("/:id/download", handlers.DownloadDocumentHandler)
			documents.DELETE("/:id", middleware.PermissionMiddleware("clients_edit"), handlers.DeleteDocumentHandler)
		}

		// --- COMPAGNIES ---
		companies := apiGroup.Group("/companies")
		{
			companies.GET("", handlers.ListCompaniesHandler)
			companies.POST("", middleware.PermissionMiddleware("catalog_edit"), handlers.CreateCompanyHandler)
			companies.GET("/:id", handlers.GetCompanyHandler)
			companies.PUT("/:id", middleware.PermissionMiddleware("catalog_edit"), handlers.UpdateCompanyHandler)
			companies.DELETE("/:id", middleware.PermissionMiddleware("catalog_edit"), handlers.DeleteCompanyHandler)
		}

		// --- PRODUITS ---
		products := apiGroup.Group("/products")
		{
			products.GET("", handlers.ListProductsHandler)
			products.GET("/search", handlers.SearchProductAliasHandler)
			products.POST("", middleware.PermissionMiddleware("catalog_edit"), handlers.CreateProductHandler)
			products.GET("/:id", handlers.GetProductHandler)
			products.PUT("/:id", middleware.PermissionMiddleware("catalog_edit"), handlers.UpdateProductHandler)
			products.DELETE("/:id", middleware.PermissionMiddleware("catalog_edit"), handlers.DeleteProductHandler)
		}

		// --- POLICES ---
		policies := apiGroup.Group("/policies")
		policies.Use(middleware.PermissionMiddleware("policies_view"))
		{
			policies.GET("", handlers.ListPoliciesHandler)
			policies.POST("", middleware.PermissionMiddleware("policies_edit"), handlers.SubmitPolicyHandler)
			policies.GET("/export", handlers.ExportPoliciesHandler)
			policies.GET("/:id", handlers.GetPolicyHandler)
			policies.PUT("/:id", middleware.PermissionMiddleware("policies_edit"), handlers.UpdatePolicyHandler)
			policies.POST("/:id/terminate", middleware.PermissionMiddleware("policies_edit"), handlers.TerminatePolicyHandler)
			policies.DELETE("/:id", middleware.PermissionMiddleware("policies_delete"), handlers.DeletePolicyHandler)
		}

		// --- COMMISSIONS ---
		commissions := apiGroup.Group("/commissions")
		commissions.Use(middleware.PermissionMiddleware("commissions_view"))
		{
			commissions.GET("", handlers.ListCommissionsHandler)
			commissions.POST("", middleware.PermissionMiddleware("commissions_edit"), handlers.CreateCommissionHandler)
			commissions.GET("/export", handlers.ExportCommissionsHandler)
			commissions.GET("/:id", handlers.GetCommissionHandler)
			commissions.GET("/:id/statement", handlers.CommissionStatementHandler)
			commissions.PUT("/:id", middleware.PermissionMiddleware("commissions_edit"), handlers.UpdateCommissionHandler)
			commissions.DELETE("/:id", middleware.PermissionMiddleware("commissions_delete"), handlers.DeleteCommissionHandler)

			// Le moteur de répartition rejoue l'état du formulaire à
			// chaque opération, rien n'est persisté avant le POST final.
			allocator := commissions.Group("/allocator")
			{
				allocator.POST("/add-part", handlers.AllocatorAddPartHandler)
				allocator.POST("/update-rate", handlers.AllocatorUpdateRateHandler)
				allocator.POST("/remove-part", handlers.AllocatorRemovePartHandler)
				allocator.POST("/recompute", handlers.AllocatorRecomputeHandler)
				allocator.POST("/auto-populate", handlers.AllocatorAutoPopulateHandler)
			}

			commissions.POST("/preview-formula", handlers.PreviewCommissionFormulaHandler)
		}

		// --- IA-SCAN ---
		scans := apiGroup.Group("/scans")
		scans.Use(middleware.PermissionMiddleware("scans_view"))
		{
			scans.GET("", handlers.ListScanSessionsHandler)
			scans.POST("", middleware.PermissionMiddleware("scans_submit"), handlers.UploadScanHandler)
			scans.GET("/:id", handlers.GetScanSessionHandler)
			scans.POST("/:id/extract", middleware.PermissionMiddleware("scans_submit"), handlers.ExtractScanHandler)
			scans.PUT("/:id", middleware.PermissionMiddleware("scans_submit"), handlers.UpdateScanHandler)
			scans.POST("/:id/validate", middleware.PermissionMiddleware("scans_validate"), handlers.ValidateScanHandler)
			scans.DELETE("/:id", middleware.PermissionMiddleware("scans_submit"), handlers.DeleteScanSessionHandler)
		}

		// --- TÂCHES ---
		tasks := apiGroup.Group("/tasks")
		{
			tasks.GET("", handlers.ListTasksHandler)
			tasks.POST("", handlers.CreateTaskHandler)
			tasks.PUT("/:id", handlers.UpdateTaskHandler)
			tasks.DELETE("/:id", handlers.DeleteTaskHandler)
		}

		// --- INTÉGRATIONS ---
		integrations := apiGroup.Group("/integrations")
		integrations.Use(middleware.PermissionMiddleware("integrations_manage"))
		{
			integrations.GET("/ia-scan", handlers.GetIAScanSettingsHandler)
			integrations.POST("/ia-scan", handlers.SaveIAScanSettingsHandler)
		}
	}
}
