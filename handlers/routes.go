package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/loyalty_backend/middlewares"
	"github.com/mmdatafocus/loyalty_backend/models"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"github.com/mmdatafocus/loyalty_backend/workflow"
)

// Deps carries the collaborators handlers need beyond the global db/redis clients.
type Deps struct {
	Reviews   *workflow.ReviewCoordinator
	Evaluator *workflow.TierEvaluator
	Storage   utils.ObjectStorage
}

func RegisterRoutes(r gin.IRouter, deps Deps) {
	read := func(module string) gin.HandlerFunc { return middlewares.RequireModule(module, models.ActionRead) }
	write := func(module string) gin.HandlerFunc { return middlewares.RequireModule(module, models.ActionWrite) }
	approve := func(module string) gin.HandlerFunc { return middlewares.RequireModule(module, models.ActionApprove) }

	r.POST("/auth/login", loginHandler())

	api := r.Group("/api", middlewares.RequireAuth())
	api.POST("/auth/logout", logoutHandler())
	api.GET("/auth/me", meHandler())
	api.GET("/modules", modulesHandler())

	users := api.Group("/users", middlewares.RequireAdmin())
	users.GET("", listUsersHandler())
	users.POST("", createUserHandler())
	users.GET("/:id", getUserHandler())
	users.PUT("/:id", updateUserHandler())
	users.PATCH("/:id/active", toggleUserHandler())

	roles := api.Group("/roles")
	roles.GET("", read(models.ModuleRoles), listRolesHandler())
	roles.GET("/:id", read(models.ModuleRoles), getRoleHandler())
	roles.POST("", write(models.ModuleRoles), createRoleHandler())
	roles.PUT("/:id", write(models.ModuleRoles), updateRoleHandler())
	roles.DELETE("/:id", write(models.ModuleRoles), deleteRoleHandler())

	tiers := api.Group("/tiers")
	tiers.GET("", read(models.ModuleTierDefinitions), listTiersHandler())
	tiers.GET("/:id", read(models.ModuleTierDefinitions), getTierHandler())
	tiers.GET("/resolve", read(models.ModuleTierDefinitions), resolveTierHandler())
	tiers.POST("", write(models.ModuleTierDefinitions), createTierHandler())
	tiers.PUT("/:id", write(models.ModuleTierDefinitions), updateTierHandler())
	tiers.DELETE("/:id", write(models.ModuleTierDefinitions), deleteTierHandler())
	tiers.PATCH("/:id/active", write(models.ModuleTierDefinitions), toggleTierHandler())

	customers := api.Group("/customers")
	customers.GET("", read(models.ModuleCustomers), listCustomersHandler())
	customers.GET("/:id", read(models.ModuleCustomers), getCustomerHandler())
	customers.GET("/:id/history", read(models.ModuleCustomers), historyHandler("customer_tiers"))
	customers.POST("", write(models.ModuleCustomers), createCustomerHandler())
	customers.PUT("/:id", write(models.ModuleCustomers), updateCustomerHandler())
	customers.DELETE("/:id", write(models.ModuleCustomers), deleteCustomerHandler())
	customers.PATCH("/:id/active", write(models.ModuleCustomers), toggleCustomerHandler())
	customers.POST("/evaluate", write(models.ModuleTasks), evaluateHandler(deps.Evaluator))

	reviews := api.Group("/reviews")
	reviews.GET("", read(models.ModuleReviews), listReviewsHandler())
	reviews.GET("/:id", read(models.ModuleReviews), getReviewHandler())
	reviews.POST("", write(models.ModuleReviews), createReviewHandler(deps.Reviews))
	reviews.POST("/:id/approve", approve(models.ModuleReviews), decideReviewHandler(deps.Reviews, models.ReviewStatusApproved))
	reviews.POST("/:id/reject", approve(models.ModuleReviews), decideReviewHandler(deps.Reviews, models.ReviewStatusRejected))

	benefits := api.Group("/benefits")
	benefits.GET("", read(models.ModuleBenefits), listBenefitsHandler())
	benefits.GET("/:id", read(models.ModuleBenefits), getBenefitHandler())
	benefits.GET("/:id/redemptions", read(models.ModuleBenefits), listRedemptionsHandler())
	benefits.POST("", write(models.ModuleBenefits), createBenefitHandler())
	benefits.PUT("/:id", write(models.ModuleBenefits), updateBenefitHandler())
	benefits.DELETE("/:id", write(models.ModuleBenefits), deleteBenefitHandler())
	benefits.PATCH("/:id/active", write(models.ModuleBenefits), toggleBenefitHandler())
	benefits.POST("/:id/image", write(models.ModuleBenefits), uploadBenefitImageHandler(deps.Storage))
	benefits.POST("/redeem", write(models.ModuleBenefits), redeemBenefitHandler())

	notifications := api.Group("/notifications")
	notifications.GET("", read(models.ModuleNotifications), listNotificationsHandler())
	notifications.GET("/:id", read(models.ModuleNotifications), getNotificationHandler())
	notifications.POST("", write(models.ModuleNotifications), createNotificationHandler())
	notifications.PUT("/:id", write(models.ModuleNotifications), updateNotificationHandler())
	notifications.DELETE("/:id", write(models.ModuleNotifications), deleteNotificationHandler())
	notifications.POST("/:id/send", write(models.ModuleNotifications), sendNotificationHandler())

	parameters := api.Group("/parameters")
	parameters.GET("", read(models.ModuleParameters), listParametersHandler())
	parameters.GET("/:id", read(models.ModuleParameters), getParameterHandler())
	parameters.GET("/key/:key", read(models.ModuleParameters), getParameterByKeyHandler())
	parameters.POST("", write(models.ModuleParameters), createParameterHandler())
	parameters.PUT("/:id", write(models.ModuleParameters), updateParameterHandler())
	parameters.DELETE("/:id", write(models.ModuleParameters), deleteParameterHandler())

	branches := api.Group("/branches")
	branches.GET("", read(models.ModuleBranches), listBranchesHandler())
	branches.GET("/:id", read(models.ModuleBranches), getBranchHandler())
	branches.POST("", write(models.ModuleBranches), createBranchHandler())
	branches.PUT("/:id", write(models.ModuleBranches), updateBranchHandler())
	branches.DELETE("/:id", write(models.ModuleBranches), deleteBranchHandler())
	branches.PATCH("/:id/active", write(models.ModuleBranches), toggleBranchHandler())

	tasks := api.Group("/tasks")
	tasks.GET("", read(models.ModuleTasks), listTasksHandler())
	tasks.GET("/:id", read(models.ModuleTasks), getTaskHandler())
	tasks.POST("", write(models.ModuleTasks), createTaskHandler())
	tasks.PUT("/:id", write(models.ModuleTasks), updateTaskHandler())
	tasks.DELETE("/:id", write(models.ModuleTasks), deleteTaskHandler())
	tasks.PATCH("/:id/status", write(models.ModuleTasks), updateTaskStatusHandler())

	approvals := api.Group("/approvals")
	approvals.GET("", read(models.ModuleApprovals), listApprovalsHandler())
	approvals.GET("/:id", read(models.ModuleApprovals), getApprovalHandler())
	approvals.POST("", write(models.ModuleApprovals), createApprovalHandler())
	approvals.POST("/:id/approve", approve(models.ModuleApprovals), decideApprovalHandler(models.ApprovalStatusApproved))
	approvals.POST("/:id/reject", approve(models.ModuleApprovals), decideApprovalHandler(models.ApprovalStatusRejected))

	metrics := api.Group("/api-metrics")
	metrics.GET("", read(models.ModuleApiMetrics), listApiMetricsHandler())
	metrics.GET("/:id", read(models.ModuleApiMetrics), getApiMetricHandler())
	metrics.POST("", write(models.ModuleApiMetrics), recordApiMetricHandler())

	points := api.Group("/points")
	points.GET("/accounts", read(models.ModulePoints), listPointsAccountsHandler())
	points.GET("/accounts/:id", read(models.ModulePoints), getPointsAccountHandler())
	points.GET("/accounts/:id/ledger", read(models.ModulePoints), listLedgerHandler())
	points.GET("/accounts/:id/transfers", read(models.ModulePoints), listTransfersHandler())
	points.POST("/accounts", write(models.ModulePoints), openPointsAccountHandler())
	points.POST("/accounts/:id/entries", write(models.ModulePoints), postPointsHandler())
	points.POST("/accounts/:id/freeze", write(models.ModulePoints), freezePointsAccountHandler())
	points.POST("/accounts/:id/unfreeze", write(models.ModulePoints), unfreezePointsAccountHandler())
	points.POST("/accounts/:id/close", write(models.ModulePoints), closePointsAccountHandler())
	points.POST("/transfers", write(models.ModulePoints), transferPointsHandler())

	reports := api.Group("/reports", read(models.ModuleReports))
	reports.GET("/dashboard", dashboardHandler())
	reports.GET("/tier-distribution", tierDistributionHandler())
	reports.GET("/points-summary", pointsSummaryHandler())
	reports.GET("/benefit-redemptions", benefitRedemptionsHandler())
	reports.GET("/review-summary", reviewSummaryHandler())
	reports.GET("/integration-status", integrationStatusHandler())
	reports.GET("/branch-summary", branchSummaryHandler())
	reports.GET("/:name/export", exportReportHandler())

	outbox := api.Group("/outbox", middlewares.RequireAdmin())
	outbox.GET("", listOutboxHandler())
	outbox.POST("/:id/replay", replayOutboxHandler())
}
