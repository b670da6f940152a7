package routes

import (
	"net/http"

	handler "bank-reconciliation-backend/internal/handlers"
	"bank-reconciliation-backend/internal/services/reconciliation"
	"bank-reconciliation-backend/internal/services/statement"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Services struct {
	Reconciliation *reconciliation.Service
	Statement      *statement.Service
	// Gatherer backs /metrics when set.
	Gatherer prometheus.Gatherer
}

func RegisterRoutes(r *gin.Engine, svc Services) {
	reconHandler := handler.NewReconciliationHandler(svc.Reconciliation)
	statementHandler := handler.NewStatementHandler(svc.Statement)

	if svc.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(svc.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	accounts := api.Group("/accounts")
	accounts.POST("", statementHandler.CreateAccount)
	accounts.GET("", statementHandler.ListAccounts)
	accounts.GET("/:accountId", statementHandler.GetAccount)
	accounts.POST("/:accountId/transactions", statementHandler.CreateTransaction)
	accounts.POST("/:accountId/statements", statementHandler.Upload)
	accounts.GET("/:accountId/statements", statementHandler.ListStatements)
	accounts.GET("/:accountId/reconciliations", reconHandler.ListForAccount)

	api.GET("/statements/:statementId/transactions", statementHandler.ListLines)

	recon := api.Group("/reconciliations")
	recon.POST("", reconHandler.Start)
	recon.GET("/:id", reconHandler.Get)
	recon.PUT("/:id/book-balances", reconHandler.UpdateBookBalances)
	recon.GET("/:id/summary", reconHandler.Summary)
	recon.GET("/:id/matches", reconHandler.Matches)
	recon.GET("/:id/audit", reconHandler.AuditLog)
	recon.POST("/:id/auto-match", reconHandler.AutoMatch)
	recon.POST("/:id/match", reconHandler.ManualMatch)
	recon.POST("/:id/unmatch", reconHandler.Unmatch)
	recon.GET("/:id/suggestions/:bankTransactionId", reconHandler.Suggestions)
	recon.POST("/:id/complete", reconHandler.Complete)
}
