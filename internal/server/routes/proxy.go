package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/osa911/proxydesk/internal/api/handlers"
)

// SetupProxyRoutes configures proxy fragment and server control routes
func SetupProxyRoutes(api *gin.RouterGroup, proxy *handlers.ProxyHandler, nginx *handlers.NginxHandler) {
	proxies := api.Group("/proxies")
	{
		proxies.GET("", proxy.ListProxies)
		proxies.POST("", proxy.CreateProxy)
		proxies.DELETE("/:filename", proxy.DeleteProxy)
	}

	api.GET("/status", nginx.Status)
	api.POST("/reload", nginx.Reload)
}

// SetupBackupRoutes configures snapshot routes
func SetupBackupRoutes(api *gin.RouterGroup, backup *handlers.BackupHandler) {
	api.POST("/backup", backup.CreateBackup)
	api.GET("/backups", backup.ListBackups)
	api.GET("/backups/:name", backup.DownloadBackup)
}

// SetupSystemRoutes configures host overview and log routes
func SetupSystemRoutes(api *gin.RouterGroup, system *handlers.SystemHandler) {
	api.GET("/system", system.SystemInfo)
	api.GET("/logs/:type", system.Logs)
}
