// Package router provides RAG service routing.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kart-io/sentinel-rag/internal/rag/docs"
	ragGRPC "github.com/kart-io/sentinel-rag/internal/rag/grpc"
	"github.com/kart-io/sentinel-rag/internal/rag/handler"
	"github.com/kart-io/sentinel-rag/pkg/infra/middleware"
	grpcserver "github.com/kart-io/sentinel-rag/pkg/infra/server/transport/grpc"
)

// Options 路由注册选项。
type Options struct {
	// MaxUploadSize 上传接口的请求体上限。
	MaxUploadSize int64
	// EnableSwagger 是否注册 /swagger 文档。
	EnableSwagger bool
}

// RegisterHTTP registers the RAG HTTP routes on engine.
func RegisterHTTP(engine *gin.Engine, h *handler.RAGHandler, logs *handler.LogStream, opts Options) {
	logger.Info("Registering RAG HTTP routes...")

	engine.GET("/", handler.Index)
	engine.StaticFS("/static", handler.StaticFS())

	api := engine.Group("/api")
	{
		api.POST("/upload", middleware.BodyLimit(opts.MaxUploadSize), h.Upload)
		api.GET("/documents", h.ListDocuments)
		api.DELETE("/documents/:doc_id", h.DeleteDocument)
		api.POST("/query", h.Query)
		api.GET("/health", h.Health)

		v1 := api.Group("/v1/rag")
		{
			v1.GET("/metrics", h.Metrics)
			v1.GET("/events", h.Events)
		}
	}

	if logs != nil {
		engine.GET("/ws/logs", logs.Serve)
	}

	if opts.EnableSwagger {
		// Swagger UI - 访问地址: /swagger/index.html
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
			ginSwagger.InstanceName(docs.SwaggerInforag.InstanceName())))
		logger.Info("Swagger UI available at /swagger/index.html")
	}

	logger.Info("HTTP routes registered")
}

// RegisterGRPC registers the RAG gRPC service on srv.
func RegisterGRPC(srv *grpcserver.Server, h *ragGRPC.Handler) {
	srv.RegisterService(&ragGRPC.ServiceDesc, h)
	logger.Infow("gRPC routes registered", "service", ragGRPC.ServiceName)
}
