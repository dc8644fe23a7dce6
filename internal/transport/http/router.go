package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nbekov/account-service/internal/transport/http/handler"
	"github.com/nbekov/account-service/internal/transport/http/middleware"

	sloggin "github.com/samber/slog-gin"
)

func NewRouter(logger *slog.Logger, authHandler *handler.AuthHandler, graphqlHandler http.Handler, jwtKey []byte) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)
	r.POST("/reset-password", authHandler.ResetPassword)
	r.GET("/reset-password/:token", authHandler.ResetForm)

	r.GET("/me", middleware.Auth(jwtKey), authHandler.Me)

	// Same operations over GraphQL; GET serves GraphiQL.
	r.POST("/graphql", gin.WrapH(graphqlHandler))
	r.GET("/graphql", gin.WrapH(graphqlHandler))

	return r
}
