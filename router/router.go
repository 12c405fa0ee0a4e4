package router

import (
	"time"

	"finpalette/api"
	"finpalette/config"
	"finpalette/dataaccess"
	_ "finpalette/docs"
	"finpalette/localstore"
	"finpalette/middleware"
	"finpalette/migration"
	"finpalette/remotestore"
	"finpalette/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Deps 路由依赖
type Deps struct {
	Config      *config.Config
	Remote      *remotestore.Store
	Local       *localstore.Registry
	Data        *dataaccess.Service
	Dispatcher  *migration.Dispatcher
	Broadcaster *service.Broadcaster
}

// SetupRouter 设置路由
func SetupRouter(d Deps) *gin.Engine {
	cfg := d.Config
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	resolver := api.NewSessionResolver(d.Remote, d.Local)
	authHandler := api.NewAuthHandler(cfg, d.Remote, d.Dispatcher)
	transactionHandler := api.NewTransactionHandler(resolver, d.Data)
	categoryHandler := api.NewCategoryHandler(resolver, d.Data, d.Remote)
	summaryHandler := api.NewSummaryHandler(resolver, d.Data)
	preferenceHandler := api.NewPreferenceHandler(d.Local)
	paletteHandler := api.NewPaletteHandler(cfg, d.Remote, d.Data)
	exportHandler := api.NewExportHandler(d.Remote)

	// 计数按 路由+IP 分开，接受邀请不占用登录次数
	loginLimit := middleware.LoginRateLimit(10, time.Minute)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.GuestKey())
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", loginLimit, authHandler.Register)
			auth.POST("/login", loginLimit, authHandler.Login)
			auth.GET("/profile", middleware.JWTAuth(), authHandler.GetProfile)
		}

		// 游客与已登录用户共用
		shared := v1.Group("")
		shared.Use(middleware.OptionalJWTAuth())
		{
			shared.GET("/transactions", transactionHandler.List)
			shared.POST("/transactions", transactionHandler.Create)
			shared.PUT("/transactions/:id", transactionHandler.Update)
			shared.DELETE("/transactions/:id", transactionHandler.Delete)
			shared.GET("/categories", categoryHandler.Current)
			shared.GET("/summary", summaryHandler.Monthly)
			shared.GET("/preferences", preferenceHandler.Get)
			shared.PUT("/preferences", preferenceHandler.Update)
		}

		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth())
		{
			authorized.GET("/palettes", paletteHandler.List)
			authorized.POST("/palettes", paletteHandler.Create)
			authorized.POST("/invitations/accept", loginLimit, paletteHandler.AcceptInvitation)

			member := middleware.RequirePaletteRole(d.Remote, middleware.ReadRoles...)
			editor := middleware.RequirePaletteRole(d.Remote, middleware.WriteRoles...)
			manager := middleware.RequirePaletteRole(d.Remote, middleware.ManageRoles...)
			owner := middleware.RequirePaletteRole(d.Remote, middleware.OwnerRoles...)

			palette := authorized.Group("/palettes/:paletteId")
			{
				palette.PUT("", owner, paletteHandler.Update)
				palette.DELETE("", owner, paletteHandler.Delete)

				palette.GET("/members", member, paletteHandler.Members)
				palette.PUT("/members/:userId", owner, paletteHandler.UpdateRole)
				palette.DELETE("/members/:userId", member, paletteHandler.RemoveMember)
				palette.POST("/invitations", manager, paletteHandler.CreateInvitation)

				palette.GET("/categories", member, categoryHandler.List)
				palette.POST("/categories", editor, categoryHandler.Create)
				palette.PUT("/categories/:code", editor, categoryHandler.Update)
				palette.DELETE("/categories/:code", editor, categoryHandler.Delete)

				palette.GET("/export/excel", member, exportHandler.ExportExcel)
				if d.Broadcaster != nil {
					palette.GET("/ws", member, api.NewWSHandler(d.Broadcaster).Subscribe)
				}
			}
		}
	}

	return r
}

// CORSMiddleware CORS 跨域中间件，未配置来源时允许全部
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Content-Length", "Accept", "Authorization",
			middleware.HeaderGuestID, api.HeaderPaletteID,
		},
		ExposeHeaders: []string{"Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowOrigins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowOrigins
		c.AllowCredentials = true
	}
	return cors.New(c)
}
