package router

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/pos-sync/controllers"
	"github.com/yeremiapane/pos-sync/kds"
	"github.com/yeremiapane/pos-sync/middlewares"
	"github.com/yeremiapane/pos-sync/syncengine"
	"gorm.io/gorm"
)

type Options struct {
	CORSOrigin string
	// RateLimit is requests per second per client IP; 0 disables it.
	RateLimit float64
}

func SetupRouter(db *gorm.DB, engine *syncengine.Engine, hub *kds.KDSHub, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(opts.CORSOrigin))
	r.Use(middlewares.LoggerMiddleware())
	if opts.RateLimit > 0 {
		r.Use(middlewares.NewRateLimiter(opts.RateLimit, int(opts.RateLimit*2)+1).RateLimit())
	}

	userCtrl := controllers.NewUserController(db)
	sessionCtrl := controllers.NewSessionController(engine)
	syncCtrl := controllers.NewSyncController(engine)
	categoryCtrl := controllers.NewMenuCategoryController(engine)
	menuCtrl := controllers.NewMenuController(engine)
	orderCtrl := controllers.NewOrderController(engine)
	cartCtrl := controllers.NewCartController(engine)
	brandCtrl := controllers.NewBrandController(engine)
	feedCtrl := controllers.NewFeedController(hub, func() interface{} { return engine.Status() }, engine.SessionUser)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter().RateLimit())
	{
		public.POST("/login", userCtrl.Login)
	}

	// Change feed; browsers pass the token as a query parameter.
	r.GET("/ws", middlewares.WebSocketAuthMiddleware(), feedCtrl.Serve)

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/")
	auth.Use(middlewares.AuthMiddleware())

	auth.POST("/session", sessionCtrl.Start)

	// Everything else acts on the running session, so only its user may call it.
	scoped := auth.Group("/")
	scoped.Use(middlewares.SessionOwner(engine.SessionUser))

	scoped.DELETE("/session", sessionCtrl.End)

	scoped.GET("/sync/status", syncCtrl.GetStatus)
	scoped.POST("/sync/refresh", syncCtrl.Refresh)
	scoped.GET("/state", syncCtrl.GetState)

	scoped.GET("/categories", categoryCtrl.GetAllCategories)
	scoped.POST("/categories", categoryCtrl.CreateCategory)
	scoped.DELETE("/categories/:cat_id", categoryCtrl.DeleteCategory)

	scoped.GET("/menu-items", menuCtrl.GetAllMenus)
	scoped.POST("/menu-items", menuCtrl.CreateMenu)
	scoped.PATCH("/menu-items/:menu_id", menuCtrl.UpdateMenu)
	scoped.DELETE("/menu-items/:menu_id", menuCtrl.DeleteMenu)

	scoped.GET("/orders", orderCtrl.GetAllOrders)
	scoped.POST("/orders", orderCtrl.CreateOrder)

	scoped.GET("/cart", cartCtrl.GetCart)
	scoped.PUT("/cart", cartCtrl.UpdateCart)
	scoped.DELETE("/cart", cartCtrl.ClearCart)

	scoped.GET("/brand", brandCtrl.GetBrand)
	scoped.PUT("/brand", brandCtrl.UpdateBrand)

	return r
}
