package webserver

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/notemoire/sociva/src/api/config"
	"github.com/notemoire/sociva/src/chain"
	"github.com/notemoire/sociva/src/feed"
	"github.com/notemoire/sociva/src/publisher"
)

func New(cfg config.Config, db *gorm.DB, rdb *redis.Client, log chain.Log, pub *publisher.Publisher) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	attachRoutes(r, cfg, db, rdb, log, pub)
	return r
}

func attachRoutes(r *gin.Engine, cfg config.Config, db *gorm.DB, rdb *redis.Client, log chain.Log, pub *publisher.Publisher) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "https://notemoire.io"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	authH := NewAuth(rdb, []byte(cfg.JWTSecret))
	sivsH := NewSivs(pub, log, feed.NewLedger(), rdb)
	profH := NewProfiles(db)
	limiter := NewRateLimiter(10, time.Minute)

	v1 := r.Group("/v1")
	{
		v1.POST("/auth/challenge", authH.Challenge)
		v1.POST("/auth/verify", authH.Verify)

		secured := v1.Group("")
		secured.Use(JWTMiddleware([]byte(cfg.JWTSecret)))

		secured.GET("/feed", sivsH.Feed)
		secured.POST("/polls/:id/vote", sivsH.Vote)

		writes := secured.Group("")
		writes.Use(RateLimitMiddleware(limiter))
		writes.POST("/sivs", sivsH.Publish)
		writes.POST("/polls", sivsH.CreatePoll)
		writes.DELETE("/sivs/:id", sivsH.Delete)

		secured.POST("/profile/login", profH.Login)
		secured.GET("/profile/:addr", profH.Get)
		secured.PUT("/profile", profH.Update)
	}
}
