// Package server is the development backend for the PulseFeed client: the
// full /api/v1 REST surface over gorm storage, JWT auth, a redis-backed OTP
// store and a websocket hub fed by an in-process notification bus.
package server

import (
	"context"
	"os"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pulsefeed/pulsefeed-go/server/middlewares"
	"github.com/pulsefeed/pulsefeed-go/utils/log"
)

type Server struct {
	db  *gorm.DB
	otp *OTPStore
	hub *Hub
	bus *gochannel.GoChannel
}

// NewServer wires storage, the OTP store, the websocket hub and the
// notification bus, and starts the hub and bus forwarding goroutines.
func NewServer(db *gorm.DB) (*Server, error) {
	s := &Server{
		db:  db,
		otp: NewOTPStore(os.Getenv("REDIS_URL")),
		hub: NewHub(),
		bus: NewEventBus(),
	}
	go s.hub.Run()
	if err := ForwardNotifications(context.Background(), s.bus, s.hub); err != nil {
		return nil, err
	}
	return s, nil
}

// Router builds the gin engine with every route mounted.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.Use(cors.Default())

	api := r.Group("/api/v1")

	auth := api.Group("/auth")
	{
		auth.POST("/register", s.Register)
		auth.POST("/login", s.Login)
		auth.POST("/refresh", s.RefreshToken)
		auth.POST("/send-otp", s.SendOTP)
		auth.POST("/verify-otp", s.VerifyOTP)
	}

	protected := api.Group("/")
	protected.Use(middlewares.AuthRequired())
	{
		users := protected.Group("/users")
		{
			users.GET("/me", s.GetProfile)
			users.PUT("/me", s.UpdateProfile)
			users.GET("/search", s.SearchUsers)
			users.GET("/:id", s.GetUserProfile)
			users.POST("/:id/follow", s.FollowUser)
			users.DELETE("/:id/follow", s.UnfollowUser)
			users.GET("/:id/followers", s.GetFollowers)
			users.GET("/:id/following", s.GetFollowing)
		}

		posts := protected.Group("/posts")
		{
			posts.POST("", s.CreatePost)
			posts.GET("/feed", s.GetFeed)
			posts.GET("/user/:id", s.GetUserPosts)
			posts.GET("/:id", s.GetPost)
			posts.POST("/:id/like", s.LikePost)
			posts.DELETE("/:id/like", s.UnlikePost)
			posts.GET("/:id/comments", s.GetComments)
			posts.POST("/:id/comments", s.CreateComment)
		}

		notifications := protected.Group("/notifications")
		{
			notifications.GET("", s.GetNotifications)
			notifications.PUT("/:id/read", s.MarkNotificationRead)
		}

		protected.POST("/uploads/media", s.UploadMedia)
	}

	r.GET("/ws", s.HandleWebSocket)
	r.Static("/uploads", "./uploads")

	return r
}

// Run serves until the listener fails.
func (s *Server) Run() error {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Log.Infof("server listening on port %s", port)
	return s.Router().Run(":" + port)
}

func (s *Server) Close() error {
	s.hub.Close()
	s.bus.Close()
	return s.otp.Close()
}

func abortWithError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func currentUserID(c *gin.Context) int {
	return c.GetInt("user_id")
}
