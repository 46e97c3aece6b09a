package router

import (
	"beans/internal/handlers"
	"beans/internal/middleware"
	"beans/internal/services"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine) {
	store := services.GetObjectStore()
	feed := services.NewFeedService(store)

	// Handlers
	postHandler := handlers.NewPostHandler(feed, store)
	commentHandler := handlers.NewCommentHandler(services.NewCommentService(services.NewPushService()))
	likeHandler := handlers.NewLikeHandler()
	followHandler := handlers.NewFollowHandler()
	userHandler := handlers.NewUserHandler(store)
	beanHandler := handlers.NewBeanProfileHandler()
	gearHandler := handlers.NewGearHandler()
	deviceHandler := handlers.NewDeviceHandler()
	notificationHandler := handlers.NewNotificationHandler()
	uploadHandler := handlers.NewUploadHandler(store)

	// 公共路由，未登录也可浏览
	public := r.Group("/api")
	{
		public.GET("/feed", postHandler.Feed)                          // 全站信息流
		public.GET("/posts/:pid", postHandler.Detail)                  // 帖子详情（含冲煮步骤和评论）
		public.GET("/users/:uid", userHandler.Profile)                 // 用户主页
		public.GET("/users/:uid/posts", postHandler.UserPosts)         // 某人的帖子列表
		public.GET("/users/:uid/followers", followHandler.Followers)   // 粉丝列表
		public.GET("/users/:uid/following", followHandler.Following)   // 关注列表
	}

	// 受保护路由
	authorized := r.Group("/api")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/feed/following", postHandler.FollowingFeed) // 关注流

		authorized.POST("/posts", postHandler.Create)       // 发布冲煮记录
		authorized.POST("/posts/:pid", postHandler.Update)  // 编辑
		authorized.DELETE("/posts/:pid", postHandler.Delete)

		authorized.POST("/posts/:pid/comments", commentHandler.Create)
		authorized.DELETE("/comments/:cid", commentHandler.Delete)

		authorized.POST("/posts/:pid/like", likeHandler.Like)
		authorized.DELETE("/posts/:pid/like", likeHandler.Unlike)

		authorized.POST("/users/:uid/follow", followHandler.Follow)
		authorized.DELETE("/users/:uid/follow", followHandler.Unfollow)

		authorized.GET("/me", userHandler.Me)
		authorized.PATCH("/me", userHandler.UpdateMe)
		authorized.GET("/me/posts", postHandler.MyPosts)

		// 豆卡和器具库
		authorized.GET("/beans", beanHandler.List)
		authorized.POST("/beans", beanHandler.Create)
		authorized.POST("/beans/:id", beanHandler.Update)
		authorized.DELETE("/beans/:id", beanHandler.Delete)

		authorized.GET("/gear", gearHandler.List)
		authorized.POST("/gear", gearHandler.Create)
		authorized.POST("/gear/:id", gearHandler.Update)
		authorized.DELETE("/gear/:id", gearHandler.Delete)

		authorized.POST("/devices", deviceHandler.Register)
		authorized.DELETE("/devices/:token", deviceHandler.Unregister)

		authorized.GET("/notifications", notificationHandler.List)
		authorized.POST("/notifications/:id/read", notificationHandler.Read)
		authorized.POST("/notifications/read-all", notificationHandler.ReadAll)
		authorized.DELETE("/notifications/:id", notificationHandler.Delete)

		authorized.POST("/uploads", uploadHandler.Create) // 换取预签名直传 URL
	}

	// 认证服务回调，不走用户中间件
	r.DELETE("/hooks/auth/users/:subject", userHandler.DeleteByAuthSubject)
}
