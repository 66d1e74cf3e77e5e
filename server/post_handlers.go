package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pulsefeed/pulsefeed-go/api"
	"github.com/pulsefeed/pulsefeed-go/model"
)

func parseLimit(c *gin.Context, def int) int {
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 50 {
			return parsed
		}
	}
	return def
}

func parseOffset(c *gin.Context) int {
	if o := c.Query("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return 0
}

func (s *Server) postWithUser(post model.Post, viewerID int) model.PostWithUser {
	post.IsLiked = isLikedBy(s.db, post.ID, viewerID)
	user, err := userWithCounts(s.db, post.UserID, viewerID)
	if err != nil {
		user = nil
	}
	return model.PostWithUser{Post: post, User: user}
}

func (s *Server) CreatePost(c *gin.Context) {
	userID := currentUserID(c)

	var req api.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Content == "" && len(req.MediaURLs) == 0 {
		abortWithError(c, http.StatusBadRequest, "post content is required")
		return
	}

	post := model.Post{
		UserID:    userID,
		Content:   req.Content,
		MediaURLs: model.MediaURLs(req.MediaURLs),
		MediaType: req.MediaType,
		CreatedAt: nowStamp(),
		UpdatedAt: nowStamp(),
	}
	if err := s.db.Create(&post).Error; err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to create post")
		return
	}

	result := s.postWithUser(post, userID)
	s.hub.Broadcast(map[string]interface{}{
		"type": "new_post",
		"data": result,
	})
	c.JSON(http.StatusCreated, result)
}

func (s *Server) GetFeed(c *gin.Context) {
	userID := currentUserID(c)
	limit := parseLimit(c, 20)
	offset := parseOffset(c)

	var posts []model.Post
	err := s.db.
		Where("user_id = ? OR user_id IN (?)",
			userID,
			s.db.Model(&Follow{}).Select("following_id").Where("follower_id = ?", userID),
		).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get feed")
		return
	}

	resp := api.FeedResponse{
		Posts:   make([]model.PostWithUser, 0, len(posts)),
		HasMore: len(posts) == limit,
	}
	for _, post := range posts {
		resp.Posts = append(resp.Posts, s.postWithUser(post, userID))
	}
	if resp.HasMore {
		resp.NextCursor = strconv.Itoa(offset + len(posts))
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetUserPosts(c *gin.Context) {
	viewerID := currentUserID(c)
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid user ID")
		return
	}
	limit := parseLimit(c, 20)
	offset := parseOffset(c)

	var posts []model.Post
	err = s.db.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user posts")
		return
	}

	resp := api.FeedResponse{
		Posts:   make([]model.PostWithUser, 0, len(posts)),
		HasMore: len(posts) == limit,
	}
	for _, post := range posts {
		resp.Posts = append(resp.Posts, s.postWithUser(post, viewerID))
	}
	if resp.HasMore {
		resp.NextCursor = strconv.Itoa(offset + len(posts))
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetPost(c *gin.Context) {
	viewerID := currentUserID(c)
	postID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid post ID")
		return
	}

	var post model.Post
	if err := s.db.First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			abortWithError(c, http.StatusNotFound, "Post not found")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to get post")
		return
	}
	c.JSON(http.StatusOK, s.postWithUser(post, viewerID))
}

func (s *Server) LikePost(c *gin.Context) {
	userID := currentUserID(c)
	postID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid post ID")
		return
	}

	var post model.Post
	if err := s.db.First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			abortWithError(c, http.StatusNotFound, "Post not found")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	like := Like{PostID: postID, UserID: userID, CreatedAt: nowStamp()}
	res := s.db.FirstOrCreate(&like, Like{PostID: postID, UserID: userID})
	if res.Error != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to like post")
		return
	}
	if res.RowsAffected > 0 {
		s.db.Model(&post).Update("likes_count", gorm.Expr("likes_count + 1"))
		if post.UserID != userID {
			s.createNotification(post.UserID, model.NotificationLike, userID, &postID)
		}
	}

	var count int64
	s.db.Model(&Like{}).Where("post_id = ?", postID).Count(&count)
	c.JSON(http.StatusOK, api.LikeResponse{IsLiked: true, LikesCount: int(count)})
}

func (s *Server) UnlikePost(c *gin.Context) {
	userID := currentUserID(c)
	postID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid post ID")
		return
	}

	res := s.db.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&Like{})
	if res.Error != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to unlike post")
		return
	}
	if res.RowsAffected > 0 {
		s.db.Model(&model.Post{}).
			Where("id = ? AND likes_count > 0", postID).
			Update("likes_count", gorm.Expr("likes_count - 1"))
	}

	var count int64
	s.db.Model(&Like{}).Where("post_id = ?", postID).Count(&count)
	c.JSON(http.StatusOK, api.LikeResponse{IsLiked: false, LikesCount: int(count)})
}

func (s *Server) GetComments(c *gin.Context) {
	postID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid post ID")
		return
	}

	var comments []model.Comment
	err = s.db.
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get comments")
		return
	}

	viewerID := currentUserID(c)
	result := make([]model.CommentWithUser, 0, len(comments))
	for _, comment := range comments {
		user, userErr := userWithCounts(s.db, comment.UserID, viewerID)
		if userErr != nil {
			user = nil
		}
		result = append(result, model.CommentWithUser{Comment: comment, User: user})
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) CreateComment(c *gin.Context) {
	userID := currentUserID(c)
	postID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid post ID")
		return
	}

	var req api.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Content == "" {
		abortWithError(c, http.StatusBadRequest, "comment content is required")
		return
	}

	var post model.Post
	if err := s.db.First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			abortWithError(c, http.StatusNotFound, "Post not found")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	comment := model.Comment{
		PostID:    postID,
		UserID:    userID,
		Content:   req.Content,
		CreatedAt: nowStamp(),
		UpdatedAt: nowStamp(),
	}
	if err := s.db.Create(&comment).Error; err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to create comment")
		return
	}
	s.db.Model(&post).Update("comments_count", gorm.Expr("comments_count + 1"))

	if post.UserID != userID {
		s.createNotification(post.UserID, model.NotificationComment, userID, &postID)
	}

	user, userErr := userWithCounts(s.db, userID, userID)
	if userErr != nil {
		user = nil
	}
	c.JSON(http.StatusCreated, model.CommentWithUser{Comment: comment, User: user})
}
