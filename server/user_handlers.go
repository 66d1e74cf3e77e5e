package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"
	"gorm.io/gorm"

	"github.com/pulsefeed/pulsefeed-go/api"
	"github.com/pulsefeed/pulsefeed-go/model"
)

func (s *Server) GetProfile(c *gin.Context) {
	userID := currentUserID(c)
	user, err := userWithCounts(s.db, userID, userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get profile")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) UpdateProfile(c *gin.Context) {
	userID := currentUserID(c)

	var req api.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	var user model.User
	if err := s.db.First(&user, userID).Error; err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	// Nil request fields stay untouched; copier skips them.
	if err := copier.CopyWithOption(&user, &req, copier.Option{IgnoreEmpty: true}); err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to update profile")
		return
	}
	user.UpdatedAt = nowStamp()
	if err := s.db.Save(&user).Error; err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	filled, err := userWithCounts(s.db, userID, userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get updated profile")
		return
	}
	c.JSON(http.StatusOK, filled)
}

func (s *Server) GetUserProfile(c *gin.Context) {
	viewerID := currentUserID(c)
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid user ID")
		return
	}

	user, err := userWithCounts(s.db, userID, viewerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			abortWithError(c, http.StatusNotFound, "User not found")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to get user profile")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) FollowUser(c *gin.Context) {
	userID := currentUserID(c)
	targetID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid user ID")
		return
	}
	if userID == targetID {
		abortWithError(c, http.StatusBadRequest, "Cannot follow yourself")
		return
	}

	var n int64
	s.db.Model(&model.User{}).Where("id = ?", targetID).Count(&n)
	if n == 0 {
		abortWithError(c, http.StatusNotFound, "User not found")
		return
	}

	follow := Follow{FollowerID: userID, FollowingID: targetID, CreatedAt: nowStamp()}
	if err := s.db.FirstOrCreate(&follow, Follow{FollowerID: userID, FollowingID: targetID}).Error; err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to follow user")
		return
	}

	s.createNotification(targetID, model.NotificationFollow, userID, nil)

	c.JSON(http.StatusOK, api.FollowResponse{
		Message:     "User followed successfully",
		IsFollowing: true,
	})
}

func (s *Server) UnfollowUser(c *gin.Context) {
	userID := currentUserID(c)
	targetID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid user ID")
		return
	}

	err = s.db.Where("follower_id = ? AND following_id = ?", userID, targetID).
		Delete(&Follow{}).Error
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to unfollow user")
		return
	}

	c.JSON(http.StatusOK, api.FollowResponse{
		Message:     "User unfollowed successfully",
		IsFollowing: false,
	})
}

func (s *Server) followList(c *gin.Context, joinColumn, whereColumn string) {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid user ID")
		return
	}
	viewerID := currentUserID(c)

	var users []model.User
	err = s.db.Model(&model.User{}).
		Joins("JOIN follows ON follows."+joinColumn+" = users.id").
		Where("follows."+whereColumn+" = ?", userID).
		Order("follows.created_at DESC").
		Find(&users).Error
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get users")
		return
	}

	for i := range users {
		var n int64
		s.db.Model(&Follow{}).
			Where("follower_id = ? AND following_id = ?", viewerID, users[i].ID).
			Count(&n)
		users[i].IsFollowing = n > 0
	}
	c.JSON(http.StatusOK, users)
}

func (s *Server) GetFollowers(c *gin.Context) {
	s.followList(c, "follower_id", "following_id")
}

func (s *Server) GetFollowing(c *gin.Context) {
	s.followList(c, "following_id", "follower_id")
}

func (s *Server) SearchUsers(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		abortWithError(c, http.StatusBadRequest, "Search query is required")
		return
	}
	viewerID := currentUserID(c)
	limit := parseLimit(c, 20)

	pattern := "%" + strings.ToLower(query) + "%"
	var users []model.User
	err := s.db.
		Where("LOWER(username) LIKE ? OR LOWER(full_name) LIKE ?", pattern, pattern).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to search users")
		return
	}

	for i := range users {
		filled, fillErr := userWithCounts(s.db, users[i].ID, viewerID)
		if fillErr == nil {
			users[i] = *filled
		}
	}
	c.JSON(http.StatusOK, users)
}
