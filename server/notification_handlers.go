package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pulsefeed/pulsefeed-go/api"
	"github.com/pulsefeed/pulsefeed-go/model"
	"github.com/pulsefeed/pulsefeed-go/utils/log"
)

// createNotification stores the row and publishes the realtime event. Failure
// to notify never fails the request that caused it.
func (s *Server) createNotification(userID int, notifType model.NotificationType, actorID int, postID *int) {
	notification := model.Notification{
		UserID:    userID,
		Type:      notifType,
		ActorID:   actorID,
		PostID:    postID,
		CreatedAt: nowStamp(),
	}
	if err := s.db.Create(&notification).Error; err != nil {
		log.Log.WithError(err).Error("create notification")
		return
	}
	PublishNotification(s.bus, NotificationEvent{
		UserID:  userID,
		Type:    notifType,
		ActorID: actorID,
		PostID:  postID,
	})
}

func (s *Server) GetNotifications(c *gin.Context) {
	userID := currentUserID(c)
	limit := parseLimit(c, 20)
	offset := parseOffset(c)

	var notifications []model.Notification
	err := s.db.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&notifications).Error
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get notifications")
		return
	}

	result := make([]model.NotificationWithDetails, 0, len(notifications))
	for _, n := range notifications {
		detail := model.NotificationWithDetails{Notification: n}
		var actor model.User
		if s.db.First(&actor, n.ActorID).Error == nil {
			detail.Actor = &actor
		}
		if n.PostID != nil {
			var post model.Post
			if s.db.First(&post, *n.PostID).Error == nil {
				detail.Post = &post
			}
		}
		result = append(result, detail)
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) MarkNotificationRead(c *gin.Context) {
	userID := currentUserID(c)
	notificationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid notification ID")
		return
	}

	err = s.db.Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("is_read", true).Error
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to mark notification as read")
		return
	}
	c.JSON(http.StatusOK, api.MessageResponse{Message: "Notification marked as read"})
}
