package model

// NotificationType tags why a notification was produced.
type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
	NotificationFollow  NotificationType = "follow"
	NotificationMention NotificationType = "mention"
	NotificationRepost  NotificationType = "repost"
)

type Notification struct {
	ID        int              `json:"id" gorm:"primaryKey;column:id"`
	UserID    int              `json:"user_id" gorm:"column:user_id;index"`
	Type      NotificationType `json:"type" gorm:"column:type"`
	ActorID   int              `json:"actor_id" gorm:"column:actor_id"`
	PostID    *int             `json:"post_id,omitempty" gorm:"column:post_id"`
	IsRead    bool             `json:"is_read" gorm:"column:is_read"`
	CreatedAt string           `json:"created_at" gorm:"column:created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// NotificationWithDetails carries the actor and, when the notification is
// about a post, the post itself.
type NotificationWithDetails struct {
	Notification Notification `json:"notification"`
	Actor        *User        `json:"actor"`
	Post         *Post        `json:"post,omitempty"`
}
