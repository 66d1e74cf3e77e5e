package model

type Comment struct {
	ID        int    `json:"id" gorm:"primaryKey;column:id"`
	PostID    int    `json:"post_id" gorm:"column:post_id;index"`
	UserID    int    `json:"user_id" gorm:"column:user_id"`
	Content   string `json:"content" gorm:"column:content"`
	CreatedAt string `json:"created_at" gorm:"column:created_at"`
	UpdatedAt string `json:"updated_at" gorm:"column:updated_at"`
}

func (Comment) TableName() string {
	return "comments"
}

type CommentWithUser struct {
	Comment Comment `json:"comment"`
	User    *User   `json:"user"`
}
