package models

import "time"

// Comment is a note on a complaint. Internal comments are visible to staff only.
type Comment struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	ComplaintID uint      `json:"complaintId" gorm:"not null;index"`
	UserID      uint      `json:"userId" gorm:"not null"`
	User        *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Text        string    `json:"text" gorm:"type:text;not null"`
	IsInternal  bool      `json:"isInternal" gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (Comment) TableName() string {
	return "complaint_comments"
}
