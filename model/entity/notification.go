package entity

import (
	"time"

	"gorm.io/datatypes"
)

const (
	PushSent    = "sent"
	PushFailed  = "failed"
	PushSkipped = "skipped"
)

type Notification struct {
	ID          uint                       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Title       string                     `gorm:"column:title;type:varchar(255);not null" json:"title"`
	Message     string                     `gorm:"column:message;type:text;not null" json:"message"`
	Type        string                     `gorm:"column:type;type:varchar(32)" json:"type,omitempty"`
	Recipients  datatypes.JSONType[[]uint] `gorm:"column:recipients" json:"recipients"`
	Broadcast   bool                       `gorm:"column:broadcast;not null" json:"broadcast"`
	SendingDate time.Time                  `gorm:"column:sending_date;not null;index" json:"sendingDate"`
	ExpiryDate  time.Time                  `gorm:"column:expiry_date;not null;index" json:"expiryDate"`
	PushStatus  string                     `gorm:"column:push_status;type:varchar(16)" json:"pushStatus"`
	CreatedBy   *uint                      `gorm:"column:created_by" json:"createdBy,omitempty"`
	CreatedAt   time.Time                  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (Notification) TableName() string {
	return "notifications"
}

// Targets reports whether employeeID should see n.
func (n Notification) Targets(employeeID uint) bool {
	if n.Broadcast {
		return true
	}
	for _, id := range n.Recipients.Data() {
		if id == employeeID {
			return true
		}
	}
	return false
}
