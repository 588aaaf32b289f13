package entity

import (
	"time"

	"gorm.io/datatypes"
)

type ActivityLog struct {
	ID         uint              `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Action     string            `gorm:"column:action;type:varchar(64);not null;index" json:"action"`
	EmployeeID *uint             `gorm:"column:employee_id;index" json:"employeeId,omitempty"`
	Username   string            `gorm:"column:username;type:varchar(64)" json:"username,omitempty"`
	Details    datatypes.JSONMap `gorm:"column:details" json:"details,omitempty"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime;index" json:"createdAt"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
