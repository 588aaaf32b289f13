package entity

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// GeoPoint is where a check-in or check-out happened.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

// Attendance is one check-in/check-out session. OpenSlot holds the employee
// id while the session is open and NULL once closed; its unique index keeps
// at most one open session per employee.
type Attendance struct {
	ID               uint                         `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	EmployeeID       uint                         `gorm:"column:employee_id;not null;index:idx_att_emp_date,priority:1" json:"employeeId"`
	Date             string                       `gorm:"column:work_date;type:varchar(10);not null;index:idx_att_emp_date,priority:2" json:"date"`
	SessionNumber    int                          `gorm:"column:session_number;not null" json:"sessionNumber"`
	CheckIn          time.Time                    `gorm:"column:check_in;not null" json:"checkIn"`
	CheckOut         *time.Time                   `gorm:"column:check_out" json:"checkOut"`
	CheckInLocation  datatypes.JSONType[GeoPoint] `gorm:"column:check_in_location" json:"checkInLocation"`
	CheckOutLocation datatypes.JSONType[GeoPoint] `gorm:"column:check_out_location" json:"checkOutLocation"`
	WorkingSeconds   int64                        `gorm:"column:working_seconds;not null;default:0" json:"workingSeconds"`
	OpenSlot         *uint                        `gorm:"column:open_slot;uniqueIndex" json:"-"`
	ApprovalStatus   string                       `gorm:"column:approval_status;type:varchar(16);not null;index" json:"approvalStatus"`
	ApprovedBy       *uint                        `gorm:"column:approved_by" json:"approvedBy,omitempty"`
	ApprovedAt       *time.Time                   `gorm:"column:approved_at" json:"approvedAt,omitempty"`
	RejectionReason  string                       `gorm:"column:rejection_reason;type:varchar(255)" json:"rejectionReason,omitempty"`
	RecordedBy       *uint                        `gorm:"column:recorded_by" json:"recordedBy,omitempty"`
	Remarks          string                       `gorm:"column:remarks;type:varchar(255)" json:"remarks,omitempty"`
	CreatedAt        time.Time                    `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time                    `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`

	// WorkingHours is WorkingSeconds expressed in hours, for display.
	WorkingHours float64 `gorm:"-" json:"workingHours"`

	Employee *Employee `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
}

func (Attendance) TableName() string {
	return "attendances"
}

func (a *Attendance) IsOpen() bool { return a.CheckOut == nil }

// Derive refreshes the display-only fields.
func (a *Attendance) Derive() {
	a.WorkingHours = float64(a.WorkingSeconds) / 3600
}

func (a *Attendance) AfterFind(*gorm.DB) error {
	a.Derive()
	return nil
}
