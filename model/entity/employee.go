package entity

import (
	"time"

	"gorm.io/datatypes"
)

const (
	RoleAdmin       = "admin"
	RoleManager     = "manager"
	RoleStorekeeper = "storekeeper"
	RoleEngineer    = "engineer"
	RoleSupervisor  = "supervisor"
	RoleDriver      = "driver"
	RoleEmployee    = "emp"
	RoleLabor       = "labor"
)

var Roles = []string{RoleAdmin, RoleManager, RoleStorekeeper, RoleEngineer, RoleSupervisor, RoleDriver, RoleEmployee, RoleLabor}

func ValidRole(r string) bool {
	for _, v := range Roles {
		if v == r {
			return true
		}
	}
	return false
}

// Permissions maps a capability name to whether it is granted.
type Permissions map[string]bool

// Employee is both a login identity and a holder of assigned warehouse assets.
type Employee struct {
	ID           uint                            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Username     string                          `gorm:"column:username;type:varchar(64);not null;uniqueIndex" json:"username"`
	PasswordHash string                          `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	Name         string                          `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Email        string                          `gorm:"column:email;type:varchar(128)" json:"email,omitempty"`
	Phone        string                          `gorm:"column:phone;type:varchar(32)" json:"phone,omitempty"`
	Role         string                          `gorm:"column:role;type:varchar(32);not null;index" json:"role"`
	Designation  string                          `gorm:"column:designation;type:varchar(128)" json:"designation,omitempty"`
	Permissions  datatypes.JSONType[Permissions] `gorm:"column:permissions" json:"permissions"`
	Active       bool                            `gorm:"column:active;not null" json:"active"`
	JoinedAt     *time.Time                      `gorm:"column:joined_at" json:"joinedAt,omitempty"`
	LastLoginAt  *time.Time                      `gorm:"column:last_login_at" json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time                       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time                       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`

	Assets []EmployeeAsset `gorm:"foreignKey:EmployeeID" json:"assets,omitempty"`
}

func (Employee) TableName() string {
	return "employees"
}

func (e Employee) IsAdmin() bool { return e.Role == RoleAdmin }

// Granted returns the stored permission set (never nil).
func (e Employee) Granted() Permissions {
	p := e.Permissions.Data()
	if p == nil {
		return Permissions{}
	}
	return p
}

const (
	ConditionNew     = "new"
	ConditionUsed    = "used"
	ConditionDamaged = "damaged"
)

func ValidCondition(c string) bool {
	return c == ConditionNew || c == ConditionUsed || c == ConditionDamaged
}

// EmployeeAsset is warehouse stock held by an employee. While the row exists
// its quantity is subtracted from the item's effective stock.
type EmployeeAsset struct {
	ID         uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	EmployeeID uint      `gorm:"column:employee_id;not null;index" json:"employeeId"`
	ItemID     uint      `gorm:"column:item_id;not null;index" json:"itemId"`
	Quantity   int       `gorm:"column:quantity;not null" json:"quantity"`
	Condition  string    `gorm:"column:item_condition;type:varchar(16);not null" json:"condition"`
	Remarks    string    `gorm:"column:remarks;type:varchar(255)" json:"remarks,omitempty"`
	AssignedAt time.Time `gorm:"column:assigned_at;not null" json:"assignedAt"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`

	Item *InventoryItem `gorm:"foreignKey:ItemID" json:"item,omitempty"`
}

func (EmployeeAsset) TableName() string {
	return "employee_assets"
}
