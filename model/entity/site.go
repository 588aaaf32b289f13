package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SitePlanning  = "planning"
	SiteActive    = "active"
	SiteOnHold    = "on-hold"
	SiteCompleted = "completed"
	SiteCancelled = "cancelled"
)

var SiteStatuses = []string{SitePlanning, SiteActive, SiteOnHold, SiteCompleted, SiteCancelled}

type Site struct {
	ID            uint            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Code          string          `gorm:"column:code;type:varchar(32);not null;uniqueIndex" json:"code"`
	Name          string          `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Location      string          `gorm:"column:location;type:varchar(255)" json:"location,omitempty"`
	Address       string          `gorm:"column:address;type:text" json:"address,omitempty"`
	ClientName    string          `gorm:"column:client_name;type:varchar(255)" json:"clientName,omitempty"`
	ClientContact string          `gorm:"column:client_contact;type:varchar(64)" json:"clientContact,omitempty"`
	ClientEmail   string          `gorm:"column:client_email;type:varchar(128)" json:"clientEmail,omitempty"`
	Status        string          `gorm:"column:status;type:varchar(16);not null;index" json:"status"`
	Budget        decimal.Decimal `gorm:"column:budget;type:decimal(14,2)" json:"budget"`
	StartDate     *time.Time      `gorm:"column:start_date" json:"startDate,omitempty"`
	EndDate       *time.Time      `gorm:"column:end_date" json:"endDate,omitempty"`
	Description   string          `gorm:"column:description;type:text" json:"description,omitempty"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Site) TableName() string {
	return "sites"
}

func ValidSiteStatus(s string) bool {
	for _, v := range SiteStatuses {
		if v == s {
			return true
		}
	}
	return false
}
