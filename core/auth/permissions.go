package auth

import "warehouse.GO/model/entity"

// Permission names as stored in an employee's permission set.
const (
	ViewInventory      = "viewInventory"
	AddInventory       = "addInventory"
	EditInventory      = "editInventory"
	DeleteInventory    = "deleteInventory"
	ViewTransactions   = "viewTransactions"
	AddTransactions    = "addTransactions"
	EditTransactions   = "editTransactions"
	DeleteTransactions = "deleteTransactions"
	ViewDeliveries     = "viewDeliveries"
	AddDeliveries      = "addDeliveries"
	EditDeliveries     = "editDeliveries"
	DeleteDeliveries   = "deleteDeliveries"
	ViewEmployees      = "viewEmployees"
	AddEmployees       = "addEmployees"
	EditEmployees      = "editEmployees"
	DeleteEmployees    = "deleteEmployees"
	ViewSites          = "viewSites"
	AddSites           = "addSites"
	EditSites          = "editSites"
	DeleteSites        = "deleteSites"
	ViewAttendance     = "viewAttendance"
	ViewReportAttend   = "viewReportAttendance"
	EditAttendance     = "editAttendance"
	DeleteAttendance   = "deleteAttendance"
	ApproveAttendance  = "approveAttendance"
	ViewTransfers      = "viewStockTransfers"
	AddTransfers       = "addStockTransfers"
	ApproveTransfers   = "approveStockTransfers"
	ViewOfficeAssets   = "viewOfficeAssets"
	ManageOfficeAssets = "manageOfficeAssets"
	ViewNotifications  = "viewNotifications"
	SendNotifications  = "sendNotifications"
	ExportData         = "exportData"
)

// All lists every known permission.
var All = []string{
	ViewInventory, AddInventory, EditInventory, DeleteInventory,
	ViewTransactions, AddTransactions, EditTransactions, DeleteTransactions,
	ViewDeliveries, AddDeliveries, EditDeliveries, DeleteDeliveries,
	ViewEmployees, AddEmployees, EditEmployees, DeleteEmployees,
	ViewSites, AddSites, EditSites, DeleteSites,
	ViewAttendance, ViewReportAttend, EditAttendance, DeleteAttendance, ApproveAttendance,
	ViewTransfers, AddTransfers, ApproveTransfers,
	ViewOfficeAssets, ManageOfficeAssets,
	ViewNotifications, SendNotifications, ExportData,
}

var defaultGranted = map[string]bool{
	ViewInventory:    true,
	ViewTransactions: true,
	ViewDeliveries:   true,
	ViewSites:        true,
	ViewAttendance:   true,
	ViewTransfers:    true,
	ViewOfficeAssets: true,
}

// Defaults is the permission set of a new employee.
func Defaults() entity.Permissions {
	p := make(entity.Permissions, len(All))
	for _, name := range All {
		p[name] = defaultGranted[name]
	}
	return p
}

// Merge overlays the known keys of override onto base. Unknown names are
// dropped.
func Merge(base, override entity.Permissions) entity.Permissions {
	out := make(entity.Permissions, len(base))
	for k, v := range base {
		out[k] = v
	}
	for _, name := range All {
		if v, ok := override[name]; ok {
			out[name] = v
		}
	}
	return out
}
