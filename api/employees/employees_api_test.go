package employees

import (
	"net/http"
	"testing"

	"warehouse.GO/api/apitest"
	"warehouse.GO/core/auth"
	"warehouse.GO/model/entity"
)

func TestEmployeesAPI_CreateHidesPassword(t *testing.T) {
	s := apitest.New(t, RegisterEmployeeRoutes)
	rec := s.Do(t, http.MethodPost, "/api/employees", map[string]interface{}{
		"username": "ravi", "password": "secret1", "name": "Ravi", "role": "storekeeper",
	})
	apitest.Expect(t, rec, http.StatusCreated)
	var body map[string]interface{}
	apitest.Decode(t, rec, &body)
	if _, ok := body["passwordHash"]; ok {
		t.Error("password hash exposed")
	}
	if body["role"] != "storekeeper" {
		t.Errorf("body = %v", body)
	}
	apitest.Expect(t, s.Do(t, http.MethodPost, "/api/employees", map[string]interface{}{
		"username": "ra", "password": "secret1", "name": "R",
	}), http.StatusBadRequest)
}

func TestEmployeesAPI_SelfAccessAndAdminOnlyRole(t *testing.T) {
	s := apitest.New(t, RegisterEmployeeRoutes)
	me, p := s.Employee(t, "ravi", entity.RoleEmployee, auth.EditEmployees)
	other, _ := s.Employee(t, "anna", entity.RoleEmployee)
	s.As = p

	apitest.Expect(t, s.Do(t, http.MethodGet, "/api/employees/"+apitest.ID(me.ID), nil), http.StatusOK)
	apitest.Expect(t, s.Do(t, http.MethodGet, "/api/employees/"+apitest.ID(other.ID), nil), http.StatusForbidden)
	apitest.Expect(t, s.Do(t, http.MethodPut, "/api/employees/"+apitest.ID(other.ID), map[string]interface{}{"role": "admin"}), http.StatusForbidden)
	apitest.Expect(t, s.Do(t, http.MethodPut, "/api/employees/"+apitest.ID(other.ID), map[string]interface{}{"phone": "050"}), http.StatusOK)
}

func TestEmployeesAPI_Assets(t *testing.T) {
	s := apitest.New(t, RegisterEmployeeRoutes)
	emp, _ := s.Employee(t, "ravi", entity.RoleEmployee)
	item := &entity.InventoryItem{SKU: "DRL", Name: "Drill", InitialStock: 2, CurrentStock: 2}
	s.App.DB.Create(item)
	base := "/api/employees/" + apitest.ID(emp.ID) + "/assets"

	rec := s.Do(t, http.MethodPost, base, map[string]interface{}{"itemId": item.ID, "quantity": 2})
	apitest.Expect(t, rec, http.StatusCreated)
	var row entity.EmployeeAsset
	apitest.Decode(t, rec, &row)

	apitest.Expect(t, s.Do(t, http.MethodPost, base, map[string]interface{}{"itemId": item.ID, "quantity": 1}), http.StatusUnprocessableEntity)

	rec = s.Do(t, http.MethodGet, base, nil)
	apitest.Expect(t, rec, http.StatusOK)
	var list []entity.EmployeeAsset
	apitest.Decode(t, rec, &list)
	if len(list) != 1 || list[0].Quantity != 2 {
		t.Errorf("assets = %+v", list)
	}
	apitest.Expect(t, s.Do(t, http.MethodPut, base+"/"+apitest.ID(row.ID), map[string]interface{}{"quantity": 1}), http.StatusOK)
	apitest.Expect(t, s.Do(t, http.MethodDelete, base+"/"+apitest.ID(row.ID), nil), http.StatusNoContent)
}
