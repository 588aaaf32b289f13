package officeassets

import (
	"net/http"
	"testing"

	"warehouse.GO/api/apitest"
	"warehouse.GO/model/entity"
)

func TestOfficeAssetsAPI_AssignReturn(t *testing.T) {
	s := apitest.New(t, RegisterOfficeAssetRoutes)
	emp, _ := s.Employee(t, "ravi", entity.RoleEmployee)

	rec := s.Do(t, http.MethodPost, "/api/office-assets", map[string]interface{}{"sku": "LAP-1", "name": "Laptop", "totalStock": 1})
	apitest.Expect(t, rec, http.StatusCreated)
	var asset entity.OfficeAsset
	apitest.Decode(t, rec, &asset)

	assign := "/api/office-assets/" + apitest.ID(asset.ID) + "/assign"
	rec = s.Do(t, http.MethodPost, assign, map[string]interface{}{"employeeId": emp.ID})
	apitest.Expect(t, rec, http.StatusCreated)
	var txn entity.AssetTransaction
	apitest.Decode(t, rec, &txn)
	if txn.Status != entity.AssetTxnActive {
		t.Errorf("txn = %+v", txn)
	}
	apitest.Expect(t, s.Do(t, http.MethodPost, assign, map[string]interface{}{"employeeId": emp.ID}), http.StatusUnprocessableEntity)

	rec = s.Do(t, http.MethodGet, "/api/asset-transactions?employeeId="+apitest.ID(emp.ID)+"&status=active", nil)
	apitest.Expect(t, rec, http.StatusOK)
	var list []entity.AssetTransaction
	apitest.Decode(t, rec, &list)
	if len(list) != 1 {
		t.Errorf("active = %d, want 1", len(list))
	}

	ret := "/api/asset-transactions/" + apitest.ID(txn.ID) + "/return"
	apitest.Expect(t, s.Do(t, http.MethodPost, ret, map[string]interface{}{"condition": "used"}), http.StatusOK)
	apitest.Expect(t, s.Do(t, http.MethodPost, ret, nil), http.StatusConflict)

	rec = s.Do(t, http.MethodGet, "/api/office-assets/"+apitest.ID(asset.ID), nil)
	apitest.Expect(t, rec, http.StatusOK)
	apitest.Decode(t, rec, &asset)
	if asset.CurrentStock != 1 {
		t.Errorf("stock after return = %d, want 1", asset.CurrentStock)
	}
}
