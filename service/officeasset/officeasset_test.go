package officeasset

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"warehouse.GO/core/apperr"
	"warehouse.GO/core/testdb"
	"warehouse.GO/model/entity"
	"warehouse.GO/service/activity"
)

var fixedNow = time.Date(2024, 12, 25, 9, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func setup(t *testing.T) (*gorm.DB, *Service, *entity.Employee) {
	t.Helper()
	db := testdb.Open(t)
	svc := NewService(db, nil, activity.New(db, zap.NewNop()), zap.NewNop(), WithClock(func() time.Time { return fixedNow }))
	emp := &entity.Employee{Username: "ravi", Name: "Ravi", Role: entity.RoleEmployee, Active: true}
	if err := db.Create(emp).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db, svc, emp
}

func TestCreate_SKUUnique(t *testing.T) {
	_, svc, _ := setup(t)
	ctx := context.Background()
	a, err := svc.Create(ctx, Input{SKU: ptr("LAP-1"), Name: ptr("Laptop"), TotalStock: ptr(3)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.CurrentStock != 3 {
		t.Errorf("current = %d, want 3", a.CurrentStock)
	}
	if _, err := svc.Create(ctx, Input{SKU: ptr("LAP-1"), Name: ptr("Other")}); !apperr.Is(err, apperr.Conflict) {
		t.Errorf("duplicate sku err = %v", err)
	}
	if _, err := svc.Create(ctx, Input{Name: ptr("No sku")}); !apperr.Is(err, apperr.Validation) {
		t.Errorf("missing sku err = %v", err)
	}
}

func TestAssignReturn(t *testing.T) {
	_, svc, emp := setup(t)
	ctx := context.Background()
	a, err := svc.Create(ctx, Input{SKU: ptr("LAP-1"), Name: ptr("Laptop"), TotalStock: ptr(2)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	txn, err := svc.Assign(ctx, a.ID, AssignInput{EmployeeID: emp.ID, Quantity: 2}, activity.Actor{ID: emp.ID})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if txn.TransactionID != "OTXN-251224-001" || txn.Status != entity.AssetTxnActive {
		t.Errorf("txn = %s %s", txn.TransactionID, txn.Status)
	}
	if _, err := svc.Assign(ctx, a.ID, AssignInput{EmployeeID: emp.ID}, activity.Actor{}); !apperr.Is(err, apperr.InsufficientStock) {
		t.Fatalf("assign with no stock err = %v", err)
	}

	ret, err := svc.Return(ctx, txn.ID, ReturnInput{Condition: entity.ConditionUsed}, activity.Actor{})
	if err != nil {
		t.Fatalf("Return: %v", err)
	}
	if ret.Status != entity.AssetTxnReturned || ret.ReturnedAt == nil {
		t.Errorf("returned = %+v", ret)
	}
	if ret.Asset == nil || ret.Asset.CurrentStock != 2 {
		t.Errorf("asset after return = %+v", ret.Asset)
	}
	if _, err := svc.Return(ctx, txn.ID, ReturnInput{}, activity.Actor{}); !apperr.Is(err, apperr.Conflict) {
		t.Errorf("double return err = %v", err)
	}
}

func TestDeleteTransaction_RestoresActiveStock(t *testing.T) {
	_, svc, emp := setup(t)
	ctx := context.Background()
	a, _ := svc.Create(ctx, Input{SKU: ptr("CHR-1"), Name: ptr("Chair"), TotalStock: ptr(5)})
	txn, err := svc.Assign(ctx, a.ID, AssignInput{EmployeeID: emp.ID, Quantity: 3}, activity.Actor{})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if err := svc.Delete(ctx, a.ID); !apperr.Is(err, apperr.Conflict) {
		t.Errorf("delete with active hand-out err = %v", err)
	}
	if err := svc.DeleteTransaction(ctx, txn.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	got, _ := svc.Get(ctx, a.ID)
	if got.CurrentStock != 5 {
		t.Errorf("current = %d, want 5", got.CurrentStock)
	}
	if err := svc.Delete(ctx, a.ID); err != nil {
		t.Errorf("Delete: %v", err)
	}
}

func TestUpdate_TotalStockShiftsCurrent(t *testing.T) {
	_, svc, emp := setup(t)
	ctx := context.Background()
	a, _ := svc.Create(ctx, Input{SKU: ptr("MON-1"), Name: ptr("Monitor"), TotalStock: ptr(4)})
	if _, err := svc.Assign(ctx, a.ID, AssignInput{EmployeeID: emp.ID, Quantity: 3}, activity.Actor{}); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if _, err := svc.Update(ctx, a.ID, Input{TotalStock: ptr(2)}); !apperr.Is(err, apperr.InsufficientStock) {
		t.Errorf("shrink below assigned err = %v", err)
	}
	got, err := svc.Update(ctx, a.ID, Input{TotalStock: ptr(6), Location: ptr("HQ")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.TotalStock != 6 || got.CurrentStock != 3 || got.Location != "HQ" {
		t.Errorf("asset = %+v", got)
	}
}

func TestAssign_ConcurrentNeverOversells(t *testing.T) {
	db, svc, emp := setup(t)
	ctx := context.Background()
	a, _ := svc.Create(ctx, Input{SKU: ptr("KEY-1"), Name: ptr("Key card"), TotalStock: ptr(5)})

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Assign(ctx, a.ID, AssignInput{EmployeeID: emp.ID, Quantity: 1}, activity.Actor{}); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if ok != 5 {
		t.Errorf("successful assigns = %d, want 5", ok)
	}
	var got entity.OfficeAsset
	db.First(&got, a.ID)
	if got.CurrentStock != 0 {
		t.Errorf("current = %d, want 0", got.CurrentStock)
	}
	txns, _ := svc.Transactions(ctx, TxnFilter{AssetID: a.ID})
	if len(txns) != 5 {
		t.Errorf("transactions = %d, want 5", len(txns))
	}
}
