package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"warehouse.GO/core/apperr"
	"warehouse.GO/core/cache"
	"warehouse.GO/core/testdb"
	"warehouse.GO/model/entity"
)

var seq int

func mustCreate(t *testing.T, db *gorm.DB, v interface{}) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
}

func newItem(t *testing.T, db *gorm.DB, initial int) *entity.InventoryItem {
	seq++
	it := &entity.InventoryItem{SKU: fmt.Sprintf("SKU-%d", seq), Name: fmt.Sprintf("Item %d", seq), InitialStock: initial, CurrentStock: initial}
	mustCreate(t, db, it)
	return it
}

func newSite(t *testing.T, db *gorm.DB, code string) *entity.Site {
	s := &entity.Site{Code: code, Name: "Site " + code, Status: entity.SiteActive}
	mustCreate(t, db, s)
	return s
}

func txn(t *testing.T, db *gorm.DB, typ string, itemID, siteID uint, qty int) {
	seq++
	mustCreate(t, db, &entity.Transaction{
		TransactionID: fmt.Sprintf("TXN-T-%04d", seq), Type: typ, ItemID: itemID, SiteID: siteID,
		Quantity: qty, Timestamp: time.Now(),
	})
}

func deliver(t *testing.T, db *gorm.DB, itemID uint, qty int) {
	seq++
	mustCreate(t, db, &entity.Delivery{
		DeliveryID: fmt.Sprintf("DEL-T-%04d", seq), Seller: "Acme", DeliveredAt: time.Now(),
		Items: []entity.DeliveryItem{{ItemID: itemID, Quantity: qty}},
	})
}

func assign(t *testing.T, db *gorm.DB, itemID uint, qty int) {
	mustCreate(t, db, &entity.EmployeeAsset{EmployeeID: 1, ItemID: itemID, Quantity: qty, Condition: entity.ConditionNew, AssignedAt: time.Now()})
}

func TestCompute_ClosedFormScenario(t *testing.T) {
	db := testdb.Open(t)
	site := newSite(t, db, "S1")
	item := newItem(t, db, 100)

	deliver(t, db, item.ID, 20)
	txn(t, db, entity.TxnIssue, item.ID, site.ID, 30)
	txn(t, db, entity.TxnReturn, item.ID, site.ID, 5)
	assign(t, db, item.ID, 10)

	b, err := Compute(db, item.ID)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	want := Breakdown{ItemID: item.ID, Initial: 100, Delivered: 20, Issued: 30, Returned: 5, Assigned: 10, Current: 85}
	if *b != want {
		t.Errorf("Compute = %+v, want %+v", *b, want)
	}
}

func TestCompute_OrderIndependent(t *testing.T) {
	ops := []func(db *gorm.DB, itemID, siteID uint){
		func(db *gorm.DB, i, s uint) { deliver(t, db, i, 7) },
		func(db *gorm.DB, i, s uint) { txn(t, db, entity.TxnIssue, i, s, 4) },
		func(db *gorm.DB, i, s uint) { txn(t, db, entity.TxnReturn, i, s, 2) },
		func(db *gorm.DB, i, s uint) { assign(t, db, i, 3) },
		func(db *gorm.DB, i, s uint) { txn(t, db, entity.TxnIssue, i, s, 1) },
	}
	orders := [][]int{{0, 1, 2, 3, 4}, {4, 3, 2, 1, 0}, {2, 0, 4, 1, 3}}
	for _, order := range orders {
		db := testdb.Open(t)
		site := newSite(t, db, "S1")
		item := newItem(t, db, 10)
		for _, i := range order {
			ops[i](db, item.ID, site.ID)
		}
		b, err := Compute(db, item.ID)
		if err != nil {
			t.Fatalf("Compute: %v", err)
		}
		if b.Current != 10+7-4+2-3-1 {
			t.Errorf("order %v: Current = %d, want 11", order, b.Current)
		}
	}
}

func TestCompute_NegativeIsReported(t *testing.T) {
	db := testdb.Open(t)
	site := newSite(t, db, "S1")
	item := newItem(t, db, 1)
	txn(t, db, entity.TxnIssue, item.ID, site.ID, 4)
	b, err := Compute(db, item.ID)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if b.Current != -3 {
		t.Errorf("Current = %d, want -3", b.Current)
	}
}

func TestCompute_NotFound(t *testing.T) {
	db := testdb.Open(t)
	if _, err := Compute(db, 999); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("err = %v, want NotFound", err)
	}
}

func TestComputeMany_And_Refresh(t *testing.T) {
	db := testdb.Open(t)
	site := newSite(t, db, "S1")
	a := newItem(t, db, 10)
	b := newItem(t, db, 50)
	txn(t, db, entity.TxnIssue, a.ID, site.ID, 3)
	deliver(t, db, b.ID, 5)

	all, err := ComputeMany(db, nil)
	if err != nil {
		t.Fatalf("ComputeMany: %v", err)
	}
	if all[a.ID].Current != 7 || all[b.ID].Current != 55 {
		t.Errorf("ComputeMany = a:%d b:%d, want 7 and 55", all[a.ID].Current, all[b.ID].Current)
	}

	if err := Refresh(db, a.ID, b.ID, a.ID, 0); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	var stored entity.InventoryItem
	db.First(&stored, b.ID)
	if stored.CurrentStock != 55 {
		t.Errorf("stored current_stock = %d, want 55", stored.CurrentStock)
	}
}

func TestSiteHoldings(t *testing.T) {
	db := testdb.Open(t)
	x := newSite(t, db, "X")
	y := newSite(t, db, "Y")
	a := newItem(t, db, 100)
	b := newItem(t, db, 100)
	txn(t, db, entity.TxnIssue, a.ID, x.ID, 10)
	txn(t, db, entity.TxnReturn, a.ID, x.ID, 4)
	txn(t, db, entity.TxnIssue, b.ID, x.ID, 2)
	txn(t, db, entity.TxnReturn, b.ID, x.ID, 2)
	txn(t, db, entity.TxnIssue, b.ID, y.ID, 9)

	h, err := SiteHoldings(db, x.ID)
	if err != nil {
		t.Fatalf("SiteHoldings: %v", err)
	}
	if len(h) != 1 || h[0].ItemID != a.ID || h[0].Quantity != 6 {
		t.Errorf("holdings at X = %+v, want only item %d with 6", h, a.ID)
	}
	qty, err := SiteHolding(db, y.ID, b.ID)
	if err != nil || qty != 9 {
		t.Errorf("SiteHolding(Y, b) = %d, %v; want 9", qty, err)
	}
}

func TestCalculator_CacheInvalidation(t *testing.T) {
	db := testdb.Open(t)
	site := newSite(t, db, "S1")
	item := newItem(t, db, 10)
	c := cache.New()
	calc := NewCalculator(db, c, time.Minute, zap.NewNop())
	ctx := context.Background()

	if got, _ := calc.CurrentStock(ctx, item.ID); got != 10 {
		t.Fatalf("CurrentStock = %d, want 10", got)
	}
	txn(t, db, entity.TxnIssue, item.ID, site.ID, 4)
	if got, _ := calc.CurrentStock(ctx, item.ID); got != 10 {
		t.Errorf("cached CurrentStock = %d, want stale 10 before Forget", got)
	}
	calc.Forget(item.ID)
	if got, _ := calc.CurrentStock(ctx, item.ID); got != 6 {
		t.Errorf("CurrentStock after Forget = %d, want 6", got)
	}

	many, err := calc.CurrentStocks(ctx, []uint{item.ID, item.ID})
	if err != nil || many[item.ID] != 6 {
		t.Errorf("CurrentStocks = %v, %v; want 6", many, err)
	}
}

func TestCalculator_RecalculateAll(t *testing.T) {
	db := testdb.Open(t)
	site := newSite(t, db, "S1")
	item := newItem(t, db, 10)
	untouched := newItem(t, db, 3)
	txn(t, db, entity.TxnIssue, item.ID, site.ID, 4)

	calc := NewCalculator(db, nil, time.Minute, nil)
	n, err := calc.RecalculateAll(context.Background())
	if err != nil {
		t.Fatalf("RecalculateAll: %v", err)
	}
	if n != 1 {
		t.Errorf("corrected = %d, want 1", n)
	}
	var stored entity.InventoryItem
	db.First(&stored, item.ID)
	if stored.CurrentStock != 6 {
		t.Errorf("current_stock = %d, want 6", stored.CurrentStock)
	}
	var other entity.InventoryItem
	db.First(&other, untouched.ID)
	if other.CurrentStock != 3 {
		t.Errorf("untouched current_stock = %d, want 3", other.CurrentStock)
	}
}
