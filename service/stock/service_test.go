package stock

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"warehouse.GO/core/apperr"
	"warehouse.GO/core/events"
	"warehouse.GO/core/testdb"
	"warehouse.GO/model/entity"
	"warehouse.GO/service/ledger"
)

var fixedNow = time.Date(2024, 12, 25, 9, 0, 0, 0, time.UTC)

type fixture struct {
	db    *gorm.DB
	calc  *ledger.Calculator
	svc   *Service
	bus   *events.Bus
	seen  []string
	site  *entity.Site
	itemA *entity.InventoryItem
	itemB *entity.InventoryItem
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{db: testdb.Open(t)}
	f.calc = ledger.NewCalculator(f.db, nil, time.Minute, zap.NewNop())
	f.bus = events.NewBus(zap.NewNop())
	f.bus.Subscribe(func(ev events.Event) { f.seen = append(f.seen, ev.Name) })
	f.svc = NewService(f.db, f.calc, f.bus, zap.NewNop(), WithClock(func() time.Time { return fixedNow }))

	f.site = &entity.Site{Code: "DXB1", Name: "Dubai One", Status: entity.SiteActive}
	f.itemA = &entity.InventoryItem{SKU: "CEM-50", Name: "Cement 50kg", InitialStock: 20, CurrentStock: 20}
	f.itemB = &entity.InventoryItem{SKU: "STL-12", Name: "Steel bar 12mm", InitialStock: 10, CurrentStock: 10}
	for _, v := range []interface{}{f.site, f.itemA, f.itemB} {
		if err := f.db.Create(v).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return f
}

func (f *fixture) stock(t *testing.T, id uint) int {
	t.Helper()
	b, err := ledger.Compute(f.db, id)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	return b.Current
}

func (f *fixture) count(t *testing.T) int64 {
	var n int64
	f.db.Model(&entity.Transaction{}).Count(&n)
	return n
}

func TestIssue_AssignsSequentialIDs(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	want := []string{"TXN-25122024-0001", "TXN-25122024-0002", "TXN-25122024-0003"}
	for i, w := range want {
		txn, err := f.svc.Issue(ctx, Input{ItemID: f.itemA.ID, SiteID: f.site.ID, Quantity: 1}, nil)
		if err != nil {
			t.Fatalf("Issue %d: %v", i, err)
		}
		if txn.TransactionID != w {
			t.Errorf("id %d = %q, want %q", i, txn.TransactionID, w)
		}
	}
	if got := f.stock(t, f.itemA.ID); got != 17 {
		t.Errorf("stock = %d, want 17", got)
	}
	var stored entity.InventoryItem
	f.db.First(&stored, f.itemA.ID)
	if stored.CurrentStock != 17 {
		t.Errorf("stored current_stock = %d, want 17", stored.CurrentStock)
	}
}

func TestIssue_InsufficientStockIsRejectedWithoutSideEffects(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Issue(ctx, Input{ItemID: f.itemA.ID, SiteID: f.site.ID, Quantity: 25}, nil)
	if !apperr.Is(err, apperr.InsufficientStock) {
		t.Fatalf("err = %v, want InsufficientStock", err)
	}
	if err.Error() != "insufficient stock for Cement 50kg: available 20, requested 25" {
		t.Errorf("message = %q", err.Error())
	}
	if f.count(t) != 0 {
		t.Error("no transaction should be stored")
	}
	if got := f.stock(t, f.itemA.ID); got != 20 {
		t.Errorf("stock = %d, want 20", got)
	}
	if len(f.seen) != 0 {
		t.Errorf("events published on failure: %v", f.seen)
	}

	if _, err := f.svc.Issue(ctx, Input{ItemID: f.itemA.ID, SiteID: f.site.ID, Quantity: 20}, nil); err != nil {
		t.Fatalf("retry with valid quantity: %v", err)
	}
	if got := f.stock(t, f.itemA.ID); got != 0 {
		t.Errorf("stock = %d, want 0", got)
	}
}

func TestRecord_Validation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	cases := []struct {
		name string
		in   Input
		kind apperr.Kind
	}{
		{"zero quantity", Input{Type: entity.TxnIssue, ItemID: f.itemA.ID, SiteID: f.site.ID}, apperr.Validation},
		{"bad type", Input{Type: "LOAN", ItemID: f.itemA.ID, SiteID: f.site.ID, Quantity: 1}, apperr.Validation},
		{"missing site", Input{Type: entity.TxnReturn, ItemID: f.itemA.ID, Quantity: 1}, apperr.Validation},
		{"unknown item", Input{Type: entity.TxnReturn, ItemID: 999, SiteID: f.site.ID, Quantity: 1}, apperr.NotFound},
		{"unknown site", Input{Type: entity.TxnReturn, ItemID: f.itemA.ID, SiteID: 999, Quantity: 1}, apperr.NotFound},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := f.svc.Record(ctx, c.in, nil)
			if !apperr.Is(err, c.kind) {
				t.Errorf("err = %v, want %s", err, c.kind)
			}
		})
	}
}

func TestReturn_AlwaysSucceeds(t *testing.T) {
	f := setup(t)
	txn, err := f.svc.Return(context.Background(), Input{ItemID: f.itemA.ID, SiteID: f.site.ID, Quantity: 500}, nil)
	if err != nil {
		t.Fatalf("Return: %v", err)
	}
	if txn.Type != entity.TxnReturn {
		t.Errorf("type = %s", txn.Type)
	}
	if got := f.stock(t, f.itemA.ID); got != 520 {
		t.Errorf("stock = %d, want 520", got)
	}
}

func TestDelete_ReversesEffect(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for _, typ := range []string{entity.TxnIssue, entity.TxnReturn} {
		before := f.stock(t, f.itemA.ID)
		txn, err := f.svc.Record(ctx, Input{Type: typ, ItemID: f.itemA.ID, SiteID: f.site.ID, Quantity: 7}, nil)
		if err != nil {
			t.Fatalf("Record %s: %v", typ, err)
		}
		if err := f.svc.Delete(ctx, txn.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if got := f.stock(t, f.itemA.ID); got != before {
			t.Errorf("%s create+delete: stock = %d, want %d", typ, got, before)
		}
	}
	if err := f.svc.Delete(ctx, 12345); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("Delete missing: %v, want NotFound", err)
	}
}

func TestUpdate_CrossItemEdit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	txn, err := f.svc.Issue(ctx, Input{ItemID: f.itemA.ID, SiteID: f.site.ID, Quantity: 5}, nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	aBefore := f.stock(t, f.itemA.ID)
	bBefore := f.stock(t, f.itemB.ID)

	typ, qty := entity.TxnReturn, 3
	updated, err := f.svc.Update(ctx, txn.ID, UpdateInput{Type: &typ, ItemID: &f.itemB.ID, Quantity: &qty})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.TransactionID != txn.TransactionID {
		t.Errorf("identifier changed to %s", updated.TransactionID)
	}
	if got := f.stock(t, f.itemA.ID); got != aBefore+5 {
		t.Errorf("item A = %d, want %d", got, aBefore+5)
	}
	if got := f.stock(t, f.itemB.ID); got != bBefore+3 {
		t.Errorf("item B = %d, want %d", got, bBefore+3)
	}
}

func TestUpdate_IssueRecheckedAfterReversal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	txn, err := f.svc.Issue(ctx, Input{ItemID: f.itemA.ID, SiteID: f.site.ID, Quantity: 15}, nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// 5 left; after reversing 15 there are 20, so 20 fits and 21 does not.
	qty := 20
	if _, err := f.svc.Update(ctx, txn.ID, UpdateInput{Quantity: &qty}); err != nil {
		t.Fatalf("Update to 20: %v", err)
	}
	qty = 21
	_, err = f.svc.Update(ctx, txn.ID, UpdateInput{Quantity: &qty})
	if !apperr.Is(err, apperr.InsufficientStock) {
		t.Fatalf("Update to 21: %v, want InsufficientStock", err)
	}
	var ae *apperr.Error
	if !errors.As(err, &ae) || *ae.Available != 20 || *ae.Requested != 21 {
		t.Errorf("details = %+v, want available 20 requested 21", ae)
	}
	stored, _ := f.svc.Get(ctx, txn.ID)
	if stored.Quantity != 20 {
		t.Errorf("rejected edit persisted: quantity = %d", stored.Quantity)
	}

	// Moving the issue to item B checks B, which only has 10.
	qty = 12
	if _, err := f.svc.Update(ctx, txn.ID, UpdateInput{ItemID: &f.itemB.ID, Quantity: &qty}); !apperr.Is(err, apperr.InsufficientStock) {
		t.Errorf("cross-item issue over stock: %v, want InsufficientStock", err)
	}
}

func TestList_Filters(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.svc.Issue(ctx, Input{ItemID: f.itemA.ID, SiteID: f.site.ID, Quantity: 1}, nil)
	f.svc.Return(ctx, Input{ItemID: f.itemB.ID, SiteID: f.site.ID, Quantity: 1}, nil)

	all, total, err := f.svc.List(ctx, Filter{})
	if err != nil || total != 2 || len(all) != 2 {
		t.Fatalf("List = %d (%d), %v", len(all), total, err)
	}
	if all[0].Item == nil || all[0].Site == nil {
		t.Error("List should preload item and site")
	}
	issues, _, _ := f.svc.List(ctx, Filter{Type: entity.TxnIssue})
	if len(issues) != 1 || issues[0].ItemID != f.itemA.ID {
		t.Errorf("issues = %+v", issues)
	}
	got, err := f.svc.GetByCode(ctx, issues[0].TransactionID)
	if err != nil || got.ID != issues[0].ID {
		t.Errorf("GetByCode = %v, %v", got, err)
	}
}

func TestIssue_SiteNameFindsOrCreates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	txn, err := f.svc.Issue(ctx, Input{ItemID: f.itemA.ID, SiteName: "dubai one", Quantity: 1}, nil)
	if err != nil {
		t.Fatalf("Issue existing name: %v", err)
	}
	if txn.SiteID != f.site.ID {
		t.Errorf("site = %d, want existing %d", txn.SiteID, f.site.ID)
	}
	txn, err = f.svc.Issue(ctx, Input{ItemID: f.itemA.ID, SiteName: "Al Quoz Tower", Quantity: 1}, nil)
	if err != nil {
		t.Fatalf("Issue new name: %v", err)
	}
	var created entity.Site
	if err := f.db.First(&created, txn.SiteID).Error; err != nil {
		t.Fatalf("load site: %v", err)
	}
	if created.Code != "ALQUOZ" || created.Status != entity.SiteActive {
		t.Errorf("created site = %+v", created)
	}
}
