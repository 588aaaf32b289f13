package employee

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"warehouse.GO/core/apperr"
	"warehouse.GO/core/auth"
	"warehouse.GO/core/testdb"
	"warehouse.GO/model/entity"
	"warehouse.GO/service/activity"
	"warehouse.GO/service/ledger"
)

func ptr[T any](v T) *T { return &v }

func setup(t *testing.T) (*gorm.DB, *Service) {
	t.Helper()
	db := testdb.Open(t)
	calc := ledger.NewCalculator(db, nil, time.Minute, zap.NewNop())
	return db, NewService(db, calc, nil, activity.New(db, zap.NewNop()), zap.NewNop())
}

func TestCreate_DefaultsAndHash(t *testing.T) {
	_, svc := setup(t)
	e, err := svc.Create(context.Background(), Input{
		Username:    ptr("  Ravi "),
		Password:    ptr("secret1"),
		Name:        ptr("Ravi Kumar"),
		Permissions: entity.Permissions{auth.AddInventory: true},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if e.Username != "ravi" || e.Role != entity.RoleEmployee || !e.Active {
		t.Errorf("employee = %+v", e)
	}
	if e.PasswordHash == "secret1" || !auth.CheckPassword(e.PasswordHash, "secret1") {
		t.Error("password not bcrypt-hashed")
	}
	p := e.Granted()
	if !p[auth.ViewInventory] || !p[auth.AddInventory] || p[auth.DeleteInventory] {
		t.Errorf("permissions = %v", p)
	}
}

func TestCreate_Validation(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, Input{Username: ptr("ravi"), Password: ptr("secret1"), Name: ptr("Ravi")}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	cases := []struct {
		name string
		in   Input
		kind apperr.Kind
	}{
		{"short username", Input{Username: ptr("ab"), Password: ptr("secret1"), Name: ptr("A")}, apperr.Validation},
		{"missing password", Input{Username: ptr("anna"), Name: ptr("A")}, apperr.Validation},
		{"short password", Input{Username: ptr("anna"), Password: ptr("123"), Name: ptr("A")}, apperr.Validation},
		{"missing name", Input{Username: ptr("anna"), Password: ptr("secret1")}, apperr.Validation},
		{"bad role", Input{Username: ptr("anna"), Password: ptr("secret1"), Name: ptr("A"), Role: ptr("ceo")}, apperr.Validation},
		{"duplicate", Input{Username: ptr("RAVI"), Password: ptr("secret1"), Name: ptr("R")}, apperr.Conflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tc.in); !apperr.Is(err, tc.kind) {
				t.Errorf("err = %v, want %s", err, tc.kind)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()
	at := time.Date(2024, 12, 25, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return at }
	e, _ := svc.Create(ctx, Input{Username: ptr("ravi"), Password: ptr("secret1"), Name: ptr("Ravi")})

	got, err := svc.Authenticate(ctx, "Ravi", "secret1")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.LastLoginAt == nil || !got.LastLoginAt.Equal(at) {
		t.Errorf("lastLoginAt = %v", got.LastLoginAt)
	}
	if _, err := svc.Authenticate(ctx, "ravi", "wrong"); !apperr.Is(err, apperr.Unauthorized) {
		t.Errorf("wrong password err = %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody", "secret1"); !apperr.Is(err, apperr.Unauthorized) {
		t.Errorf("unknown user err = %v", err)
	}
	if _, err := svc.Update(ctx, e.ID, Input{Active: ptr(false)}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "ravi", "secret1"); !apperr.Is(err, apperr.Forbidden) {
		t.Errorf("deactivated err = %v", err)
	}
}

func TestUpdate_MergesPermissions(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()
	e, _ := svc.Create(ctx, Input{Username: ptr("ravi"), Password: ptr("secret1"), Name: ptr("Ravi"),
		Permissions: entity.Permissions{auth.AddInventory: true}})
	got, err := svc.Update(ctx, e.ID, Input{Role: ptr(entity.RoleStorekeeper),
		Permissions: entity.Permissions{auth.EditInventory: true}})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	p := got.Granted()
	if got.Role != entity.RoleStorekeeper || !p[auth.AddInventory] || !p[auth.EditInventory] {
		t.Errorf("role=%s permissions=%v", got.Role, p)
	}
}

func TestDelete(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()
	admin, _ := svc.Create(ctx, Input{Username: ptr("admin"), Password: ptr("secret1"), Name: ptr("Admin"), Role: ptr(entity.RoleAdmin)})
	e, _ := svc.Create(ctx, Input{Username: ptr("ravi"), Password: ptr("secret1"), Name: ptr("Ravi")})
	item := entity.InventoryItem{SKU: "DRL", Name: "Drill", InitialStock: 4}
	db.Create(&item)
	db.Create(&entity.EmployeeAsset{EmployeeID: e.ID, ItemID: item.ID, Quantity: 3, Condition: entity.ConditionNew, AssignedAt: time.Now()})

	if err := svc.Delete(ctx, admin.ID, admin.ID); !apperr.Is(err, apperr.Forbidden) {
		t.Errorf("self delete err = %v", err)
	}
	if err := svc.Delete(ctx, e.ID, admin.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	var reloaded entity.InventoryItem
	db.First(&reloaded, item.ID)
	if reloaded.CurrentStock != 4 {
		t.Errorf("stock after releasing assets = %d, want 4", reloaded.CurrentStock)
	}
	if err := svc.Delete(ctx, e.ID, admin.ID); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()
	e, _ := svc.Create(ctx, Input{Username: ptr("ravi"), Password: ptr("secret1"), Name: ptr("Ravi")})
	if err := svc.ChangePassword(ctx, e.ID, "nope", "secret2"); !apperr.Is(err, apperr.Validation) {
		t.Errorf("wrong current err = %v", err)
	}
	if err := svc.ChangePassword(ctx, e.ID, "secret1", "secret2"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "ravi", "secret2"); err != nil {
		t.Errorf("login with new password: %v", err)
	}
}

func TestEnsureAdmin_Idempotent(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()
	first, created, err := svc.EnsureAdmin(ctx, "root", "secret1", "Root")
	if err != nil || !created || first.Role != entity.RoleAdmin {
		t.Fatalf("first = %+v, %v, %v", first, created, err)
	}
	second, created, err := svc.EnsureAdmin(ctx, "root", "other1", "Root")
	if err != nil || created || second.ID != first.ID {
		t.Errorf("second = %+v, %v, %v", second, created, err)
	}
}
