package notifications

import (
	"net/http"
	"testing"

	"warehouse.GO/api/apitest"
	"warehouse.GO/core/auth"
	"warehouse.GO/model/entity"
)

func TestNotificationsAPI_Feed(t *testing.T) {
	s := apitest.New(t, RegisterNotificationRoutes)
	ravi, asRavi := s.Employee(t, "ravi", entity.RoleLabor, auth.ViewNotifications)
	other, _ := s.Employee(t, "other", entity.RoleLabor)

	apitest.Expect(t, s.Do(t, http.MethodPost, "/api/notifications", map[string]interface{}{"title": "", "message": "x"}), http.StatusBadRequest)
	apitest.Expect(t, s.Do(t, http.MethodPost, "/api/notifications",
		map[string]interface{}{"title": "Safety", "message": "Helmets on"}), http.StatusCreated)
	apitest.Expect(t, s.Do(t, http.MethodPost, "/api/notifications",
		map[string]interface{}{"title": "Payroll", "message": "Slip ready", "recipients": []uint{ravi.ID}}), http.StatusCreated)
	rec := s.Do(t, http.MethodPost, "/api/notifications",
		map[string]interface{}{"title": "Private", "message": "Not for ravi", "recipients": []uint{other.ID}})
	apitest.Expect(t, rec, http.StatusCreated)
	var private entity.Notification
	apitest.Decode(t, rec, &private)
	if private.PushStatus != entity.PushSkipped {
		t.Errorf("push status = %q", private.PushStatus)
	}

	s.As = asRavi
	rec = s.Do(t, http.MethodGet, "/api/notifications", nil)
	apitest.Expect(t, rec, http.StatusOK)
	var feed []entity.Notification
	apitest.Decode(t, rec, &feed)
	if len(feed) != 2 {
		t.Fatalf("feed = %d, want broadcast plus direct", len(feed))
	}
	apitest.Expect(t, s.Do(t, http.MethodGet, "/api/notifications/all", nil), http.StatusForbidden)
	apitest.Expect(t, s.Do(t, http.MethodDelete, "/api/notifications/"+apitest.ID(private.ID), nil), http.StatusForbidden)

	s.As = apitest.Admin
	apitest.Expect(t, s.Do(t, http.MethodDelete, "/api/notifications/"+apitest.ID(private.ID), nil), http.StatusNoContent)
	apitest.Expect(t, s.Do(t, http.MethodDelete, "/api/notifications/"+apitest.ID(private.ID), nil), http.StatusNotFound)
}
