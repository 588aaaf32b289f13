package attendance

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"warehouse.GO/api"
	"warehouse.GO/app"
	"warehouse.GO/core/apperr"
	"warehouse.GO/core/auth"
	svc "warehouse.GO/service/attendance"
)

func init() {
	api.RegisterModule(RegisterAttendanceRoutes)
}

func actor(c echo.Context) svc.Actor {
	p := auth.Current(c)
	if p == nil {
		return svc.Actor{}
	}
	return svc.Actor{ID: p.ID, Username: p.Username, CanApprove: auth.Allows(p, auth.ApproveAttendance)}
}

// employeeScope returns the employee whose records the caller may read. Callers
// without viewReportAttendance only ever see their own.
func employeeScope(c echo.Context) (uint, error) {
	p := auth.Current(c)
	requested, err := api.QueryUint(c, "employeeId")
	if err != nil {
		return 0, err
	}
	if requested == 0 {
		if requested, err = api.QueryUint(c, "userId"); err != nil {
			return 0, err
		}
	}
	if auth.Allows(p, auth.ViewReportAttend) {
		return requested, nil
	}
	if p == nil || p.ID == 0 {
		return 0, apperr.Forbiddenf("attendance is per employee")
	}
	if requested != 0 && requested != p.ID {
		return 0, apperr.Forbiddenf("not allowed to view attendance of another employee")
	}
	return p.ID, nil
}

func RegisterAttendanceRoutes(apiGroup *echo.Group, a *app.App) {
	s := a.Attendance
	g := apiGroup.Group("/attendance")

	g.POST("/checkin", func(c echo.Context) error {
		var in svc.CheckInInput
		if err := api.Bind(c, &in); err != nil {
			return err
		}
		rec, err := s.CheckIn(c.Request().Context(), in, actor(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, rec)
	})

	g.POST("/checkout/:id", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		var in svc.CheckOutInput
		if err := api.Bind(c, &in); err != nil {
			return err
		}
		rec, err := s.CheckOut(c.Request().Context(), id, in, actor(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, rec)
	})

	g.GET("/today", func(c echo.Context) error {
		emp, err := employeeScope(c)
		if err != nil {
			return err
		}
		sum, err := s.Today(c.Request().Context(), c.QueryParam("date"), emp)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, sum)
	})

	g.GET("/monthly-report", func(c echo.Context) error {
		emp, err := employeeScope(c)
		if err != nil {
			return err
		}
		now := time.Now()
		year, err := api.QueryInt(c, "year", now.Year())
		if err != nil {
			return err
		}
		month, err := api.QueryInt(c, "month", int(now.Month()))
		if err != nil {
			return err
		}
		rep, err := s.Monthly(c.Request().Context(), emp, year, month)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, rep)
	})

	g.GET("", func(c echo.Context) error {
		emp, err := employeeScope(c)
		if err != nil {
			return err
		}
		list, err := s.List(c.Request().Context(), svc.Filter{
			Date:       c.QueryParam("date"),
			EmployeeID: emp,
			Status:     c.QueryParam("status"),
			From:       c.QueryParam("from"),
			To:         c.QueryParam("to"),
		})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, list)
	}, auth.RequirePermission(auth.ViewAttendance))

	g.GET("/:id", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		rec, err := s.Get(c.Request().Context(), id)
		if err != nil {
			return err
		}
		p := auth.Current(c)
		if !auth.Allows(p, auth.ViewReportAttend) && (p == nil || rec.EmployeeID != p.ID) {
			return apperr.Forbiddenf("not allowed to view attendance of another employee")
		}
		return c.JSON(http.StatusOK, rec)
	})

	g.POST("/:id/approve", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		rec, err := s.Approve(c.Request().Context(), id, actor(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, rec)
	}, auth.RequirePermission(auth.ApproveAttendance))

	g.POST("/:id/reject", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body struct {
			Reason string `json:"reason"`
		}
		if err := api.Bind(c, &body); err != nil {
			return err
		}
		rec, err := s.Reject(c.Request().Context(), id, body.Reason, actor(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, rec)
	}, auth.RequirePermission(auth.ApproveAttendance))

	g.PUT("/:id", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		var in svc.EditInput
		if err := api.Bind(c, &in); err != nil {
			return err
		}
		rec, err := s.Edit(c.Request().Context(), id, in, actor(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, rec)
	}, auth.RequirePermission(auth.EditAttendance))

	g.DELETE("/:id", func(c echo.Context) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		if err := s.Delete(c.Request().Context(), id, actor(c)); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}, auth.RequirePermission(auth.DeleteAttendance))
}
