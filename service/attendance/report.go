package attendance

import (
	"context"
	"time"

	"warehouse.GO/core/apperr"
	"warehouse.GO/model/entity"
)

type TodaySummary struct {
	Date                string              `json:"date"`
	Records             []entity.Attendance `json:"records"`
	TotalWorkingSeconds int64               `json:"totalWorkingSeconds"`
}

// Today lists the sessions of one day. With employeeID zero every employee's
// sessions are returned. Open sessions count their elapsed time so far.
func (s *Service) Today(ctx context.Context, date string, employeeID uint) (*TodaySummary, error) {
	now := s.now()
	if date == "" {
		date = now.In(s.loc).Format(DateLayout)
	}
	recs, err := s.List(ctx, Filter{Date: date, EmployeeID: employeeID})
	if err != nil {
		return nil, err
	}
	out := &TodaySummary{Date: date, Records: recs}
	for _, r := range recs {
		out.TotalWorkingSeconds += elapsed(r, now)
	}
	return out, nil
}

func elapsed(r entity.Attendance, now time.Time) int64 {
	if !r.IsOpen() {
		return r.WorkingSeconds
	}
	if d := now.Sub(r.CheckIn); d > 0 {
		return int64(d / time.Second)
	}
	return 0
}

const (
	DayPresent = "present"
	DayAbsent  = "absent"
)

type Day struct {
	Date                string              `json:"date"`
	Status              string              `json:"status"`
	Sessions            []entity.Attendance `json:"sessions"`
	TotalWorkingSeconds int64               `json:"totalWorkingSeconds"`
}

type MonthlyReport struct {
	EmployeeID   uint  `json:"employeeId"`
	Year         int   `json:"year"`
	Month        int   `json:"month"`
	Days         []Day `json:"report"`
	TotalSeconds int64 `json:"totalSeconds"`
	PresentDays  int   `json:"presentDays"`
	AbsentDays   int   `json:"absentDays"`
}

// Monthly builds a per-day report for one employee. Days after today are
// left out.
func (s *Service) Monthly(ctx context.Context, employeeID uint, year, month int) (*MonthlyReport, error) {
	if employeeID == 0 {
		return nil, apperr.Required("userId")
	}
	if month < 1 || month > 12 || year < 2000 {
		return nil, apperr.Validationf("month", "year and month are required")
	}
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, s.loc)
	last := first.AddDate(0, 1, -1)
	recs, err := s.List(ctx, Filter{
		EmployeeID: employeeID,
		From:       first.Format(DateLayout),
		To:         last.Format(DateLayout),
	})
	if err != nil {
		return nil, err
	}
	byDay := make(map[string][]entity.Attendance)
	for _, r := range recs {
		byDay[r.Date] = append(byDay[r.Date], r)
	}

	now := s.now()
	today := now.In(s.loc).Format(DateLayout)
	rep := &MonthlyReport{EmployeeID: employeeID, Year: year, Month: month, Days: []Day{}}
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		key := d.Format(DateLayout)
		if key > today {
			break
		}
		day := Day{Date: key, Status: DayAbsent, Sessions: []entity.Attendance{}}
		if sessions, ok := byDay[key]; ok {
			day.Status = DayPresent
			day.Sessions = sessions
			for _, r := range sessions {
				day.TotalWorkingSeconds += r.WorkingSeconds
			}
			rep.PresentDays++
		} else {
			rep.AbsentDays++
		}
		rep.TotalSeconds += day.TotalWorkingSeconds
		rep.Days = append(rep.Days, day)
	}
	return rep, nil
}
