// Package export mirrors the operational tables into flat sheets and hands
// them to one or more sinks (a CSV directory, an Elasticsearch cluster).
package export

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"warehouse.GO/core/apperr"
	"warehouse.GO/model/entity"
	"warehouse.GO/service/ledger"
)

// Sheet is one flat table. Rows line up with Header.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Docs turns rows into header-keyed maps.
func (s Sheet) Docs() []map[string]string {
	out := make([]map[string]string, 0, len(s.Rows))
	for _, r := range s.Rows {
		doc := make(map[string]string, len(s.Header))
		for i, h := range s.Header {
			if i < len(r) {
				doc[h] = r[i]
			}
		}
		out = append(out, doc)
	}
	return out
}

type Sink interface {
	Name() string
	Write(ctx context.Context, sheets []Sheet) error
}

type Exporter struct {
	db    *gorm.DB
	sinks []Sink
	log   *zap.Logger
	now   func() time.Time
}

func NewExporter(db *gorm.DB, log *zap.Logger, sinks ...Sink) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{db: db, sinks: sinks, log: log, now: time.Now}
}

// Report summarises one run.
type Report struct {
	StartedAt time.Time         `json:"startedAt"`
	Duration  string            `json:"duration"`
	Rows      map[string]int    `json:"rows"`
	Sinks     map[string]string `json:"sinks"`
}

// Run snapshots every table and writes it to all sinks. A failing sink does
// not stop the others; if any failed the report is returned together with an
// Upstream error.
func (e *Exporter) Run(ctx context.Context) (*Report, error) {
	start := e.now()
	sheets, err := e.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	rep := &Report{StartedAt: start, Rows: map[string]int{}, Sinks: map[string]string{}}
	for _, s := range sheets {
		rep.Rows[s.Name] = len(s.Rows)
	}
	var failed []string
	for _, sink := range e.sinks {
		if err := sink.Write(ctx, sheets); err != nil {
			e.log.Error("export sink failed", zap.String("sink", sink.Name()), zap.Error(err))
			rep.Sinks[sink.Name()] = err.Error()
			failed = append(failed, sink.Name())
			continue
		}
		rep.Sinks[sink.Name()] = "ok"
	}
	rep.Duration = e.now().Sub(start).String()
	e.log.Info("export finished", zap.Any("rows", rep.Rows), zap.Int("sinks", len(e.sinks)), zap.Strings("failed", failed))
	if len(failed) > 0 {
		return rep, apperr.Upstreamf(nil, "export sinks failed: %s", strings.Join(failed, ", "))
	}
	return rep, nil
}

// Snapshot loads every sheet concurrently.
func (e *Exporter) Snapshot(ctx context.Context) ([]Sheet, error) {
	loaders := []func(*gorm.DB) (Sheet, error){
		inventorySheet, transactionSheet, deliverySheet, siteSheet, employeeSheet,
		transferSheet, officeAssetSheet, assetTxnSheet, attendanceSheet,
	}
	sheets := make([]Sheet, len(loaders))
	g, gctx := errgroup.WithContext(ctx)
	db := e.db.WithContext(gctx)
	for i, load := range loaders {
		i, load := i, load
		g.Go(func() error {
			s, err := load(db)
			if err != nil {
				return err
			}
			sheets[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("export snapshot: %w", err)
	}
	return sheets, nil
}

const stamp = "2006-01-02 15:04:05"

func ts(t time.Time) string { return t.Format(stamp) }

func tsp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return ts(*t)
}

func itoa(n int) string { return strconv.Itoa(n) }

func uid(p *uint) string {
	if p == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*p), 10)
}

func u(n uint) string { return strconv.FormatUint(uint64(n), 10) }

func inventorySheet(db *gorm.DB) (Sheet, error) {
	var items []entity.InventoryItem
	if err := db.Order("id").Find(&items).Error; err != nil {
		return Sheet{}, err
	}
	ids := make([]uint, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	stock, err := ledger.ComputeMany(db, ids)
	if err != nil {
		return Sheet{}, err
	}
	s := Sheet{Name: "inventory", Header: []string{"id", "sku", "name", "category", "unit", "initialStock",
		"delivered", "issued", "returned", "assigned", "currentStock", "reorderLevel", "unitCost", "currency"}}
	for _, it := range items {
		b := stock[it.ID]
		if b == nil {
			b = &ledger.Breakdown{Initial: it.InitialStock, Current: it.InitialStock}
		}
		s.Rows = append(s.Rows, []string{u(it.ID), it.SKU, it.Name, it.Category, it.Unit, itoa(it.InitialStock),
			itoa(b.Delivered), itoa(b.Issued), itoa(b.Returned), itoa(b.Assigned), itoa(b.Current),
			itoa(it.ReorderLevel), it.UnitCost.StringFixed(2), it.Currency})
	}
	return s, nil
}

func transactionSheet(db *gorm.DB) (Sheet, error) {
	var rows []entity.Transaction
	if err := db.Preload("Item").Preload("Site").Order("occurred_at, id").Find(&rows).Error; err != nil {
		return Sheet{}, err
	}
	s := Sheet{Name: "transactions", Header: []string{"transactionId", "type", "sku", "item", "site", "employeeId",
		"quantity", "timestamp", "remark", "transferGroup"}}
	for _, t := range rows {
		var sku, item, site, group string
		if t.Item != nil {
			sku, item = t.Item.SKU, t.Item.Name
		}
		if t.Site != nil {
			site = t.Site.Code
		}
		if t.TransferGroup != nil {
			group = *t.TransferGroup
		}
		s.Rows = append(s.Rows, []string{t.TransactionID, t.Type, sku, item, site, uid(t.EmployeeID),
			itoa(t.Quantity), ts(t.Timestamp), t.Remark, group})
	}
	return s, nil
}

// deliverySheet has one row per delivery line.
func deliverySheet(db *gorm.DB) (Sheet, error) {
	var rows []entity.Delivery
	if err := db.Preload("Items.Item").Order("delivered_at, id").Find(&rows).Error; err != nil {
		return Sheet{}, err
	}
	s := Sheet{Name: "deliveries", Header: []string{"deliveryId", "seller", "invoiceNumber", "amount", "currency",
		"deliveredAt", "sku", "item", "quantity"}}
	for _, d := range rows {
		head := []string{d.DeliveryID, d.Seller, d.InvoiceNumber, d.Amount.StringFixed(2), d.Currency, ts(d.DeliveredAt)}
		if len(d.Items) == 0 {
			s.Rows = append(s.Rows, append(head, "", "", "0"))
			continue
		}
		for _, l := range d.Items {
			var sku, name string
			if l.Item != nil {
				sku, name = l.Item.SKU, l.Item.Name
			}
			row := append(append([]string{}, head...), sku, name, itoa(l.Quantity))
			s.Rows = append(s.Rows, row)
		}
	}
	return s, nil
}

func siteSheet(db *gorm.DB) (Sheet, error) {
	var rows []entity.Site
	if err := db.Order("id").Find(&rows).Error; err != nil {
		return Sheet{}, err
	}
	s := Sheet{Name: "sites", Header: []string{"code", "name", "location", "status", "clientName", "budget", "startDate", "endDate"}}
	for _, x := range rows {
		s.Rows = append(s.Rows, []string{x.Code, x.Name, x.Location, x.Status, x.ClientName,
			x.Budget.StringFixed(2), tsp(x.StartDate), tsp(x.EndDate)})
	}
	return s, nil
}

func employeeSheet(db *gorm.DB) (Sheet, error) {
	var rows []entity.Employee
	if err := db.Preload("Assets.Item").Order("id").Find(&rows).Error; err != nil {
		return Sheet{}, err
	}
	s := Sheet{Name: "employees", Header: []string{"id", "username", "name", "role", "designation", "phone", "active", "assets"}}
	for _, e := range rows {
		held := make([]string, 0, len(e.Assets))
		for _, a := range e.Assets {
			if a.Item != nil {
				held = append(held, fmt.Sprintf("%s x%d", a.Item.SKU, a.Quantity))
			}
		}
		s.Rows = append(s.Rows, []string{u(e.ID), e.Username, e.Name, e.Role, e.Designation, e.Phone,
			strconv.FormatBool(e.Active), strings.Join(held, "; ")})
	}
	return s, nil
}

func transferSheet(db *gorm.DB) (Sheet, error) {
	var rows []entity.StockTransfer
	if err := db.Preload("FromSite").Preload("ToSite").Preload("Lines.Item").Order("id").Find(&rows).Error; err != nil {
		return Sheet{}, err
	}
	s := Sheet{Name: "stock_transfers", Header: []string{"transferId", "from", "to", "status", "items", "requestedBy", "createdAt", "approvedAt", "receivedAt"}}
	for _, t := range rows {
		var from, to string
		if t.FromSite != nil {
			from = t.FromSite.Code
		}
		if t.ToSite != nil {
			to = t.ToSite.Code
		}
		lines := make([]string, 0, len(t.Lines))
		for _, l := range t.Lines {
			if l.Item != nil {
				lines = append(lines, fmt.Sprintf("%s x%d", l.Item.SKU, l.Quantity))
			}
		}
		s.Rows = append(s.Rows, []string{t.TransferID, from, to, t.Status, strings.Join(lines, "; "),
			u(t.RequestedBy), ts(t.CreatedAt), tsp(t.ApprovedAt), tsp(t.ReceivedAt)})
	}
	return s, nil
}

func officeAssetSheet(db *gorm.DB) (Sheet, error) {
	var rows []entity.OfficeAsset
	if err := db.Order("id").Find(&rows).Error; err != nil {
		return Sheet{}, err
	}
	s := Sheet{Name: "office_assets", Header: []string{"sku", "name", "category", "brand", "model", "serialNumber", "totalStock", "currentStock", "price", "location"}}
	for _, a := range rows {
		s.Rows = append(s.Rows, []string{a.SKU, a.Name, a.Category, a.Brand, a.Model, a.SerialNumber,
			itoa(a.TotalStock), itoa(a.CurrentStock), a.Price.StringFixed(2), a.Location})
	}
	return s, nil
}

func assetTxnSheet(db *gorm.DB) (Sheet, error) {
	var rows []entity.AssetTransaction
	if err := db.Preload("Asset").Preload("Employee").Order("id").Find(&rows).Error; err != nil {
		return Sheet{}, err
	}
	s := Sheet{Name: "asset_transactions", Header: []string{"transactionId", "sku", "employee", "quantity", "status", "condition", "assignedAt", "returnedAt"}}
	for _, t := range rows {
		var sku, emp string
		if t.Asset != nil {
			sku = t.Asset.SKU
		}
		if t.Employee != nil {
			emp = t.Employee.Username
		}
		s.Rows = append(s.Rows, []string{t.TransactionID, sku, emp, itoa(t.Quantity), t.Status, t.Condition,
			ts(t.AssignedAt), tsp(t.ReturnedAt)})
	}
	return s, nil
}

func attendanceSheet(db *gorm.DB) (Sheet, error) {
	var rows []entity.Attendance
	if err := db.Preload("Employee").Order("work_date, employee_id, session_number").Find(&rows).Error; err != nil {
		return Sheet{}, err
	}
	s := Sheet{Name: "attendance", Header: []string{"date", "employee", "session", "checkIn", "checkOut", "workingHours", "approvalStatus"}}
	for _, a := range rows {
		var emp string
		if a.Employee != nil {
			emp = a.Employee.Username
		}
		s.Rows = append(s.Rows, []string{a.Date, emp, itoa(a.SessionNumber), ts(a.CheckIn), tsp(a.CheckOut),
			strconv.FormatFloat(a.WorkingHours, 'f', 2, 64), a.ApprovalStatus})
	}
	return s, nil
}
