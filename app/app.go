// Package app wires the services into one container shared by the HTTP
// server, the cron scheduler and the CLI.
package app

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"warehouse.GO/config"
	"warehouse.GO/core/cache"
	"warehouse.GO/core/events"
	"warehouse.GO/service/activity"
	"warehouse.GO/service/assignment"
	"warehouse.GO/service/attendance"
	"warehouse.GO/service/cdn"
	"warehouse.GO/service/delivery"
	"warehouse.GO/service/employee"
	"warehouse.GO/service/export"
	"warehouse.GO/service/inventory"
	"warehouse.GO/service/ledger"
	"warehouse.GO/service/notification"
	"warehouse.GO/service/notify"
	"warehouse.GO/service/officeasset"
	"warehouse.GO/service/site"
	"warehouse.GO/service/stock"
	"warehouse.GO/service/transfer"
)

type App struct {
	DB     *gorm.DB
	Config *config.Config
	Log    *zap.Logger
	Bus    *events.Bus

	Calc     *ledger.Calculator
	Uploader cdn.Uploader
	Notifier notify.Notifier
	Audit    *activity.Logger

	Inventory     *inventory.Service
	Stock         *stock.Service
	Deliveries    *delivery.Service
	Sites         *site.Service
	Employees     *employee.Service
	Assignments   *assignment.Service
	Transfers     *transfer.Service
	OfficeAssets  *officeasset.Service
	Attendance    *attendance.Service
	Notifications *notification.Service
	Exporter      *export.Exporter
}

// Option adjusts collaborators before the services are built. Tests use it to
// swap in fakes.
type Option func(*App)

func WithUploader(u cdn.Uploader) Option { return func(a *App) { a.Uploader = u } }

func WithNotifier(n notify.Notifier) Option { return func(a *App) { a.Notifier = n } }

func WithSinks(sinks ...export.Sink) Option {
	return func(a *App) { a.Exporter = export.NewExporter(a.DB, a.Log, sinks...) }
}

// New builds every service on db. Unconfigured upstreams degrade: no CDN means
// images are stored inline, no OneSignal means pushes are dropped.
func New(db *gorm.DB, cfg *config.Config, log *zap.Logger, opts ...Option) *App {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{DB: db, Config: cfg, Log: log, Bus: events.NewBus(log.Named("events"))}
	if cfg.CDNUploadURL != "" {
		a.Uploader = cdn.NewHTTPUploader(cfg.CDNUploadURL, cfg.CDNUploadPreset, cfg.CDNMaxImagePx, log.Named("cdn"))
	}
	a.Notifier = notify.New(cfg.OneSignalAppID, cfg.OneSignalAPIKey, cfg.OneSignalURL, log.Named("notify"))
	a.Exporter = export.NewExporter(db, log.Named("export"), defaultSinks(cfg, log)...)
	for _, o := range opts {
		o(a)
	}

	attempts := cfg.IDRetryAttempts
	a.Calc = ledger.NewCalculator(db, cache.New(), cfg.StockCacheTTL, log.Named("ledger"))
	a.Audit = activity.New(db, log.Named("activity"))

	a.Inventory = inventory.NewService(db, a.Calc, a.Uploader, a.Bus, log.Named("inventory"))
	a.Stock = stock.NewService(db, a.Calc, a.Bus, log.Named("stock"), stock.WithAttempts(attempts))
	a.Deliveries = delivery.NewService(db, a.Calc, a.Bus, log.Named("delivery"),
		delivery.WithAttempts(attempts), delivery.WithUploader(a.Uploader))
	a.Sites = site.NewService(db, a.Bus, log.Named("site"))
	a.Employees = employee.NewService(db, a.Calc, a.Bus, a.Audit, log.Named("employee"))
	a.Assignments = assignment.NewService(db, a.Calc, a.Bus, a.Audit, log.Named("assignment"))
	a.Transfers = transfer.NewService(db, a.Calc, a.Bus, log.Named("transfer"), transfer.WithAttempts(attempts))
	a.OfficeAssets = officeasset.NewService(db, a.Bus, a.Audit, log.Named("officeasset"),
		officeasset.WithAttempts(attempts), officeasset.WithUploader(a.Uploader))
	attOpts := []attendance.Option{attendance.WithNotifier(a.Notifier)}
	if cfg.Location != nil {
		attOpts = append(attOpts, attendance.WithLocation(cfg.Location))
	}
	a.Attendance = attendance.NewService(db, a.Bus, a.Audit, log.Named("attendance"), attOpts...)
	a.Notifications = notification.NewService(db, a.Notifier, a.Bus, log.Named("notification"))
	return a
}

func defaultSinks(cfg *config.Config, log *zap.Logger) []export.Sink {
	var sinks []export.Sink
	if cfg.ExportDir != "" {
		sinks = append(sinks, export.CSVSink{Dir: cfg.ExportDir})
	}
	if cfg.ElasticsearchHost != "" {
		es, err := export.NewElasticSink(cfg.ElasticsearchHost, cfg.ElasticIndexPrefix)
		if err != nil {
			log.Warn("elasticsearch sink disabled", zap.Error(err))
		} else {
			sinks = append(sinks, es)
		}
	}
	return sinks
}
