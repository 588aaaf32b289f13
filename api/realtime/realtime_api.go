package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"warehouse.GO/api"
	"warehouse.GO/app"
	"warehouse.GO/core/apperr"
	"warehouse.GO/core/auth"
	"warehouse.GO/core/events"
	stockRepo "warehouse.GO/model/repository/stock"
)

func init() {
	api.RegisterModule(RegisterRealtimeRoutes)
}

// Heartbeat keeps idle proxies from closing the event stream.
var Heartbeat = 25 * time.Second

const streamBuffer = 64

var (
	repoInstance *stockRepo.StockRepository
	repoDB       *gorm.DB
	repoMu       sync.Mutex
)

func getRepository(db *gorm.DB) (*stockRepo.StockRepository, error) {
	repoMu.Lock()
	defer repoMu.Unlock()
	if repoInstance != nil && repoDB == db {
		return repoInstance, nil
	}
	r, err := stockRepo.NewStockRepository(db)
	if err != nil {
		return nil, err
	}
	repoInstance, repoDB = r, db
	return r, nil
}

func durationHeader(c echo.Context, start time.Time) {
	c.Response().Header().Set("X-Request-Duration-ms", strconv.FormatInt(time.Since(start).Milliseconds(), 10))
}

// RegisterRealtimeRoutes mounts the change stream and the low-latency stock
// lookups.
func RegisterRealtimeRoutes(apiGroup *echo.Group, a *app.App) {
	g := apiGroup.Group("/realtime")
	view := auth.RequirePermission(auth.ViewInventory)

	// GET /api/realtime/events?events=inventory:updated,transaction:created
	g.GET("/events", func(c echo.Context) error {
		return stream(c, a.Bus, a.Log.Named("realtime"))
	})

	// GET /api/realtime/stock?sku=XXX
	g.GET("/stock", func(c echo.Context) error {
		start := time.Now()
		sku := strings.TrimSpace(c.QueryParam("sku"))
		if sku == "" {
			return apperr.Required("sku")
		}
		r, err := getRepository(a.DB)
		if err != nil {
			return err
		}
		level, found := r.GetBySKU(sku)
		durationHeader(c, start)
		if !found {
			return apperr.NotFoundf("item", sku)
		}
		return c.JSON(http.StatusOK, echo.Map{
			"sku": level.SKU, "name": level.Name, "currentStock": level.CurrentStock, "lowStock": level.Low(),
		})
	}, view)

	// GET /api/realtime/stock/batch?skus=A,B,C
	g.GET("/stock/batch", func(c echo.Context) error {
		start := time.Now()
		var skus []string
		for _, s := range strings.Split(c.QueryParam("skus"), ",") {
			if s = strings.TrimSpace(s); s != "" {
				skus = append(skus, s)
			}
		}
		if len(skus) == 0 {
			return apperr.Required("skus")
		}
		r, err := getRepository(a.DB)
		if err != nil {
			return err
		}
		levels, err := r.BatchGet(skus)
		if err != nil {
			return err
		}
		durationHeader(c, start)
		return c.JSON(http.StatusOK, levels)
	}, view)

	g.GET("/low-stock", func(c echo.Context) error {
		r, err := getRepository(a.DB)
		if err != nil {
			return err
		}
		low, err := r.LowStock()
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, low)
	}, view)
}

// stream writes bus events as server-sent events until the client goes away.
// A slow client loses events rather than stalling the publishers.
func stream(c echo.Context, bus *events.Bus, log *zap.Logger) error {
	var only map[string]bool
	if f := c.QueryParam("events"); f != "" {
		only = map[string]bool{}
		for _, name := range strings.Split(f, ",") {
			only[strings.TrimSpace(name)] = true
		}
	}

	ch := make(chan events.Event, streamBuffer)
	unsubscribe := bus.Subscribe(func(ev events.Event) {
		if only != nil && !only[ev.Name] {
			return
		}
		select {
		case ch <- ev:
		default:
			log.Warn("dropping event for slow client", zap.String("event", ev.Name))
		}
	})
	defer unsubscribe()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(res, ": connected\n\n"); err != nil {
		return nil
	}
	res.Flush()

	ticker := time.NewTicker(Heartbeat)
	defer ticker.Stop()
	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		case ev := <-ch:
			payload, err := json.Marshal(ev)
			if err != nil {
				log.Error("encode event", zap.String("event", ev.Name), zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", ev.Name, payload); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
