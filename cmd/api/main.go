package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/otel/trace"

	_ "orderhub/docs"
	"orderhub/pkg/gateway"
	"orderhub/pkg/logger"
	"orderhub/pkg/metrics"
	"orderhub/pkg/order"
	"orderhub/pkg/order/memory"
	pg "orderhub/pkg/order/postgres"
	"orderhub/pkg/otel"
)

var (
	redisClient *redis.Client
	svc         *order.Service
	log         *logger.Logger
	tracer      trace.Tracer
)

// @title OrderHub API
// @version 1.0
// @description Places customer orders against the inventory and product services.
// @host localhost:8080
// @BasePath /
func main() {
	log = logger.New(os.Stdout, logger.LevelInfo, "orderhub", otel.GetTraceID)

	tp, shutdown, err := otel.InitTracing(log, otel.Config{
		ServiceName: "orderhub",
		Host:        os.Getenv("OTEL_HOST"),
		Probability: 1.0,
	})
	if err != nil {
		log.Error(context.Background(), "init tracing", "error", err)
		os.Exit(1)
	}
	defer shutdown(context.Background())
	tracer = tp.Tracer("orderhub")

	var (
		repo order.Repository
		plog order.PlacementLog
	)
	if url := os.Getenv("DATABASE_URL"); url != "" {
		db, err := sql.Open("postgres", url)
		if err != nil {
			log.Error(context.Background(), "db connect", "error", err)
			os.Exit(1)
		}
		if err := pg.EnsureSchema(context.Background(), db); err != nil {
			log.Error(context.Background(), "create tables", "error", err)
			os.Exit(1)
		}
		repo = pg.New(db)
		plog = pg.NewPlacementLog(db)
	} else {
		log.Info(context.Background(), "no DATABASE_URL, using in-memory store")
		repo = memory.New()
		plog = memory.NewPlacementLog()
	}

	redisClient = redis.NewClient(&redis.Options{Addr: os.Getenv("REDIS_ADDR")})

	httpClient := &http.Client{Timeout: 10 * time.Second}
	stock := gateway.NewInventoryClient(os.Getenv("INVENTORY_URL"), httpClient)

	var price order.PriceGateway = gateway.NewProductClient(os.Getenv("PRODUCT_URL"), httpClient)
	if ttl, err := time.ParseDuration(os.Getenv("PRICE_CACHE_TTL")); err == nil && ttl > 0 {
		price = gateway.NewCachedPriceGateway(price, gateway.NewRedisCache(redisClient), ttl)
	}

	svc = order.NewService(repo, stock, price, plog, log)

	r := mux.NewRouter()
	r.Use(traceMiddleware, metricsMiddleware)
	r.HandleFunc("/login", loginHandler).Methods(http.MethodPost)

	api := r.PathPrefix("/orders").Subrouter()
	api.Use(authMiddleware)
	api.HandleFunc("", createOrderHandler).Methods(http.MethodPost)
	api.HandleFunc("", listOrdersHandler).Methods(http.MethodGet)
	api.HandleFunc("/{id}", getOrderHandler).Methods(http.MethodGet)
	api.HandleFunc("/{id}/status", updateStatusHandler).Methods(http.MethodPatch)
	api.HandleFunc("/{id}/placements", listPlacementsHandler).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}
	log.Info(context.Background(), "listening", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Error(context.Background(), "server closed", "error", err)
	}
}

func traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.InjectTracing(r.Context(), tracer)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusRecorder captures the response code for the duration metric.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.code = code
	rec.ResponseWriter.WriteHeader(code)
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		metrics.RequestDuration.
			WithLabelValues(route, strconv.Itoa(rec.code)).
			Observe(time.Since(start).Seconds())
	})
}
