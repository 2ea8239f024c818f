package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/go-kit/kit/log"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/gorilla/mux"
	"github.com/hashicorp/consul/api"
	"github.com/ichigozero/gtdweb/authsvc"
	"github.com/ichigozero/gtdweb/authsvc/consulkv"
	"github.com/ichigozero/gtdweb/authsvc/inmem"
	"github.com/ichigozero/gtdweb/authsvc/pkg/authendpoint"
	"github.com/ichigozero/gtdweb/authsvc/pkg/authservice"
	"github.com/ichigozero/gtdweb/authsvc/pkg/authtransport"
	"github.com/ichigozero/gtdweb/tasksvc"
	taskgorm "github.com/ichigozero/gtdweb/tasksvc/db/gorm"
	"github.com/ichigozero/gtdweb/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/gtdweb/tasksvc/pkg/taskservice"
	"github.com/ichigozero/gtdweb/tasksvc/pkg/tasktransport"
	"github.com/ichigozero/gtdweb/usersvc"
	usergorm "github.com/ichigozero/gtdweb/usersvc/db/gorm"
	"github.com/ichigozero/gtdweb/usersvc/pkg/userendpoint"
	"github.com/ichigozero/gtdweb/usersvc/pkg/userservice"
	"github.com/ichigozero/gtdweb/web"
	"github.com/oklog/oklog/pkg/group"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twinj/uuid"
	"golang.org/x/time/rate"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	libgorm "gorm.io/gorm"
)

func main() {
	fs := flag.NewFlagSet("webgateway", flag.ExitOnError)
	var (
		httpAddr     = fs.String("http.addr", getEnv("HTTP_ADDR", ":8000"), "HTTP listen address")
		databaseURL  = fs.String("database.url", getEnv("DATABASE_URL", ""), "PostgreSQL URL; SQLite is used when empty")
		sqlitePath   = fs.String("sqlite.path", getEnv("SQLITE_PATH", "gtd.db"), "SQLite database file")
		consulAddr   = fs.String("consul.addr", getEnv("CONSUL_ADDR", ""), "Consul agent address; sessions stay in memory when empty")
		bcryptCost   = fs.Int("bcrypt.cost", getEnvAsInt("BCRYPT_COST", userservice.DefaultBcryptCost), "bcrypt cost for new credentials")
		seedUsername = fs.String("seed.username", getEnv("SEED_USERNAME", "admin"), "username provisioned on start")
		seedPassword = fs.String("seed.password", getEnv("SEED_PASSWORD", "admin123"), "password provisioned on start")
		loginRate    = fs.Int("login.rate", getEnvAsInt("LOGIN_RATE", 10), "login attempts allowed per second; 0 disables the limit")
	)

	fs.Usage = usageFor(fs, os.Args[0]+" [flags]")
	fs.Parse(os.Args[1:])

	var logger log.Logger
	{
		logger = log.NewLogfmtLogger(os.Stderr)
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}

	var db *libgorm.DB
	var err error
	{
		if *databaseURL != "" {
			db, err = libgorm.Open(postgres.Open(*databaseURL), &libgorm.Config{})
		} else {
			db, err = libgorm.Open(sqlite.Open(*sqlitePath), &libgorm.Config{})
		}
		if err != nil {
			logger.Log("during", "Open", "err", err)
			os.Exit(1)
		}
	}

	if err := db.AutoMigrate(&usersvc.User{}, &tasksvc.Task{}); err != nil {
		logger.Log("during", "AutoMigrate", "err", err)
		os.Exit(1)
	}

	var (
		sessions  authsvc.SessionStore
		registrar *consulsd.Registrar
	)
	{
		if *consulAddr == "" {
			sessions = inmem.NewStore(authsvc.SessionLifetime)
		} else {
			consulConfig := api.DefaultConfig()
			consulConfig.Address = *consulAddr

			consulClient, err := api.NewClient(consulConfig)
			if err != nil {
				logger.Log("during", "NewClient", "err", err)
				os.Exit(1)
			}
			sessions = consulkv.NewStore(consulClient, authsvc.SessionLifetime)

			host, port, err := net.SplitHostPort(*httpAddr)
			if err != nil {
				logger.Log("during", "SplitHostPort", "err", err)
				os.Exit(1)
			}
			if host == "" {
				host = "localhost"
			}

			p, _ := strconv.Atoi(port)
			asr := &api.AgentServiceRegistration{
				ID:      uuid.NewV4().String(),
				Name:    "webgateway",
				Address: host,
				Port:    p,
			}

			registrar = consulsd.NewRegistrar(consulsd.NewClient(consulClient), asr, logger)
			registrar.Register()
			defer registrar.Deregister()
		}
	}

	fieldKeys := []string{"method"}

	var userService userservice.Service
	{
		userService = userservice.New(
			usergorm.NewUserRepository(db),
			userservice.NewPasswordHasher(*bcryptCost),
			logger,
		)
		userService = userservice.InstrumentingMiddleware(
			kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
				Namespace: "gtdweb",
				Subsystem: "user_service",
				Name:      "request_count",
				Help:      "Number of requests received.",
			}, fieldKeys),
			kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
				Namespace: "gtdweb",
				Subsystem: "user_service",
				Name:      "request_latency_seconds",
				Help:      "Total duration of requests in seconds.",
			}, fieldKeys),
		)(userService)
	}

	if *seedUsername != "" {
		_, err := userService.Provision(context.Background(), *seedUsername, *seedPassword)
		if err != nil && !errors.Is(err, usersvc.ErrUserExists) {
			logger.Log("during", "Provision", "username", *seedUsername, "err", err)
			os.Exit(1)
		}
	}

	userEndpoints := userendpoint.New(userService, logger)

	var authService authservice.Service
	{
		authService = authservice.New(authservice.NewTokenizer(authsvc.AccessSecret), sessions, logger)
		authService = authservice.InstrumentingMiddleware(
			kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
				Namespace: "gtdweb",
				Subsystem: "auth_service",
				Name:      "request_count",
				Help:      "Number of requests received.",
			}, []string{"method", "error"}),
			kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
				Namespace: "gtdweb",
				Subsystem: "auth_service",
				Name:      "request_latency_seconds",
				Help:      "Total duration of requests in seconds.",
			}, []string{"method", "error"}),
		)(authService)
		authService = authservice.ProxingMiddleware(userEndpoints)(authService)
	}

	var loginLimiter *rate.Limiter
	if *loginRate > 0 {
		loginLimiter = rate.NewLimiter(rate.Limit(*loginRate), *loginRate)
	}
	authEndpoints := authendpoint.New(authService, logger, loginLimiter)

	var taskService taskservice.Service
	{
		taskService = taskservice.New(taskgorm.NewTaskRepository(db), logger)
		taskService = taskservice.InstrumentingMiddleware(
			kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
				Namespace: "gtdweb",
				Subsystem: "task_service",
				Name:      "request_count",
				Help:      "Number of requests received.",
			}, fieldKeys),
			kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
				Namespace: "gtdweb",
				Subsystem: "task_service",
				Name:      "request_latency_seconds",
				Help:      "Total duration of requests in seconds.",
			}, fieldKeys),
		)(taskService)
	}
	taskEndpoints := taskendpoint.New(taskService, logger)

	renderer, err := web.NewRenderer()
	if err != nil {
		logger.Log("during", "NewRenderer", "err", err)
		os.Exit(1)
	}

	codec := authtransport.NewCookieCodec(
		[]byte(authsvc.CookieHashKey),
		[]byte(authsvc.CookieBlockKey),
		authsvc.AppEnv == "production",
	)

	r := mux.NewRouter()
	authtransport.RegisterHTTPRoutes(r, authEndpoints, codec, authsvc.AccessSecret, renderer, logger)
	tasktransport.RegisterHTTPRoutes(r, taskEndpoints, authEndpoints, codec, authsvc.AccessSecret, renderer, logger)
	r.Methods(http.MethodGet).Path("/metrics").Handler(promhttp.Handler())

	var g group.Group
	{
		httpListener, err := net.Listen("tcp", *httpAddr)
		if err != nil {
			logger.Log("transport", "HTTP", "during", "Listen", "err", err)
			if registrar != nil {
				registrar.Deregister()
			}
			os.Exit(1)
		}
		g.Add(func() error {
			logger.Log("transport", "HTTP", "addr", *httpAddr)
			return http.Serve(httpListener, r)
		}, func(error) {
			httpListener.Close()
		})
	}
	{
		// This function just sits and waits for ctrl-C.
		cancelInterrupt := make(chan struct{})
		g.Add(func() error {
			c := make(chan os.Signal, 1)
			signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
			select {
			case sig := <-c:
				return fmt.Errorf("received signal %s", sig)
			case <-cancelInterrupt:
				return nil
			}
		}, func(error) {
			close(cancelInterrupt)
		})
	}
	logger.Log("exit", g.Run())
}

func usageFor(fs *flag.FlagSet, short string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "USAGE\n")
		fmt.Fprintf(os.Stderr, "  %s\n", short)
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "FLAGS\n")
		w := tabwriter.NewWriter(os.Stderr, 0, 2, 2, ' ', 0)
		fs.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(w, "\t-%s %s\t%s\n", f.Name, f.DefValue, f.Usage)
		})
		w.Flush()
		fmt.Fprintf(os.Stderr, "\n")
	}
}

func getEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		value = fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}

	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}
