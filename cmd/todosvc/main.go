package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hashicorp/consul/api"
	"github.com/ichigozero/todokit/authsvc/pkg/authendpoint"
	"github.com/ichigozero/todokit/authsvc/pkg/authservice"
	"github.com/ichigozero/todokit/authsvc/pkg/authtransport"
	"github.com/ichigozero/todokit/storage"
	taskgorm "github.com/ichigozero/todokit/tasksvc/db/gorm"
	"github.com/ichigozero/todokit/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/todokit/tasksvc/pkg/taskservice"
	"github.com/ichigozero/todokit/tasksvc/pkg/tasktransport"
	usergorm "github.com/ichigozero/todokit/usersvc/db/gorm"
	"github.com/ichigozero/todokit/usersvc/pkg/userservice"
	"github.com/oklog/oklog/pkg/group"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

func main() {
	fs := flag.NewFlagSet("todosvc", flag.ExitOnError)
	var (
		httpAddr = fs.String(
			"http.addr",
			getEnv("HTTP_ADDR", ":3000"),
			"HTTP listen address",
		)
		appEnv = fs.String(
			"app.env",
			getEnv("APP_ENV", "development"),
			"application environment (development, test)",
		)
		databaseURL = fs.String(
			"database.url",
			getEnv("DATABASE_URL", ""),
			"PostgreSQL URL; SQLite is used when empty",
		)
		authSecret = fs.String(
			"auth.secret",
			getEnv("AUTH_SECRET", "abc123"),
			"auth token signing secret",
		)
		authTTL = fs.Duration(
			"auth.ttl",
			getEnvAsDuration("AUTH_TOKEN_TTL", 0),
			"auth token lifetime, 0 for tokens that never expire",
		)
		loginRate = fs.Int(
			"login.rate",
			getEnvAsInt("LOGIN_RATE", 10),
			"register and login requests allowed per second",
		)
		consulAddr = fs.String(
			"consul.addr",
			getEnv("CONSUL_ADDR", ""),
			"Consul agent address; registration is skipped when empty",
		)
	)

	fs.Usage = usageFor(fs, os.Args[0]+" [flags]")
	fs.Parse(os.Args[1:])

	var logger log.Logger
	{
		logger = log.NewLogfmtLogger(os.Stderr)
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}

	db, err := storage.Open(*databaseURL, storage.SQLitePath(*appEnv))
	if err != nil {
		level.Error(logger).Log("during", "Open", "err", err)
		os.Exit(1)
	}

	var users userservice.Service
	{
		tokenizer := authservice.NewTokenizer([]byte(*authSecret), *authTTL)
		users = userservice.New(usergorm.NewUserRepository(db), tokenizer, logger)
		users = userservice.InstrumentingMiddleware(serviceMetrics("user_service"))(users)
	}

	var authService authservice.Service
	{
		authService = authservice.New(users, logger)
		authService = authservice.InstrumentingMiddleware(serviceMetrics("auth_service"))(authService)
	}

	var taskService taskservice.Service
	{
		taskService = taskservice.New(taskgorm.NewTaskRepository(db), logger)
		taskService = taskservice.InstrumentingMiddleware(serviceMetrics("task_service"))(taskService)
	}

	var (
		limiter       = rate.NewLimiter(rate.Limit(*loginRate), *loginRate)
		authEndpoints = authendpoint.New(authService, limiter, logger)
		taskEndpoints = taskendpoint.New(taskService, logger)
	)

	r := mux.NewRouter()
	r.PathPrefix("/users").Handler(authtransport.NewHTTPHandler(authEndpoints, users, logger))
	r.PathPrefix("/todos").Handler(tasktransport.NewHTTPHandler(taskEndpoints, users, logger))
	r.Methods("GET").Path("/metrics").Handler(promhttp.Handler())

	var registrar *consulsd.Registrar
	if *consulAddr != "" {
		registrar, err = newRegistrar(*consulAddr, *httpAddr, logger)
		if err != nil {
			level.Error(logger).Log("during", "Register", "err", err)
			os.Exit(1)
		}
		registrar.Register()
		defer registrar.Deregister()
	}

	var g group.Group
	{
		httpListener, err := net.Listen("tcp", *httpAddr)
		if err != nil {
			level.Error(logger).Log("transport", "HTTP", "during", "Listen", "err", err)
			if registrar != nil {
				registrar.Deregister()
			}
			os.Exit(1)
		}
		g.Add(func() error {
			level.Info(logger).Log("transport", "HTTP", "addr", *httpAddr, "env", *appEnv)
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
	level.Info(logger).Log("exit", g.Run())
}

func serviceMetrics(subsystem string) (metrics.Counter, metrics.Histogram) {
	fieldKeys := []string{"method"}
	counter := kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace: "todokit",
		Subsystem: subsystem,
		Name:      "request_count",
		Help:      "Number of requests received.",
	}, fieldKeys)
	latency := kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
		Namespace: "todokit",
		Subsystem: subsystem,
		Name:      "request_latency_seconds",
		Help:      "Total duration of requests in seconds.",
	}, fieldKeys)
	return counter, latency
}

// newRegistrar registers this instance under the todosvc name that the
// client packages discover.
func newRegistrar(consulAddr, httpAddr string, logger log.Logger) (*consulsd.Registrar, error) {
	consulConfig := api.DefaultConfig()
	consulConfig.Address = consulAddr
	consulClient, err := api.NewClient(consulConfig)
	if err != nil {
		return nil, err
	}

	host, port, err := net.SplitHostPort(httpAddr)
	if err != nil {
		return nil, err
	}
	if host == "" {
		host = "localhost"
	}

	p, err := strconv.Atoi(port)
	if err != nil {
		return nil, err
	}
	asr := &api.AgentServiceRegistration{
		ID:      uuid.NewString(),
		Name:    "todosvc",
		Address: host,
		Port:    p,
	}

	return consulsd.NewRegistrar(consulsd.NewClient(consulClient), asr, logger), nil
}
