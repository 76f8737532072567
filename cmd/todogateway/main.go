package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/gorilla/mux"
	"github.com/hashicorp/consul/api"
	authclient "github.com/ichigozero/todokit/authsvc/client"
	"github.com/ichigozero/todokit/authsvc/pkg/authtransport"
	taskclient "github.com/ichigozero/todokit/tasksvc/client"
	"github.com/ichigozero/todokit/tasksvc/pkg/tasktransport"
)

// todogateway serves the public API in front of any number of todosvc
// instances discovered through Consul.
func main() {
	var (
		httpAddr     = flag.String("http.addr", ":8000", "Address for HTTP (JSON) server")
		consulAddr   = flag.String("consul.addr", "", "Consul agent address")
		retryMax     = flag.Int("retry.max", 3, "per-request retries to different instances")
		retryTimeout = flag.Duration("retry.timeout", 500*time.Millisecond, "per-request timeout, including retries")
	)
	flag.Parse()

	var logger log.Logger
	{
		logger = log.NewLogfmtLogger(os.Stderr)
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}

	var client consulsd.Client
	{
		consulConfig := api.DefaultConfig()
		if len(*consulAddr) > 0 {
			consulConfig.Address = *consulAddr
		}

		consulClient, err := api.NewClient(consulConfig)
		if err != nil {
			level.Error(logger).Log("err", err)
			os.Exit(1)
		}

		client = consulsd.NewClient(consulClient)
	}

	r, err := newRouter(client, logger, *retryMax, *retryTimeout)
	if err != nil {
		level.Error(logger).Log("during", "newRouter", "err", err)
		os.Exit(1)
	}

	// Interrupt handler.
	errc := make(chan error)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	// HTTP transport.
	go func() {
		level.Info(logger).Log("transport", "HTTP", "addr", *httpAddr)
		errc <- http.ListenAndServe(*httpAddr, r)
	}()

	level.Info(logger).Log("exit", <-errc)
}

// newRouter mounts the account and task APIs, both backed by the todosvc
// instances client discovers.
func newRouter(client consulsd.Client, logger log.Logger, retryMax int, retryTimeout time.Duration) (http.Handler, error) {
	authEndpoints, err := authclient.New(client, logger, retryMax, retryTimeout)
	if err != nil {
		return nil, fmt.Errorf("auth client: %w", err)
	}
	users := authclient.TokenFinder{Endpoints: authEndpoints}

	taskEndpoints, err := taskclient.New(client, logger, retryMax, retryTimeout)
	if err != nil {
		return nil, fmt.Errorf("task client: %w", err)
	}

	r := mux.NewRouter()
	r.PathPrefix("/users").Handler(authtransport.NewHTTPHandler(authEndpoints, users, logger))
	r.PathPrefix("/todos").Handler(tasktransport.NewHTTPHandler(taskEndpoints, users, logger))
	return r, nil
}
