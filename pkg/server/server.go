// Package server serves sensor readings over HTTP, including the Prometheus
// metrics endpoint, and a gRPC health service on the same port.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/iver-wharf/temperatures/internal/parallel"
	"github.com/iver-wharf/temperatures/pkg/config"
	"github.com/iver-wharf/temperatures/pkg/poller"
	"github.com/iver-wharf/temperatures/pkg/readingstore"
	"github.com/iver-wharf/wharf-core/v2/pkg/logger"
	"github.com/soheilhy/cmux"
)

var log = logger.NewScoped("SERVER")

const shutdownTimeout = 10 * time.Second

// SensorSource provides the latest state of the sensors.
type SensorSource interface {
	Sensors() []poller.Sensor
	Sensor(id string) (poller.Sensor, bool)
}

// Server contains both a gRPC server and an HTTP server, served from a single
// listener.
type Server struct {
	cfg     config.HTTPConfig
	sensors SensorSource
	store   readingstore.Store
	metrics http.Handler

	grpc *grpcServer

	readyOnce sync.Once
}

// New creates a new server. The store may be nil, in which case the history
// endpoint responds with 501 Not Implemented.
func New(cfg config.HTTPConfig, sensors SensorSource, store readingstore.Store, metrics http.Handler) *Server {
	return &Server{
		cfg:     cfg,
		sensors: sensors,
		store:   store,
		metrics: metrics,
		grpc:    newGRPCServer(),
	}
}

// HandlePoll marks the server as healthy after the first poll that read at
// least one sensor. It is meant to be registered with poller.Poller.OnPoll.
func (s *Server) HandlePoll(res poller.Result) {
	if len(res.Readings) == 0 {
		return
	}
	s.readyOnce.Do(func() {
		log.Info().Message("Received first reading. Reporting healthy.")
		s.grpc.setServing(true)
	})
}

// Serve listens on the configured bind address and serves until the context
// is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.BindAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.BindAddress, err)
	}
	return s.ServeListener(ctx, listener)
}

// ServeListener serves on the listener until the context is cancelled. The
// listener is closed when it returns.
func (s *Server) ServeListener(ctx context.Context, listener net.Listener) error {
	mux := cmux.New(listener)
	grpcListener := mux.MatchWithWriters(
		cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpListener := mux.Match(cmux.Any())

	httpServer := &http.Server{Handler: s.newRouter()}

	log.Info().WithString("address", listener.Addr().String()).Message("Starting server.")

	var group parallel.Group
	group.AddFunc("mux", func(context.Context) error {
		if err := mux.Serve(); err != nil && !isClosedErr(err) {
			return err
		}
		return nil
	})
	group.AddFunc("http", func(context.Context) error {
		if err := httpServer.Serve(httpListener); err != nil &&
			!errors.Is(err, http.ErrServerClosed) && !isClosedErr(err) {
			return err
		}
		return nil
	})
	group.AddFunc("grpc", func(context.Context) error {
		if err := s.grpc.grpc.Serve(grpcListener); err != nil && !isClosedErr(err) {
			return err
		}
		return nil
	})
	group.AddFunc("shutdown", func(ctx context.Context) error {
		<-ctx.Done()
		log.Info().Message("Shutting down server.")
		s.grpc.health.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().WithError(err).Message("Failed to gracefully stop HTTP server.")
		}
		s.grpc.grpc.Stop()
		if err := listener.Close(); err != nil && !isClosedErr(err) {
			return err
		}
		return nil
	})
	return group.RunCancelEarly(ctx)
}

func isClosedErr(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, cmux.ErrListenerClosed)
}
