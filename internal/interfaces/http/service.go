package httpinterface

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/comit-network/swapd/internal/core/application/negotiation"
	interfaces "github.com/comit-network/swapd/internal/interfaces"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

// ServiceOpts defines the parameters needed for creating the negotiation
// server with NewService.
type ServiceOpts struct {
	Address string
	Maker   *negotiation.Maker
}

func (o ServiceOpts) validate() error {
	if o.Address == "" {
		return fmt.Errorf("missing listening address")
	}
	if o.Maker == nil {
		return fmt.Errorf("missing maker")
	}
	return nil
}

type service struct {
	opts     ServiceOpts
	server   *http.Server
	listener net.Listener
}

// NewService returns the http negotiation server of a maker.
func NewService(opts ServiceOpts) (interfaces.Service, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid opts: %s", err)
	}

	return &service{
		opts: opts,
		server: &http.Server{
			Handler:           NewRouter(opts.Maker),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func (s *service) Start() error {
	lis, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return err
	}
	s.listener = lis

	go func() {
		if err := s.server.Serve(lis); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("negotiation server stopped unexpectedly")
		}
	}()

	log.Infof("negotiation server listening on %s", lis.Addr())
	return nil
}

func (s *service) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("failed to gracefully stop negotiation server")
	}
	log.Debug("disabled negotiation interface")
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}
