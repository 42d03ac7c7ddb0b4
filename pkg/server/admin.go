package server

import (
	"errors"
	"fmt"

	"github.com/NeuralTrust/TrustShield/pkg/config"
	handlers "github.com/NeuralTrust/TrustShield/pkg/handlers/http"
	"github.com/NeuralTrust/TrustShield/pkg/infra/prometheus"
	"github.com/NeuralTrust/TrustShield/pkg/middleware"
	"github.com/NeuralTrust/TrustShield/pkg/server/router"
	"github.com/sirupsen/logrus"
)

type AdminServerDI struct {
	MiddlewareTransport middleware.Transport
	HandlerTransport    handlers.HandlerTransport
	Config              *config.Config
	Metrics             *prometheus.Metrics
	Logger              *logrus.Logger
}

// AdminServer serves the ingestion, admission, state and job API.
type AdminServer struct {
	*BaseServer
	middlewareTransport middleware.Transport
	handlerTransport    handlers.HandlerTransport
}

func NewAdminServer(di AdminServerDI) *AdminServer {
	s := &AdminServer{
		BaseServer:          NewBaseServer(di.Config, di.Metrics, di.Logger),
		middlewareTransport: di.MiddlewareTransport,
		handlerTransport:    di.HandlerTransport,
	}
	s.setupHealthCheck()
	s.WithRouters(router.NewAdminRouter(&s.middlewareTransport, s.handlerTransport))
	return s
}

func (s *AdminServer) Run() error {
	s.setupMetricsEndpoint()
	addr := fmt.Sprintf(":%d", s.Config.Server.AdminPort)
	s.Logger.WithField("addr", addr).Info("starting admin server")
	return s.Router.Listen(addr)
}

func (s *AdminServer) Shutdown() error {
	return errors.Join(s.Router.Shutdown(), s.shutdownMetrics())
}
