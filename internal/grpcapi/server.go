package grpcapi

import (
	"context"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// ServiceName is the health-check name the kiosk reports under.
const ServiceName = "portunus.kiosk"

type Dependencies struct {
	Logger logrus.FieldLogger
	Addr   string
}

// Server exposes the standard gRPC health service.  The kiosk starts
// NOT_SERVING and flips to SERVING once credential storage is initialized.
type Server struct {
	addr   string
	logger logrus.FieldLogger
	grpc   *grpc.Server
	health *health.Server
}

func NewServer(d Dependencies) *Server {
	logger := d.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	s := &Server{
		addr:   d.Addr,
		logger: logger,
		health: health.NewServer(),
	}
	s.grpc = grpc.NewServer(grpc.ChainUnaryInterceptor(s.logUnary))
	healthpb.RegisterHealthServer(s.grpc, s.health)

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Start listens on the configured address and blocks until Stop.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains in-flight calls, forcing
// the stop if ctx expires first.
func (s *Server) Stop(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpc.Stop()
	}
}

func (s *Server) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.WithFields(logrus.Fields{
		"method": info.FullMethod,
		"code":   status.Code(err).String(),
		"dur":    time.Since(start).String(),
	}).Debug("grpc request")
	return resp, err
}
