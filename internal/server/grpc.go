package server

import (
	"context"
	"net"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// GRPCServer exposes the standard gRPC health service so platform probes
// and service meshes can watch the core's serving state over gRPC. The
// query surface itself is HTTP/JSON; see HTTPServer.
type GRPCServer struct {
	addr   string
	srv    *grpc.Server
	health *health.Server
	logger zerolog.Logger
}

func NewGRPCServer(addr string, logger zerolog.Logger) *GRPCServer {
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &GRPCServer{
		addr:   addr,
		srv:    srv,
		health: hs,
		logger: logger,
	}
}

// SetServing flips the health service between SERVING and NOT_SERVING.
func (g *GRPCServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	g.health.SetServingStatus("", status)
}

// Run serves until ctx is cancelled.
func (g *GRPCServer) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", g.addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info().Str("addr", g.addr).Msg("grpc server listening")
		errCh <- g.srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		g.srv.GracefulStop()
		return nil
	}
}
