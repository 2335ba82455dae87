package grpc

import (
	"context"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/ports"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "thermal.v1.LiveTelemetry"

// Full method names, as clients dial them
const (
	GetWindowMethod = "/" + ServiceName + "/GetWindow"
	GetLatestMethod = "/" + ServiceName + "/GetLatest"
)

// LiveTelemetryServer is the server API for the live telemetry service
type LiveTelemetryServer interface {
	GetWindow(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetLatest(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// LiveTelemetryHandler serves the window the acquisition loop last published
type LiveTelemetryHandler struct {
	live       *ports.LiveView
	thresholds []domain.Threshold
}

// NewLiveTelemetryHandler creates a new gRPC handler
func NewLiveTelemetryHandler(live *ports.LiveView, thresholds []domain.Threshold) *LiveTelemetryHandler {
	return &LiveTelemetryHandler{
		live:       live,
		thresholds: thresholds,
	}
}

// Register adds the service to a gRPC server
func Register(s grpc.ServiceRegistrar, srv LiveTelemetryServer) {
	s.RegisterService(&liveTelemetryServiceDesc, srv)
}

// GetWindow returns the rolling window with the threshold annotations
func (h *LiveTelemetryHandler) GetWindow(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	view := h.live.Snapshot()
	log.Debug().Int("points", len(view.Points)).Msg("GetWindow called")

	points := make([]any, len(view.Points))
	for i, p := range view.Points {
		points[i] = map[string]any{
			"time":        p.TimeLabel,
			"temperature": p.Temperature,
		}
	}

	thresholds := make([]any, len(h.thresholds))
	for i, t := range h.thresholds {
		thresholds[i] = map[string]any{
			"label": t.Label,
			"value": t.Value,
		}
	}

	out, err := structpb.NewStruct(map[string]any{
		"points":     points,
		"thresholds": thresholds,
		"total":      view.Total,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to encode window")
		return nil, status.Error(codes.Internal, "failed to encode window")
	}
	return out, nil
}

// GetLatest returns the newest sample
func (h *LiveTelemetryHandler) GetLatest(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	view := h.live.Snapshot()
	if !view.HasLatest {
		return nil, status.Error(codes.NotFound, "no samples yet")
	}

	fields := map[string]any{
		"timestamp":   view.Latest.Timestamp.UnixMilli(),
		"time":        view.Latest.TimeLabel(),
		"temperature": view.Latest.Temperature,
	}
	if view.Latest.HasSequence {
		fields["sequence"] = int(view.Latest.Sequence)
	}

	out, err := structpb.NewStruct(fields)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode sample")
		return nil, status.Error(codes.Internal, "failed to encode sample")
	}
	return out, nil
}

func getWindowHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LiveTelemetryServer).GetWindow(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetWindowMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LiveTelemetryServer).GetWindow(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getLatestHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LiveTelemetryServer).GetLatest(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetLatestMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LiveTelemetryServer).GetLatest(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// The service only moves well-known types, so it is described by hand
// instead of from generated code.
var liveTelemetryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LiveTelemetryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetWindow", Handler: getWindowHandler},
		{MethodName: "GetLatest", Handler: getLatestHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "thermal/v1/live.proto",
}
