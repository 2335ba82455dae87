package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// LiveTelemetryClient calls the live telemetry service
type LiveTelemetryClient struct {
	cc grpc.ClientConnInterface
}

// NewLiveTelemetryClient wraps a client connection
func NewLiveTelemetryClient(cc grpc.ClientConnInterface) *LiveTelemetryClient {
	return &LiveTelemetryClient{cc: cc}
}

// GetWindow fetches the current rolling window
func (c *LiveTelemetryClient) GetWindow(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetWindowMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetLatest fetches the newest sample
func (c *LiveTelemetryClient) GetLatest(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetLatestMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
