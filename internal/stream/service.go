package stream

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "putt.v1.SessionStream"

// Full method names.
const (
	SnapshotMethod = "/" + serviceName + "/Snapshot"
	WatchMethod    = "/" + serviceName + "/Watch"
)

// SessionStreamServer is the server API for the session stream service.
type SessionStreamServer interface {
	Snapshot(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Watch(*emptypb.Empty, grpc.ServerStream) error
}

var _ SessionStreamServer = (*Publisher)(nil)

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*SessionStreamServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Snapshot", Handler: snapshotHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Watch", Handler: watchHandler, ServerStreams: true},
	},
	Metadata: "putt/v1/stream.proto",
}

func snapshotHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionStreamServer).Snapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SnapshotMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SessionStreamServer).Snapshot(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(SessionStreamServer).Watch(in, stream)
}

// Snapshot returns the current session state.
func (p *Publisher) Snapshot(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	msg, err := toStruct(p.snapshot())
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode snapshot: %v", err)
	}
	return msg, nil
}

// Watch sends the current snapshot followed by every published event.
func (p *Publisher) Watch(_ *emptypb.Empty, stream grpc.ServerStream) error {
	c, ok := p.addClient()
	if !ok {
		return status.Error(codes.ResourceExhausted, "too many clients")
	}
	defer p.removeClient(c.id)

	first, err := p.snapshotMessage()
	if err != nil {
		return status.Errorf(codes.Internal, "encode snapshot: %v", err)
	}
	if err := stream.SendMsg(first); err != nil {
		return err
	}

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.stopCh:
			return status.Error(codes.Unavailable, "server stopping")
		case msg := <-c.ch:
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}
