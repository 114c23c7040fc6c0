package stream

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// FetchSnapshot calls Snapshot on cc.
func FetchSnapshot(ctx context.Context, cc grpc.ClientConnInterface, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, SnapshotMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// WatchClient receives messages from a Watch stream.
type WatchClient struct {
	stream grpc.ClientStream
}

// Watch opens a Watch stream on cc. The first message is a snapshot; the
// rest are session events.
func Watch(ctx context.Context, cc grpc.ClientConnInterface, opts ...grpc.CallOption) (*WatchClient, error) {
	stream, err := cc.NewStream(ctx, &serviceDesc.Streams[0], WatchMethod, opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &WatchClient{stream: stream}, nil
}

// Recv blocks for the next message.
func (w *WatchClient) Recv() (*structpb.Struct, error) {
	msg := new(structpb.Struct)
	if err := w.stream.RecvMsg(msg); err != nil {
		return nil, err
	}
	return msg, nil
}
