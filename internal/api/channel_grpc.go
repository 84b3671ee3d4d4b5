package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName           = "multichannel.v1.ChannelService"
	GetChannelMethod      = "/" + ServiceName + "/GetChannel"
	DescribeChannelMethod = "/" + ServiceName + "/DescribeChannel"
)

// ChannelServer is the server API for the channel service. Messages are
// protobuf well-known types, so no generated code is involved.
type ChannelServer interface {
	GetChannel(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	DescribeChannel(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// ChannelServiceDesc describes the channel service for grpc.Server.RegisterService.
var ChannelServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChannelServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetChannel", Handler: getChannelHandler},
		{MethodName: "DescribeChannel", Handler: describeChannelHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "multichannel/v1/channel.proto",
}

// RegisterChannelServer registers srv on s.
func RegisterChannelServer(s grpc.ServiceRegistrar, srv ChannelServer) {
	s.RegisterService(&ChannelServiceDesc, srv)
}

func getChannelHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChannelServer).GetChannel(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetChannelMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChannelServer).GetChannel(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func describeChannelHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChannelServer).DescribeChannel(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DescribeChannelMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChannelServer).DescribeChannel(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}
