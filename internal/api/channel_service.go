package api

import (
	"context"
	"strings"
	"sync"

	"github.com/promeg/multichannel/internal/channel"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ChannelService serves the channel of one profile.
type ChannelService struct {
	mu       sync.Mutex
	resolver *channel.Resolver
	prefs    channel.KeyValueStore
	archive  string
}

// NewChannelService creates a service resolving against prefs and the archive at archivePath.
func NewChannelService(resolver *channel.Resolver, prefs channel.KeyValueStore, archivePath string) *ChannelService {
	return &ChannelService{
		resolver: resolver,
		prefs:    prefs,
		archive:  archivePath,
	}
}

// Resolve runs one resolution. Calls are serialized so the store sees one writer.
func (s *ChannelService) Resolve() channel.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolver.Resolve(s.prefs, s.archive)
}

func (s *ChannelService) GetChannel(_ context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String(wireString(s.Resolve().Value)), nil
}

func (s *ChannelService) DescribeChannel(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	rec := s.Resolve()
	fields := map[string]any{
		"value":   wireString(rec.Value),
		"source":  string(rec.Source),
		"outcome": string(rec.Outcome),
		"archive": wireString(s.archive),
	}
	if rec.Err != nil {
		fields["diagnostic"] = wireString(rec.Err.Error())
	}
	desc, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "describe channel: %v", err)
	}
	return desc, nil
}

// wireString replaces invalid UTF-8 so protobuf string fields marshal. The
// cached value itself keeps the archive's bytes.
func wireString(v string) string {
	return strings.ToValidUTF8(v, "\uFFFD")
}
