package client

import (
	"context"
	"fmt"

	"github.com/promeg/multichannel/internal/api"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client talks to a channeld daemon over its Unix domain socket.
type Client struct {
	conn *grpc.ClientConn
}

// Description is the daemon's account of one resolution.
type Description struct {
	Value      string `json:"value"`
	Source     string `json:"source"`
	Outcome    string `json:"outcome"`
	Archive    string `json:"archive"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// New dials the daemon's Unix domain socket.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn}, nil
}

// GetChannel returns the profile's channel.
func (c *Client) GetChannel(ctx context.Context) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.conn.Invoke(ctx, api.GetChannelMethod, &emptypb.Empty{}, out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// DescribeChannel resolves the channel and reports where it came from.
func (c *Client) DescribeChannel(ctx context.Context) (*Description, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, api.DescribeChannelMethod, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	f := out.GetFields()
	return &Description{
		Value:      f["value"].GetStringValue(),
		Source:     f["source"].GetStringValue(),
		Outcome:    f["outcome"].GetStringValue(),
		Archive:    f["archive"].GetStringValue(),
		Diagnostic: f["diagnostic"].GetStringValue(),
	}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
