package transport

import (
	"context"
	"net"
	"net/rpc"
	"time"
)

func dial(ctx context.Context, addr string, timeout time.Duration) (*rpc.Client, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return rpc.NewClient(conn), nil
}

// call is a context-aware client.Call. An abandoned call keeps running on
// the worker until its own deadline fires or the job is released.
func call(ctx context.Context, client *rpc.Client, method string, args, reply interface{}) error {
	c := client.Go(method, args, reply, make(chan *rpc.Call, 1))
	select {
	case <-c.Done:
		return c.Error
	case <-ctx.Done():
		return ctx.Err()
	}
}
