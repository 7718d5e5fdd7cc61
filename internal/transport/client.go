package transport

import (
	"net/rpc"
)

// Client calls a remote Service over net/rpc.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to the HTTP server at addr.
func Dial(addr string) (*Client, error) {
	c, err := rpc.DialHTTP("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{rpc: c}, nil
}

// Call runs method remotely. Command failures come back as *contracts.Error;
// any other error is a transport failure.
func (c *Client) Call(method string, args map[string]any) (any, error) {
	var resp Response
	if err := c.rpc.Call(ServiceName+".Call", Request{Method: method, Args: args}, &resp); err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// Close closes the connection.
func (c *Client) Close() error { return c.rpc.Close() }
