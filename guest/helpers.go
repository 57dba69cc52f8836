package guest

import (
	"net/netip"

	"github.com/caffeineduck/asi/interop"
)

func (c *Client) Hello(who string) error {
	_, err := Call[interop.Unit](c, interop.HelloRequest{Who: who})
	return err
}

// Poke increments the instance diagnostics counter and returns its new value.
func (c *Client) Poke() (uint64, error) {
	return Call[uint64](c, interop.PokeRequest{})
}

func (c *Client) Log(rec interop.LogRequest) error {
	_, err := Call[interop.Unit](c, rec)
	return err
}

// Lookup resolves a "host:port" query on the host. A resolution failure is
// returned as an [interop.NetError].
func (c *Client) Lookup(query string) ([]netip.AddrPort, error) {
	resp, err := Call[interop.LookupResponse](c, interop.LookupRequest{Query: query})
	if err != nil {
		return nil, err
	}
	if resp.Err != 0 {
		return nil, resp.Err
	}
	return resp.Addrs, nil
}

// ConnectTCP asks the host for a connection to the first reachable address
// and returns its handle.
func (c *Client) ConnectTCP(addrs []netip.AddrPort) (int32, error) {
	resp, err := Call[interop.HandleResponse](c, interop.ConnectRequest{
		Target: interop.ConnectTarget{Kind: interop.TargetTCP, Addrs: addrs},
	})
	return handleResult(resp, err)
}

func (c *Client) BindTCP(addr netip.AddrPort) (int32, error) {
	resp, err := Call[interop.HandleResponse](c, interop.BindRequest{
		Addr: interop.BindAddr{Kind: interop.TargetTCP, Addr: addr},
	})
	return handleResult(resp, err)
}

func handleResult(resp interop.HandleResponse, err error) (int32, error) {
	if err != nil {
		return -1, err
	}
	if resp.Err != 0 {
		return -1, resp.Err
	}
	return resp.Handle, nil
}

func (c *Client) KVGet(key string) (string, bool, error) {
	resp, err := Call[interop.KVGetResponse](c, interop.KVGetRequest{Key: key})
	return resp.Value, resp.Found, err
}

func (c *Client) KVSet(key, value string) error {
	_, err := Call[interop.Unit](c, interop.KVSetRequest{Key: key, Value: value})
	return err
}

func (c *Client) KVDelete(key string) error {
	_, err := Call[interop.Unit](c, interop.KVDeleteRequest{Key: key})
	return err
}

func (c *Client) KVKeys() ([]string, error) {
	resp, err := Call[interop.KVKeysResponse](c, interop.KVKeysRequest{})
	return resp.Keys, err
}

// Hello announces who to the host through the root device. Like the other
// package-level helpers it panics if the call fails.
func Hello(who string) {
	mustCall[interop.Unit](interop.HelloRequest{Who: who})
}

func Poke() uint64 {
	return mustCall[uint64](interop.PokeRequest{})
}

// Lookup resolves query through the root device.
func Lookup(query string) ([]netip.AddrPort, error) {
	resp := mustCall[interop.LookupResponse](interop.LookupRequest{Query: query})
	return resp.Addrs, resp.Err.Err()
}

func ConnectTCP(addrs []netip.AddrPort) (int32, error) {
	resp := mustCall[interop.HandleResponse](interop.ConnectRequest{
		Target: interop.ConnectTarget{Kind: interop.TargetTCP, Addrs: addrs},
	})
	return handleResult(resp, nil)
}
