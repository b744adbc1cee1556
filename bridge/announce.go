package bridge

import (
	"context"
	"fmt"

	enc "github.com/named-data/ndnrpc/std/encoding"
	"github.com/named-data/ndnrpc/std/log"
	"github.com/named-data/ndnrpc/std/ndn"
	"github.com/named-data/ndnrpc/std/ndn/mgmt"
	"github.com/named-data/ndnrpc/std/utils"
)

var localhostPrefix = enc.Name{enc.NewGenericComponent("localhost")}

// announce registers every served prefix with the forwarder.
// It runs after each (re)connect.
func (b *Bridge) announce(ctx context.Context) {
	for _, route := range b.router.Routes() {
		if err := b.ribCommand(ctx, "register", route.Prefix); err != nil {
			log.Warn(b, "Unable to register prefix", "prefix", route.Prefix, "err", err)
			continue
		}
		log.Info(b, "Registered prefix", "prefix", route.Prefix)
	}
}

// withdraw unregisters every served prefix.
func (b *Bridge) withdraw(ctx context.Context) {
	for _, route := range b.router.Routes() {
		if err := b.ribCommand(ctx, "unregister", route.Prefix); err != nil {
			log.Warn(b, "Unable to unregister prefix", "prefix", route.Prefix, "err", err)
		}
	}
}

func (b *Bridge) ribCommand(ctx context.Context, cmd string, prefix enc.Name) (err error) {
	defer func() {
		result := "ok"
		if err != nil {
			result = "failed"
		}
		b.metrics.Announces.WithLabelValues(cmd, result).Inc()
	}()

	args := &mgmt.ControlArgs{
		Name:   prefix,
		Origin: utils.IdPtr(mgmt.RouteOriginApp),
	}
	if cmd == "register" {
		args.Cost = utils.IdPtr(uint64(0))
		args.Flags = utils.IdPtr(mgmt.RouteFlagChildInherit)
	}

	interest, wire, err := mgmt.MakeCmd("rib", cmd, args, b.keys.Signer(), b.timer.Nonce())
	if err != nil {
		return err
	}
	req, err := b.outPit.Create(interest.Name, interest.Nonce, interest.Life())
	if err != nil {
		return err
	}
	if !b.send(wire) {
		b.outPit.Withdraw(req)
		return ndn.ErrTransport
	}

	var content []byte
	select {
	case res := <-req.Result():
		if res.Err != nil {
			return res.Err
		}
		content = res.Value
	case <-ctx.Done():
		b.outPit.Withdraw(req)
		return ctx.Err()
	}

	resp, err := mgmt.ParseControlResponse(content)
	if err != nil {
		return err
	}
	if err = resp.Error(); err != nil {
		return fmt.Errorf("rib/%s %s: %w", cmd, prefix, err)
	}
	return nil
}
