package bridge

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/named-data/ndnrpc/bridge/rpc"
	enc "github.com/named-data/ndnrpc/std/encoding"
	"github.com/named-data/ndnrpc/std/engine"
	"github.com/named-data/ndnrpc/std/log"
	"github.com/named-data/ndnrpc/std/ndn"
)

const (
	maxWorkers        = 1024
	maxSegmentPayload = 8000
)

type Config struct {
	Bridge       BridgeConfig       `json:"bridge"`
	Security     SecurityConfig     `json:"security"`
	Routes       []*RouteConfig     `json:"routes"`
	Publish      []*PublishConfig   `json:"publish"`
	Segmentation SegmentationConfig `json:"segmentation"`
	Pit          PitConfig          `json:"pit"`
	Rpc          RpcConfig          `json:"rpc"`
	Store        StoreConfig        `json:"store"`
	Metrics      MetricsConfig      `json:"metrics"`
	Log          LogConfig          `json:"log"`
}

type BridgeConfig struct {
	// Enabled turns on the NDN to RPC direction. Without it only the
	// gateway runs.
	Enabled bool `json:"enabled"`
	// Face is the forwarder URI (unix://, tcp://, ws://).
	Face string `json:"face"`
	// Workers bounds concurrent RPC invocations.
	Workers int `json:"workers"`
	// DefaultIdentity signs responses when no route identity has a key.
	DefaultIdentity string `json:"defaultIdentity"`

	DefaultIdentityN enc.Name `json:"-"`
}

type SecurityConfig struct {
	KeyStorePath   string `json:"keyStorePath"`
	TrustStorePath string `json:"trustStorePath"`
}

// RouteConfig serves a name prefix with one gRPC method. A route without
// target and method serves published content from the segment store.
type RouteConfig struct {
	Prefix   string `json:"prefix"`
	Target   string `json:"target"`
	Method   string `json:"method"`
	Identity string `json:"identity"`

	PrefixN   enc.Name `json:"-"`
	IdentityN enc.Name `json:"-"`
}

func (r *RouteConfig) String() string {
	if r.IsContent() {
		return fmt.Sprintf("route (%s -> store)", r.Prefix)
	}
	return fmt.Sprintf("route (%s -> %s%s)", r.Prefix, r.Target, r.Method)
}

// IsContent reports whether the route serves published content only.
func (r *RouteConfig) IsContent() bool {
	return r.Target == "" && r.Method == ""
}

// PublishConfig puts the content of a file under a name at startup.
type PublishConfig struct {
	Name string `json:"name"`
	File string `json:"file"`

	NameN enc.Name `json:"-"`
}

type SegmentationConfig struct {
	MaxSegmentSizeBytes int `json:"maxSegmentSizeBytes"`
}

type PitConfig struct {
	DefaultLifetimeMillis int `json:"defaultLifetimeMillis"`
	SweepIntervalMillis   int `json:"sweepIntervalMillis"`
}

func (c PitConfig) DefaultLifetime() time.Duration {
	return time.Duration(c.DefaultLifetimeMillis) * time.Millisecond
}

func (c PitConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMillis) * time.Millisecond
}

type RpcConfig struct {
	// Listen is the gateway address. Empty disables the gateway.
	Listen        string          `json:"listen"`
	GatewayPrefix string          `json:"gatewayPrefix"`
	Exports       []*ExportConfig `json:"exports"`

	GatewayPrefixN enc.Name `json:"-"`
}

// ExportConfig maps a gRPC method to an explicit NDN name.
type ExportConfig struct {
	Method string `json:"method"`
	Name   string `json:"name"`

	NameN enc.Name `json:"-"`
}

type StoreConfig struct {
	// Path is a badger directory. Empty keeps segments in memory.
	Path            string `json:"path"`
	FreshnessMillis int    `json:"freshnessMillis"`
}

func (c StoreConfig) Freshness() time.Duration {
	return time.Duration(c.FreshnessMillis) * time.Millisecond
}

type MetricsConfig struct {
	Listen string `json:"listen"`
}

type LogConfig struct {
	Level string `json:"level"`
}

func DefaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			Enabled: true,
			Face:    "",
			Workers: 32,
		},
		Routes:  make([]*RouteConfig, 0),
		Publish: make([]*PublishConfig, 0),
		Segmentation: SegmentationConfig{
			MaxSegmentSizeBytes: 4000,
		},
		Pit: PitConfig{
			DefaultLifetimeMillis: int(ndn.DefaultInterestLife.Milliseconds()),
			SweepIntervalMillis:   1000,
		},
		Rpc: RpcConfig{
			Exports: make([]*ExportConfig, 0),
		},
		Store: StoreConfig{
			FreshnessMillis: 10000,
		},
		Log: LogConfig{
			Level: "INFO",
		},
	}
}

// ApplyEnv applies environment overrides on top of the file configuration.
func (c *Config) ApplyEnv() {
	if level := os.Getenv("NDNRPC_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if face := os.Getenv("NDN_CLIENT_TRANSPORT"); face != "" {
		c.Bridge.Face = face
	}
}

// Parse validates the configuration and fills the parsed fields.
func (c *Config) Parse() (err error) {
	if _, err = log.ParseLevel(c.Log.Level); err != nil {
		return err
	}

	if c.Bridge.Face == "" {
		c.Bridge.Face = engine.GetClientConfig().TransportUri
	}
	if c.Bridge.Workers < 1 || c.Bridge.Workers > maxWorkers {
		return fmt.Errorf("bridge.workers must be between 1 and %d (got %d)", maxWorkers, c.Bridge.Workers)
	}
	if c.Bridge.DefaultIdentity != "" {
		if c.Bridge.DefaultIdentityN, err = parseName("bridge.defaultIdentity", c.Bridge.DefaultIdentity); err != nil {
			return err
		}
	}

	if c.Bridge.Enabled {
		if len(c.Routes) == 0 {
			return errors.New("no routes configured while bridge is enabled")
		}
		if c.Security.KeyStorePath == "" {
			return errors.New("security.keyStorePath must be set while bridge is enabled")
		}
	} else if c.Rpc.Listen == "" {
		return errors.New("bridge is disabled and rpc.listen is not set, nothing to do")
	}

	for _, r := range c.Routes {
		if r.PrefixN, err = parseName("route prefix", r.Prefix); err != nil {
			return err
		}
		if !r.IsContent() {
			if r.Target == "" {
				return fmt.Errorf("route %s: target must be set with method", r.Prefix)
			}
			if _, _, err = rpc.SplitMethod(r.Method); err != nil {
				return fmt.Errorf("route %s: %w", r.Prefix, err)
			}
		}
		r.IdentityN = r.PrefixN
		if r.Identity != "" {
			if r.IdentityN, err = parseName("route identity", r.Identity); err != nil {
				return err
			}
		}
	}

	for _, p := range c.Publish {
		if p.NameN, err = parseName("publish name", p.Name); err != nil {
			return err
		}
		if p.File == "" {
			return fmt.Errorf("publish %s: file must be set", p.Name)
		}
	}

	size := c.Segmentation.MaxSegmentSizeBytes
	if size < 1 || size > maxSegmentPayload {
		return fmt.Errorf("segmentation.maxSegmentSizeBytes must be between 1 and %d (got %d)", maxSegmentPayload, size)
	}
	if c.Pit.DefaultLifetimeMillis <= 0 {
		return fmt.Errorf("pit.defaultLifetimeMillis must be positive (got %d)", c.Pit.DefaultLifetimeMillis)
	}
	if c.Pit.SweepIntervalMillis <= 0 {
		return fmt.Errorf("pit.sweepIntervalMillis must be positive (got %d)", c.Pit.SweepIntervalMillis)
	}

	if c.Rpc.GatewayPrefix != "" {
		if c.Rpc.GatewayPrefixN, err = parseName("rpc.gatewayPrefix", c.Rpc.GatewayPrefix); err != nil {
			return err
		}
	}
	for _, e := range c.Rpc.Exports {
		if _, _, err = rpc.SplitMethod(e.Method); err != nil {
			return fmt.Errorf("rpc export: %w", err)
		}
		if e.NameN, err = parseName("rpc export name", e.Name); err != nil {
			return err
		}
	}

	if c.Store.FreshnessMillis < 0 {
		return fmt.Errorf("store.freshnessMillis must not be negative (got %d)", c.Store.FreshnessMillis)
	}
	return nil
}

func parseName(item string, s string) (enc.Name, error) {
	name, err := enc.NameFromStr(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s (%s): %w", item, s, err)
	}
	if len(name) == 0 {
		return nil, fmt.Errorf("invalid %s (%s): %w: empty name", item, s, enc.ErrMalformedName)
	}
	return name, nil
}
