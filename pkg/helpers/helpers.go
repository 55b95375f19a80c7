package helpers

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/go-mclib/gateway/pkg/gateway"
	"github.com/go-mclib/gateway/pkg/module"
	"github.com/go-mclib/gateway/pkg/modules/antiafk"
	"github.com/go-mclib/gateway/pkg/modules/brand"
	"github.com/go-mclib/gateway/pkg/modules/chatfilter"
	"github.com/go-mclib/gateway/pkg/upstream"
	"github.com/go-mclib/gateway/pkg/whitelist"
)

// Flags holds the gateway's CLI flags.
type Flags struct {
	Config        string
	Host          string
	Port          int
	MOTD          string
	Whitelist     bool
	WhitelistFile string
	RemoteHost    string
	RemotePort    int
	AdminAddr     string
	Verbose       bool
	Interactive   bool
	LogFormat     string
}

// RegisterFlags registers the gateway flags on fs.
func RegisterFlags(fs *flag.FlagSet, f *Flags) {
	def := gateway.DefaultConfig()
	fs.StringVar(&f.Config, "c", "", "YAML config file; flags given explicitly override it")
	fs.StringVar(&f.Host, "host", def.Host, "listen host")
	fs.IntVar(&f.Port, "port", def.Port, "listen port")
	fs.StringVar(&f.MOTD, "motd", def.MOTD, "server list description")
	fs.BoolVar(&f.Whitelist, "whitelist", def.Whitelist, "only accept identities listed in the whitelist file")
	fs.StringVar(&f.WhitelistFile, "whitelist-file", def.WhitelistFile, "newline separated identities")
	fs.StringVar(&f.RemoteHost, "remote-host", def.RemoteHost, "upstream server host")
	fs.IntVar(&f.RemotePort, "remote-port", def.RemotePort, "upstream server port")
	fs.StringVar(&f.AdminAddr, "admin", def.AdminAddr, "admin HTTP address for /metrics, /healthz and /sessions (empty = off)")
	fs.BoolVar(&f.Verbose, "v", false, "verbose logging")
	fs.BoolVar(&f.Interactive, "i", false, "interactive dashboard")
	fs.StringVar(&f.LogFormat, "log-format", def.LogFormat, "log encoding: console or json")
}

// LoadConfig builds the gateway config: defaults, then the YAML file if
// one was given, then every flag that was set on the command line.
func LoadConfig(fs *flag.FlagSet, f Flags) (gateway.Config, error) {
	cfg := gateway.DefaultConfig()
	if f.Config != "" {
		data, err := os.ReadFile(f.Config)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", f.Config, err)
		}
	}

	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "host":
			cfg.Host = f.Host
		case "port":
			cfg.Port = f.Port
		case "motd":
			cfg.MOTD = f.MOTD
		case "whitelist":
			cfg.Whitelist = f.Whitelist
		case "whitelist-file":
			cfg.WhitelistFile = f.WhitelistFile
		case "remote-host":
			cfg.RemoteHost = f.RemoteHost
		case "remote-port":
			cfg.RemotePort = f.RemotePort
		case "admin":
			cfg.AdminAddr = f.AdminAddr
		case "log-format":
			cfg.LogFormat = f.LogFormat
		case "v":
			if f.Verbose {
				cfg.LogLevel = "debug"
			}
		}
	})
	return cfg, cfg.Validate()
}

// Registry returns the bundled modules.
func Registry() *module.Registry {
	return module.NewRegistry(
		brand.Blueprint,
		chatfilter.Blueprint,
		antiafk.Blueprint,
	)
}

// NewServer creates a gateway with the bundled modules, loading the
// whitelist when it is enforced.
func NewServer(cfg gateway.Config, logger *zap.Logger) (*gateway.Server, error) {
	srv := gateway.New(cfg, Registry())
	srv.Logger = logger
	srv.Dialer = upstream.New(cfg.UpstreamAddr(), cfg.DialTimeout, logger.Named("upstream"))

	if cfg.Whitelist {
		wl, err := whitelist.Load(cfg.WhitelistFile)
		if err != nil {
			return nil, err
		}
		srv.Whitelist = wl
		logger.Info("whitelist loaded", zap.String("file", cfg.WhitelistFile), zap.Int("entries", wl.Len()))
	}
	return srv, nil
}
