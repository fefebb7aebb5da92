package config

import (
	"flag"
	"fmt"
	"image"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config holds the display process configuration.
type Config struct {
	Port   int    `yaml:"port"`
	Host   string `yaml:"host"`
	Screen int    `yaml:"screen"`

	Backend string `yaml:"backend"`
	Outputs string `yaml:"outputs"`
	Fit     string `yaml:"fit"`

	Colormap       string `yaml:"colormap"`
	SnapshotDir    string `yaml:"snapshot_dir"`
	SnapshotFormat string `yaml:"snapshot_format"`

	SignalingURL string `yaml:"signaling"`
	HostID       string `yaml:"id"`

	ParentPID int    `yaml:"parent_pid"`
	LogLevel  string `yaml:"log_level"`
	Debug     bool   `yaml:"debug"`

	ConfigPath string `yaml:"-"`
}

// Addr is the RPC listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// OutputSizes parses the headless output list, e.g. "1920x1080,1280x1024".
func (c *Config) OutputSizes() ([]image.Point, error) {
	return ParseSizes(c.Outputs)
}

// Validate checks values flags and the file cannot type-check.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Screen < 0 {
		return fmt.Errorf("screen %d is negative", c.Screen)
	}
	switch c.Backend {
	case "ebiten", "headless":
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Backend == "headless" {
		sizes, err := c.OutputSizes()
		if err != nil {
			return err
		}
		if len(sizes) == 0 {
			return fmt.Errorf("headless backend needs at least one output")
		}
	}
	switch c.Fit {
	case "none", "stretch":
	default:
		return fmt.Errorf("unknown fit %q", c.Fit)
	}
	switch c.Colormap {
	case "phase", "magnitude":
	default:
		return fmt.Errorf("unknown colormap %q", c.Colormap)
	}
	switch c.SnapshotFormat {
	case "png", "jpeg", "jpg":
	default:
		return fmt.Errorf("unknown snapshot format %q", c.SnapshotFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

// ParseServerFlags parses flags for the display process. Values from the
// -config file apply to every flag not given explicitly.
func ParseServerFlags(args []string) (*Config, error) {
	cfg := &Config{}
	fs := flag.NewFlagSet("slm-server", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "port", 50051, "RPC port")
	fs.StringVar(&cfg.Host, "host", "::", "RPC listen host")
	fs.IntVar(&cfg.Screen, "screen", 0, "Output index to bind at startup")
	fs.StringVar(&cfg.Backend, "backend", "ebiten", "Display backend: ebiten | headless")
	fs.StringVar(&cfg.Outputs, "outputs", "1920x1080", "Headless outputs, comma separated WxH")
	fs.StringVar(&cfg.Fit, "fit", "none", "Frame placement: none | stretch")
	fs.StringVar(&cfg.Colormap, "colormap", "phase", "Phase mask visualisation: phase | magnitude")
	fs.StringVar(&cfg.SnapshotDir, "snapshot-dir", "", "Headless: write every shown frame here")
	fs.StringVar(&cfg.SnapshotFormat, "snapshot-format", "png", "Snapshot format: png | jpeg")
	fs.StringVar(&cfg.SignalingURL, "signaling", "", "Signaling server WebSocket URL (enables WebRTC control)")
	fs.StringVar(&cfg.HostID, "id", "", "Display ID on the signaling server (auto-generated if empty)")
	fs.IntVar(&cfg.ParentPID, "parent-pid", 0, "Exit when this process exits")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: debug | info | warn | error")
	fs.BoolVar(&cfg.Debug, "debug", false, "Log stack traces for render failures")
	fs.StringVar(&cfg.ConfigPath, "config", "", "YAML config file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.ConfigPath != "" {
		if err := overlay(fs, cfg); err != nil {
			return nil, err
		}
	}
	if cfg.HostID == "" {
		cfg.HostID = fmt.Sprintf("slm-%d-%s", cfg.Port, randomID())
	}
	return cfg, cfg.Validate()
}

// overlay loads the file into a copy of cfg and takes every field whose
// flag was not set on the command line.
func overlay(fs *flag.FlagSet, cfg *Config) error {
	data, err := os.ReadFile(cfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	file := *cfg
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config %s: %w", cfg.ConfigPath, err)
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	take := func(name string, apply func()) {
		if !set[name] {
			apply()
		}
	}
	take("port", func() { cfg.Port = file.Port })
	take("host", func() { cfg.Host = file.Host })
	take("screen", func() { cfg.Screen = file.Screen })
	take("backend", func() { cfg.Backend = file.Backend })
	take("outputs", func() { cfg.Outputs = file.Outputs })
	take("fit", func() { cfg.Fit = file.Fit })
	take("colormap", func() { cfg.Colormap = file.Colormap })
	take("snapshot-dir", func() { cfg.SnapshotDir = file.SnapshotDir })
	take("snapshot-format", func() { cfg.SnapshotFormat = file.SnapshotFormat })
	take("signaling", func() { cfg.SignalingURL = file.SignalingURL })
	take("id", func() { cfg.HostID = file.HostID })
	take("parent-pid", func() { cfg.ParentPID = file.ParentPID })
	take("log-level", func() { cfg.LogLevel = file.LogLevel })
	take("debug", func() { cfg.Debug = file.Debug })
	return nil
}

// ControllerConfig holds configuration for slmctl.
type ControllerConfig struct {
	Addr         string
	SignalingURL string
	DisplayID    string
	ControllerID string
}

// URL is the websocket URL of the display process.
func (c *ControllerConfig) URL() string {
	if strings.Contains(c.Addr, "://") {
		return c.Addr
	}
	return "ws://" + c.Addr + "/slm"
}

// ParseSizes parses "WxH[,WxH...]".
func ParseSizes(s string) ([]image.Point, error) {
	var out []image.Point
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		w, h, ok := strings.Cut(part, "x")
		if !ok {
			return nil, fmt.Errorf("output %q: want WxH", part)
		}
		wi, err1 := strconv.Atoi(w)
		hi, err2 := strconv.Atoi(h)
		if err1 != nil || err2 != nil || wi <= 0 || hi <= 0 {
			return nil, fmt.Errorf("output %q: want positive WxH", part)
		}
		out = append(out, image.Pt(wi, hi))
	}
	return out, nil
}

// NewControllerID returns a fresh signaling id for a controller.
func NewControllerID() string {
	return "controller-" + randomID()
}

func randomID() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}
