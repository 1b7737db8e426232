// Package config parses bothod's command-line flags and config.toml into
// a single Config, the way the teacher's kasparovd/config package layers
// jessevdk/go-flags over a defaulted struct — widened here to also load
// config.toml (spec.md §6 persisted state layout) via pelletier/go-toml,
// CLI flags taking precedence over file values.
package config

import (
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/botho-project/botho/crypto/curve"
	"github.com/botho-project/botho/crypto/stealth"
	"github.com/botho-project/botho/domain/chainparams"
	flags "github.com/jessevdk/go-flags"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

const (
	defaultDataDir    = "botho-data"
	defaultP2PListen  = "/ip4/0.0.0.0/tcp/9090"
	defaultRPCListen  = "0.0.0.0:9191"
	defaultMaxMempool = 50_000_000
	defaultMiningPool = 1
	defaultConfigFile = "config.toml"
	defaultLogFilter  = "info"
)

// fileConfig is the shape of config.toml (spec.md §6): mnemonic/minting
// config and bootstrap peers, loaded once at startup and overridden by
// any CLI flag the operator also passed.
type fileConfig struct {
	Network         string   `toml:"network"`
	DataDir         string   `toml:"data_dir"`
	P2PListen       string   `toml:"p2p_listen"`
	RPCListen       string   `toml:"rpc_listen"`
	BootstrapPeers  []string `toml:"bootstrap_peers"`
	MintingEnabled  bool     `toml:"minting_enabled"`
	MinterAddress   string   `toml:"minter_address"`
	MiningThreads   int      `toml:"mining_threads"`
	MaxMempoolBytes uint64   `toml:"max_mempool_bytes"`
	LogFilter       string   `toml:"log_filter"`
	LogJSON         bool     `toml:"log_json"`
}

// flagsConfig is the CLI surface; every field mirrors fileConfig so a
// flag, when given, always wins over config.toml.
type flagsConfig struct {
	ConfigFile      string   `long:"config" description:"path to config.toml" default:"config.toml"`
	Network         string   `long:"network" description:"mainnet or simnet" choice:"mainnet" choice:"simnet"`
	DataDir         string   `long:"datadir" description:"directory holding the ledger and mempool state"`
	P2PListen       string   `long:"p2p-listen" description:"libp2p multiaddr to listen on"`
	RPCListen       string   `long:"rpc-listen" description:"host:port for the JSON-RPC/WebSocket server"`
	BootstrapPeers  []string `long:"bootstrap-peer" description:"multiaddr of a peer to dial at startup"`
	MintingEnabled  bool     `long:"mine" description:"enable block minting"`
	MinterAddress   string   `long:"minter-address" description:"hex-encoded stealth public address receiving the minting reward"`
	MiningThreads   int      `long:"mining-threads" description:"proof-of-work worker count"`
	MaxMempoolBytes uint64   `long:"max-mempool-bytes" description:"resident mempool byte budget"`
	LogFilter       string   `long:"log-filter" description:"RUST_LOG-style level filter"`
	LogJSON         bool     `long:"log-json" description:"emit structured JSON log lines"`
	DisableRPC      bool     `long:"disable-rpc" description:"do not start the JSON-RPC/WebSocket server"`
}

// Config is the fully-resolved, validated node configuration.
type Config struct {
	Params          *chainparams.Params
	DataDir         string
	P2PListen       string
	RPCListen       string
	DisableRPC      bool
	BootstrapPeers  []string
	MintingEnabled  bool
	MinterAddress   stealth.PublicAddress
	MiningThreads   int
	MaxMempoolBytes uint64
	LogFilter       string
	LogJSON         bool
}

// Parse parses args (normally os.Args[1:]), layering config.toml beneath
// any CLI flag that was explicitly given, and validates the result.
// Errors returned here should map to exit code 2 (spec.md §6).
func Parse(args []string) (*Config, error) {
	cli := flagsConfig{
		ConfigFile: defaultConfigFile,
	}
	parser := flags.NewParser(&cli, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, errors.Wrap(err, "parsing command-line flags")
	}

	file, err := loadFileConfig(cli.ConfigFile)
	if err != nil {
		return nil, errors.Wrap(err, "loading config.toml")
	}

	merged := mergeConfig(file, cli)

	params, err := resolveParams(merged.Network)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Params:          params,
		DataDir:         orDefault(merged.DataDir, defaultDataDir),
		P2PListen:       orDefault(merged.P2PListen, defaultP2PListen),
		RPCListen:       orDefault(merged.RPCListen, defaultRPCListen),
		DisableRPC:      cli.DisableRPC,
		BootstrapPeers:  merged.BootstrapPeers,
		MintingEnabled:  merged.MintingEnabled,
		MiningThreads:   intOrDefault(merged.MiningThreads, defaultMiningPool),
		MaxMempoolBytes: uint64OrDefault(merged.MaxMempoolBytes, defaultMaxMempool),
		LogFilter:       orDefault(merged.LogFilter, defaultLogFilter),
		LogJSON:         merged.LogJSON,
	}

	if cfg.MintingEnabled {
		addr, err := ParseAddress(merged.MinterAddress)
		if err != nil {
			return nil, errors.Wrap(err, "parsing --minter-address")
		}
		cfg.MinterAddress = addr
	}

	return cfg, nil
}

// loadFileConfig reads path if it exists; a missing file is not an
// error, since every field also has a CLI flag and a built-in default.
func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fc, nil
		}
		return fc, err
	}
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

func mergeConfig(file fileConfig, cli flagsConfig) fileConfig {
	merged := file
	if cli.Network != "" {
		merged.Network = cli.Network
	}
	if cli.DataDir != "" {
		merged.DataDir = cli.DataDir
	}
	if cli.P2PListen != "" {
		merged.P2PListen = cli.P2PListen
	}
	if cli.RPCListen != "" {
		merged.RPCListen = cli.RPCListen
	}
	if len(cli.BootstrapPeers) > 0 {
		merged.BootstrapPeers = cli.BootstrapPeers
	}
	if cli.MintingEnabled {
		merged.MintingEnabled = true
	}
	if cli.MinterAddress != "" {
		merged.MinterAddress = cli.MinterAddress
	}
	if cli.MiningThreads != 0 {
		merged.MiningThreads = cli.MiningThreads
	}
	if cli.MaxMempoolBytes != 0 {
		merged.MaxMempoolBytes = cli.MaxMempoolBytes
	}
	if cli.LogFilter != "" {
		merged.LogFilter = cli.LogFilter
	}
	if cli.LogJSON {
		merged.LogJSON = true
	}
	return merged
}

func resolveParams(network string) (*chainparams.Params, error) {
	switch network {
	case "", "mainnet":
		return &chainparams.MainNetParams, nil
	case "simnet":
		return &chainparams.SimNetParams, nil
	default:
		return nil, errors.Errorf("unknown network %q", network)
	}
}

// ParseAddress decodes a hex-encoded "<viewPublic><spendPublic>" stealth
// address, the same two 32-byte canonical ristretto255 points
// crypto/stealth.PublicAddress carries. Botho has no bech32/base58
// address format of its own yet (DESIGN.md), so the wire-visible
// minter-address surface is plain hex.
func ParseAddress(s string) (stealth.PublicAddress, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return stealth.PublicAddress{}, errors.Wrap(err, "invalid hex")
	}
	if len(raw) != 64 {
		return stealth.PublicAddress{}, errors.Errorf("expected 64 bytes, got %d", len(raw))
	}
	view, err := curve.PointFromCanonicalBytes(raw[:32])
	if err != nil {
		return stealth.PublicAddress{}, errors.Wrap(err, "invalid view public key")
	}
	spend, err := curve.PointFromCanonicalBytes(raw[32:])
	if err != nil {
		return stealth.PublicAddress{}, errors.Wrap(err, "invalid spend public key")
	}
	return stealth.PublicAddress{ViewPublic: view, SpendPublic: spend}, nil
}

// LedgerPath is the on-disk goleveldb directory under DataDir
// (spec.md §6 "ledger/").
func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, "ledger")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func intOrDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func uint64OrDefault(v, def uint64) uint64 {
	if v == 0 {
		return def
	}
	return v
}
