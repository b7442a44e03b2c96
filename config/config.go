package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/calehh/hac-gov/types"
	"github.com/cometbft/cometbft/config"
	"github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/spf13/viper"
)

type AppConfig struct {
	Home          string `mapstructure:"-"`
	TimeoutCommit uint64 `mapstructure:"-"`

	// MaxTxsPerBlock bounds PrepareProposal; 0 keeps every valid tx.
	MaxTxsPerBlock int `mapstructure:"max_txs_per_block"`
}

func DefaultAppConfig(home string) *AppConfig {
	return &AppConfig{
		Home: home,
	}
}

// AgentConfig drives the off-chain indexer started next to the node.
type AgentConfig struct {
	Enable       bool          `mapstructure:"enable"`
	DBPath       string        `mapstructure:"db_path"`
	ListenAddr   string        `mapstructure:"listen_addr"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

func DefaultAgentConfig() *AgentConfig {
	return &AgentConfig{
		Enable:       true,
		DBPath:       "indexer.db",
		ListenAddr:   "127.0.0.1:8088",
		PollInterval: 2 * time.Second,
	}
}

// GovConfig is the voting config an operator proposes through initconfig.
type GovConfig struct {
	QuorumBps         uint32 `mapstructure:"quorum_bps"`
	VotingPeriod      uint64 `mapstructure:"voting_period_seconds"`
	ExecutionDelay    uint64 `mapstructure:"execution_delay_seconds"`
	ProposalThreshold string `mapstructure:"proposal_threshold"`
	MaxWeightBps      uint32 `mapstructure:"max_weight_bps"`
	MaxDescriptionLen uint32 `mapstructure:"max_description_len"`
}

func DefaultGovConfig() *GovConfig {
	d := types.DefaultVotingConfig()
	return &GovConfig{
		QuorumBps:         d.QuorumBps,
		VotingPeriod:      d.VotingPeriod,
		ExecutionDelay:    d.ExecutionDelay,
		ProposalThreshold: d.ProposalThreshold.String(),
		MaxWeightBps:      d.MaxWeightBps,
		MaxDescriptionLen: d.MaxDescriptionLen,
	}
}

func (g *GovConfig) VotingConfig() (*types.VotingConfig, error) {
	threshold, ok := new(big.Int).SetString(g.ProposalThreshold, 10)
	if !ok {
		return nil, fmt.Errorf("%w: proposal_threshold %q", types.ErrInvalidVotingConfig, g.ProposalThreshold)
	}
	cfg := &types.VotingConfig{
		QuorumBps:         g.QuorumBps,
		VotingPeriod:      g.VotingPeriod,
		ExecutionDelay:    g.ExecutionDelay,
		ProposalThreshold: threshold,
		MaxWeightBps:      g.MaxWeightBps,
		MaxDescriptionLen: g.MaxDescriptionLen,
	}
	return cfg, cfg.Validate()
}

func GWeiPerPower(height uint64) uint64 {
	return 1000000000
}

// PowerPerStake converts locked savings into consensus power.
func PowerPerStake(stake uint64, height uint64) int64 {
	return int64(stake / GWeiPerPower(height))
}

type Config struct {
	*config.Config `mapstructure:",squash"`

	App   *AppConfig   `mapstructure:"app"`
	Agent *AgentConfig `mapstructure:"agent"`
	Gov   *GovConfig   `mapstructure:"gov"`
}

func DefaultConfig(home string) *Config {
	if len(home) == 0 {
		home = os.ExpandEnv("$HOME/.hac")
	}
	config := &Config{
		DefaultHACCometConfig(),
		DefaultAppConfig(home),
		DefaultAgentConfig(),
		DefaultGovConfig(),
	}
	config.SetRoot(home)
	return config
}

func NewHACConfig(home string) *Config {
	config := DefaultConfig(home)
	_ = os.MkdirAll(filepath.Join(config.RootDir, "config"), 0755)
	return config
}

func ConfigFile(home string) string {
	return filepath.Join(home, "config", "config.toml")
}

func AppConfigFile(home string) string {
	return filepath.Join(home, "config", "app.toml")
}

// LoadConfig reads config.toml and, when present, merges app.toml over the defaults.
func LoadConfig(home string) (*Config, error) {
	cfg := DefaultConfig(home)
	v := viper.New()
	v.SetConfigFile(ConfigFile(cfg.RootDir))
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if _, err := os.Stat(AppConfigFile(cfg.RootDir)); err == nil {
		v.SetConfigFile(AppConfigFile(cfg.RootDir))
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("reading app config: %w", err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.SetRoot(cfg.RootDir)
	cfg.App.Home = cfg.RootDir
	cfg.App.TimeoutCommit = uint64(cfg.Consensus.TimeoutCommit.Seconds())
	if err := cfg.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid configuration data: %w", err)
	}
	return cfg, nil
}

func InitializeNodeValidatorFiles(config *Config, privKey crypto.PrivKey) (nodeID string, pk crypto.PubKey, err error) {
	nodeKey, err := p2p.LoadOrGenNodeKey(config.NodeKeyFile())
	if err != nil {
		return "", nil, err
	}
	nodeID = string(nodeKey.ID())

	pvKeyFile := config.PrivValidatorKeyFile()
	if err := os.MkdirAll(filepath.Dir(pvKeyFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvKeyFile), err)
	}

	pvStateFile := config.PrivValidatorStateFile()
	if err := os.MkdirAll(filepath.Dir(pvStateFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvStateFile), err)
	}

	var filePV *privval.FilePV
	if privKey == nil {
		filePV = privval.LoadOrGenFilePV(pvKeyFile, pvStateFile)
	} else {
		filePV = privval.NewFilePV(privKey, pvKeyFile, pvStateFile)
		filePV.Save()
	}
	pukey, err := filePV.GetPubKey()
	if err != nil {
		return "", nil, err
	}

	return nodeID, pukey, nil
}

func DefaultHACCometConfig() *config.Config {
	cometConfig := config.DefaultConfig()
	cometConfig.Consensus.TimeoutPropose = time.Second * 10
	cometConfig.Consensus.TimeoutPrevote = time.Second * 1
	cometConfig.Consensus.TimeoutPrecommit = time.Second * 1
	cometConfig.Consensus.TimeoutCommit = time.Millisecond * 1200
	return cometConfig
}
