package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultGovConfigConverts(t *testing.T) {
	cfg, err := DefaultGovConfig().VotingConfig()
	require.NoError(t, err)
	assert.Equal(t, uint32(5000), cfg.QuorumBps)
	assert.Equal(t, uint64(604800), cfg.VotingPeriod)
	assert.Equal(t, "100", cfg.ProposalThreshold.String())
}

func TestGovConfigRejectsBadThreshold(t *testing.T) {
	g := DefaultGovConfig()
	g.ProposalThreshold = "lots"
	_, err := g.VotingConfig()
	require.Error(t, err)

	g = DefaultGovConfig()
	g.QuorumBps = 10001
	_, err = g.VotingConfig()
	require.Error(t, err)
}

func TestPowerPerStake(t *testing.T) {
	assert.Equal(t, int64(0), PowerPerStake(999999999, 0))
	assert.Equal(t, int64(3), PowerPerStake(3*GWeiPerPower(0)+1, 0))
}

func TestWriteAndLoadConfig(t *testing.T) {
	home := t.TempDir()
	cfg := NewHACConfig(home)
	cfg.App.MaxTxsPerBlock = 50
	cfg.Agent.PollInterval = 5 * time.Second
	cfg.Agent.ListenAddr = "127.0.0.1:9099"
	cfg.Gov.QuorumBps = 2500
	cfg.Gov.ProposalThreshold = "42"
	require.NoError(t, WriteConfigFiles(cfg))

	_, err := os.Stat(ConfigFile(home))
	require.NoError(t, err)
	_, err = os.Stat(AppConfigFile(home))
	require.NoError(t, err)

	loaded, err := LoadConfig(home)
	require.NoError(t, err)
	assert.Equal(t, home, loaded.RootDir)
	assert.Equal(t, home, loaded.App.Home)
	assert.Equal(t, 50, loaded.App.MaxTxsPerBlock)
	assert.True(t, loaded.Agent.Enable)
	assert.Equal(t, 5*time.Second, loaded.Agent.PollInterval)
	assert.Equal(t, "127.0.0.1:9099", loaded.Agent.ListenAddr)
	assert.Equal(t, uint32(2500), loaded.Gov.QuorumBps)

	vc, err := loaded.Gov.VotingConfig()
	require.NoError(t, err)
	assert.Equal(t, "42", vc.ProposalThreshold.String())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	require.Error(t, err)
}
