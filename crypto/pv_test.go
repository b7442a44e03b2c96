package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/calehh/hac-gov/state"
	"github.com/calehh/hac-gov/tx"
	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/cometbft/cometbft/privval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFilePVAndSignTx(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "priv_validator_key.json")
	fpv := privval.GenFilePV(keyFile, filepath.Join(dir, "priv_validator_state.json"))
	fpv.Save()

	pv, err := LoadFilePV(keyFile)
	require.NoError(t, err)
	assert.Equal(t, fpv.Key.Address.String(), pv.Address())
	assert.Equal(t, fpv.Key.PubKey.Bytes(), pv.PublicKey())

	btx := &tx.HACTx{
		Version: tx.HACTxVersion1,
		Type:    tx.HACTxTypeRegister,
		Tx:      &tx.RegisterTx{PubKey: pv.PublicKey(), Name: "alice"},
	}
	dat, err := pv.SignTx("chain-a", btx)
	require.NoError(t, err)

	parsed, err := tx.UnmarshalHACTx(dat)
	require.NoError(t, err)
	msg, err := parsed.SigData([]byte("chain-a"))
	require.NoError(t, err)
	acc := &state.Account{PubKey: pv.PublicKey()}
	assert.True(t, acc.Verify(msg, parsed.Sig))

	msg, err = parsed.SigData([]byte("chain-b"))
	require.NoError(t, err)
	assert.False(t, acc.Verify(msg, parsed.Sig))
}

func TestLoadFilePVErrors(t *testing.T) {
	_, err := LoadFilePV(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	_, err = LoadFilePV(bad)
	require.Error(t, err)
}

func TestNewPV(t *testing.T) {
	priv := ed25519.GenPrivKey()
	pv := NewPV(priv)
	assert.Equal(t, priv.PubKey().Address().String(), pv.Address())
}
