package crypto

import (
	"fmt"
	"os"

	"github.com/calehh/hac-gov/tx"
	"github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	"github.com/cometbft/cometbft/privval"
)

// PV is a member key read from a CometBFT priv_validator_key.json. Members
// sign governance and ledger txs with the same key their node validates with.
type PV struct {
	privateKey crypto.PrivKey
	publicKey  crypto.PubKey
}

func NewPV(priv crypto.PrivKey) *PV {
	return &PV{privateKey: priv, publicKey: priv.PubKey()}
}

func LoadFilePV(keyFilePath string) (*PV, error) {
	keyJSONBytes, err := os.ReadFile(keyFilePath)
	if err != nil {
		return nil, err
	}
	pvKey := privval.FilePVKey{}
	if err = cmtjson.Unmarshal(keyJSONBytes, &pvKey); err != nil {
		return nil, fmt.Errorf("reading PrivValidator key from %v: %w", keyFilePath, err)
	}
	if pvKey.PrivKey == nil || pvKey.PrivKey.Type() != ed25519.KeyType {
		return nil, fmt.Errorf("key file %v: ed25519 key required", keyFilePath)
	}
	return &PV{
		privateKey: pvKey.PrivKey,
		publicKey:  pvKey.PubKey,
	}, nil
}

func (k *PV) PublicKey() []byte {
	return k.publicKey.Bytes()
}

func (k *PV) Address() string {
	return k.publicKey.Address().String()
}

func (k *PV) Sign(data []byte) ([]byte, error) {
	return k.privateKey.Sign(data)
}

// SignTx signs btx for chainId and returns the wire bytes.
func (k *PV) SignTx(chainId string, btx *tx.HACTx) ([]byte, error) {
	if err := btx.Sign(chainId, k.Sign); err != nil {
		return nil, err
	}
	return tx.MarshalHACTx(btx)
}
