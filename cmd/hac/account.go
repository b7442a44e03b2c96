package main

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/calehh/hac-gov/app"
	"github.com/calehh/hac-gov/state"
	"github.com/cometbft/cometbft/privval"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

const (
	DefaultPrivValKeyName   = "priv_validator_key.json"
	DefaultPrivValStateName = "priv_validator_state.json"
)

type accountArguments struct {
	Url     string
	Address string
	Index   uint64
}

var accountArgs accountArguments

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Show a ledger account and its voting power",
	RunE:  accountRun,
}

func init() {
	urlFlag(accountCmd, &accountArgs.Url)
	accountCmd.Flags().StringVarP(&accountArgs.Address, "address", "a", "", "account address")
	accountCmd.Flags().Uint64VarP(&accountArgs.Index, "index", "i", 0, "account index")
	showCmd.Flags().StringVarP(&showArgs.Home, "homedir", "d", "data", "home dir")
	accountCmd.AddCommand(showCmd)
}

func accountRun(cmd *cobra.Command, args []string) error {
	act, err := queryAccount(accountArgs.Url, accountArgs.Index, accountArgs.Address)
	if err != nil {
		return err
	}
	fmt.Printf("nonce:%v index:%v name:%v pk:%v stake:%v addr:%v\n",
		act.Nonce, act.Index, act.Name, common.Bytes2Hex(act.PubKey), act.Stake, act.Address())
	var power app.PowerResponse
	if err := abciQuery(accountArgs.Url, "/power/", []byte(act.Address()), &power); err != nil {
		return err
	}
	fmt.Printf("power:%v total:%v\n", power.Power, power.Total)
	return nil
}

// queryAccount looks an account up by hex address, or by index when address is empty.
func queryAccount(url string, index uint64, address string) (*state.Account, error) {
	var dat []byte
	if len(address) > 0 {
		var err error
		dat, err = hex.DecodeString(strings.TrimPrefix(address, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid address %v: %w", address, err)
		}
	} else {
		s := fmt.Sprintf("0%x", index)
		if len(s)&1 == 1 {
			s = s[1:]
		}
		dat, _ = hex.DecodeString(s)
	}
	var act state.Account
	if err := abciQuery(url, "/accounts/", dat, &act); err != nil {
		return nil, err
	}
	return &act, nil
}

type showArguments struct {
	Home string
}

var showArgs showArguments

var showCmd = &cobra.Command{
	Use:   "pk",
	Short: "Print the node validator public key",
	RunE:  showRun,
}

func showRun(cmd *cobra.Command, args []string) error {
	filePV := privval.LoadFilePV(
		filepath.Join(showArgs.Home, "config", DefaultPrivValKeyName),
		filepath.Join(showArgs.Home, "data", DefaultPrivValStateName),
	)
	pubKey, err := filePV.GetPubKey()
	if err != nil {
		return fmt.Errorf("get public key: %w", err)
	}
	fmt.Printf("pk:%s\n", hex.EncodeToString(pubKey.Bytes()))
	return nil
}
