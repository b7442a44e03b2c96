package main

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/calehh/hac-gov/crypto"
	"github.com/spf13/cobra"
)

type signArguments struct {
	Skey string
	Hex  bool
}

var signArgs signArguments

var signCmd = &cobra.Command{
	Use:   "sign [message]",
	Short: "Sign an arbitrary message with a key file",
	Args:  cobra.ExactArgs(1),
	RunE:  signRun,
}

func init() {
	signCmd.Flags().StringVarP(&signArgs.Skey, "skeyPath", "s", "./config/priv_validator_key.json", "private key path")
	signCmd.Flags().BoolVarP(&signArgs.Hex, "hex", "", false, "message is hex encoded")
}

func signRun(cmd *cobra.Command, args []string) error {
	dat := []byte(args[0])
	if signArgs.Hex {
		var err error
		if dat, err = hex.DecodeString(args[0]); err != nil {
			return err
		}
	}
	pv, err := crypto.LoadFilePV(signArgs.Skey)
	if err != nil {
		return err
	}
	sig, err := pv.Sign(dat)
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	fmt.Println("pubkey:", hex.EncodeToString(pv.PublicKey()))
	fmt.Println("address:", pv.Address())
	fmt.Println("signature base64:", base64.StdEncoding.EncodeToString(sig))
	fmt.Println("signature:", hex.EncodeToString(sig))
	return nil
}
