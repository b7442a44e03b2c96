package main

import "github.com/spf13/cobra"

func urlFlag(cmd *cobra.Command, url *string) {
	cmd.Flags().StringVarP(url, "url", "u", "http://127.0.0.1:26657", "hac-cl service url")
}

// txArguments are shared by every command that signs and sends a tx.
type txArguments struct {
	Url    string
	Index  uint64
	Nonce  uint64
	Skey   string
	NoSend bool
}

func txFlags(cmd *cobra.Command, args *txArguments) {
	urlFlag(cmd, &args.Url)
	cmd.Flags().Uint64VarP(&args.Index, "index", "i", 0, "account index")
	cmd.Flags().Uint64VarP(&args.Nonce, "nonce", "n", 0, "account nonce, queried when 0")
	cmd.Flags().StringVarP(&args.Skey, "skeyPath", "s", "./config/priv_validator_key.json", "private key path")
	cmd.Flags().BoolVarP(&args.NoSend, "nosend", "", false, "not send transaction but print it")
}

func proposalFlag(cmd *cobra.Command, id *uint64) {
	cmd.Flags().Uint64VarP(id, "proposal", "p", 0, "proposal id")
}
