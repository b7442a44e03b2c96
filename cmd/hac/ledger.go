package main

import (
	"github.com/calehh/hac-gov/crypto"
	"github.com/calehh/hac-gov/tx"
	"github.com/spf13/cobra"
)

var (
	registerArgs txArguments
	registerName string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Open a ledger account for the key at --skeyPath",
	RunE: func(cmd *cobra.Command, args []string) error {
		pv, err := crypto.LoadFilePV(registerArgs.Skey)
		if err != nil {
			return err
		}
		registerArgs.Nonce = 0
		return sendTx(&registerArgs, tx.HACTxTypeRegister, &tx.RegisterTx{PubKey: pv.PublicKey(), Name: registerName})
	},
}

type stakeArguments struct {
	txArguments
	Amount uint64
}

var depositArgs stakeArguments

var depositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Lock stake into the account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendTx(&depositArgs.txArguments, tx.HACTxTypeDeposit, &tx.DepositTx{Amount: depositArgs.Amount})
	},
}

var retractArgs stakeArguments

var retractCmd = &cobra.Command{
	Use:   "retract",
	Short: "Unlock stake from the account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendTx(&retractArgs.txArguments, tx.HACTxTypeRetract, &tx.RetractTx{Amount: retractArgs.Amount})
	},
}

func init() {
	txFlags(registerCmd, &registerArgs)
	registerCmd.Flags().StringVarP(&registerName, "name", "", "", "account name")

	txFlags(depositCmd, &depositArgs.txArguments)
	depositCmd.Flags().Uint64VarP(&depositArgs.Amount, "amount", "a", 0, "stake amount")

	txFlags(retractCmd, &retractArgs.txArguments)
	retractCmd.Flags().Uint64VarP(&retractArgs.Amount, "amount", "a", 0, "stake amount")
}
