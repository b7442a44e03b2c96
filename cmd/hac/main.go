package main

import (
	"fmt"
	"os"
)

func init() {
	clCmd.AddCommand(
		initCmd,
		versionCmd,
		accountCmd,
		pubkeyCmd,
		signCmd,
		registerCmd,
		depositCmd,
		retractCmd,
		initConfigCmd,
		newProposalCmd,
		voteCmd,
		finalizeCmd,
		queueCmd,
		executeCmd,
		cancelCmd,
		proposalCmd,
		govConfigCmd,
	)
}

func main() {
	if err := clCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
