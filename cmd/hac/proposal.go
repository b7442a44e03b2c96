package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/calehh/hac-gov/app"
	"github.com/calehh/hac-gov/config"
	"github.com/calehh/hac-gov/tx"
	"github.com/calehh/hac-gov/types"
	"github.com/spf13/cobra"
)

type initConfigArguments struct {
	txArguments
	Home string
}

var initConfigArgs initConfigArguments

var initConfigCmd = &cobra.Command{
	Use:   "initconfig",
	Short: "Set the first voting config from the [gov] section of app.toml",
	RunE:  initConfigRun,
}

func initConfigRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(initConfigArgs.Home)
	if err != nil {
		return err
	}
	vc, err := cfg.Gov.VotingConfig()
	if err != nil {
		return err
	}
	return sendTx(&initConfigArgs.txArguments, tx.HACTxTypeInitVotingConfig, &tx.InitVotingConfigTx{Config: vc})
}

type newProposalArguments struct {
	txArguments
	Description  string
	UpdateConfig bool
	Home         string
}

var newProposalArgs newProposalArguments

var newProposalCmd = &cobra.Command{
	Use:   "newproposal",
	Short: "Create a proposal",
	Long: `Create a proposal. With --update-config the [gov] section of app.toml
is attached and applied when the proposal executes.`,
	RunE: newProposalRun,
}

func newProposalRun(cmd *cobra.Command, args []string) error {
	ptx := &tx.CreateProposalTx{Description: newProposalArgs.Description}
	if newProposalArgs.UpdateConfig {
		cfg, err := config.LoadConfig(newProposalArgs.Home)
		if err != nil {
			return err
		}
		if ptx.ConfigUpdate, err = cfg.Gov.VotingConfig(); err != nil {
			return err
		}
	}
	return sendTx(&newProposalArgs.txArguments, tx.HACTxTypeCreateProposal, ptx)
}

type voteArguments struct {
	txArguments
	Proposal uint64
	Choice   string
}

var voteArgs voteArguments

var voteCmd = &cobra.Command{
	Use:   "vote",
	Short: "Vote for, against or abstain on a proposal",
	RunE: func(cmd *cobra.Command, args []string) error {
		vt, err := parseVoteType(voteArgs.Choice)
		if err != nil {
			return err
		}
		return sendTx(&voteArgs.txArguments, tx.HACTxTypeVote, &tx.VoteTx{Proposal: voteArgs.Proposal, VoteType: vt})
	},
}

func parseVoteType(s string) (types.VoteType, error) {
	switch strings.ToLower(s) {
	case "for", "1":
		return types.VoteFor, nil
	case "against", "2":
		return types.VoteAgainst, nil
	case "abstain", "3":
		return types.VoteAbstain, nil
	}
	return 0, fmt.Errorf("unknown vote %q", s)
}

type proposalRefArguments struct {
	txArguments
	Proposal uint64
}

// proposalRefCmd builds finalize, queue, execute and cancel, which only name a proposal.
func proposalRefCmd(use, short string, typ tx.HACTxType) *cobra.Command {
	args := &proposalRefArguments{}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return sendTx(&args.txArguments, typ, &tx.ProposalRefTx{Proposal: args.Proposal})
		},
	}
	txFlags(cmd, &args.txArguments)
	proposalFlag(cmd, &args.Proposal)
	return cmd
}

var (
	finalizeCmd = proposalRefCmd("finalize", "Close voting and tally a proposal", tx.HACTxTypeFinalizeProposal)
	queueCmd    = proposalRefCmd("queue", "Queue a succeeded proposal behind the timelock", tx.HACTxTypeQueueProposal)
	executeCmd  = proposalRefCmd("execute", "Execute a queued proposal", tx.HACTxTypeExecuteProposal)
	cancelCmd   = proposalRefCmd("cancel", "Cancel a proposal", tx.HACTxTypeCancelProposal)
)

type proposalQueryArguments struct {
	Url      string
	Proposal uint64
	Voter    string
}

var proposalQueryArgs proposalQueryArguments

var proposalCmd = &cobra.Command{
	Use:   "proposal",
	Short: "Show a proposal, or a vote receipt with --voter",
	RunE: func(cmd *cobra.Command, args []string) error {
		id := strconv.FormatUint(proposalQueryArgs.Proposal, 10)
		if proposalQueryArgs.Voter != "" {
			var r types.VoteReceipt
			if err := abciQuery(proposalQueryArgs.Url, "/receipts/", []byte(id+"/"+proposalQueryArgs.Voter), &r); err != nil {
				return err
			}
			return printJSON(&r)
		}
		var p types.Proposal
		if err := abciQuery(proposalQueryArgs.Url, "/proposals/", []byte(id), &p); err != nil {
			return err
		}
		return printJSON(&p)
	},
}

var govConfigUrl string

var govConfigCmd = &cobra.Command{
	Use:   "govconfig",
	Short: "Show the active voting config and admin",
	RunE: func(cmd *cobra.Command, args []string) error {
		var res app.ConfigResponse
		if err := abciQuery(govConfigUrl, "/config/", nil, &res); err != nil {
			return err
		}
		return printJSON(&res)
	},
}

func init() {
	txFlags(initConfigCmd, &initConfigArgs.txArguments)
	initConfigCmd.Flags().StringVarP(&initConfigArgs.Home, "homedir", "d", "", "home directory holding config/app.toml")

	txFlags(newProposalCmd, &newProposalArgs.txArguments)
	newProposalCmd.Flags().StringVarP(&newProposalArgs.Description, "description", "m", "", "proposal description")
	newProposalCmd.Flags().BoolVarP(&newProposalArgs.UpdateConfig, "update-config", "", false, "attach the [gov] config from app.toml")
	newProposalCmd.Flags().StringVarP(&newProposalArgs.Home, "homedir", "d", "", "home directory holding config/app.toml")

	txFlags(voteCmd, &voteArgs.txArguments)
	proposalFlag(voteCmd, &voteArgs.Proposal)
	voteCmd.Flags().StringVarP(&voteArgs.Choice, "vote", "v", "for", "for, against or abstain")

	urlFlag(proposalCmd, &proposalQueryArgs.Url)
	proposalFlag(proposalCmd, &proposalQueryArgs.Proposal)
	proposalCmd.Flags().StringVarP(&proposalQueryArgs.Voter, "voter", "", "", "voter address")

	urlFlag(govConfigCmd, &govConfigUrl)
}
