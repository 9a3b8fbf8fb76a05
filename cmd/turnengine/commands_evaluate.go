package main

import (
	"github.com/spf13/cobra"
)

// buildEvaluateCmd creates the "evaluate" command group: the CLI surface
// mirroring create_evaluation/process_turn/stop_evaluation/get_state, plus
// the helper commands that seed the in-memory conversation source a local
// run needs since upstream ingest isn't wired to anything in this profile.
func buildEvaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Create and drive evaluations against the turn processing engine",
	}
	cmd.AddCommand(
		buildEvaluateRegisterTurnCmd(),
		buildEvaluateRegisterCustomerCmd(),
		buildEvaluateCreateCmd(),
		buildEvaluateProcessTurnCmd(),
		buildEvaluateStopCmd(),
		buildEvaluateStateCmd(),
	)
	return cmd
}

func buildEvaluateCreateCmd() *cobra.Command {
	var (
		conversationID   string
		cleanerTemplate  string
		functionTemplate string
		cleanerWindow    int
		functionWindow   int
		functionsEnabled bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new evaluation against a conversation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluateCreate(cmd, conversationID, cleanerTemplate, functionTemplate, cleanerWindow, functionWindow, functionsEnabled)
		},
	}
	cmd.Flags().StringVar(&conversationID, "conversation-id", "", "Conversation ID to evaluate (required)")
	cmd.Flags().StringVar(&cleanerTemplate, "cleaner-template", "cleaner-v1", "Cleaner prompt template ref")
	cmd.Flags().StringVar(&functionTemplate, "function-template", "function-caller-v1", "Function-caller prompt template ref")
	cmd.Flags().IntVar(&cleanerWindow, "cleaner-window", 10, "Cleaner sliding window size")
	cmd.Flags().IntVar(&functionWindow, "function-window", 20, "Function-caller sliding window size")
	cmd.Flags().BoolVar(&functionsEnabled, "functions-enabled", true, "Enable function-call extraction")
	cmd.MarkFlagRequired("conversation-id")
	return cmd
}

func buildEvaluateProcessTurnCmd() *cobra.Command {
	var evaluationID, turnID string
	cmd := &cobra.Command{
		Use:   "process-turn",
		Short: "Process one registered turn within an evaluation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluateProcessTurn(cmd, evaluationID, turnID)
		},
	}
	cmd.Flags().StringVar(&evaluationID, "evaluation-id", "", "Evaluation ID (required)")
	cmd.Flags().StringVar(&turnID, "turn-id", "", "Turn ID, previously registered (required)")
	cmd.MarkFlagRequired("evaluation-id")
	cmd.MarkFlagRequired("turn-id")
	return cmd
}

func buildEvaluateStopCmd() *cobra.Command {
	var evaluationID string
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop an evaluation, releasing its in-memory state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluateStop(cmd, evaluationID)
		},
	}
	cmd.Flags().StringVar(&evaluationID, "evaluation-id", "", "Evaluation ID (required)")
	cmd.MarkFlagRequired("evaluation-id")
	return cmd
}

func buildEvaluateStateCmd() *cobra.Command {
	var evaluationID string
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show an evaluation's current state snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluateState(cmd, evaluationID)
		},
	}
	cmd.Flags().StringVar(&evaluationID, "evaluation-id", "", "Evaluation ID (required)")
	cmd.MarkFlagRequired("evaluation-id")
	return cmd
}

func buildEvaluateRegisterTurnCmd() *cobra.Command {
	var (
		turnID         string
		conversationID string
		speaker        string
		text           string
		sequence       int64
	)
	cmd := &cobra.Command{
		Use:   "register-turn",
		Short: "Register a raw turn in the local conversation source",
		Long: `Register a raw turn so a subsequent process-turn call can find it.

This is a local-testing convenience: in a real deployment, Turn records
come from an upstream ingest system via the ConversationSource port.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluateRegisterTurn(cmd, turnID, conversationID, speaker, text, sequence)
		},
	}
	cmd.Flags().StringVar(&turnID, "turn-id", "", "Turn ID (required)")
	cmd.Flags().StringVar(&conversationID, "conversation-id", "", "Conversation ID (required)")
	cmd.Flags().StringVar(&speaker, "speaker", "User", "Speaker (User, Lumen, AI, Assistant)")
	cmd.Flags().StringVar(&text, "text", "", "Raw turn text (required)")
	cmd.Flags().Int64Var(&sequence, "sequence", 0, "Sequence number within the conversation")
	cmd.MarkFlagRequired("turn-id")
	cmd.MarkFlagRequired("conversation-id")
	cmd.MarkFlagRequired("text")
	return cmd
}

func buildEvaluateRegisterCustomerCmd() *cobra.Command {
	var (
		conversationID string
		customerID     string
		jsonPath       string
	)
	cmd := &cobra.Command{
		Use:   "register-customer",
		Short: "Register the canonical customer record for a conversation",
		Long: `Register the canonical customer record a new evaluation bootstraps its
MirroredCustomer from on hydration, reading full customer JSON from
--file or falling back to a minimal record built from --customer-id.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluateRegisterCustomer(cmd, conversationID, customerID, jsonPath)
		},
	}
	cmd.Flags().StringVar(&conversationID, "conversation-id", "", "Conversation ID (required)")
	cmd.Flags().StringVar(&customerID, "customer-id", "", "Customer ID, used when --file is omitted")
	cmd.Flags().StringVar(&jsonPath, "file", "", "Path to a MirroredCustomer JSON document")
	cmd.MarkFlagRequired("conversation-id")
	return cmd
}
