package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lumenvoice/turnengine/internal/config"
	"github.com/lumenvoice/turnengine/pkg/models"
)

func runEvaluateCreate(cmd *cobra.Command, conversationID, cleanerTemplate, functionTemplate string, cleanerWindow, functionWindow int, functionsEnabled bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	eng, err := buildEngine(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer eng.Close()

	id, err := eng.manager.CreateEvaluation(cmd.Context(), conversationID, models.EvaluationConfig{
		CleanerPromptTemplateRef:  cleanerTemplate,
		FunctionPromptTemplateRef: functionTemplate,
		CleanerWindowSize:         cleanerWindow,
		FunctionWindowSize:        functionWindow,
		FunctionsEnabled:          functionsEnabled,
	})
	if err != nil {
		return fmt.Errorf("create evaluation: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created evaluation %s (conversation %s)\n", id, conversationID)
	return nil
}

func runEvaluateProcessTurn(cmd *cobra.Command, evaluationID, turnID string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	eng, err := buildEngine(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer eng.Close()

	result, err := eng.manager.ProcessTurn(cmd.Context(), evaluationID, turnID)
	if err != nil {
		return fmt.Errorf("process turn: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cleaned: %s\n", result.CleaningResult.CleanedText)
	fmt.Fprintf(out, "Confidence: %s\n", result.CleaningResult.ConfidenceScore)
	if result.FunctionResult != nil && len(result.FunctionResult.Called) > 0 {
		fmt.Fprintln(out, "Called functions:")
		for _, fn := range result.FunctionResult.Called {
			fmt.Fprintf(out, "  - %s (executed=%t)\n", fn.FunctionName, fn.Executed)
		}
	}
	fmt.Fprintf(out, "Total cost: $%.6f\n", result.TotalCostUSD)
	return nil
}

func runEvaluateStop(cmd *cobra.Command, evaluationID string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	eng, err := buildEngine(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer eng.Close()

	if err := eng.manager.StopEvaluation(cmd.Context(), evaluationID); err != nil {
		return fmt.Errorf("stop evaluation: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Stopped evaluation %s\n", evaluationID)
	return nil
}

func runEvaluateState(cmd *cobra.Command, evaluationID string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	eng, err := buildEngine(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer eng.Close()

	state, err := eng.manager.GetState(cmd.Context(), evaluationID)
	if err != nil {
		return fmt.Errorf("get state: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Evaluation:       %s\n", state.EvaluationID)
	fmt.Fprintf(out, "Status:           %s\n", state.Status)
	fmt.Fprintf(out, "Cleaned turns:    %d\n", state.CleanedTurnCount)
	fmt.Fprintf(out, "Called functions: %d\n", state.FunctionCount)
	fmt.Fprintf(out, "Last access:      %s\n", state.LastAccessTime.Format(time.RFC3339))
	fmt.Fprintf(out, "Total cost:       $%.6f\n", state.TotalCostUSD)
	return nil
}

func runEvaluateRegisterTurn(cmd *cobra.Command, turnID, conversationID, speaker, text string, sequence int64) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	eng, err := buildEngine(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer eng.Close()

	eng.conversation.PutTurn(&models.Turn{
		TurnID:         turnID,
		ConversationID: conversationID,
		Speaker:        models.Speaker(speaker),
		RawText:        text,
		Sequence:       sequence,
		CreatedAt:      time.Now(),
	})
	fmt.Fprintf(cmd.OutOrStdout(), "Registered turn %s\n", turnID)
	return nil
}

func runEvaluateRegisterCustomer(cmd *cobra.Command, conversationID, customerID, jsonPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	eng, err := buildEngine(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer eng.Close()

	customer := &models.MirroredCustomer{CustomerID: strings.TrimSpace(customerID), UpdatedAt: time.Now()}
	if customer.CustomerID == "" {
		customer.CustomerID = uuid.NewString()
	}
	if jsonPath != "" {
		data, err := os.ReadFile(jsonPath)
		if err != nil {
			return fmt.Errorf("read customer file: %w", err)
		}
		if err := json.Unmarshal(data, customer); err != nil {
			return fmt.Errorf("parse customer file: %w", err)
		}
	}

	eng.conversation.PutCanonicalCustomer(conversationID, customer)
	fmt.Fprintf(cmd.OutOrStdout(), "Registered canonical customer %s for conversation %s\n", customer.CustomerID, conversationID)
	return nil
}
