package common

import (
	"context"
	"fmt"

	"cvforge/internal/ai"
	"cvforge/internal/errors"
)

// CreateInputFunc defines how to build the operation input from the
// command's positional arguments.
type CreateInputFunc[Input any] func(ctx context.Context, args []string) (Input, error)

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// AIOperationFunc is a generic function signature for any AI operation with context and token usage.
type AIOperationFunc[Input, Output any] func(context.Context, Input) (Output, *ai.TokenUsage, error)

// RunAICommand encapsulates the common logic for file-based CLI commands with token usage reporting.
func RunAICommand[Input, Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	args []string,
	createInput CreateInputFunc[Input],
	aiOperation AIOperationFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) error {
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}
	outputHandler := NewOutputHandler(logger)

	input, err := createInput(ctx, args)
	if err != nil {
		return err
	}

	if logDetails != nil {
		logDetails(input, cmdConfig)
	}

	result, tokenUsage, err := aiOperation(ctx, input)
	if err != nil {
		return fmt.Errorf("operation failed: %w", err)
	}

	if tokenUsage != nil {
		logger.Info("AI token usage",
			"input_tokens", tokenUsage.InputTokens,
			"output_tokens", tokenUsage.OutputTokens,
			"total_tokens", tokenUsage.TotalTokens)
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}
