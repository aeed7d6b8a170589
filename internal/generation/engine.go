package generation

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/featuregen/internal/conversation"
	"github.com/temirov/featuregen/internal/fsops"
	"github.com/temirov/featuregen/internal/gherkin"
	"github.com/temirov/featuregen/internal/retry"
)

const debugMessageFileNameFormat = "msg%d.txt"

type Runner struct {
	Completer Completer
	Files     fsops.Ops
	Retry     retry.Policy
	// Timeout bounds each provider attempt; zero disables it.
	Timeout time.Duration
	Logger  *zap.Logger
}

func (r Runner) Run(ctx context.Context, profile Profile, job Job) (Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	instruction, loadErr := r.Files.LoadText(job.InstructionPath, profile.TrimInputs)
	if loadErr != nil {
		return Result{}, fmt.Errorf("load instruction: %w", loadErr)
	}
	userStory, loadErr := r.Files.LoadText(job.UserStoryPath, profile.TrimInputs)
	if loadErr != nil {
		return Result{}, fmt.Errorf("load user story: %w", loadErr)
	}

	chat := profile.Layout.Build(instruction, userStory)
	logger.Debug("prompt assembled",
		zap.String("instruction_path", job.InstructionPath),
		zap.String("user_story_path", job.UserStoryPath),
		zap.String("instruction", instruction),
		zap.String("user_story", userStory),
		zap.Int("messages", chat.Len()),
	)

	policy := r.Retry
	if !profile.Retry {
		policy = retry.Single()
	}
	completion, completeErr := retry.Do(ctx, policy, logger, func(attemptCtx context.Context) (string, error) {
		if r.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(attemptCtx, r.Timeout)
			defer cancel()
		}
		return r.Completer.Complete(attemptCtx, chat.Messages())
	})
	if completeErr != nil {
		return Result{}, fmt.Errorf("generate completion: %w", completeErr)
	}
	if strings.TrimSpace(completion) == "" {
		return Result{}, ErrEmptyCompletion
	}
	chat.Append(conversation.RoleAssistant, completion)

	content := completion
	if profile.StripFence {
		content = gherkin.EnsureTrailingNewline(gherkin.StripFence(completion))
	}

	if existing := filepath.Join(job.OutputDir, profile.OutputFileName); r.Files.FileExists(existing) {
		logger.Info("overwriting existing response", zap.String("path", existing))
	}
	outputPath, writeErr := r.Files.WriteArtifact(job.OutputDir, profile.OutputFileName, content)
	if writeErr != nil {
		return Result{}, fmt.Errorf("save response: %w", writeErr)
	}
	logger.Info("response saved", zap.String("path", outputPath), zap.Int("bytes", len(content)))

	messages := chat.Messages()
	if job.Debug && profile.DumpMessages {
		if dumpErr := r.dumpMessages(job.OutputDir, messages); dumpErr != nil {
			return Result{}, dumpErr
		}
	}

	return Result{OutputPath: outputPath, Completion: content, Messages: messages}, nil
}

func (r Runner) dumpMessages(directory string, messages []conversation.Message) error {
	for index, message := range messages {
		if _, err := r.Files.WriteArtifact(directory, fmt.Sprintf(debugMessageFileNameFormat, index), message.Content); err != nil {
			return fmt.Errorf("dump message %d: %w", index, err)
		}
	}
	return nil
}
