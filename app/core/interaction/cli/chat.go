package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"arbor/app/core/conversation"
	"arbor/app/core/execlog"
	"arbor/app/core/history"
	"arbor/app/core/interaction/command"
	"arbor/app/core/interaction/render"
	"arbor/app/core/llm"
	"arbor/app/core/runtime"
	"arbor/app/core/scheduler"
	"arbor/app/core/tools"
	"arbor/app/pkg/logger"
	"arbor/app/pkg/types"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the task assistant",
	Long: `Starts an interactive session. Plain text goes to the assistant, which
reads and edits the task tree through its tools; slash commands such as
/tasks and /config are handled locally.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	if err := logger.Init("output/logs"); err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	manager, err := openManager()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	cfg := manager.Get()
	if err := runtime.RunPreflight(cfg); err != nil {
		return err
	}

	state, err := openState(manager)
	if err != nil {
		return fmt.Errorf("open task state: %w", err)
	}

	histDB, err := history.Open(cfg.History.Dir)
	if err != nil {
		return fmt.Errorf("open transcript database: %w", err)
	}
	defer histDB.Close()
	transcript := history.NewStore(histDB)

	registry := tools.NewRegistry()
	tools.RegisterTaskTools(registry, state)
	registry.SetAuditFunc(execlog.Record)

	session, err := llm.NewSession(cfg.Model, llm.DefaultSystemPrompt, registry.Schemas())
	if err != nil {
		return err
	}

	loop, err := conversation.New(conversation.Options{
		Session:       session,
		Registry:      registry,
		Recorder:      transcript,
		MaxToolRounds: cfg.Model.MaxToolRounds,
		Notify: func(msg types.ChatMessage) {
			// The user already sees their own line at the prompt.
			if msg.Sender == types.SenderUser {
				return
			}
			render.Message(os.Stdout, msg)
		},
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := transcript.StartSession(ctx, loop.SessionID()); err != nil {
		logger.Error("recording chat session failed: %v", err)
	}

	jobScheduler := scheduler.New()
	if err := runtime.RegisterMaintenanceJobs(jobScheduler, manager, state, transcript); err != nil {
		return fmt.Errorf("register maintenance jobs: %w", err)
	}
	if err := jobScheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer func() {
		if err := jobScheduler.Stop(3 * time.Second); err != nil {
			logger.Error("scheduler shutdown timed out: %v", err)
		}
	}()

	executor := command.NewExecutor(manager, state, &runtime.StatusCollector{
		Config:    manager,
		State:     state,
		History:   transcript,
		Scheduler: jobScheduler,
	})

	fmt.Println("arbor chat ready. /help lists commands; anything else goes to the assistant.")
	return replLoop(ctx, executor, loop)
}

func replLoop(ctx context.Context, executor *command.Executor, loop *conversation.Loop) error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		out, handled, err := executor.ExecuteSlash(ctx, text)
		if handled {
			switch {
			case errors.Is(err, command.ErrQuit):
				fmt.Println("Bye.")
				return nil
			case err != nil:
				fmt.Fprintln(os.Stderr, "Error:", err)
			case out != "":
				fmt.Println(out)
			}
			continue
		}

		if err := loop.Submit(ctx, text); err != nil {
			if errors.Is(err, conversation.ErrBusy) {
				fmt.Fprintln(os.Stderr, "Still working on the previous message.")
				continue
			}
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
}
