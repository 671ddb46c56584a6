package channels

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"

	"github.com/musagithub1/python-code-assistant-ai-bot/pkg/assistant"
)

const terminalSessionKey = "terminal:default"

// TerminalChannel is the interactive REPL. It talks to the assistant
// directly so replies can stream to the screen as they arrive.
type TerminalChannel struct {
	assistant *assistant.Assistant
	botName   string
	log       zerolog.Logger
}

func NewTerminalChannel(a *assistant.Assistant, botName string, log zerolog.Logger) *TerminalChannel {
	if botName == "" {
		botName = "Assistant"
	}
	return &TerminalChannel{assistant: a, botName: botName, log: log}
}

// Run blocks on the readline loop until EOF, interrupt, or /exit.
func (c *TerminalChannel) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "You: ",
		HistoryFile:     filepath.Join(os.TempDir(), ".assistant_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	fmt.Printf("%s interactive mode. Type /help for commands, Ctrl+C to exit.\n\n", c.botName)

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Println("\nGoodbye!")
				return nil
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			if c.handleCommand(ctx, input) {
				return nil
			}
			continue
		}

		fmt.Printf("\n%s: ", c.botName)
		_, err = c.assistant.Respond(ctx, terminalSessionKey, input, func(delta string) {
			fmt.Print(delta)
		})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		fmt.Print("\n\n")
	}
}

// handleCommand runs one slash command, returning true when the loop
// should exit.
func (c *TerminalChannel) handleCommand(ctx context.Context, input string) bool {
	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/exit", "/quit":
		fmt.Println("Goodbye!")
		return true

	case "/clear":
		c.assistant.ClearSession(terminalSessionKey)
		fmt.Println("Conversation cleared.")

	case "/save":
		path, err := c.assistant.SaveLatestCode(ctx, terminalSessionKey)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			break
		}
		fmt.Printf("Code saved to %s\n", path)

	case "/run":
		snippet, ok := c.assistant.LatestCode(terminalSessionKey)
		if !ok {
			fmt.Println("No code snippet to run yet.")
			break
		}
		res, err := c.assistant.ExecuteCode(ctx, snippet)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			break
		}
		if res.Output != "" {
			fmt.Printf("Output:\n%s\n", res.Output)
		}
		if res.Error != "" {
			fmt.Printf("Errors:\n%s\n", res.Error)
		}
		if !res.Success {
			fmt.Println("Execution failed.")
		}

	case "/export":
		if arg == "" {
			arg = fmt.Sprintf("conversation_%s.json", time.Now().Format("20060102_150405"))
		}
		if err := c.assistant.ExportSession(terminalSessionKey, arg); err != nil {
			fmt.Printf("Error: %v\n", err)
			break
		}
		fmt.Printf("Conversation exported to %s\n", arg)

	case "/recall":
		if arg == "" {
			fmt.Println("Usage: /recall <query>")
			break
		}
		matches, err := c.assistant.RecallRelevant(terminalSessionKey, arg, 0)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			break
		}
		if len(matches) == 0 {
			fmt.Println("Nothing relevant found.")
			break
		}
		for _, m := range matches {
			fmt.Printf("[%s] %s\n", m.Role, m.Content)
		}

	case "/help":
		fmt.Println("Commands:")
		fmt.Println("  /clear           forget the conversation")
		fmt.Println("  /save            save the latest code snippet")
		fmt.Println("  /run             execute the latest code snippet")
		fmt.Println("  /export [file]   export the conversation as JSON")
		fmt.Println("  /recall <query>  find relevant earlier turns")
		fmt.Println("  /exit            leave")

	default:
		fmt.Printf("Unknown command %s. Try /help.\n", cmd)
	}
	return false
}
