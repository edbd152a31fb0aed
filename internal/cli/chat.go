package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/legalis-ai/legalis-go/internal/engine"
	"github.com/legalis-ai/legalis-go/internal/models"
)

var (
	chatCategory string
	chatSession  string
	chatStream   bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive assistant conversation",
	Long: `Start an interactive conversation with the legal assistant.

A new session is created server-side on your first message; pass
--session to continue an existing one. Type /help inside the chat for
the available commands.

Examples:
  legalis chat
  legalis chat --category "Civil Law"
  legalis chat --session 66f1a2 --stream`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatCategory, "category", "c", "", "legal category for a new session")
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "", "continue an existing session id")
	chatCmd.Flags().BoolVar(&chatStream, "stream", false, "stream assistant replies token by token")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if err := eng.LoadAll(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load session list: %v\n", err)
	}

	if chatSession != "" {
		if err := eng.Load(ctx, chatSession); err != nil {
			return fmt.Errorf("load session: %w", err)
		}
	} else {
		category := chatCategory
		if category == "" {
			category = cfg.Category
		}
		eng.CreatePlaceholder("", category)
	}

	cur := eng.Current()
	fmt.Println("=== Legalis ===")
	if cur.IsTemporary() {
		fmt.Println("Session: (new)")
	} else {
		fmt.Printf("Session: %s\n", cur.Title)
		for _, m := range cur.Messages {
			printMessage(m)
		}
	}
	if cur.Category != "" {
		fmt.Printf("Category: %s\n", cur.Category)
	}
	fmt.Println("Type /help for commands, /quit to exit")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			quit, err := handleChatCommand(ctx, input)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
			}
			if quit {
				break
			}
			continue
		}

		if err := sendAndPrint(ctx, input); err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
	}

	fmt.Println("Goodbye!")
	return nil
}

// sendAndPrint dispatches one message and prints the assistant reply,
// with a spinner while the non-streaming call is in flight.
func sendAndPrint(ctx context.Context, text string) error {
	eng.SetDraft(text)

	if chatStream {
		fmt.Print("Assistant: ")
		_, err := eng.SendMessageStream(ctx, text, func(token string) error {
			fmt.Print(token)
			return nil
		})
		fmt.Println()
		fmt.Println()
		if err != nil {
			return sendError(err)
		}
		return nil
	}

	resp, err := RunSendSpinner(ctx, eng)
	if err != nil {
		return sendError(err)
	}
	fmt.Printf("Assistant: %s\n\n", resp.Message)
	if resp.Metadata != nil {
		for _, ref := range resp.Metadata.LawReferences {
			fmt.Printf("   - %s, %s\n", ref.Article, ref.Law)
		}
	}
	return nil
}

// sendError maps engine errors to chat-loop friendly messages.
func sendError(err error) error {
	switch {
	case errors.Is(err, engine.ErrQuotaExceeded):
		return fmt.Errorf("monthly quota reached, upgrade your plan to continue")
	case errors.Is(err, engine.ErrSendInFlight):
		return fmt.Errorf("still waiting for the previous reply")
	default:
		return err
	}
}

func handleChatCommand(ctx context.Context, input string) (bool, error) {
	parts := strings.Fields(input)

	switch parts[0] {
	case "/quit", "/exit":
		return true, nil

	case "/new":
		category := chatCategory
		if len(parts) > 1 {
			category = strings.Join(parts[1:], " ")
		}
		eng.CreatePlaceholder("", category)
		fmt.Println("Started a new conversation.")
		return false, nil

	case "/sessions":
		if err := eng.LoadAll(ctx); err != nil {
			return false, err
		}
		for _, s := range eng.Sessions() {
			fmt.Printf("  %-26s %-18s %3d msgs  %s\n",
				shortID(s.ID), s.Category, s.Analytics.TotalMessages, s.Title)
		}
		return false, nil

	case "/load":
		if len(parts) < 2 {
			return false, fmt.Errorf("usage: /load <session-id>")
		}
		if err := eng.Load(ctx, parts[1]); err != nil {
			return false, err
		}
		cur := eng.Current()
		fmt.Printf("Loaded session: %s\n\n", cur.Title)
		for _, m := range cur.Messages {
			printMessage(m)
		}
		return false, nil

	case "/archive":
		cur := eng.Current()
		if cur == nil || cur.IsTemporary() {
			return false, fmt.Errorf("no persisted session to archive")
		}
		if err := eng.Archive(ctx, cur.ID); err != nil {
			return false, err
		}
		fmt.Println("Session archived.")
		return false, nil

	case "/title":
		cur := eng.Current()
		if cur == nil || cur.IsTemporary() {
			return false, fmt.Errorf("no persisted session to rename")
		}
		if len(parts) < 2 {
			return false, fmt.Errorf("usage: /title <new title>")
		}
		title := strings.Join(parts[1:], " ")
		if err := eng.UpdateTitle(ctx, cur.ID, title); err != nil {
			return false, err
		}
		fmt.Println("Title updated.")
		return false, nil

	case "/rate":
		cur := eng.Current()
		if cur == nil || cur.IsTemporary() {
			return false, fmt.Errorf("no persisted session to rate")
		}
		if len(parts) < 2 {
			return false, fmt.Errorf("usage: /rate <1-5> [feedback]")
		}
		rating, err := strconv.Atoi(parts[1])
		if err != nil {
			return false, fmt.Errorf("rating must be a number")
		}
		feedback := strings.Join(parts[2:], " ")
		if err := eng.Rate(ctx, cur.ID, rating, feedback); err != nil {
			return false, err
		}
		fmt.Println("Thanks for the feedback.")
		return false, nil

	case "/stats":
		printStats()
		return false, nil

	case "/help":
		fmt.Println("Available commands:")
		fmt.Println("  /quit, /exit        - Exit the chat")
		fmt.Println("  /new [category]     - Start a new conversation")
		fmt.Println("  /sessions           - List your sessions")
		fmt.Println("  /load <id>          - Continue a session")
		fmt.Println("  /archive            - Archive the current session")
		fmt.Println("  /title <text>       - Rename the current session")
		fmt.Println("  /rate <1-5> [text]  - Rate the current session")
		fmt.Println("  /stats              - Show client statistics")
		fmt.Println("  /help               - Show this help message")
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %s, try /help", parts[0])
	}
}

func printStats() {
	snap := eng.Metrics().Snapshot()
	if len(snap.Operations) == 0 {
		fmt.Println("No operations recorded yet.")
		return
	}

	ops := make([]string, 0, len(snap.Operations))
	for op := range snap.Operations {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	fmt.Printf("Uptime: %.0fs\n", snap.UptimeSeconds)
	for _, op := range ops {
		s := snap.Operations[op]
		fmt.Printf("  %-12s %4d calls  avg %.0fms", op, s.Count, s.AvgTimeMs)
		if s.TotalTokens > 0 {
			fmt.Printf("  %d tokens", s.TotalTokens)
		}
		fmt.Println()
	}
	if u := user; u != nil {
		limit := "unlimited"
		if u.Plan != models.PlanEnterprise {
			limit = fmt.Sprintf("%d queries", quotaLimitFor(u.Plan))
		}
		fmt.Printf("Plan: %s (%d used this month of %s)\n",
			u.Plan, u.Usage.QueriesThisMonth, limit)
	}
}

func quotaLimitFor(plan models.Plan) int {
	return engine.DefaultQuotaTable()[plan]
}
