package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/legalis-ai/legalis-go/internal/models"
)

var sessionsAll bool

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List and manage assistant sessions",
	Long: `List your assistant sessions and manage their lifecycle.

Subcommands:
  list     List sessions (default)
  show     Show one session with its conversation
  delete   Delete a session (server-confirmed)
  archive  Archive a session
  rename   Change a session title
  rate     Rate a session 1-5 with optional feedback

Examples:
  legalis sessions
  legalis sessions show 66f1a2
  legalis sessions rate 66f1a2 5 "spot on"`,
	RunE: runSessionsList,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one session with its conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

var sessionsArchiveCmd = &cobra.Command{
	Use:   "archive <id>",
	Short: "Archive a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsArchive,
}

var sessionsRenameCmd = &cobra.Command{
	Use:   "rename <id> <title>",
	Short: "Change a session title",
	Args:  cobra.ExactArgs(2),
	RunE:  runSessionsRename,
}

var sessionsRateCmd = &cobra.Command{
	Use:   "rate <id> <rating> [feedback]",
	Short: "Rate a session 1-5 with optional feedback",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  runSessionsRate,
}

func init() {
	sessionsCmd.Flags().BoolVarP(&sessionsAll, "all", "a", false, "include archived sessions")
	sessionsListCmd.Flags().BoolVarP(&sessionsAll, "all", "a", false, "include archived sessions")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	sessionsCmd.AddCommand(sessionsArchiveCmd)
	sessionsCmd.AddCommand(sessionsRenameCmd)
	sessionsCmd.AddCommand(sessionsRateCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if err := eng.LoadAll(ctx); err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}

	sessions := eng.Sessions()
	if len(sessions) == 0 {
		fmt.Println("No sessions yet. Start one with 'legalis chat'.")
		return nil
	}

	for _, s := range sessions {
		if s.Status == models.StatusArchived && !sessionsAll {
			continue
		}
		marker := " "
		if s.Status == models.StatusArchived {
			marker = "A"
		}
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%s %-26s %-18s %3d msgs  %s\n",
			marker, shortID(s.ID), s.Category, s.Analytics.TotalMessages,
			title)
	}
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if err := eng.Load(ctx, args[0]); err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	s := eng.Current()
	fmt.Printf("%s  [%s, %s]\n", s.Title, s.Category, s.Status)
	if s.LegalContext.Jurisdiction != "" {
		fmt.Printf("Jurisdiction: %s\n", s.LegalContext.Jurisdiction)
	}
	if len(s.LegalContext.PrimaryLaws) > 0 {
		fmt.Printf("Primary laws: %s\n", strings.Join(s.LegalContext.PrimaryLaws, ", "))
	}
	if s.Analytics.UserSatisfaction != nil {
		fmt.Printf("Rating: %d/5\n", s.Analytics.UserSatisfaction.Rating)
	}
	fmt.Println()

	for _, m := range s.Messages {
		printMessage(m)
	}
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	if err := eng.Delete(context.Background(), args[0]); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	fmt.Printf("Deleted session %s\n", args[0])
	return nil
}

func runSessionsArchive(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if err := eng.LoadAll(ctx); err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}
	if err := eng.Archive(ctx, args[0]); err != nil {
		return fmt.Errorf("archive session: %w", err)
	}
	fmt.Printf("Archived session %s\n", args[0])
	return nil
}

func runSessionsRename(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if err := eng.LoadAll(ctx); err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}
	if err := eng.UpdateTitle(ctx, args[0], args[1]); err != nil {
		return fmt.Errorf("rename session: %w", err)
	}
	fmt.Printf("Renamed session %s\n", args[0])
	return nil
}

func runSessionsRate(cmd *cobra.Command, args []string) error {
	rating, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("rating must be a number: %w", err)
	}
	feedback := ""
	if len(args) == 3 {
		feedback = args[2]
	}

	ctx := context.Background()
	if err := eng.LoadAll(ctx); err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}
	if err := eng.Rate(ctx, args[0], rating, feedback); err != nil {
		return fmt.Errorf("rate session: %w", err)
	}
	fmt.Printf("Rated session %s: %d/5\n", args[0], rating)
	return nil
}

// shortID trims long backend ids for table output.
func shortID(id string) string {
	if len(id) <= 26 {
		return id
	}
	return id[:23] + "..."
}

func printMessage(m models.Message) {
	role := m.Role
	switch role {
	case models.RoleUser:
		role = "You"
	case models.RoleAssistant:
		role = "Assistant"
	}
	fmt.Printf("%s: %s\n", role, m.Content)
	if m.Metadata != nil && len(m.Metadata.LawReferences) > 0 {
		for _, ref := range m.Metadata.LawReferences {
			fmt.Printf("   - %s, %s\n", ref.Article, ref.Law)
		}
	}
	fmt.Println()
}
