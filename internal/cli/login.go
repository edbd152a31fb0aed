package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/legalis-ai/legalis-go/internal/config"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the backend endpoint and API token",
	Long: `Store the backend endpoint and your API token in the config file
(` + "~" + `/.config/legalis/config.yaml). The token is read without echo.

Token refresh and sign-in redirects are handled by the service; this
client only attaches the stored bearer token to its requests.`,
	RunE: runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("Backend URL [%s]: ", cfg.APIURL)
	url, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read url: %w", err)
	}
	if url = strings.TrimSpace(url); url != "" {
		cfg.APIURL = url
	}

	fmt.Print("API token: ")
	token, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	if len(token) == 0 {
		return fmt.Errorf("token must not be empty")
	}
	cfg.APIToken = strings.TrimSpace(string(token))

	if err := config.Save(cfg); err != nil {
		return err
	}
	fmt.Printf("Saved %s\n", config.ConfigPath())
	return nil
}
