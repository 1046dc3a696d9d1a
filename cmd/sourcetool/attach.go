package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/trysourcetool/sourcetool/pkg/adapters/tui"
	"github.com/trysourcetool/sourcetool/pkg/adapters/websocket"
	"github.com/trysourcetool/sourcetool/pkg/client"
	"github.com/trysourcetool/sourcetool/pkg/domain"
)

var attachCmd = &cobra.Command{
	Use:   "attach <route|page-id>",
	Short: "Use a page from the terminal",
	Long: `Opens a session of a page through the relay and renders it as text.
Widgets that accept input are numbered; type "help" for the commands.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := cfg.Logger()

		endpoint, _ := cmd.Flags().GetString("endpoint")
		if endpoint == "" {
			endpoint = strings.TrimSuffix(cfg.Host.Endpoint, "/ws/host") + "/ws/client"
		}
		sessionID, _ := cmd.Flags().GetString("session")
		pageID := args[0]
		if strings.HasPrefix(pageID, "/") {
			pageID = domain.PageID(pageID)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		conn, err := websocket.Dial(ctx, endpoint, nil, transport(cfg.Relay))
		if err != nil {
			return err
		}
		defer conn.Close()

		c := client.New(conn, client.WithLogger(logger))
		runErr := make(chan error, 1)
		go func() { runErr <- c.Run(ctx) }()
		if err := c.Initialize(ctx, pageID, sessionID); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		profile, style, width := termenv.Ascii, "notty", tui.DefaultWidth
		if tui.IsTerminal(os.Stdout) {
			profile, style, width = termenv.EnvColorProfile(), "auto", tui.Width(os.Stdout)
		}
		tui.PrintBanner(out, profile)
		renderer := tui.NewRenderer(
			tui.WithStyle(style),
			tui.WithWordWrap(width),
			tui.WithProfile(profile),
		)

		return attach(ctx, c, renderer, cmd.InOrStdin(), out, runErr)
	},
}

// attach redraws after every completed pass and applies typed commands until
// the user quits, input ends or the connection drops.
func attach(ctx context.Context, c *client.Client, r *tui.Renderer, in io.Reader, out io.Writer, runErr <-chan error) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	var targets []tui.Target
	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-runErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Fprintln(out, "connection closed")
			return nil

		case <-c.Updates():
			v := c.View()
			if v.Status == domain.StatusRunning {
				continue
			}
			var screen string
			screen, targets = r.Render(v)
			fmt.Fprintln(out, screen)
			fmt.Fprint(out, "> ")

		case line, ok := <-lines:
			if !ok {
				return c.Close(ctx)
			}
			if strings.TrimSpace(line) == "" {
				fmt.Fprint(out, "> ")
				continue
			}
			command, err := tui.Parse(line)
			if err == nil {
				if command.Verb == tui.VerbHelp {
					fmt.Fprintln(out, tui.Help)
				}
				err = tui.Execute(ctx, c, targets, command)
			}
			if errors.Is(err, tui.ErrQuit) {
				return c.Close(ctx)
			}
			if err != nil {
				fmt.Fprintf(out, "error: %v\n> ", err)
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(attachCmd)
	attachCmd.Flags().String("endpoint", "", "Relay client endpoint (default derived from host.endpoint)")
	attachCmd.Flags().String("session", "", "Reattach to an existing session id")
}
