// threadview browses live conversation threads in the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/runlight/threadview/internal/config"
	"github.com/runlight/threadview/internal/i18n"
	"github.com/runlight/threadview/internal/server"
	"github.com/runlight/threadview/internal/statestore"
	"github.com/runlight/threadview/internal/tui"
	"github.com/runlight/threadview/internal/tuilog"
	"github.com/runlight/threadview/internal/version"
)

// Global flags
var (
	logPath string
	verbose bool
)

// View command flags
var viewLocal string

// Serve command flags
var (
	servePort  int
	serveHost  string
	serveToken string
	serveDemo  bool
)

var rootCmd = &cobra.Command{
	Use:   "threadview",
	Short: "Terminal viewer for live conversation threads",
	Long: `threadview renders conversation threads in the terminal and keeps
them updated from a live event stream.

Running without a subcommand launches the interactive viewer.

Examples:
  threadview                      # Launch the viewer
  threadview --local run.jsonl    # Replay a recorded event file
  threadview serve                # Start a demo thread server
  threadview serve -p 8080        # Serve on a custom port
  threadview version              # Print version information`,
	RunE: runView,
}

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Launch the interactive thread viewer",
	Long: `Browse threads from the configured server. The thread list opens
first; selecting a thread opens its transcript, which follows new
messages while you stay at the bottom and holds your place while you
read history.

Recently viewed threads stay warm, so tabbing between them keeps each
one's reading position.`,
	RunE: runView,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a local thread server",
	Long: `Start a local HTTP server that stores threads and streams their
events over WebSocket.

With --demo (the default) the store is seeded with finished threads
and a publisher keeps one thread live, which is useful for trying the
viewer without a real backend.

Examples:
  threadview serve                # Serve with demo content on 127.0.0.1:7311
  threadview serve --token s3cret # Require a bearer token
  threadview serve --demo=false   # Empty store, external publishers only`,
	RunE: runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String("threadview"))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "write debug logs to a file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to the default log file")

	rootCmd.Flags().StringVar(&viewLocal, "local", "", "replay and tail a JSONL event file instead of a server")
	viewCmd.Flags().StringVar(&viewLocal, "local", "", "replay and tail a JSONL event file instead of a server")

	serveCmd.Flags().IntVarP(&servePort, "port", "p", server.DefaultPort, "port to listen on")
	serveCmd.Flags().StringVar(&serveHost, "host", server.DefaultHost, "host to bind")
	serveCmd.Flags().StringVar(&serveToken, "token", "", "require this bearer token")
	serveCmd.Flags().BoolVar(&serveDemo, "demo", true, "seed demo threads and publish live events")

	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func initLogging() error {
	path := logPath
	if path == "" && verbose {
		p, err := config.LogPath()
		if err != nil {
			return err
		}
		path = p
	}
	return tuilog.Init(path)
}

func runView(cmd *cobra.Command, args []string) error {
	if err := initLogging(); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer tuilog.Log.Close()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	i18n.Init(i18n.ResolveLocale(""))

	if viewLocal != "" {
		return tui.RunLocal(cfg, viewLocal)
	}

	var store *statestore.Store
	if statePath, err := config.StatePath(); err == nil {
		if s, err := statestore.Open(statePath); err == nil {
			store = s
			defer store.Close()
		} else {
			tuilog.Log.Warn("Scroll state store unavailable", "error", err)
		}
	}

	return tui.Run(cfg, store)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := initLogging(); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer tuilog.Log.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()

	store := server.NewStore()
	if serveDemo {
		server.SeedDemo(store)
	}

	srv := server.New(server.Config{
		Host:  serveHost,
		Port:  servePort,
		Token: serveToken,
	}, store)

	fmt.Printf("threadview server listening on %s:%d\n", serveHost, servePort)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})
	if serveDemo {
		g.Go(func() error {
			server.RunDemoPublisher(gctx, srv, "demo-live", 800*time.Millisecond)
			return nil
		})
	}
	return g.Wait()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
