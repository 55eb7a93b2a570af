package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/quocln/mcp-shrimp-task-manager/internal/config"
	"github.com/quocln/mcp-shrimp-task-manager/internal/mcp"
	"github.com/quocln/mcp-shrimp-task-manager/internal/search"
	"github.com/quocln/mcp-shrimp-task-manager/internal/service"
	"github.com/quocln/mcp-shrimp-task-manager/internal/storage"
)

var (
	configPath string
	dataDir    string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "shrimp",
	Short: "Task manager for agent planning workflows",
	Long: `shrimp manages a persisted graph of tasks with dependencies, batch
reconciliation, completion tracking and full-text recall over archived
snapshots. By default it serves its tools over MCP (JSON-RPC 2.0 on stdio).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		// stdout carries the protocol; everything else goes to stderr.
		zapCfg.OutputPaths = []string{"stderr"}
		zapCfg.ErrorOutputPaths = []string{"stderr"}
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		server, cleanup, err := buildServer()
		if err != nil {
			return err
		}
		defer cleanup()

		transport := mcp.NewTransport(os.Stdin, os.Stdout, server, logger)
		return transport.Start()
	},
}

var cliCmd = &cobra.Command{
	Use:   "cli",
	Short: "Interactive command loop instead of the MCP transport",
	RunE: func(cmd *cobra.Command, args []string) error {
		server, cleanup, err := buildServer()
		if err != nil {
			return err
		}
		defer cleanup()
		runCLI(server)
		return nil
	},
}

func buildServer() (*mcp.Server, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	store, err := storage.NewFileStore(cfg.DataDir, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize task store: %w", err)
	}

	tasks := service.NewTaskService(store, cfg.Complexity, logger)
	tasks.OnChange(func(c service.Change) {
		logger.Info("collection changed",
			zap.String("operation", c.Operation),
			zap.Int("affected", c.Affected))
	})

	watcher, err := storage.WatchSnapshot(store.SnapshotPath(), logger, func() {
		logger.Info("snapshot modified outside this process")
	})
	if err != nil {
		logger.Warn("snapshot watcher unavailable", zap.Error(err))
	}

	searcher := search.NewEngine(store, cfg.PageSize, cfg.ArchiveScanLimit, logger)

	server := mcp.NewServer(tasks, searcher, logger)
	cleanup := func() {
		if watcher != nil {
			_ = watcher.Close()
		}
	}
	server.OnShutdown(cleanup)
	return server, cleanup, nil
}

func runCLI(server *mcp.Server) {
	fmt.Println("shrimp CLI started")
	fmt.Println("Type 'help' for available tools or 'quit' to exit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("shrimp> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "quit" || input == "exit" {
			break
		}
		if input == "help" {
			printHelp()
			continue
		}

		handleCommand(server, input)
	}
}

func printHelp() {
	fmt.Println("Tools (name followed by JSON arguments):")
	fmt.Println("  list_tasks       {\"status\":\"pending\"}")
	fmt.Println("  get_task_detail  {\"taskId\":\"<id>\"}")
	fmt.Println("  query_task       {\"query\":\"auth\",\"page\":1}")
	fmt.Println("  split_tasks      {\"updateMode\":\"append\",\"tasks\":[{\"name\":\"Setup\",\"description\":\"...\"}]}")
	fmt.Println("  execute_task     {\"taskId\":\"<id>\"}")
	fmt.Println("  verify_task      {\"taskId\":\"<id>\",\"summary\":\"done because ...\"}")
	fmt.Println("  update_task      {\"taskId\":\"<id>\",\"notes\":\"...\"}")
	fmt.Println("  delete_task      {\"taskId\":\"<id>\"}")
	fmt.Println("  clear_all_tasks  {\"confirm\":true}")
}

func handleCommand(server *mcp.Server, input string) {
	parts := strings.SplitN(input, " ", 2)
	method := parts[0]

	var params json.RawMessage
	if len(parts) > 1 {
		if err := json.Unmarshal([]byte(parts[1]), &params); err != nil {
			fmt.Printf("Error: invalid JSON parameters: %v\n", err)
			return
		}
	}

	result, err := server.HandleCommand(method, params)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	if str, ok := result.(string); ok {
		fmt.Println(str)
		return
	}
	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Printf("Error formatting result: %v\n", err)
		return
	}
	fmt.Println(string(output))
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "override the data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(cliCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
