// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gemaraproj/credsniff/internal/config"
	"github.com/gemaraproj/credsniff/internal/tool"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app carries state shared by the subcommands.
type app struct {
	v          *viper.Viper
	configPath string
	cfg        config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper(), logger: zap.NewNop()}
	def := config.Default()

	root := &cobra.Command{
		Use:   "credsniff",
		Short: "Normalize file content for credential detection",
		Long: `credsniff recognizes structured data (JSON, NDJSON, printed literals, YAML),
flattens XML and HTML tables into numbered candidate lines, unwraps base64
payloads and reports access key id tokens.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.v.BindPFlags(cmd.Flags()); err != nil {
				return fmt.Errorf("bind flags: %w", err)
			}
			cfg, err := config.Load(a.v, a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = a.logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to a config file (yaml, json or toml)")
	flags.String(config.KeyEncoding, def.Encoding, "declared text encoding of scanned content")
	flags.Int(config.KeyMaxDecodeLayers, def.MaxDecodeLayers, "maximum nested base64 layers to unwrap")
	flags.String(config.KeyLogLevel, def.LogLevel, "log level: debug, info, warn or error")
	flags.Int(config.KeyWorkers, def.Workers, "files scanned concurrently")
	flags.StringSlice(config.KeyTokenPrefixes, def.TokenPrefixes, "family prefixes of access key ids")

	root.AddCommand(a.scanCmd(), a.serveCmd())
	return root
}

func (a *app) scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan FILE...",
		Short: "Normalize files and print one JSON report per file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := tool.NewNormalizer(a.cfg, a.logger)
			reports, err := n.NormalizeFiles(cmd.Context(), args, a.cfg.Workers)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, r := range reports {
				if err := enc.Encode(r); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
			}
			return nil
		},
	}
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the normalization tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			server := mcp.NewServer(&mcp.Implementation{Name: "credsniff", Version: version}, nil)
			tool.Register(server, tool.NewNormalizer(a.cfg, a.logger))
			a.logger.Info("serving MCP on stdio", zap.String("version", version))
			return server.Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}

// newLogger logs JSON to stderr so stdout stays reserved for reports and MCP.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
