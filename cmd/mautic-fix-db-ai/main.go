// Command mautic-fix-db-ai diagnoses MySQL foreign-key constraint failures
// hit during Mautic schema migrations. It extracts the failing constraint
// name from the error text, inspects the two tables it relates over an SSH
// tunnel, and prints one large remediation prompt to stdout for submission
// to a language model. It never executes any repair itself.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/spf13/cobra"

	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/config"
	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/database"
	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/database/mysql"
	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/diagnose"
	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/inspect"
	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/llm"
	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/logger"
	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/tunnel"
)

const version = "1.0.0"

var (
	errorText string
	debug     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "mautic-fix-db-ai",
		Short:   "Diagnose Mautic MySQL foreign key migration failures",
		Long:    "Builds a remediation prompt for a failing foreign key constraint by inspecting the involved tables over an SSH tunnel.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Flags().StringVarP(&errorText, "error", "e", "", "the raw migration error text (required)")
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "verbose diagnostic logging to stderr")
	if err := rootCmd.MarkFlagRequired("error"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		if debug {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		} else {
			fmt.Fprintln(os.Stderr, "Error occurred")
		}
		os.Exit(1)
	}
}

// transport carries the pooled database connections. The SSH tunnel is the
// production implementation; it must be closed exactly once, after the
// connection pool that dials through it.
type transport interface {
	DialContext(ctx context.Context, addr string) (net.Conn, error)
	Close() error
}

// runDeps are the three effectful constructors of a run, split out so the
// release sequencing can be exercised without a network.
type runDeps struct {
	extract       func(ctx context.Context, errorText string) (string, error)
	openTransport func(log *logger.Logger) (transport, error)
	openDB        func(ctx context.Context, cfg *database.Config, dialer mysql.ContextDialer) (database.DB, error)
}

func run(ctx context.Context) error {
	// Configuration is validated in full before any network activity.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := "warn"
	if debug {
		logLevel = "debug"
	}
	log := logger.New(&logger.Config{
		Level:  logLevel,
		Format: "console",
		Output: os.Stderr,
	})

	deps := runDeps{
		extract: func(ctx context.Context, text string) (string, error) {
			return llm.NewExtractor(cfg.LLM).ExtractConstraintName(ctx, text)
		},
		openTransport: func(log *logger.Logger) (transport, error) {
			return tunnel.Open(cfg.SSH, log)
		},
		openDB: func(ctx context.Context, dbCfg *database.Config, dialer mysql.ContextDialer) (database.DB, error) {
			return mysql.New(ctx, dbCfg, dialer)
		},
	}

	return runWith(ctx, cfg, log, deps, errorText, os.Stdout)
}

// runWith executes one diagnosis. The transport and the connection pool are
// each opened at most once and released exactly once, whether the run
// succeeds or aborts at any later stage.
func runWith(ctx context.Context, cfg *config.Config, log *logger.Logger, deps runDeps, errText string, out io.Writer) error {
	log.Debug("extracting constraint name from error text")
	constraintName, err := deps.extract(ctx, errText)
	if err != nil {
		return err
	}
	log.Debugf("extracted constraint name %q", constraintName)

	tun, err := deps.openTransport(log)
	if err != nil {
		return err
	}
	defer func() {
		if err := tun.Close(); err != nil {
			log.Warnf("closing tunnel: %v", err)
		}
	}()

	dbCfg := database.DefaultConfig()
	dbCfg.Host = cfg.Database.Host
	dbCfg.Port = cfg.Database.Port
	dbCfg.User = cfg.Database.User
	dbCfg.Password = cfg.Database.Password
	dbCfg.Database = cfg.Database.Name

	db, err := deps.openDB(ctx, dbCfg, tun)
	if err != nil {
		return err
	}
	defer db.Close()

	inspector := inspect.New(db, cfg.Database.Name, log).WithQueryTimeout(dbCfg.QueryTimeout)
	builder := diagnose.NewBuilder(inspector, log)

	prompt, err := builder.Build(ctx, errText, constraintName)
	if err != nil {
		return err
	}

	// The prompt is the only thing a successful run writes to out.
	fmt.Fprint(out, prompt)
	return nil
}
