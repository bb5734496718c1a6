// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// fhepaycli drives a salary comparison session from the command line. It
// submits encrypted salaries, runs comparisons, and decrypts results through
// the gateway, printing every status transition as it happens.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/spf13/cobra"

	"github.com/luxfi/fhepay"
	"github.com/luxfi/fhepay/config"
	"github.com/luxfi/fhepay/credentials"
	"github.com/luxfi/fhepay/evm"
	"github.com/luxfi/fhepay/metrics"
	"github.com/luxfi/fhepay/oracle"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const gatewayTimeout = 30 * time.Second

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fhepaycli",
	Short: "Confidential salary comparison client",
	Long: `fhepaycli submits encrypted salaries to the on-chain salary contract,
compares them against other participants without revealing either amount,
and decrypts results through the decryption gateway.`,
	Version:       fmt.Sprintf("%s (built %s)", version, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String(config.ConfigFileKey, "", "Path to the JSON configuration file")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(decryptSalaryCmd)
	rootCmd.AddCommand(decryptComparisonCmd)
	rootCmd.AddCommand(refreshCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current submission and decryption state",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := buildApp(cmd)
		if err != nil {
			return err
		}
		if err := app.session.Start(cmd.Context()); err != nil {
			return err
		}

		addr, _ := app.session.ContractAddress()
		fmt.Printf("Contract:  %s\n", addr.Hex())
		fmt.Printf("Account:   %s\n", app.signer.Address().Hex())
		fmt.Printf("Submitted: %t\n", app.session.HasSalary())
		if clear, ok := app.session.SalaryClear(); ok {
			fmt.Printf("Salary:    %s\n", clear.Dec())
		}
		if outcome, ok := app.session.ComparisonOutcome(); ok {
			fmt.Printf("Earns more than %s: %t\n", app.session.Counterpart().Hex(), outcome)
		}
		return nil
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit <amount>",
	Short: "Encrypt and submit a salary amount",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", args[0], err)
		}
		app, err := buildApp(cmd)
		if err != nil {
			return err
		}
		return app.session.Submit(cmd.Context(), uint32(amount))
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare <address>",
	Short: "Compare your salary against another participant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd)
		if err != nil {
			return err
		}
		if err := app.session.Start(cmd.Context()); err != nil {
			return err
		}
		return app.session.Compare(cmd.Context(), args[0])
	},
}

var decryptSalaryCmd = &cobra.Command{
	Use:   "decrypt-salary",
	Short: "Decrypt your own submitted salary",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := buildApp(cmd)
		if err != nil {
			return err
		}
		if err := app.session.Start(cmd.Context()); err != nil {
			return err
		}
		return app.session.DecryptSalary(cmd.Context())
	},
}

var decryptComparisonCmd = &cobra.Command{
	Use:   "decrypt-comparison",
	Short: "Decrypt the result of the last comparison",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := buildApp(cmd)
		if err != nil {
			return err
		}
		return app.session.DecryptComparison(cmd.Context())
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-read the salary handle from the contract",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := buildApp(cmd)
		if err != nil {
			return err
		}
		return app.session.RefreshSalary(cmd.Context())
	},
}

// app holds the wired components behind a session.
type app struct {
	cfg     config.Config
	logger  log.Logger
	signer  *evm.TxSigner
	session *fhepay.Session
}

func buildApp(cmd *cobra.Command) (*app, error) {
	v, err := config.BuildViper(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to build configuration: %w", err)
	}
	cfg, err := config.NewConfig(v)
	if err != nil {
		return nil, err
	}

	logger := log.NewLogger("fhepaycli")

	signer, err := evm.NewTxSigner(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load private key: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), gatewayTimeout)
	defer cancel()

	// Resolve the contract for whatever chain the endpoint serves.
	contractFor := func(chainID uint64) (common.Address, bool) {
		return cfg.ContractAddress(chainID)
	}
	chainID, err := evm.ChainID(ctx, cfg.RPCEndpoint)
	if err != nil {
		return nil, err
	}
	contractAddr, ok := contractFor(chainID)
	if !ok {
		return nil, fmt.Errorf("no salary contract configured for chain %d", chainID)
	}
	contract, err := evm.NewContractClient(ctx, logger, cfg.RPCEndpoint, contractAddr, signer)
	if err != nil {
		return nil, err
	}

	gateway := oracle.NewClient(logger, cfg.GatewayEndpoint, gatewayTimeout)

	registry, err := metrics.StartMetricsServer(logger, cfg.MetricsPort)
	if err != nil {
		return nil, err
	}

	credStore := credentials.NewFileStore(cfg.CredentialFile)
	manager := credentials.NewManager(
		logger,
		credStore,
		credentials.WithMetrics(metrics.NewCredentialMetrics(registry)),
	)

	session, err := fhepay.NewSession(fhepay.SessionConfig{
		Logger:           logger,
		Context:          &chainContext{contract: contract, signer: signer, resolve: contractFor},
		Contract:         contract,
		Encryptor:        oracle.NewEncryptor(gateway),
		Oracle:           gateway,
		Credentials:      manager,
		CredentialSigner: signer,
		Metrics:          metrics.NewSessionMetrics(registry),
	})
	if err != nil {
		return nil, err
	}
	session.OnStatus(func(msg string) {
		fmt.Println(msg)
	})

	return &app{
		cfg:     cfg,
		logger:  logger,
		signer:  signer,
		session: session,
	}, nil
}

// chainContext adapts the connected client and configuration registry to the
// session's context source. The CLI holds one connection for its lifetime, so
// the ambient context never changes mid-operation here.
type chainContext struct {
	contract *evm.ContractClient
	signer   *evm.TxSigner
	resolve  func(uint64) (common.Address, bool)
}

var _ fhepay.ContextSource = (*chainContext)(nil)

func (c *chainContext) ChainID() uint64 {
	return c.contract.ChainID()
}

func (c *chainContext) Signer() common.Address {
	return c.signer.Address()
}

func (c *chainContext) ContractAddress(chainID uint64) (common.Address, bool) {
	return c.resolve(chainID)
}
