package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
	"github.com/vitwit/x402cats"
	"github.com/vitwit/x402cats/config"
	"github.com/vitwit/x402cats/logger"
	"github.com/vitwit/x402cats/metrics"
	"github.com/vitwit/x402cats/mint"
	"github.com/vitwit/x402cats/types"
	"github.com/vitwit/x402cats/utils"
)

const (
	envFileFlag  = "env-file"
	quantityFlag = "quantity"
	yesFlag      = "yes"
)

var (
	app *x402cats.App
	zl  *logger.ZapLogger
)

func setupApp(ctx *cli.Context) error {
	cfg, err := config.Load(ctx.String(envFileFlag))
	if err != nil {
		return err
	}

	zl, err = logger.NewZapLogger(cfg.LogLevel, "x402cats")
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec, err := metrics.NewPrometheusRecorder(reg)
	if err != nil {
		return err
	}

	opts := []x402cats.Option{
		x402cats.WithLogger(zl),
		x402cats.WithMetrics(rec),
		x402cats.WithGatherer(reg),
		x402cats.WithNotifier(mint.NotifierFunc(printStatus)),
	}
	if !ctx.Bool(yesFlag) {
		opts = append(opts, x402cats.WithConfirm(confirmTx))
	}

	app, err = x402cats.New(cfg, opts...)
	return err
}

func teardown(*cli.Context) error {
	if app != nil {
		app.Close()
	}
	if zl != nil {
		_ = zl.Sync()
	}
	return nil
}

func main() {
	cliApp := &cli.App{
		Name:    "x402cats",
		Usage:   "mint Pixel Cats on Base and serve the x402 payment schema",
		Version: x402cats.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  envFileFlag,
				Value: ".env",
				Usage: "load settings from this file when it exists",
			},
			&cli.BoolFlag{
				Name:  yesFlag,
				Usage: "sign transactions without asking",
			},
		},
		Before: setupApp,
		After:  teardown,
		Commands: []*cli.Command{
			serveCmd,
			schemaCmd,
			supplyCmd,
			statusCmd,
			approveCmd,
			mintCmd,
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		printErr(err)
		stop()
		os.Exit(1)
	}
}

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "serve the payment schema and poll the minted count",
	Action: func(ctx *cli.Context) error {
		return app.Serve(ctx.Context)
	},
}

var schemaCmd = &cli.Command{
	Name:  "schema",
	Usage: "print the payment-schema document",
	Action: func(ctx *cli.Context) error {
		out, err := utils.NormalizeJSON(app.Document())
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var supplyCmd = &cli.Command{
	Name:  "supply",
	Usage: "print the minted count",
	Action: func(ctx *cli.Context) error {
		s, err := app.Supply(ctx.Context)
		if err != nil {
			return err
		}
		fmt.Printf("minted: %s (%.1f%%)\n", s.Display(), s.Progress())
		fmt.Printf("next token: #%s\n", s.NextTokenID())
		return nil
	},
}

var statusCmd = &cli.Command{
	Name:  "status",
	Usage: "connect the wallet and print the mint state",
	Action: func(ctx *cli.Context) error {
		if err := app.Connect(ctx.Context); err != nil {
			return err
		}
		snap := app.Controller().Snapshot()

		fmt.Printf("wallet:    %s (chain %d)\n", snap.ShortAddress, snap.ChainID)
		fmt.Printf("minted:    %s\n", snap.Supply)
		fmt.Printf("holding:   %s / %d\n", snap.Balance, snap.MaxPerWallet)
		fmt.Printf("allowance: %s USDC\n", utils.FormatAmountFromBigInt(snap.Allowance, mint.StablecoinDecimals))

		if bal, err := app.StablecoinBalance(ctx.Context); err == nil {
			fmt.Printf("balance:   %s USDC\n", utils.FormatAmountFromBigInt(bal, mint.StablecoinDecimals))
		}
		return nil
	},
}

var quantity = &cli.Int64Flag{
	Name:    quantityFlag,
	Aliases: []string{"q"},
	Value:   1,
	Usage:   "number of NFTs (1-20)",
}

var approveCmd = &cli.Command{
	Name:  "approve",
	Usage: "approve USDC for the given quantity",
	Flags: []cli.Flag{quantity},
	Action: func(ctx *cli.Context) error {
		return app.Approve(ctx.Context, ctx.Int64(quantityFlag))
	},
}

var mintCmd = &cli.Command{
	Name:  "mint",
	Usage: "approve if needed, then mint",
	Flags: []cli.Flag{quantity},
	Action: func(ctx *cli.Context) error {
		if err := app.Mint(ctx.Context, ctx.Int64(quantityFlag)); err != nil {
			return err
		}
		snap := app.Controller().Snapshot()
		fmt.Printf("paid %s, minted %s\n", snap.TotalDisplay, snap.Supply)
		return nil
	},
}

func printStatus(s mint.Status) {
	prefix := "..."
	switch s.Kind {
	case mint.StatusSuccess:
		prefix = "ok"
	case mint.StatusError:
		prefix = "!!"
	}
	fmt.Printf("%s %s\n", prefix, s.Message)
}

func confirmTx(_ context.Context, tx types.TxArgs) bool {
	to := "(contract creation)"
	if tx.To != nil {
		to = tx.To.Hex()
	}
	fmt.Printf("sign transaction to %s with %d bytes of data? [y/N] ", to, len(tx.Data))

	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func printErr(err error) {
	var f *mint.Failure
	if errors.As(err, &f) {
		log.Printf("error: %s", f.Message)
		return
	}
	log.Printf("error: %v", err)
}
