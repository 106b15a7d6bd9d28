// Package main launches the guardian node: the relay fraud engine, the
// anchor challenge engine and the fraud monitor over a shared database,
// driven by a background scheduler.
package main

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/ipswyworld/ouroboros/cmd/guardian/flags"
	"github.com/ipswyworld/ouroboros/node"
)

var log = logrus.WithField("prefix", "main")

var appFlags = []cli.Flag{
	flags.DataDirFlag,
	flags.VerbosityFlag,
	flags.MonitoringHostFlag,
	flags.MonitoringPortFlag,
	flags.ClearDBFlag,
	flags.LogFileFlag,
}

func startNode(cliCtx *cli.Context) error {
	level, err := logrus.ParseLevel(cliCtx.String(flags.VerbosityFlag.Name))
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	n, err := node.NewGuardianNode(cliCtx)
	if err != nil {
		return err
	}
	n.Start()
	return nil
}

func main() {
	app := &cli.App{
		Name:   "guardian",
		Usage:  "fraud proof and challenge engine for optimistic cross-chain relays and microchain state anchors",
		Flags:  appFlags,
		Action: startNode,
		Before: func(ctx *cli.Context) error {
			formatter := new(prefixed.TextFormatter)
			formatter.TimestampFormat = "2006-01-02 15:04:05"
			formatter.FullTimestamp = true
			logFile := ctx.String(flags.LogFileFlag.Name)
			formatter.DisableColors = logFile != ""
			logrus.SetFormatter(formatter)
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return err
				}
				logrus.SetOutput(io.MultiWriter(os.Stdout, f))
			}
			return nil
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}
