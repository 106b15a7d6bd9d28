// Package flags defines the command line flags of the guardian node.
package flags

import (
	"github.com/urfave/cli/v2"
)

var (
	// DataDirFlag sets the directory holding the guardian database.
	DataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for the guardian database",
		Value: "./guardian-data",
	}
	// VerbosityFlag sets the logging level.
	VerbosityFlag = &cli.StringFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity (trace, debug, info, warn, error, fatal, panic)",
		Value: "info",
	}
	// MonitoringHostFlag sets the host of the metrics endpoint.
	MonitoringHostFlag = &cli.StringFlag{
		Name:  "monitoring-host",
		Usage: "Host used for the prometheus and health endpoints",
		Value: "127.0.0.1",
	}
	// MonitoringPortFlag sets the port of the metrics endpoint.
	MonitoringPortFlag = &cli.IntFlag{
		Name:  "monitoring-port",
		Usage: "Port used for the prometheus and health endpoints",
		Value: 8081,
	}
	// ClearDBFlag wipes the database on startup.
	ClearDBFlag = &cli.BoolFlag{
		Name:  "clear-db",
		Usage: "Clears any previously stored data at the data directory",
	}
	// LogFileFlag writes logs to the given file as well as stdout.
	LogFileFlag = &cli.StringFlag{
		Name:  "log-file",
		Usage: "Write log output to the given file",
	}
)
