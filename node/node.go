package node

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/ipswyworld/ouroboros/anchor"
	"github.com/ipswyworld/ouroboros/cmd/guardian/flags"
	"github.com/ipswyworld/ouroboros/db"
	"github.com/ipswyworld/ouroboros/db/kv"
	"github.com/ipswyworld/ouroboros/monitor"
	"github.com/ipswyworld/ouroboros/relay"
	"github.com/ipswyworld/ouroboros/runtime"
)

// GuardianNode assembles the fraud subsystem: the database, the fraud
// monitor, the relay and anchor engines, the background scheduler and the
// monitoring endpoint, all managed through a service registry.
type GuardianNode struct {
	cliCtx   *cli.Context
	ctx      context.Context
	cancel   context.CancelFunc
	lock     sync.RWMutex
	services *runtime.ServiceRegistry
	stop     chan struct{} // Channel to wait for termination notifications.
	db       db.Database
}

// NewGuardianNode creates a node instance, opens the database and registers
// every required service.
func NewGuardianNode(cliCtx *cli.Context) (*GuardianNode, error) {
	registry := runtime.NewServiceRegistry()
	ctx, cancel := context.WithCancel(cliCtx.Context)
	n := &GuardianNode{
		cliCtx:   cliCtx,
		ctx:      ctx,
		cancel:   cancel,
		services: registry,
		stop:     make(chan struct{}),
	}

	if err := n.startDB(); err != nil {
		cancel()
		return nil, err
	}
	if err := n.registerServices(); err != nil {
		cancel()
		return nil, err
	}
	return n, nil
}

func (n *GuardianNode) startDB() error {
	dataDir := n.cliCtx.String(flags.DataDirFlag.Name)
	d, err := db.NewDB(dataDir, &kv.Config{})
	if err != nil {
		return err
	}
	if n.cliCtx.Bool(flags.ClearDBFlag.Name) {
		log.Warn("Removing database")
		if err := d.ClearDB(); err != nil {
			return err
		}
		if err := d.Close(); err != nil {
			return err
		}
		d, err = db.NewDB(dataDir, &kv.Config{})
		if err != nil {
			return err
		}
	}
	log.WithField("path", dataDir).Info("Database opened")
	n.db = d
	return nil
}

func (n *GuardianNode) registerServices() error {
	monitorSvc, err := monitor.New(n.ctx, &monitor.ServiceConfig{Database: n.db})
	if err != nil {
		return err
	}
	if err := n.services.RegisterService(monitorSvc); err != nil {
		return err
	}

	notifier := &enforcer{monitor: monitorSvc}

	relaySvc, err := relay.New(n.ctx, &relay.ServiceConfig{
		Database: n.db,
		Monitor:  notifier,
	})
	if err != nil {
		return err
	}
	if err := n.services.RegisterService(relaySvc); err != nil {
		return err
	}

	anchorSvc, err := anchor.New(n.ctx, &anchor.ServiceConfig{
		Database: n.db,
		Monitor:  notifier,
		Ledger:   loggingLedger{},
	})
	if err != nil {
		return err
	}
	if err := n.services.RegisterService(anchorSvc); err != nil {
		return err
	}

	scheduler := NewScheduler(n.ctx, n.db, relaySvc, anchorSvc, nil)
	if err := n.services.RegisterService(scheduler); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d",
		n.cliCtx.String(flags.MonitoringHostFlag.Name),
		n.cliCtx.Int(flags.MonitoringPortFlag.Name),
	)
	return n.services.RegisterService(newMonitoringService(addr, n.services))
}

// Start the guardian node and kick off every registered service.
func (n *GuardianNode) Start() {
	n.lock.Lock()
	n.services.StartAll()
	n.lock.Unlock()
	log.Info("Guardian node started")

	stop := n.stop
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigc)
		<-sigc
		log.Info("Got interrupt, shutting down...")
		go n.Close()
		for i := 10; i > 0; i-- {
			<-sigc
			if i > 1 {
				log.WithField("times", i-1).Info("Already shutting down, interrupt more to panic")
			}
		}
		panic("Panic closing the guardian node")
	}()

	// Wait for stop channel to be closed.
	<-stop
}

// Close handles graceful shutdown of the node.
func (n *GuardianNode) Close() {
	n.lock.Lock()
	defer n.lock.Unlock()

	log.Info("Stopping guardian node")
	n.services.StopAll()
	n.cancel()
	if err := n.db.Close(); err != nil {
		log.WithError(err).Error("Failed to close database")
	}
	close(n.stop)
}
