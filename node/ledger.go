package node

import (
	"context"
)

// loggingLedger satisfies the anchor engine's ledger contract in deployments
// where the mainchain credit path is handled out of process. It only records
// the authorization; real token movement happens on the parent chain.
type loggingLedger struct{}

func (loggingLedger) Credit(_ context.Context, account string, amount uint64) error {
	log.WithField("account", account).WithField(
		"amount", amount).Info("Authorized mainchain credit")
	return nil
}
