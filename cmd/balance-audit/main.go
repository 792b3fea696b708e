// balance-audit recomputes debtor, creditor and bank balances from the
// underlying documents and reports any drift against the stored values.
// With -repair the stored balances are corrected in place.
//
// Usage (from backend directory):
//   go run ./cmd/balance-audit                     # audit every business
//   go run ./cmd/balance-audit -business-id <uuid> # audit one business
//   go run ./cmd/balance-audit -repair             # audit and fix
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/arthosutra/accubooks_backend/config"
	"github.com/arthosutra/accubooks_backend/workflow"
)

func main() {
	businessId := flag.String("business-id", "", "Optional: audit only one business (uuid string). If empty, audits all businesses.")
	repair := flag.Bool("repair", false, "Repair drifted balances instead of only reporting them")
	flag.Parse()

	ctx := context.Background()
	logger := config.GetLogger()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	var output interface{}
	if *businessId != "" {
		report, err := workflow.AuditBalances(ctx, logger, *businessId, *repair)
		if err != nil {
			fmt.Fprintf(os.Stderr, "audit failed: %v\n", err)
			os.Exit(1)
		}
		output = report
	} else {
		reports, err := workflow.AuditAllBusinesses(ctx, logger, *repair)
		if err != nil {
			fmt.Fprintf(os.Stderr, "audit failed: %v\n", err)
			os.Exit(1)
		}
		output = reports
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(output); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode report: %v\n", err)
		os.Exit(1)
	}
}
