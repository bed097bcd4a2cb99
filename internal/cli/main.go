package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Swapica/twap-indexer-svc/internal/config"
	"github.com/Swapica/twap-indexer-svc/internal/service"
	"github.com/alecthomas/kingpin"
	"github.com/joho/godotenv"
	"gitlab.com/distributed_lab/kit/kv"
	"gitlab.com/distributed_lab/logan/v3"
)

func Run(args []string) bool {
	log := logan.New()

	defer func() {
		if rvr := recover(); rvr != nil {
			log.WithRecover(rvr).Error("app panicked")
		}
	}()

	// .env is optional, real environment wins
	_ = godotenv.Load()

	cfg := config.New(kv.MustFromEnv())
	log = cfg.Log()

	app := kingpin.New("twap-indexer-svc", "")

	runCmd := app.Command("run", "run command")
	serviceCmd := runCmd.Command("service", "run service")
	sweepCmd := runCmd.Command("sweep", "run a single reconciliation sweep")

	migrateCmd := app.Command("migrate", "migrate command")
	migrateUpCmd := migrateCmd.Command("up", "migrate db up")
	migrateDownCmd := migrateCmd.Command("down", "migrate db down")

	ordersCmd := app.Command("orders", "orders command")
	listCmd := ordersCmd.Command("list", "list orders of a maker")
	maker := listCmd.Flag("maker", "maker address").Required().String()
	page := listCmd.Flag("page", "page number").Default("1").Uint64()
	limit := listCmd.Flag("limit", "page size").Default("10").Uint64()

	cmd, err := app.Parse(args[1:])
	if err != nil {
		log.WithError(err).Error("failed to parse arguments")
		return false
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case serviceCmd.FullCommand():
		service.Run(ctx, cfg)
	case sweepCmd.FullCommand():
		err = service.Sweep(ctx, cfg)
	case migrateUpCmd.FullCommand():
		err = MigrateUp(cfg)
	case migrateDownCmd.FullCommand():
		err = MigrateDown(cfg)
	case listCmd.FullCommand():
		err = ListOrders(ctx, cfg, os.Stdout, *maker, *page, *limit)
	default:
		log.Errorf("unknown command %s", cmd)
		return false
	}
	if err != nil {
		log.WithError(err).Error("failed to exec cmd")
		return false
	}
	return true
}
