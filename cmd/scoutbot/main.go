// Package main is the entry point of the ScoutBot service.
// It wires the request governor, starts its background jobs and serves the
// operator API over HTTP and gRPC.
package main

import (
	"context"
	"flag"
	"os"
	"sync"
	"time"

	"ScoutBot/internal/biz"
	"ScoutBot/internal/conf"
	"ScoutBot/internal/feed"
	zapLogger "ScoutBot/pkg/log"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/tracing"
	"github.com/go-kratos/kratos/v2/transport/grpc"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/joho/godotenv"

	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name = "scoutbot"
	// Version is the version of the compiled software.
	Version string
	// flagconf is the config flag.
	flagconf string

	id, _ = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs/config.yaml", "config path, eg: -conf config.yaml")
}

// application bundles the kratos app with the governor parts that run outside
// the request path.
type application struct {
	app     *kratos.App
	store   *biz.OriginStore
	janitor *biz.StatsJanitor
	monitor *biz.BlockingMonitor
	checker *feed.Checker
}

func newApplication(app *kratos.App, store *biz.OriginStore, janitor *biz.StatsJanitor, monitor *biz.BlockingMonitor, checker *feed.Checker) *application {
	return &application{
		app:     app,
		store:   store,
		janitor: janitor,
		monitor: monitor,
		checker: checker,
	}
}

func newApp(logger log.Logger, gs *grpc.Server, hs *http.Server) *kratos.App {
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(
			gs,
			hs,
		),
	)
}

// startBackground runs the janitor loop and the cron jobs. The returned func
// cancels them and blocks until every one of them has returned.
func startBackground(bc *conf.Bootstrap, a *application, logger log.Logger) func() {
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.janitor.Run(ctx)
	}()

	c := StartGovernorCron(ctx, bc, a, logger)

	return func() {
		cancel()
		if c != nil {
			<-c.Stop().Done()
		}
		wg.Wait()
	}
}

func main() {
	flag.Parse()

	// A missing .env file is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	bc, err := conf.NewBootstrap(flagconf)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zapLog, err := zapLogger.NewZapLogger(bc.Log)
	if err != nil {
		log.Fatalf("failed to initialize zap logger: %v", err)
	}
	defer zapLog.Sync()

	logger := zapLogger.NewKratosAdapter(zapLog)
	logger = log.With(logger,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
		"trace.id", tracing.TraceID(),
		"span.id", tracing.SpanID(),
	)
	helper := zapLogger.NewLogHelper(logger)

	helper.Startup("ScoutBot service starting",
		"log.level", bc.Log.Level,
		"log.format", bc.Log.Format,
		"governor.enabled", bc.Governor.Enabled,
		"persist.driver", bc.Data.Persist.Driver,
		"feeds", len(bc.Feeds.URLs),
	)

	a, cleanup, err := wireApp(bc, bc.Server, bc.Data, bc.Janitor, bc.Monitor, bc.Fetch, bc.Feeds, logger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 10*time.Second)
	restored, err := a.store.Load(loadCtx)
	cancelLoad()
	if err != nil {
		helper.Warnw("msg", "failed to restore origin health, starting empty", "error", err)
	} else {
		helper.Success("origin health restored", "origins", restored)
	}

	// Background work must finish before cleanup closes the audit queue and stores.
	stopBackground := startBackground(bc, a, logger)
	defer stopBackground()

	// start and wait for stop signal
	if err := a.app.Run(); err != nil {
		panic(err)
	}
}
