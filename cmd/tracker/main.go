package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Spok95/school-attendance/internal/appstate"
	"github.com/Spok95/school-attendance/internal/config"
	"github.com/Spok95/school-attendance/internal/logging"
	"github.com/Spok95/school-attendance/internal/observability"
	"github.com/Spok95/school-attendance/internal/remote"
	"github.com/Spok95/school-attendance/internal/store"
	"github.com/Spok95/school-attendance/internal/syncer"
)

const usage = `uso: tracker <comando> [flags]

comandos:
  serve    sincroniza, monitora a conexão, envia o resumo e expõe /healthz, /status, /metrics
  pull     baixa os dados da planilha e substitui os locais (se houver turmas)
  push     envia todos os dados locais para a planilha
  drain    envia a fila de alterações pendentes
  status   fila de sincronização e resumo
  mark     registra frequência: -class -date -lesson -status [-student]
  import   importa protagonistas: -class <id> <arquivo|->
  report   relatório: [-class] [-bimester] [-level] [-situation] [-out arquivo.xlsx]
`

// env — собранные зависимости одного запуска.
type env struct {
	cfg    *config.Config
	log    *logging.Log
	store  *store.Store
	remote *remote.Client // nil без REMOTE_URL
	sync   *syncer.Coordinator
	state  *appstate.State
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err := run(os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "erro:", err)
		os.Exit(1)
	}
}

func run(cmd string, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer lg.Closer()

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, "")
	if err != nil {
		lg.Base.Warn("sentry init failed", zap.Error(err))
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands := map[string]func(context.Context, *env, []string) error{
		"serve":  cmdServe,
		"pull":   cmdPull,
		"push":   cmdPush,
		"drain":  cmdDrain,
		"status": cmdStatus,
		"mark":   cmdMark,
		"import": cmdImport,
		"report": cmdReport,
	}
	fn, ok := commands[cmd]
	if !ok {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("comando desconhecido %q", cmd)
	}

	e, err := open(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer e.close()

	return fn(ctx, e, args)
}

func open(ctx context.Context, cfg *config.Config, lg *logging.Log) (*env, error) {
	st, err := store.Open(ctx, cfg.DataPath, lg.Named("store"))
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, log: lg, store: st}

	var (
		sc appstate.Syncer
		rf appstate.Fetcher
	)
	if cfg.RemoteURL != "" {
		e.remote = remote.New(cfg.RemoteURL, cfg.RemoteTimeout, lg.Named("remote"))
		e.sync = syncer.New(st, e.remote, lg.Named("syncer"))
		sc, rf = e.sync, e.remote
	} else {
		lg.Base.Info("REMOTE_URL not set, working offline only")
	}

	e.state = appstate.New(st, sc, rf, lg.Named("state"), appstate.Options{
		SeedSample:   cfg.SeedSample,
		OnSyncResult: e.syncResult,
	})
	if err := e.state.Refresh(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return e, nil
}

func (e *env) syncResult(err error) {
	switch {
	case err == nil:
	case errors.Is(err, syncer.ErrQueued):
		fmt.Println("sem conexão: alteração salva localmente, será sincronizada depois")
	default:
		e.log.Base.Error("sync failed", zap.Error(err))
	}
}

// close дожидается фоновых отправок, затем закрывает хранилище.
func (e *env) close() {
	if e.sync != nil {
		e.sync.Wait()
	}
	_ = e.store.Close()
}

func (e *env) requireRemote() error {
	if e.sync == nil {
		return errors.New("REMOTE_URL não configurada")
	}
	return nil
}
