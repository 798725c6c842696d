// Autopost — публикация постов по расписанию с автоудалением.
//
// Использование:
//
//	autopost [--config FILE] [--json] <command> [flags]
//
// Команды:
//
//	publish   Опубликовать пост сейчас
//	schedule  Запланировать пост
//	delete    Удалить пост
//	show      Показать пост
//	list      Список постов
//	jobs      Ожидающие job'ы
//	now       Текущее время в канонической зоне
//	convert   Перевести время в каноническую зону
//	console   Интерактивная сессия
//	events    Читать события из RabbitMQ
//
// Job'ы живут в памяти процесса: для срабатывания отложенных действий
// используйте --wait или console.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/shaiso/Autopost/internal/autopost"
	"github.com/shaiso/Autopost/internal/cli"
	"github.com/shaiso/Autopost/internal/config"
	"github.com/shaiso/Autopost/internal/mq"
	"github.com/shaiso/Autopost/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	// .env необязателен: без него используются переменные окружения
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var configPath string
	var jsonOutput bool

	app := &app{}

	rootCmd := &cobra.Command{
		Use:           "autopost",
		Short:         "Autopost — timed post publication",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(configPath)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (YAML, TOML or JSON)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	outputFn := cli.CommandOutput(func() bool { return jsonOutput })

	buildFn := func() []*cobra.Command {
		cmds := cli.NewPostCmds(app.service, outputFn)
		cmds = append(cmds, cli.NewJobsCmd(app.service, outputFn))
		cmds = append(cmds, cli.NewTimeCmds(app.service, outputFn)...)
		return cmds
	}

	rootCmd.AddCommand(buildFn()...)
	rootCmd.AddCommand(
		cli.NewConsoleCmd(buildFn, app.service, app.metricsAddr),
		cli.NewEventsCmd(app.dialMQ, outputFn),
	)

	err := rootCmd.ExecuteContext(ctx)

	if closeErr := app.close(); closeErr != nil && err == nil {
		err = closeErr
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app лениво создаёт Manager и соединение с RabbitMQ для команд.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	mgr  *autopost.Manager
	conn *mq.Connection
}

func (a *app) init(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = telemetry.SetupLogger(cfg.Log.Level, cfg.Log.Format)
	return nil
}

// service открывает Manager при первом обращении.
func (a *app) service() (cli.Service, error) {
	if a.mgr != nil {
		return a.mgr, nil
	}

	notifier, err := a.notifier()
	if err != nil {
		return nil, err
	}

	mgr, err := autopost.New(autopost.Config{
		StoragePath:             a.cfg.StoragePath,
		CanonicalZone:           a.cfg.CanonicalZone,
		DefaultDeleteAfterHours: a.cfg.DefaultDeleteAfter(),
		Notifier:                notifier,
		Logger:                  a.logger,
	})
	if err != nil {
		return nil, err
	}

	a.mgr = mgr
	return mgr, nil
}

// notifier собирает Notifier: лог всегда, RabbitMQ — если задан notify.amqp_url.
func (a *app) notifier() (autopost.Notifier, error) {
	logNotifier := autopost.LogNotifier{Logger: a.logger}
	if !a.cfg.NotifyEnabled() {
		return logNotifier, nil
	}

	conn, err := a.dialMQ()
	if err != nil {
		return nil, fmt.Errorf("connect notifier: %w", err)
	}

	if err := mq.SetupTopology(conn); err != nil {
		return nil, fmt.Errorf("setup topology: %w", err)
	}
	a.logger.Debug("amqp topology declared", "topology", mq.TopologyInfo())

	publisher := mq.NewPublisher(conn, mq.PublisherConfig{
		Exchange: mq.Exchange(a.cfg.Notify.Exchange),
		Logger:   a.logger,
	})

	return autopost.MultiNotifier{logNotifier, mq.NewNotifier(publisher)}, nil
}

func (a *app) dialMQ() (*mq.Connection, error) {
	if a.conn != nil {
		return a.conn, nil
	}

	conn, err := mq.Dial(mq.ConnectionConfig{
		URL:    a.cfg.Notify.AMQPURL,
		Logger: a.logger,
	})
	if err != nil {
		return nil, err
	}

	a.conn = conn
	return conn, nil
}

func (a *app) metricsAddr() string {
	if a.cfg == nil {
		return ""
	}
	return a.cfg.MetricsAddr
}

// close останавливает Manager и закрывает соединение с RabbitMQ.
func (a *app) close() error {
	var err error
	if a.mgr != nil {
		err = a.mgr.Shutdown()
	}
	if a.conn != nil {
		_ = a.conn.Close()
	}
	return err
}
