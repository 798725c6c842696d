package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const consolePrompt = "autopost> "

// NewConsoleCmd создаёт интерактивную консоль.
//
// buildFn собирает команды, доступные в консоли. Все строки выполняются
// против одного Service, поэтому job'ы срабатывают, пока консоль открыта.
// metricsAddrFn даёт адрес /metrics, если флаг --metrics-addr не задан.
func NewConsoleCmd(buildFn func() []*cobra.Command, svcFn ServiceFunc, metricsAddrFn func() string) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Interactive session over one long-running manager",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Открываем Service сразу, чтобы ошибка конфигурации не ждала первой команды
			if _, err := svcFn(); err != nil {
				return err
			}

			ctx := cmd.Context()

			addr := metricsAddr
			if !cmd.Flags().Changed("metrics-addr") && metricsAddrFn != nil {
				addr = metricsAddrFn()
			}

			if addr != "" {
				srv := startMetricsServer(addr, slog.Default())
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			return runConsole(ctx, buildFn, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve /metrics and /healthz on this address (e.g. :9100)")

	return cmd
}

// runConsole читает строки из in и выполняет их как команды до EOF,
// exit/quit или отмены ctx. Ошибка команды печатается и не завершает сессию.
func runConsole(ctx context.Context, buildFn func() []*cobra.Command, in io.Reader, out, errOut io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(errOut, consolePrompt)

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Fprintln(errOut)
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(errOut)
			return nil
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		if err := runLine(ctx, buildFn, line, out, errOut); err != nil {
			fmt.Fprintln(errOut, "Error:", err)
		}
	}
}

// runLine выполняет одну строку консоли на свежем дереве команд.
func runLine(ctx context.Context, buildFn func() []*cobra.Command, line string, out, errOut io.Writer) error {
	args, err := splitArgs(line)
	if err != nil {
		return err
	}

	root := &cobra.Command{
		Use:           "autopost",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(buildFn()...)
	root.SetArgs(args)
	root.SetIn(strings.NewReader(""))
	root.SetOut(out)
	root.SetErr(errOut)

	return root.ExecuteContext(ctx)
}

func newMetricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func startMetricsServer(addr string, logger *slog.Logger) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           newMetricsHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return srv
}
