// Command board is the terminal client for the task board API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"taskboard/internal/board"
	"taskboard/internal/config"
	"taskboard/internal/logging"
	"taskboard/internal/service"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := run(ctx, os.Args[1:]); err != nil {
		if ctx.Err() != nil {
			fmt.Fprintf(os.Stderr, "\nInterrupted\n")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("board", flag.ContinueOnError)
	empFlag := fs.String("emp", "", "employee id to sign in as")
	logFile := fs.String("log-file", filepath.Join(os.TempDir(), "taskboard-board.log"), "file receiving client logs")

	cfg, err := config.Load(fs, args)
	if err != nil {
		return err
	}
	if *empFlag == "" {
		return errors.New("an employee id is required (-emp)")
	}
	empID, err := service.ParseEmpID(*empFlag)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer f.Close()
	logger := logging.New(f, cfg.Log.Level, cfg.Log.Format, "board")

	client := board.NewClient(cfg.Board.BaseURL, nil)

	emp, err := client.FindEmployee(ctx, empID)
	if err != nil {
		var apiErr *board.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return fmt.Errorf("no employee with id %d", empID)
		}
		return fmt.Errorf("signing in: %w", err)
	}
	logger.Info("signed in", "empId", emp.EmpID, "name", emp.FullName())

	ctrl := board.NewController(client, emp.EmpID, logger)
	if err := ctrl.Load(ctx); err != nil {
		return fmt.Errorf("loading tasks: %w", err)
	}

	header := fmt.Sprintf("%s (%d)", emp.FullName(), ctrl.EmpID())
	return board.Run(ctx, ctrl, header, tea.WithAltScreen())
}
