package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	httpadapter "github.com/lexvn/legal-assistant/internal/adapters/http"
	"github.com/lexvn/legal-assistant/internal/bootstrap"
	"github.com/lexvn/legal-assistant/internal/config"
	"github.com/lexvn/legal-assistant/internal/core/domain"
	"github.com/lexvn/legal-assistant/internal/observability/logging"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "ask",
		Usage:     "Ask the legal assistant a question and stream the answer",
		ArgsUsage: "<question>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "Pipeline mode (AUTO, LAW_DB, WEB, HYBRID)",
				Value:   string(domain.ModeAuto),
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print raw NDJSON events",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
		},
		Action: askCommand,
	}
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return errors.New("question is required")
	}
	mode, err := domain.ParsePipelineMode(c.String("mode"))
	if err != nil {
		return err
	}

	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(os.Stderr, "ask", c.String("log-level"), "text")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	printer := newEventPrinter(os.Stdout, os.Stderr, c.Bool("json"))
	_, err = app.Chat.Stream(ctx, domain.ChatRequest{Message: question, Mode: mode}, printer.print)
	return err
}

// eventPrinter renders events for a terminal: the answer on out, progress
// and sources on status. In JSON mode every event goes to out as one line.
type eventPrinter struct {
	out    io.Writer
	status io.Writer
	enc    *json.Encoder
}

func newEventPrinter(out, status io.Writer, raw bool) *eventPrinter {
	p := &eventPrinter{out: out, status: status}
	if raw {
		p.enc = json.NewEncoder(out)
	}
	return p
}

func (p *eventPrinter) print(event domain.Event) error {
	if p.enc != nil {
		return p.enc.Encode(httpadapter.WireEvent(event))
	}

	var err error
	switch event.Type {
	case domain.EventStatus:
		_, err = fmt.Fprintf(p.status, "… %s\n", event.Text)
	case domain.EventWarning:
		_, err = fmt.Fprintf(p.status, "! %s\n", event.Text)
	case domain.EventError:
		_, err = fmt.Fprintf(p.status, "error: %s\n", event.Text)
	case domain.EventContent:
		_, err = io.WriteString(p.out, event.Text)
	case domain.EventSources:
		if len(event.Documents) > 0 {
			_, err = fmt.Fprintf(p.status, "… %d sources\n", len(event.Documents))
		}
	case domain.EventUsedDocs:
		_, err = io.WriteString(p.out, formatUsedDocs(event.Documents))
	}
	return err
}

func formatUsedDocs(docs []domain.CandidateDocument) string {
	var b strings.Builder
	b.WriteString("\n\nNguồn tham khảo:\n")
	for i, doc := range docs {
		label := doc.Title
		if label == "" {
			label = doc.ID
		}
		fmt.Fprintf(&b, "%d. %s", i+1, label)
		if doc.URL != "" {
			fmt.Fprintf(&b, " (%s)", doc.URL)
		} else if doc.ID != "" && doc.ID != label {
			fmt.Fprintf(&b, " [%s]", doc.ID)
		}
		b.WriteString("\n")
	}
	return b.String()
}
