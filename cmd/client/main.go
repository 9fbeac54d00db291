package main

import (
	"bufio"
	"chat-presence/client"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const broadcastTarget = "Todos"

// Config defines the client-side environment variables.
type Config struct {
	ServerURL         string        `envconfig:"CHAT_SERVER_URL" default:"http://localhost:5000"`
	Name              string        `envconfig:"CHAT_NAME" required:"true"`
	HeartbeatInterval time.Duration `envconfig:"CHAT_HEARTBEAT_INTERVAL" default:"5s"`
	PollInterval      time.Duration `envconfig:"CHAT_POLL_INTERVAL" default:"3s"`
	HistoryLimit      int           `envconfig:"CHAT_HISTORY_LIMIT" default:"100"`
	RequestTimeout    time.Duration `envconfig:"CHAT_REQUEST_TIMEOUT" default:"5s"`
	Colours           bool          `envconfig:"CHAT_COLOURS" default:"true"`
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"WARN"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run joins the room, keeps the participant alive and prints every new message.
// Lines typed on stdin are broadcast, or sent privately with "@name text".
func run() (int, error) {
	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	color.Enable = config.Colours

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(config.ServerURL, config.RequestTimeout)
	if err := c.Join(ctx, config.Name); err != nil {
		return exitRuntime, fmt.Errorf("could not join as %s: %w", config.Name, err)
	}
	color.Green.Printf(">>> Joined %s as %s (Ctrl+C to quit)\n", config.ServerURL, config.Name)

	go heartbeat(ctx, log, c, config)
	go readInput(ctx, log, c, config.Name)

	printer := newPrinter()
	poll := time.NewTicker(config.PollInterval)
	defer poll.Stop()
	for {
		messages, err := c.Messages(ctx, config.Name, config.HistoryLimit)
		if err != nil && ctx.Err() == nil {
			log.Warn("Unable to fetch messages", "error", err)
		}
		printer.print(messages)

		select {
		case <-ctx.Done():
			color.Gray.Println("Stopping client...")
			return exitOK, nil
		case <-poll.C:
		}
	}
}

func heartbeat(ctx context.Context, log *slog.Logger, c *client.Client, config Config) {
	ticker := time.NewTicker(config.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := c.Heartbeat(ctx, config.Name)
			if client.IsStatus(err, http.StatusNotFound) {
				// Evicted while away: join again under the same name
				log.Warn("Participant evicted, joining again", "name", config.Name)
				err = c.Join(ctx, config.Name)
			}
			if err != nil && ctx.Err() == nil {
				log.Warn("Heartbeat failed", "error", err)
			}
		}
	}
}

func readInput(ctx context.Context, log *slog.Logger, c *client.Client, name string) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		to, text, kind := parseLine(scanner.Text())
		if text == "" {
			continue
		}
		if _, err := c.Post(ctx, name, to, text, kind); err != nil {
			log.Warn("Unable to post message", "error", err)
		}
	}
}

// parseLine turns "@bob hi" into a private message to bob and anything else into a broadcast.
func parseLine(line string) (string, string, string) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "@") {
		to, text, _ := strings.Cut(line[1:], " ")
		return to, strings.TrimSpace(text), "private_message"
	}
	return broadcastTarget, line, "message"
}

// printer remembers what was already displayed between polls.
type printer struct {
	seen map[string]client.Message
}

func newPrinter() *printer {
	return &printer{seen: make(map[string]client.Message)}
}

func (p *printer) print(messages []client.Message) {
	for _, m := range messages {
		if previous, ok := p.seen[m.ID]; ok && previous == m {
			continue
		}
		_, edited := p.seen[m.ID]
		p.seen[m.ID] = m
		fmt.Println(p.render(m, edited))
	}
}

func (p *printer) render(m client.Message, edited bool) string {
	prefix := color.Gray.Sprintf("(%s)", m.Time)
	suffix := ""
	if edited {
		suffix = color.Gray.Sprint(" (edited)")
	}
	switch m.Type {
	case "status":
		return fmt.Sprintf("%s %s", prefix, color.Yellow.Sprintf("%s %s", m.From, m.Text))
	case "private_message":
		return fmt.Sprintf("%s %s %s%s", prefix,
			color.Magenta.Sprintf("%s to %s (private):", m.From, m.To), m.Text, suffix)
	default:
		return fmt.Sprintf("%s %s %s%s", prefix,
			color.Cyan.Sprintf("%s to %s:", m.From, m.To), m.Text, suffix)
	}
}
