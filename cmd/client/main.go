package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/HMasataka/relay/internal/logging"
	"github.com/HMasataka/relay/pkg/chatclient"
	"github.com/HMasataka/relay/pkg/domain"
)

const usage = `commands:
  /name <username>   rejoin under a new name
  /send <path>       send a file as media
  /quit              leave
anything else is sent as a message`

func main() {
	var (
		serverAddr = flag.String("server", "ws://localhost:8080/ws", "relay server URL")
		username   = flag.String("name", "", "display name (required)")
		logLevel   = flag.String("log-level", "warn", "log level (debug, info, warn, error)")
	)
	flag.Parse()

	if *username == "" {
		log.Fatal("-name is required")
	}

	logger := logging.New(logging.Config{
		Level:  *logLevel,
		Format: "text",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	options := chatclient.DefaultOptions()
	options.Logger = logger

	client, err := chatclient.Dial(dialCtx, *serverAddr, options)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	if err := client.Join(*username); err != nil {
		log.Fatalf("failed to join: %v", err)
	}

	fmt.Println(usage)

	go printEvents(client, stop)
	go readInput(client, stop)

	<-ctx.Done()
}

func readInput(client *chatclient.Client, stop context.CancelFunc) {
	defer stop()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var err error
		switch cmd, arg, _ := strings.Cut(line, " "); cmd {
		case "/quit":
			return
		case "/name":
			err = client.Join(strings.TrimSpace(arg))
		case "/send":
			err = client.SendFile(strings.TrimSpace(arg))
		default:
			err = client.SendText(line)
		}

		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

func printEvents(client *chatclient.Client, stop context.CancelFunc) {
	defer stop()

	for event := range client.Events() {
		switch e := event.(type) {
		case domain.RosterUpdate:
			fmt.Printf("* online: %s\n", strings.Join(e.Usernames, ", "))
		case domain.ChatMessage:
			fmt.Printf("<%s> %s\n", e.Username, e.Text)
		case domain.MediaMessage:
			fmt.Printf("<%s> [%s, %d bytes]\n", e.Username, e.ContentType, len(e.Data))
		case domain.ErrorNotice:
			fmt.Printf("! %s\n", e.Message)
		}
	}
	fmt.Println("* disconnected")
}
