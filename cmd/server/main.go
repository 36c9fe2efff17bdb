package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skip2/go-qrcode"

	"rusteroids/internal/auth"
	"rusteroids/internal/config"
	"rusteroids/internal/journal"
	"rusteroids/internal/server"
)

func main() {
	configPath := flag.String("config", "configs/server.yaml", "Path to YAML config (missing file means defaults)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	maxClients := flag.Int("max-clients", 0, "Maximum players (overrides config)")
	journalPath := flag.String("journal", "", "SQLite journal path (overrides config)")
	publicHost := flag.String("public-host", "", "Host:port clients should dial, for the join QR code")
	hashPassword := flag.String("hash-password", "", "Print the bcrypt hash of a server password and exit")
	issueToken := flag.String("issue-token", "", "Print a connect token for a player name and exit")
	tokenTTL := flag.Duration("token-ttl", auth.DefaultTokenTTL, "Lifetime of tokens from -issue-token")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := auth.HashPassword(*hashPassword)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Listen = *addr
		case "max-clients":
			cfg.MaxClients = *maxClients
		case "journal":
			cfg.Journal = *journalPath
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	gate := auth.NewGate(cfg.PasswordHash, cfg.TokenSecret)
	if *issueToken != "" {
		token, err := gate.IssueToken(*issueToken, *tokenTTL)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(token)
		return
	}

	var j *journal.Journal
	if cfg.Journal != "" {
		j, err = journal.Open(cfg.Journal, cfg.Motd)
		if err != nil {
			log.Fatalf("journal: %v", err)
		}
		log.Printf("Journal %s, run %s", cfg.Journal, j.RunID())
	}

	game := server.NewGame(cfg, j, rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)))
	srv := server.New(cfg, game, gate)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	httpServer := &http.Server{Addr: cfg.Listen, Handler: srv.Routes()}

	go func() {
		log.Printf("Server starting on %s", cfg.Listen)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()
	game.Start()
	printJoinCode(publicAddr(*publicHost, cfg.Listen))

	<-stop
	log.Println("Shutting down...")
	game.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	httpServer.Shutdown(ctx)
	if j != nil {
		if dropped := j.Dropped(); dropped > 0 {
			log.Printf("warning: journal dropped %d entries", dropped)
		}
		if err := j.Close(); err != nil {
			log.Printf("journal close: %v", err)
		}
	}
}

func publicAddr(public, listen string) string {
	if public != "" {
		return public
	}
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	if host == "" {
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}

func printJoinCode(host string) {
	url := server.JoinURL(host)
	q, err := qrcode.New(url, qrcode.Low)
	if err != nil {
		log.Printf("warning: join code: %v", err)
		return
	}
	fmt.Print(q.ToSmallString(false))
	log.Printf("Join at %s", url)
}
