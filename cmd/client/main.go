package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rusteroids/internal/auth"
	"rusteroids/internal/client"
	"rusteroids/internal/world"
)

func main() {
	addr := flag.String("url", "ws://localhost:8080/ws", "Server WebSocket URL")
	name := flag.String("name", "pilot", "Player name")
	style := flag.Uint("style", 0, "Ship style bits (0-255)")
	color := flag.String("color", "#ffffff", "Ship color as #rrggbb")
	password := flag.String("password", "", "Server password, if the server has one")
	token := flag.String("token", "", "Connect token, if the server requires one")
	tick := flag.Duration("tick", time.Second/60, "Client tick")
	statsEvery := flag.Duration("stats", 5*time.Second, "How often to log replica stats (0 disables)")
	idle := flag.Bool("idle", false, "Send no inputs")
	flag.Parse()

	c, err := parseColor(*color)
	if err != nil {
		log.Fatalf("color: %v", err)
	}
	if *style > 255 {
		log.Fatalf("style must be 0-255, got %d", *style)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	target := *addr
	if *token != "" {
		u, err := url.Parse(target)
		if err != nil {
			log.Fatalf("url: %v", err)
		}
		q := u.Query()
		q.Set(auth.TokenParam, *token)
		u.RawQuery = q.Encode()
		target = u.String()
	}
	header := http.Header{}
	if *password != "" {
		header.Set(auth.PasswordHeader, *password)
	}

	data := world.ClientData{Name: *name, Style: world.Style(*style), Color: c}
	conn, err := client.Dial(ctx, target, data, header)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Connected to %s as %q", *addr, *name)

	cl := client.New(conn, *tick)
	if !*idle {
		cl.Pilot = circle
	}
	cl.Chat = readChat(ctx)

	var lastStats time.Time
	cl.OnTick = func(r *client.Replica) {
		if *statsEvery <= 0 || time.Since(lastStats) < *statsEvery {
			return
		}
		lastStats = time.Now()
		st := r.Stats()
		if ship, ok := r.Ship(); ok {
			log.Printf("tick %d: %d objects, %d puppets, %d players, ship at (%.0f, %.0f)",
				st.Tick, st.Objects, st.Puppets, st.Clients,
				ship.Transform.Translation.X, ship.Transform.Translation.Y)
		} else {
			log.Printf("tick %d: %d objects, %d puppets, %d players",
				st.Tick, st.Objects, st.Puppets, st.Clients)
		}
	}

	if err := cl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
	log.Println("Disconnected")
}

// circle flies a slow loop and fires in bursts
func circle(_ *client.Replica, now time.Duration) world.Controls {
	t := now.Seconds()
	return world.Controls{
		Up:             true,
		RotationTarget: math.Mod(t*0.8, 2*math.Pi),
		Fire:           math.Mod(t, 2) < 0.5,
	}
}

// readChat forwards stdin lines until stdin closes
func readChat(ctx context.Context) <-chan string {
	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			if sc.Text() == "" {
				continue
			}
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func parseColor(s string) (world.Color, error) {
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return world.Color{}, fmt.Errorf("%q is not #rrggbb: %w", s, err)
	}
	return world.RGB(r, g, b), nil
}
