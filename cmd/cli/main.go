package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"cardvault/internal/auth"
	"cardvault/pkg/utils"
)

const defaultBaseURL = "http://localhost:8080"

func main() {
	global := flag.NewFlagSet("cardvault", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "cache server base URL")
	eventAddr := global.String("events", "127.0.0.1:7071", "TCP event server address")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}

	client := &http.Client{Timeout: 15 * time.Second}

	switch cmd {
	case "cards":
		handleCards(ctx, client, *baseURL, sub, args[2:])
	case "sets":
		var out any
		if err := doJSON(ctx, client, http.MethodGet, *baseURL+"/sets", "", nil, &out); err != nil {
			log.Fatalf("sets failed: %v", err)
		}
		printJSON(out)
	case "stats":
		var out any
		if err := doJSON(ctx, client, http.MethodGet, *baseURL+"/stats", "", nil, &out); err != nil {
			log.Fatalf("stats failed: %v", err)
		}
		printJSON(out)
	case "epoch":
		var out any
		if err := doJSON(ctx, client, http.MethodGet, *baseURL+"/epoch", "", nil, &out); err != nil {
			log.Fatalf("epoch failed: %v", err)
		}
		printJSON(out)
	case "sync":
		handleSync(ctx, client, *baseURL, *eventAddr, sub, args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleCards(ctx context.Context, client *http.Client, baseURL, sub string, args []string) {
	switch sub {
	case "lookup", "resolve":
		fs := flag.NewFlagSet("cards "+sub, flag.ExitOnError)
		set := fs.String("set", "", "set code")
		cn := fs.String("cn", "", "collector number")
		name := fs.String("name", "", "card name hint")
		_ = fs.Parse(args)

		u := fmt.Sprintf("%s/cards/%s?set=%s&cn=%s&name=%s",
			baseURL, sub, url.QueryEscape(*set), url.QueryEscape(*cn), url.QueryEscape(*name))
		var out any
		if err := doJSON(ctx, client, http.MethodGet, u, "", nil, &out); err != nil {
			log.Fatalf("%s failed: %v", sub, err)
		}
		printJSON(out)
	case "search":
		fs := flag.NewFlagSet("cards search", flag.ExitOnError)
		q := fs.String("q", "", "name query")
		set := fs.String("set", "", "restrict to set code")
		limit := fs.Int("limit", 25, "page size")
		offset := fs.Int("offset", 0, "page offset")
		_ = fs.Parse(args)

		u := fmt.Sprintf("%s/cards/search?q=%s&set=%s&limit=%d&offset=%d",
			baseURL, url.QueryEscape(*q), url.QueryEscape(*set), *limit, *offset)
		var out any
		if err := doJSON(ctx, client, http.MethodGet, u, "", nil, &out); err != nil {
			log.Fatalf("search failed: %v", err)
		}
		printJSON(out)
	case "rulings":
		fs := flag.NewFlagSet("cards rulings", flag.ExitOnError)
		oracleID := fs.String("oracle", "", "oracle id")
		_ = fs.Parse(args)
		if *oracleID == "" {
			log.Fatal("oracle id is required")
		}

		var out any
		u := baseURL + "/cards/oracle/" + url.PathEscape(*oracleID) + "/rulings"
		if err := doJSON(ctx, client, http.MethodGet, u, "", nil, &out); err != nil {
			log.Fatalf("rulings failed: %v", err)
		}
		printJSON(out)
	case "live":
		fs := flag.NewFlagSet("cards live", flag.ExitOnError)
		set := fs.String("set", "", "set code")
		cn := fs.String("cn", "", "collector number")
		name := fs.String("name", "", "card name hint")
		_ = fs.Parse(args)

		u := fmt.Sprintf("%s/cards/live?set=%s&cn=%s&name=%s",
			baseURL, url.QueryEscape(*set), url.QueryEscape(*cn), url.QueryEscape(*name))
		var out any
		if err := doJSON(ctx, client, http.MethodGet, u, "", nil, &out); err != nil {
			log.Fatalf("live lookup failed: %v", err)
		}
		printJSON(out)
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleSync(ctx context.Context, client *http.Client, baseURL, eventAddr, sub string, args []string) {
	switch sub {
	case "trigger":
		fs := flag.NewFlagSet("sync trigger", flag.ExitOnError)
		kind := fs.String("kind", "default_cards", "dataset kind")
		force := fs.Bool("force", false, "ignore remote etag")
		_ = fs.Parse(args)

		u := fmt.Sprintf("%s/sync?kind=%s&force=%v", baseURL, url.QueryEscape(*kind), *force)
		var out any
		if err := doJSON(ctx, client, http.MethodPost, u, mintToken(), nil, &out); err != nil {
			log.Fatalf("sync failed: %v", err)
		}
		printJSON(out)
	case "watch":
		wsURL, err := websocketURL(baseURL, "/ws")
		if err != nil {
			log.Fatalf("bad base URL: %v", err)
		}
		for {
			if err := runWebSocket(wsURL); err != nil {
				log.Printf("[watch] disconnected: %v", err)
			}
			time.Sleep(1 * time.Second)
		}
	case "listen":
		for {
			if err := runTCPListen(eventAddr); err != nil {
				log.Printf("[listen] disconnected: %v", err)
			}
			time.Sleep(1 * time.Second)
		}
	default:
		printUsage()
		os.Exit(1)
	}
}

// mintToken signs a short-lived admin token from the shared secret, so
// the CLI works against a local cache without a login flow.
func mintToken() string {
	cfg := utils.LoadAuthConfig()
	svc := auth.TokenService{
		Secret:   []byte(cfg.Secret),
		Issuer:   cfg.Issuer,
		Duration: 5 * time.Minute,
	}
	tok, _, err := svc.Sign("cardvault-cli")
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	return tok
}

func runWebSocket(wsURL string) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("[watch] connected to %s", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		prettyPrintLine(msg)
	}
}

func runTCPListen(addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[listen] connected to %s", addr)
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		prettyPrintLine(sc.Bytes())
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

func prettyPrintLine(line []byte) {
	var obj map[string]any
	if err := json.Unmarshal(line, &obj); err != nil {
		fmt.Println(string(line))
		return
	}
	b, _ := json.MarshalIndent(obj, "", "  ")
	fmt.Println(string(b))
}

func doJSON(ctx context.Context, client *http.Client, method, endpoint, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("json: %v", err)
	}
	fmt.Println(string(b))
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}

func printUsage() {
	fmt.Println("cardvault <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  cards lookup|resolve|search|rulings|live")
	fmt.Println("  sets")
	fmt.Println("  stats")
	fmt.Println("  epoch")
	fmt.Println("  sync trigger|watch|listen")
}
