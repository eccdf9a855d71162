// gallery-cli — консольный клиент API галереи поверх pkg/client.
// Сессия живёт в ~/.fractal-gallery/session.json и выживает между
// запусками: при истёкшем access клиент сам делает refresh.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/xela07ax/fractal-gallery/pkg/client"
)

func main() {
	baseURL := flag.String("url", envOr("GALLERY_URL", "http://localhost:8080"), "API base URL")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("home dir: %v", err)
	}
	store := client.NewFileStore(filepath.Join(home, ".fractal-gallery", "session.json"))

	c, err := client.New(*baseURL, store)
	if err != nil {
		log.Fatalf("init client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, c, args); err != nil {
		if errors.Is(err, client.ErrSessionExpired) {
			log.Fatal("session expired, login again")
		}
		log.Fatal(err)
	}
}

func run(ctx context.Context, c *client.Client, args []string) error {
	switch cmd := args[0]; cmd {
	case "whoami":
		user, err := c.FetchUser(ctx)
		if err != nil {
			return err
		}
		return printJSON(user)

	case "login":
		if len(args) != 3 {
			return errors.New("usage: login <login> <password>")
		}
		user, err := c.Login(ctx, args[1], args[2])
		if err != nil {
			return err
		}
		return printJSON(user)

	case "register":
		if len(args) != 3 {
			return errors.New("usage: register <login> <password>")
		}
		user, err := c.Register(ctx, client.RegisterRequest{
			Login: args[1], Password: args[2],
		})
		if err != nil {
			return err
		}
		fmt.Println("registered, now login")
		return printJSON(user)

	case "logout":
		return c.Logout()

	case "gallery":
		page, err := c.Gallery(ctx, 1, 10)
		if err != nil {
			return err
		}
		return printJSON(page)

	case "like":
		if len(args) != 2 {
			return errors.New("usage: like <gallery-id>")
		}
		var id int64
		if _, err := fmt.Sscanf(args[1], "%d", &id); err != nil {
			return fmt.Errorf("bad gallery id %q", args[1])
		}
		g, err := c.LikeGallery(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(g)

	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: gallery-cli [-url <base>] <command>

commands:
  whoami                  current user (bootstraps anonymous session)
  login <login> <pass>    authenticate and store session
  register <login> <pass> create account
  logout                  drop stored session
  gallery                 list first page of the gallery
  like <id>               toggle like on a gallery record`)
}
