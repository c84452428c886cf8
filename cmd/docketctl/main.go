// docketctl is the headless companion to the TUI: it reuses the device's
// cached credential to answer one-shot queries without taking over the
// terminal or the instance lock.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/docketapp/docket/internal/app"
	"github.com/docketapp/docket/internal/config"
	"github.com/docketapp/docket/internal/docstore"
	"github.com/docketapp/docket/internal/docstore/redisdoc"
	"github.com/docketapp/docket/internal/identity"
	"github.com/docketapp/docket/internal/items"
	"github.com/docketapp/docket/internal/localstore"
	"github.com/docketapp/docket/internal/profiles"
	"github.com/docketapp/docket/internal/tui/views"
)

func main() {
	configFlag := flag.String("config", app.ConfigPath(), "path to config file")
	jsonFlag := flag.Bool("json", false, "machine-readable output")
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), *configFlag, *jsonFlag); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: docketctl [flags] <command>

commands:
  status    show the signed-in identity and profile
  items     list the inventory
  link      issue a device-link token and print it as a QR code

flags:`)
	flag.PrintDefaults()
}

func run(command, configPath string, asJSON bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	local, err := localstore.Open(app.DBPath())
	if err != nil {
		return err
	}
	defer local.Close()
	if _, err := local.Migrate(); err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	auth := identity.NewJWTProvider(store, cfg.Auth.Secret,
		time.Duration(cfg.Auth.LinkTokenTTLMinutes)*time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	ident, err := signIn(ctx, local, auth)
	if err != nil {
		return err
	}

	switch command {
	case "status":
		return showStatus(ctx, store, ident, asJSON)
	case "items":
		return listItems(ctx, store, ident, asJSON)
	case "link":
		return issueLink(ctx, auth, asJSON)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func openStore(cfg *config.Config) (docstore.Store, error) {
	if cfg.Backend == "memory" {
		return nil, fmt.Errorf("the memory backend holds no data outside a running docket process")
	}
	return redisdoc.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Namespace, zap.NewNop())
}

// signIn redeems the device's cached credential. docketctl never prompts;
// establishing an identity is the TUI's job.
func signIn(ctx context.Context, local *localstore.DB, auth identity.Provider) (identity.Identity, error) {
	token, err := local.Credential()
	if err != nil {
		return identity.Identity{}, err
	}
	if token == "" {
		return identity.Identity{}, fmt.Errorf("no cached credential, sign in with docket first")
	}
	ident, _, err := auth.SignInWithToken(ctx, token)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("cached credential rejected: %w", err)
	}
	return ident, nil
}

func showStatus(ctx context.Context, store docstore.Store, ident identity.Identity, asJSON bool) error {
	out := map[string]any{
		"uid":       ident.UID,
		"email":     ident.Email,
		"anonymous": ident.Anonymous,
	}
	if p, err := profiles.Fetch(ctx, store, ident.UID); err == nil {
		out["username"] = p.Username
		out["location"] = p.Location
	}

	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(out)
	}
	fmt.Printf("uid:       %s\n", ident.UID)
	if ident.Anonymous {
		fmt.Println("identity:  anonymous")
	} else {
		fmt.Printf("email:     %s\n", ident.Email)
	}
	if u, ok := out["username"]; ok {
		fmt.Printf("username:  %s\n", u)
	}
	return nil
}

func listItems(ctx context.Context, store docstore.Store, ident identity.Identity, asJSON bool) error {
	docs, err := store.List(ctx, docstore.Query{
		Collection: items.Collection,
		Equals:     &docstore.Equals{Field: "owner_id", Value: ident.UID},
		OrderBy:    "created_at",
		Descending: true,
	})
	if err != nil {
		return err
	}

	inventory := make([]items.Item, 0, len(docs))
	for _, doc := range docs {
		inventory = append(inventory, items.FromDoc(doc))
	}

	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(inventory)
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCATEGORY\tLOCATION\tPRICE\tSTATUS")
	for _, it := range inventory {
		status := "available"
		switch {
		case it.Lend != nil:
			status = fmt.Sprintf("lent to %s (%s)", it.Lend.Borrower, it.Lend.Date)
		case it.IsListed:
			status = "listed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t$%.2f\t%s\n", it.Name, it.Category, it.Location, it.Price, status)
	}
	return w.Flush()
}

func issueLink(ctx context.Context, auth identity.Provider, asJSON bool) error {
	token, err := auth.IssueLinkToken(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]string{"token": token})
	}
	fmt.Println(views.RenderQR(token))
	fmt.Printf("token: %s\n", token)
	return nil
}
