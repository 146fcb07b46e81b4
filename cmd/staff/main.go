package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"colony-staff/internal/adapters/backend"
	"colony-staff/internal/adapters/camera"
	"colony-staff/internal/adapters/storage"
	"colony-staff/internal/client"
	"colony-staff/internal/config"
	"colony-staff/internal/core/domain"
	"colony-staff/internal/core/navigation"
	"colony-staff/internal/core/scanner"
	"colony-staff/internal/core/session"
)

const usage = `Usage: staff <command> [flags]

Commands:
  login      -id <staff no or phone> [-password <password>]
  register   -name <name> -phone <phone> [-password <password>]
  logout
  status
  whoami
  history    [-page 1] [-limit 20]
  award      -qr <card payload> -amount <amount>
  scan       [-images <dir>]   interactive scanner; :back, :logout, :quit
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(stdout, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}
	if quiet := os.Getenv("STAFF_QUIET"); quiet == "1" || strings.EqualFold(quiet, "true") {
		log.SetOutput(io.Discard)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.ClientConfig, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)

	switch cmd {
	case "login":
		id := fs.String("id", "", "Staff number or phone")
		pass := fs.String("password", "", "Password (prompted when empty)")
		_ = fs.Parse(args)
		return withApp(ctx, cfg, camera.NewLineCamera(), func(app *client.App) error {
			return login(ctx, app, *id, *pass)
		})

	case "register":
		name := fs.String("name", "", "Full name")
		phone := fs.String("phone", "", "Phone number")
		pass := fs.String("password", "", "Password (prompted when empty)")
		_ = fs.Parse(args)
		return withApp(ctx, cfg, camera.NewLineCamera(), func(app *client.App) error {
			password := promptIfEmpty(*pass, "Password: ")
			alert, err := app.Register(ctx, *name, *phone, password)
			fmt.Fprintln(stdout, alert)
			return err
		})

	case "logout":
		_ = fs.Parse(args)
		return withApp(ctx, cfg, camera.NewLineCamera(), func(app *client.App) error {
			if err := app.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "Logged out")
			return nil
		})

	case "status":
		_ = fs.Parse(args)
		return withApp(ctx, cfg, camera.NewLineCamera(), func(app *client.App) error {
			fmt.Fprintf(stdout, "Session: %s\nScreen:  %s\n", app.Session.State(), app.Nav.Current().Route)
			return nil
		})

	case "whoami":
		_ = fs.Parse(args)
		return withApp(ctx, cfg, camera.NewLineCamera(), func(app *client.App) error {
			staff, err := app.Whoami(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "%s  %s  %s  %s\n", staff.StaffNo, staff.Name, staff.Phone, staff.Role)
			return nil
		})

	case "history":
		page := fs.Int("page", 1, "Page number")
		limit := fs.Int("limit", 20, "Items per page")
		_ = fs.Parse(args)
		return withApp(ctx, cfg, camera.NewLineCamera(), func(app *client.App) error {
			return history(ctx, app, *page, *limit)
		})

	case "award":
		qr := fs.String("qr", "", "Scanned card payload")
		amount := fs.String("amount", "", "Purchase amount")
		_ = fs.Parse(args)
		return withApp(ctx, cfg, camera.NewLineCamera(), func(app *client.App) error {
			out, err := app.Award(ctx, *qr, *amount)
			fmt.Fprintln(stdout, out.Alert)
			return err
		})

	case "scan":
		images := fs.String("images", "", "Directory of camera frames (default: read codes from stdin)")
		_ = fs.Parse(args)
		var lines *camera.LineCamera
		var cam scanner.Camera
		if *images != "" {
			cam = camera.NewImageDirCamera(*images, 0)
		} else {
			lines = camera.NewLineCamera()
			cam = lines
		}
		return withApp(ctx, cfg, cam, func(app *client.App) error {
			return scan(ctx, app, lines, stdin)
		})

	default:
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// withApp opens the session store, starts an app and closes it after fn
func withApp(ctx context.Context, cfg *config.ClientConfig, cam scanner.Camera, fn func(*client.App) error) error {
	kv, err := storage.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}

	app := client.New(cfg, backend.New(cfg), kv, cam)
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("⚠️ %v", err)
		}
	}()

	if err := app.Start(ctx); err != nil {
		return err
	}
	return fn(app)
}

func login(ctx context.Context, app *client.App, id, pass string) error {
	if strings.TrimSpace(id) == "" {
		id = prompt("Staff ID or phone: ")
	}
	pass = promptIfEmpty(pass, "Password: ")

	if err := app.Login(ctx, id, pass); err != nil {
		var loginErr *session.LoginError
		if errors.As(err, &loginErr) {
			fmt.Fprintln(stdout, loginErr.Alert)
			return loginErr.Err
		}
		return err
	}

	if info := app.Session.Session().StaffInfo; info != nil {
		fmt.Fprintf(stdout, "Welcome, %s (%s)\n", info.Name, info.StaffNo)
	} else {
		fmt.Fprintln(stdout, "Logged in")
	}
	return nil
}

func history(ctx context.Context, app *client.App, page, limit int) error {
	visits, err := app.History(ctx, page, limit)
	if err != nil {
		return err
	}
	if len(visits.Visits) == 0 {
		fmt.Fprintln(stdout, "No visits recorded")
		return nil
	}
	for _, v := range visits.Visits {
		fmt.Fprintf(stdout, "%s  %-8s %-16s %10.2f  +%d\n",
			v.CreatedAt.Local().Format("2006-01-02 15:04"), v.MembershipNumber, v.MemberName, v.AmountSpent, v.PointsEarned)
	}
	p := visits.Pagination
	fmt.Fprintf(stdout, "Page %d of %d (%d visits)\n", p.Page, p.TotalPages, p.Total)
	return nil
}

// scan runs the interactive till. On the transaction screen each line is an
// amount; on the scanner screen each line is a code fed to lines, or ignored
// when frames come from an image directory.
func scan(ctx context.Context, app *client.App, lines *camera.LineCamera, in io.Reader) error {
	if app.Session.State().Status != domain.StatusAuthenticated {
		return domain.ErrNotAuthenticated
	}
	if alert, blocked := app.Scanner.Alert(); blocked {
		fmt.Fprintln(stdout, alert)
		return domain.ErrCameraDenied
	}

	input := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(input)
		reader := bufio.NewScanner(in)
		for reader.Scan() {
			select {
			case input <- reader.Text():
			case <-done:
				return
			}
		}
	}()

	flows, stopFlows := app.Nav.Subscribe()
	defer stopFlows()
	screens, stopScreens := app.Screens()
	defer stopScreens()

	fmt.Fprintln(stdout, "📷 Scanner ready. Scan a member card.")
	for {
		select {
		case <-ctx.Done():
			return nil

		case state := <-flows:
			if state.Flow != navigation.FlowAuthenticated {
				fmt.Fprintln(stdout, "Logged out")
				return nil
			}

		case screen := <-screens:
			if screen != nil {
				printCard(screen.Payload())
			}

		case line, ok := <-input:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			switch line {
			case "":
				continue
			case ":quit":
				return nil
			case ":logout":
				return app.Logout(ctx)
			case ":back":
				if err := app.CancelTransaction(); err != nil && !errors.Is(err, client.ErrNoTransaction) {
					fmt.Fprintln(stdout, err)
				}
				continue
			}

			if _, err := app.Transaction(); err == nil {
				out, _ := app.SubmitAmount(line)
				if out.Alert.Title != "" {
					fmt.Fprintln(stdout, out.Alert)
				}
				continue
			}
			if app.Nav.Current().Route == navigation.RouteTransaction {
				fmt.Fprintln(stdout, "⚠️ Transaction screen still opening, enter the amount again")
				continue
			}
			if lines == nil {
				fmt.Fprintln(stdout, "⚠️ Reading codes from images; type :quit to exit")
				continue
			}
			if !lines.Feed(line) {
				fmt.Fprintln(stdout, "⚠️ Scanner busy, code ignored")
			}
		}
	}
}

func printCard(p domain.ScanPayload) {
	fmt.Fprintln(stdout, "----------------------------------------")
	fmt.Fprintf(stdout, " %s\n PHONE NUMBER  %s\n MEMBERSHIP ID %s\n", p.Name, p.Phone, p.Membership)
	if p.Fallback() {
		fmt.Fprintln(stdout, " ⚠️ Card could not be read")
	}
	fmt.Fprintln(stdout, "----------------------------------------")
	fmt.Fprint(stdout, "Enter order amount (:back to cancel): ")
}

// Terminal streams; tests swap them
var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
)

var (
	promptOnce   sync.Once
	promptReader *bufio.Reader
)

func prompt(label string) string {
	promptOnce.Do(func() { promptReader = bufio.NewReader(stdin) })
	fmt.Fprint(stdout, label)
	line, _ := promptReader.ReadString('\n')
	return strings.TrimSpace(line)
}

func promptIfEmpty(value, label string) string {
	if value != "" {
		return value
	}
	return prompt(label)
}
