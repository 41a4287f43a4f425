package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/term"

	"github.com/huybank/bankapp/internal/api"
	"github.com/huybank/bankapp/internal/app"
	"github.com/huybank/bankapp/internal/config"
	"github.com/huybank/bankapp/internal/domain"
	apperrors "github.com/huybank/bankapp/internal/errors"
	"github.com/huybank/bankapp/internal/notify"
	"github.com/huybank/bankapp/internal/platform/logging"
	"github.com/huybank/bankapp/internal/qr"
	"github.com/huybank/bankapp/internal/realtime"
	"github.com/huybank/bankapp/internal/session"
)

const commandTimeout = 30 * time.Second

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

type cli struct {
	shell   *app.Shell
	inbox   *notify.Inbox
	scanner *qr.Initiator
	in      *bufio.Reader
}

func (c *cli) prompt(label string) (string, error) {
	fmt.Print(label)
	line, err := c.in.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *cli) promptPassword(label string) (string, error) {
	fmt.Print(label)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

func printErr(err error) {
	var classified *apperrors.Error
	if errors.As(err, &classified) {
		fmt.Println("error:", classified.UserMessage())
		return
	}
	fmt.Println("error:", err)
}

func (c *cli) login(ctx context.Context) error {
	username, err := c.prompt("username: ")
	if err != nil {
		return err
	}
	password, err := c.promptPassword("password: ")
	if err != nil {
		return err
	}
	return c.shell.Login(ctx, username, password)
}

func (c *cli) register(ctx context.Context) error {
	username, err := c.prompt("username: ")
	if err != nil {
		return err
	}
	email, err := c.prompt("email: ")
	if err != nil {
		return err
	}
	password, err := c.promptPassword("password: ")
	if err != nil {
		return err
	}
	if err := c.shell.Register(ctx, username, password, email); err != nil {
		return err
	}
	fmt.Println("registered, you can sign in now")
	return nil
}

func (c *cli) createAccount(ctx context.Context) error {
	fmt.Println("no payment account yet, let's create one")
	name, err := c.prompt("account name: ")
	if err != nil {
		return err
	}
	accountType, err := c.prompt("account type (CHECKING/SAVINGS): ")
	if err != nil {
		return err
	}
	currency, err := c.prompt("currency: ")
	if err != nil {
		return err
	}
	depositText, err := c.prompt("initial deposit: ")
	if err != nil {
		return err
	}
	deposit, err := strconv.ParseInt(depositText, 10, 64)
	if err != nil {
		return fmt.Errorf("initial deposit must be a number: %w", err)
	}

	return c.shell.CreateAccount(ctx, domain.AccountPatch{
		AccountName: name,
		AccountType: accountType,
		Currency:    currency,
		Balance:     deposit,
	})
}

func (c *cli) showAccount() {
	account, ok := c.shell.Account()
	if !ok {
		fmt.Println("no account loaded")
		return
	}
	fmt.Printf("%s (%s)  balance: %d %s\n", account.AccountName, account.AccountNumber, account.Balance, account.Currency)
}

func (c *cli) showNotifications() {
	events := c.inbox.All()
	fmt.Printf("%d notifications, %d unread\n", len(events), c.inbox.UnreadCount())
	for _, event := range events {
		marker := " "
		if !event.Read {
			marker = "*"
		}
		fmt.Printf("%s [%s] %s  %d  %s\n", marker, event.ID, event.OccurredAt.Format(time.RFC3339), event.Amount, event.Description)
	}
}

func (c *cli) transfer(ctx context.Context) error {
	workflow, err := c.shell.NewTransfer()
	if err != nil {
		return err
	}

	destination, err := c.prompt("destination account (or scan <image file>): ")
	if err != nil {
		return err
	}
	if path, ok := strings.CutPrefix(destination, "scan "); ok {
		candidate, scanErr := c.scanQR(ctx, strings.TrimSpace(path))
		if scanErr != nil {
			return scanErr
		}
		if err := workflow.UseCandidate(ctx, candidate); err != nil {
			return err
		}
	} else if err := workflow.VerifyDestination(ctx, destination); err != nil {
		return err
	}
	fmt.Println("recipient:", workflow.DestinationName())

	amountText, err := c.prompt("amount: ")
	if err != nil {
		return err
	}
	amount, err := strconv.ParseInt(amountText, 10, 64)
	if err != nil {
		return fmt.Errorf("amount must be a number: %w", err)
	}
	memo, err := c.prompt("memo: ")
	if err != nil {
		return err
	}
	if err := workflow.SetAmount(amount, memo); err != nil {
		return err
	}

	for {
		fmt.Println("confirmation code:", workflow.Challenge())
		confirmation, err := c.prompt("retype code (empty for a new one): ")
		if err != nil {
			return err
		}
		if confirmation == "" {
			if err := workflow.RefreshChallenge(); err != nil {
				return err
			}
			continue
		}

		receipt, err := workflow.Submit(ctx, confirmation)
		if err != nil {
			if apperrors.IsKind(err, apperrors.KindValidation) {
				printErr(err)
				continue
			}
			return err
		}

		fmt.Printf("done. reference %s, %d to %s (%s)\n",
			receipt.TransactionReference, receipt.Amount,
			receipt.DestinationAccountName, receipt.DestinationAccountNumber)
		return c.shell.RefreshAccount(ctx)
	}
}

func (c *cli) scanQR(ctx context.Context, path string) (qr.Candidate, error) {
	f, err := os.Open(path)
	if err != nil {
		return qr.Candidate{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return qr.Candidate{}, fmt.Errorf("failed to decode image: %w", err)
	}
	return c.scanner.Scan(ctx, img)
}

func (c *cli) rename(ctx context.Context) error {
	name, err := c.prompt("new account name: ")
	if err != nil {
		return err
	}
	if err := c.shell.UpdateProfile(ctx, name); err != nil {
		return err
	}
	c.showAccount()
	return nil
}

func (c *cli) run() {
	fmt.Println("commands: account, notifications, read <id>, transfer, rename, refresh, logout, quit")

	for {
		line, err := c.prompt("> ")
		if err != nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		err = c.dispatch(ctx, line)
		cancel()

		if errors.Is(err, errQuit) {
			return
		}
		if err != nil {
			printErr(err)
		}
	}
}

var errQuit = errors.New("quit")

func (c *cli) dispatch(ctx context.Context, line string) error {
	cmd, arg, _ := strings.Cut(line, " ")

	switch c.shell.Root() {
	case app.RootUnauthenticated:
		switch cmd {
		case "login":
			return c.login(ctx)
		case "register":
			return c.register(ctx)
		case "quit", "exit":
			return errQuit
		default:
			fmt.Println("commands: login, register, quit")
			return nil
		}
	case app.RootAccountSetup:
		switch cmd {
		case "create":
			return c.createAccount(ctx)
		case "logout":
			c.shell.Logout()
			return nil
		case "quit", "exit":
			return errQuit
		default:
			fmt.Println("commands: create, logout, quit")
			return nil
		}
	}

	switch cmd {
	case "account":
		c.showAccount()
	case "notifications":
		c.showNotifications()
	case "read":
		return c.inbox.MarkRead(ctx, strings.TrimSpace(arg))
	case "transfer":
		return c.transfer(ctx)
	case "rename":
		return c.rename(ctx)
	case "refresh":
		if err := c.shell.RefreshAccount(ctx); err != nil {
			return err
		}
		c.showAccount()
	case "logout":
		c.shell.Logout()
	case "quit", "exit":
		return errQuit
	default:
		fmt.Println("commands: account, notifications, read <id>, transfer, rename, refresh, logout, quit")
	}
	return nil
}

func main() {
	clock := clockwork.NewRealClock()
	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Bank client starting", "env", cfg.AppEnv)

	store := session.NewStore(cfg.SessionFile)
	manager := session.NewManager(store, clock)
	gateway := session.NewGateway(&http.Client{Timeout: cfg.HTTPTimeout}, manager)
	client := api.NewClient(cfg.APIBaseURL, gateway, clock)

	inbox := notify.NewInbox(client, notify.NewBellAlerter(os.Stdout))
	channel := realtime.NewChannel(cfg.WebSocketURL, app.NewInboxSink(inbox), clock, cfg.ReconnectDelay)
	defer channel.Stop()

	shell := app.NewShell(client, manager, inbox, channel)
	shell.OnRootChange(func(root app.RootState) {
		slog.Info("Root state changed", "root", root.String())
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")
		channel.Stop()
		os.Exit(0)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	resumed, err := shell.Resume(ctx)
	cancel()
	if err != nil {
		slog.Warn("Failed to resume persisted session", "error", err)
	}
	if resumed {
		fmt.Println("welcome back")
	}

	scanner := qr.NewInitiator(qr.NewZXingDecoder(), clock, cfg.QRDecodeTimeout)
	c := &cli{
		shell:   shell,
		inbox:   inbox,
		scanner: scanner,
		in:      bufio.NewReader(os.Stdin),
	}
	c.run()
}
