package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"ambulance-finance/internal/client"
	"ambulance-finance/internal/config"
	"ambulance-finance/internal/models"
	"ambulance-finance/internal/utils"
	"ambulance-finance/internal/views"
	"ambulance-finance/pkg/logger"
	"ambulance-finance/pkg/websocket"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const usage = `Usage: wallet <command> [flags] [args]

Admin commands:
  history <userId>        list a user's transactions
  pay <userId>            record a payment to a user
  record <userId>         post a trip, expense, bonus or deduction entry
  adjust <transactionId>  correct a transaction with a linked adjustment
  collect <transactionId> mark a cash collection as collected
  adjustments <transactionId>
                          show a transaction with its adjustments
  summary <userId>        show pending and collected cash
  receipts <transactionId>
                          list stored collection receipts

Self-service commands (user from API_ACCESS_TOKEN):
  wallet                  show balance and this month's payments
  withdraw                request a withdrawal

Setup:
  token <userId>          issue an access token signed with JWT_SECRET

Run "wallet <command> -h" for command flags.
`

type cli struct {
	api    *client.TransactionClient
	cfg    *config.Config
	logger *logger.Logger
	out    io.Writer
	errOut io.Writer
	// users overrides the token-derived user; tests set it.
	users views.UserProvider
}

type command func(ctx context.Context, args []string) error

var errUsage = errors.New("usage")

func (c *cli) run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(c.errOut, usage)
		return 2
	}

	commands := map[string]command{
		"history":     c.history,
		"wallet":      c.wallet,
		"withdraw":    c.withdraw,
		"pay":         c.pay,
		"record":      c.record,
		"adjust":      c.adjust,
		"collect":     c.collect,
		"adjustments": c.adjustments,
		"summary":     c.summary,
		"receipts":    c.receipts,
		"token":       c.token,
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(c.errOut, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	if err := cmd(ctx, args[1:]); err != nil {
		switch {
		case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
			return 2
		default:
			fmt.Fprintf(c.errOut, "%s: %s\n", args[0], describeError(err))
			return 1
		}
	}
	return 0
}

// describeError prefers the server's message for API failures.
func describeError(err error) string {
	if apiErr, ok := client.AsAPIError(err); ok {
		return apiErr.Error()
	}
	return err.Error()
}

// parse parses flags that may appear before or after the positional
// arguments and returns exactly want positionals.
func (c *cli) parse(fs *flag.FlagSet, args []string, want int) ([]string, error) {
	fs.SetOutput(c.errOut)

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}

	if len(positional) != want {
		fmt.Fprintf(c.errOut, "expected %d argument(s), got %d\n", want, len(positional))
		fs.Usage()
		return nil, errUsage
	}
	return positional, nil
}

func (c *cli) currency() string {
	return c.cfg.App.Currency
}

func (c *cli) history(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	userType := fs.String("user-type", string(models.UserTypeDriver), "driver or paramedic")
	name := fs.String("name", "", "display name for the header")
	txnType := fs.String("type", "", "transaction type filter")
	from := fs.String("from", "", "start date YYYY-MM-DD")
	to := fs.String("to", "", "end date YYYY-MM-DD")
	page := fs.Int("page", 1, "page number")
	back := fs.Bool("back", false, "return to the user list afterwards")

	pos, err := c.parse(fs, args, 1)
	if err != nil {
		return err
	}

	displayName := *name
	if displayName == "" {
		displayName = pos[0]
	}

	v := views.NewHistoryView(views.HistoryDeps{
		API:      c.api,
		Header:   consoleHeader{out: c.out},
		Router:   consoleRouter{out: c.out},
		Notifier: consoleNotifier{out: c.errOut},
		Logger:   c.logger.WithField("view", "history"),
	}, c.cfg.Wallet.HistoryPageSize)

	params := views.NavParams{UserID: pos[0], UserType: models.UserType(*userType), UserName: displayName}
	if err := v.Activate(ctx, params); err != nil {
		return err
	}

	filters := views.HistoryFilters{Type: *txnType, StartDate: *from, EndDate: *to}
	if filters != (views.HistoryFilters{}) {
		v.SetFilters(filters)
		if err := v.ApplyFilters(ctx); err != nil {
			return err
		}
	}
	if *page > 1 {
		if err := v.OnPageChange(ctx, *page); err != nil {
			return err
		}
	}

	renderTransactions(c.out, v.Transactions(), c.currency())
	renderPager(c.out, v.Page(), v.TotalPages(), v.Total())

	if *back {
		v.GoBack()
	}
	return nil
}

func (c *cli) newWalletView() (*views.WalletView, error) {
	users := c.users
	if users == nil {
		provider, err := client.NewTokenUserProvider(c.cfg.API.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("read access token: %w", err)
		}
		users = provider
	}
	if users.CurrentUser() == nil {
		return nil, errors.New("not signed in: set API_ACCESS_TOKEN")
	}

	return views.NewWalletView(views.WalletDeps{
		API:      c.api,
		Users:    users,
		Notifier: consoleNotifier{out: c.errOut},
		Logger:   c.logger.WithField("view", "wallet"),
	}, c.cfg.Wallet.ItemsPerPage), nil
}

func (c *cli) wallet(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("wallet", flag.ContinueOnError)
	txnType := fs.String("type", views.AllTypes, "transaction type filter, All for every type")
	month := fs.Int("month", 0, "month 1-12 (default current)")
	year := fs.Int("year", 0, "year (default current)")
	page := fs.Int("page", 1, "page number")
	watch := fs.Bool("watch", false, "keep running and refresh on ledger changes")

	if _, err := c.parse(fs, args, 0); err != nil {
		return err
	}

	v, err := c.newWalletView()
	if err != nil {
		return err
	}

	if err := v.Init(ctx); err != nil {
		return err
	}

	if *txnType != views.AllTypes || *month != 0 || *year != 0 {
		m, y := v.Period()
		if *month != 0 {
			m = time.Month(*month)
		}
		if *year != 0 {
			y = *year
		}
		v.SetTypeFilter(*txnType)
		v.SetPeriod(m, y)
		if err := v.ApplyFilters(ctx); err != nil {
			return err
		}
	}
	if *page > 1 {
		if err := v.GoToPage(ctx, *page); err != nil {
			return err
		}
	}

	c.printWallet(v)
	if !*watch {
		return nil
	}

	user := v.User()
	fmt.Fprintln(c.errOut, "Watching for ledger changes, Ctrl+C to stop.")
	err = c.api.WatchWallet(ctx, user.ID, func(msg websocket.Message) {
		if err := v.Refresh(ctx); err != nil {
			return
		}
		fmt.Fprintf(c.out, "\n-- %s --\n", msg.Event)
		c.printWallet(v)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (c *cli) printWallet(v *views.WalletView) {
	user := v.User()
	start, end := v.DateRange()
	fmt.Fprintf(c.out, "== Wallet: %s ==\n", user.Name)
	renderWalletSummary(c.out, v.Summary(), c.currency())
	fmt.Fprintf(c.out, "\nPayments %s .. %s (type: %s)\n", start, end, v.SelectedType())
	renderTransactions(c.out, v.Payments(), c.currency())
	renderPager(c.out, v.CurrentPage(), v.TotalPages(), v.TotalItems())
}

func (c *cli) withdraw(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("withdraw", flag.ContinueOnError)
	amount := fs.Float64("amount", 0, "amount to withdraw")
	if _, err := c.parse(fs, args, 0); err != nil {
		return err
	}

	v, err := c.newWalletView()
	if err != nil {
		return err
	}
	if err := v.Init(ctx); err != nil {
		return err
	}

	v.OpenWithdrawModal()
	return v.SubmitWithdraw(*amount)
}

func (c *cli) pay(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pay", flag.ContinueOnError)
	amount := fs.Float64("amount", 0, "amount paid to the user")
	description := fs.String("description", "", "optional description")
	pos, err := c.parse(fs, args, 1)
	if err != nil {
		return err
	}

	ack, err := c.api.ProcessPayment(ctx, pos[0], *amount, *description)
	if err != nil {
		return err
	}
	c.printAck(ack)
	return nil
}

func (c *cli) record(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("record", flag.ContinueOnError)
	userType := fs.String("user-type", string(models.UserTypeDriver), "driver or paramedic")
	txnType := fs.String("type", "", "entry type, e.g. trip_earning or fuel_expense")
	amount := fs.Float64("amount", 0, "signed amount")
	description := fs.String("description", "", "description")
	tripID := fs.String("trip", "", "linked trip ID")
	patient := fs.String("patient", "", "patient name for trip entries")
	pos, err := c.parse(fs, args, 1)
	if err != nil {
		return err
	}

	ack, err := c.api.RecordEntry(ctx, pos[0], &models.EntryRequest{
		UserType:    models.UserType(*userType),
		Type:        models.TransactionType(*txnType),
		Amount:      *amount,
		Description: *description,
		TripID:      *tripID,
		PatientName: *patient,
	})
	if err != nil {
		return err
	}
	c.printAck(ack)
	return nil
}

func (c *cli) adjust(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("adjust", flag.ContinueOnError)
	amount := fs.Float64("amount", 0, "signed adjustment amount")
	reason := fs.String("reason", "", "reason for the adjustment")
	pos, err := c.parse(fs, args, 1)
	if err != nil {
		return err
	}

	ack, err := c.api.CreateAdjustment(ctx, pos[0], *amount, *reason)
	if err != nil {
		return err
	}
	c.printAck(ack)
	return nil
}

func (c *cli) collect(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("collect", flag.ContinueOnError)
	notes := fs.String("notes", "", "collection notes")
	receiptURL := fs.String("receipt-url", "", "URL of an already stored receipt")
	receiptFile := fs.String("receipt", "", "receipt file to upload (jpg, png or pdf)")
	pos, err := c.parse(fs, args, 1)
	if err != nil {
		return err
	}

	url := *receiptURL
	if *receiptFile != "" {
		f, err := os.Open(*receiptFile)
		if err != nil {
			return err
		}
		defer f.Close()

		uploaded, err := c.api.UploadReceipt(ctx, pos[0], *receiptFile, f)
		if err != nil {
			return err
		}
		url = uploaded.URL
	}

	ack, err := c.api.MarkAsCollected(ctx, pos[0], *notes, url)
	if err != nil {
		return err
	}
	c.printAck(ack)
	return nil
}

func (c *cli) adjustments(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("adjustments", flag.ContinueOnError)
	pos, err := c.parse(fs, args, 1)
	if err != nil {
		return err
	}

	history, err := c.api.GetAdjustmentHistory(ctx, pos[0])
	if err != nil {
		return err
	}
	renderAdjustmentHistory(c.out, history, c.currency())
	return nil
}

func (c *cli) summary(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	pos, err := c.parse(fs, args, 1)
	if err != nil {
		return err
	}

	summary, err := c.api.GetCollectionSummary(ctx, pos[0])
	if err != nil {
		return err
	}
	renderCollectionSummary(c.out, summary, c.currency())
	return nil
}

func (c *cli) receipts(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("receipts", flag.ContinueOnError)
	pos, err := c.parse(fs, args, 1)
	if err != nil {
		return err
	}

	files, err := c.api.ListReceipts(ctx, pos[0])
	if err != nil {
		return err
	}
	renderReceipts(c.out, files)
	return nil
}

func (c *cli) token(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	userType := fs.String("user-type", string(models.UserTypeDriver), "driver, paramedic or admin")
	name := fs.String("name", "", "display name carried in the token")
	ttl := fs.Duration("ttl", utils.DefaultAccessTokenTTL, "token lifetime")
	pos, err := c.parse(fs, args, 1)
	if err != nil {
		return err
	}

	if c.cfg.Security.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	userID, err := primitive.ObjectIDFromHex(pos[0])
	if err != nil {
		return fmt.Errorf("invalid user ID %q", pos[0])
	}

	token, err := utils.GenerateAccessToken(userID, *userType, *name, c.cfg.Security.JWTSecret, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, token)
	return nil
}

func (c *cli) printAck(ack *models.Ack) {
	message := strings.TrimSpace(ack.Message)
	if message == "" {
		message = ack.Status
	}
	consoleNotifier{out: c.out}.Success(message)
}
