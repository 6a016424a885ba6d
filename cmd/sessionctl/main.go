package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cakradana/go-session-client/client"
	"github.com/cakradana/go-session-client/internal/config"
	"github.com/cakradana/go-session-client/refresh"
	"github.com/cakradana/go-session-client/session"
	"github.com/cakradana/go-session-client/store"
)

const sessionFileName = "session.json"

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("sessionctl failed")
	}
}

func run(args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Debug)

	if len(args) == 0 {
		usage()
		return nil
	}

	tokenStore := store.NewFileStore(filepath.Join(cfg.DataFolder, sessionFileName))
	authClient, err := client.New(cfg.BaseURL, tokenStore, client.WithTimeout(cfg.HTTPTimeout))
	if err != nil {
		return err
	}

	sessions, err := session.New(authClient,
		session.WithLoginRedirect(func() { fmt.Println("signed in") }),
		session.WithLogoutRedirect(func() { fmt.Println("signed out") }),
	)
	if err != nil {
		return err
	}

	ctx := context.Background()

	switch args[0] {
	case "status":
		printStatus(sessions)
	case "login":
		return login(ctx, sessions, args[1:])
	case "register":
		return register(ctx, sessions, args[1:])
	case "logout":
		sessions.Logout()
	case "forgot-password":
		return forgotPassword(ctx, sessions, args[1:])
	case "change-password":
		return changePassword(ctx, sessions, args[1:])
	case "watch":
		return watch(cfg, tokenStore, sessions)
	default:
		usage()
	}
	return nil
}

func login(ctx context.Context, sessions *session.Service, args []string) error {
	flags := flag.NewFlagSet("login", flag.ExitOnError)
	email := flags.String("email", "", "account email")
	password := flags.String("password", "", "account password")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if err := sessions.Login(ctx, client.LoginRequest{Email: *email, Password: *password}); err != nil {
		return err
	}
	printStatus(sessions)
	return nil
}

func register(ctx context.Context, sessions *session.Service, args []string) error {
	flags := flag.NewFlagSet("register", flag.ExitOnError)
	name := flags.String("name", "", "display name")
	email := flags.String("email", "", "account email")
	password := flags.String("password", "", "account password")
	accountType := flags.String("type", string(client.AccountTypeCandidate), "account type (candidate or organization)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	req := client.RegisterRequest{
		Name:        *name,
		Email:       *email,
		Password:    *password,
		AccountType: client.AccountType(*accountType),
	}
	if err := sessions.Register(ctx, req); err != nil {
		return err
	}
	printStatus(sessions)
	return nil
}

func forgotPassword(ctx context.Context, sessions *session.Service, args []string) error {
	flags := flag.NewFlagSet("forgot-password", flag.ExitOnError)
	email := flags.String("email", "", "account email")
	if err := flags.Parse(args); err != nil {
		return err
	}

	result, err := sessions.ForgotPassword(ctx, client.ForgotPasswordRequest{Email: *email})
	if err != nil {
		return err
	}
	fmt.Println(result.Message)
	return nil
}

func changePassword(ctx context.Context, sessions *session.Service, args []string) error {
	flags := flag.NewFlagSet("change-password", flag.ExitOnError)
	password := flags.String("password", "", "new password")
	resetToken := flags.String("token", "", "one-time reset token from the reset email")
	if err := flags.Parse(args); err != nil {
		return err
	}

	result, err := sessions.ChangePassword(ctx, client.ChangePasswordRequest{NewPassword: *password, ResetToken: *resetToken})
	if err != nil {
		return err
	}
	fmt.Println(result.Message)
	return nil
}

// watch keeps the session alive: the scheduler silently refreshes the token
// ahead of expiry for as long as the session stays authenticated.
func watch(cfg *config.Config, tokenStore store.Store, sessions *session.Service) error {
	if !sessions.State().Authenticated() {
		return errors.New("no active session, login first")
	}

	displayAppname(cfg.AppName)

	scheduler := refresh.New(tokenStore, sessions,
		refresh.WithLead(cfg.RefreshLead),
		refresh.WithTick(cfg.RefreshTick),
	)
	defer scheduler.Stop()

	// Follow the session across state changes so a forced logout (rejected
	// refresh) also stops the timers.
	sessions.Subscribe(func(snapshot session.Snapshot) {
		if snapshot.Authenticated() {
			scheduler.Start()
		} else {
			scheduler.Stop()
		}
	})
	scheduler.Start()

	log.Info().Str("email", sessions.State().Email).Msg("keeping session alive, Ctrl-C to stop")
	waitForStopSignal()
	return nil
}

func printStatus(sessions *session.Service) {
	snapshot := sessions.State()
	if !snapshot.Authenticated() {
		fmt.Println("status: anonymous")
		return
	}
	fmt.Printf("status: authenticated as %s\n", snapshot.Email)
}

func setupLogging(debugEnabled bool) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debugEnabled {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

func usage() {
	fmt.Println(`usage: sessionctl <command> [flags]

commands:
  status           show the current session state
  login            -email -password
  register         -name -email -password -type
  logout           discard the stored session
  forgot-password  -email
  change-password  -password -token
  watch            keep the session alive until interrupted`)
}
