// Command createsuperuser bootstraps an administrator account in the store
// selected by STORAGE_DRIVER.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Krchnk/exchange-records/internal/config"
	"github.com/Krchnk/exchange-records/internal/service"
	"github.com/Krchnk/exchange-records/internal/storages"
	"github.com/Krchnk/exchange-records/internal/storages/memory"
	"github.com/Krchnk/exchange-records/internal/storages/postgres"

	"golang.org/x/term"
)

const (
	exitFailure  = 1
	exitConflict = 2
)

var errUsage = errors.New("usage")

// openStorage is replaced in tests.
var openStorage = func(cfg config.Config) (storages.Storage, error) {
	if cfg.StorageDriver == config.DriverMemory {
		return memory.New(), nil
	}
	return postgres.NewStorage(cfg.DBConfig)
}

type options struct {
	username   string
	password   string
	staff      bool
	configPath string
}

func main() {
	err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return
	case errors.Is(err, service.ErrConflict):
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConflict)
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFailure)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("createsuperuser", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.username, "user", "", "username of the new superuser")
	fs.StringVar(&opts.password, "password", "", "password; read from stdin when omitted")
	fs.BoolVar(&opts.staff, "staff", true, "also mark the account as staff")
	fs.StringVar(&opts.configPath, "c", "config.env", "path to config file")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "createsuperuser creates a superuser in the storage selected by STORAGE_DRIVER (postgres or memory).")
		fmt.Fprintln(stderr)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	opts.username = strings.TrimSpace(opts.username)
	if opts.username == "" {
		fs.Usage()
		return options{}, fmt.Errorf("%w: -user is required", errUsage)
	}
	return opts, nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	if opts.password == "" {
		if opts.password, err = promptPassword(stdin, stdout); err != nil {
			return err
		}
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.StorageDriver == config.DriverMemory {
		fmt.Fprintln(stderr, "warning: STORAGE_DRIVER=memory, the account lives only as long as this process")
	}

	store, err := openStorage(cfg)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.StorageDriver, err)
	}
	defer store.Close()

	user, err := service.New(store, nil).AddUser(context.Background(), service.NewUser{
		Username:    opts.username,
		Password:    opts.password,
		IsStaff:     opts.staff,
		IsSuperuser: true,
	})
	if errors.Is(err, service.ErrConflict) {
		return fmt.Errorf("%w; use POST /users/{id}/change_password/ to reset it", err)
	}
	if err != nil {
		return fmt.Errorf("create superuser: %w", err)
	}

	fmt.Fprintf(stdout, "superuser %q created (id %d, staff=%t)\n", user.Username, user.ID, user.IsStaff)
	return nil
}

// promptPassword asks twice on a terminal and reads a single line otherwise.
func promptPassword(stdin io.Reader, stdout io.Writer) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		first, err := readHidden(f, stdout, "Password: ")
		if err != nil {
			return "", err
		}
		again, err := readHidden(f, stdout, "Password (again): ")
		if err != nil {
			return "", err
		}
		if first != again {
			return "", errors.New("passwords do not match")
		}
		return checkPassword(first)
	}

	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return checkPassword(strings.TrimRight(line, "\r\n"))
}

func readHidden(f *os.File, stdout io.Writer, prompt string) (string, error) {
	fmt.Fprint(stdout, prompt)
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(stdout)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func checkPassword(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", errors.New("password may not be blank")
	}
	return p, nil
}
