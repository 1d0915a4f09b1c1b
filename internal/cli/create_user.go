package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/mrlokans/plibrary/internal/auth"
	"github.com/mrlokans/plibrary/internal/config"
	"github.com/mrlokans/plibrary/internal/database"
	"github.com/mrlokans/plibrary/internal/database/users"
	"github.com/mrlokans/plibrary/internal/entities"
	"github.com/mrlokans/plibrary/internal/logging"
)

// CreateUserCommand adds a user account without going through /setup.
type CreateUserCommand struct {
	DatabasePath string
	Username     string
	Email        string
	Role         string
	Token        bool
}

func NewCreateUserCommand() *CreateUserCommand {
	return &CreateUserCommand{}
}

func (cmd *CreateUserCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the catalog database")
	fs.StringVar(&cmd.Username, "username", "", "Login name (required)")
	fs.StringVar(&cmd.Email, "email", "", "Email address (required)")
	fs.StringVar(&cmd.Role, "role", string(entities.UserRoleEditor), "One of admin, editor, viewer")
	fs.BoolVar(&cmd.Token, "token", false, "Also print an API token for the new user")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-user -username <name> -email <email> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create a library user. The password is read from the terminal.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Username == "" {
		return fmt.Errorf("required flag -username not provided")
	}
	if cmd.Email == "" {
		return fmt.Errorf("required flag -email not provided")
	}
	return nil
}

func (cmd *CreateUserCommand) Run() error {
	password, err := readPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	cfg := config.NewConfig()
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	db, err := database.NewDatabase(cmd.DatabasePath, log)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	service := auth.NewService(users.NewRepository(db.DB), cfg.Auth, log)
	user, err := service.CreateUser(cmd.Username, cmd.Email, password, entities.UserRole(cmd.Role))
	if err != nil {
		return err
	}

	fmt.Printf("Created %s user %q (id %d)\n", user.Role, user.Username, user.ID)

	if cmd.Token {
		token, err := service.GenerateToken(user.ID)
		if err != nil {
			return err
		}
		fmt.Printf("API token: %s\n", token)
	}
	return nil
}

// readPassword reads a line without echo when stdin is a terminal.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		var line string
		_, err := fmt.Scanln(&line)
		return strings.TrimSpace(line), err
	}

	raw, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
