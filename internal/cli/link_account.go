package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/plibrary/internal/config"
	"github.com/mrlokans/plibrary/internal/database"
	"github.com/mrlokans/plibrary/internal/database/profiles"
	"github.com/mrlokans/plibrary/internal/database/users"
	"github.com/mrlokans/plibrary/internal/entities"
	"github.com/mrlokans/plibrary/internal/logging"
	"github.com/mrlokans/plibrary/internal/profile"
)

// LinkAccountCommand attaches an external identity to an existing user, the
// way a social login would on first sign-in.
type LinkAccountCommand struct {
	DatabasePath string
	Username     string
	Provider     string
	UID          string
	Age          int
	HTMLURL      string
}

func NewLinkAccountCommand() *LinkAccountCommand {
	return &LinkAccountCommand{}
}

func (cmd *LinkAccountCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("link-account", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the catalog database")
	fs.StringVar(&cmd.Username, "username", "", "Existing user (required)")
	fs.StringVar(&cmd.Provider, "provider", entities.ProviderGitHub, "Identity provider name")
	fs.StringVar(&cmd.UID, "uid", "", "Account id at the provider (required)")
	fs.IntVar(&cmd.Age, "age", -1, "Age reported by the provider, negative to omit")
	fs.StringVar(&cmd.HTMLURL, "html-url", "", "Public profile URL at the provider")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s link-account -username <name> -uid <id> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Link a user to an external account. Existing links are replaced.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s link-account -username bilbo -uid 583231 -html-url https://github.com/bilbo\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Username == "" {
		return fmt.Errorf("required flag -username not provided")
	}
	if cmd.UID == "" {
		return fmt.Errorf("required flag -uid not provided")
	}
	return nil
}

func (cmd *LinkAccountCommand) Run() error {
	cfg := config.NewConfig()
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	db, err := database.NewDatabase(cmd.DatabasePath, log)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	user, err := users.NewRepository(db.DB).GetUserByUsername(cmd.Username)
	if err != nil {
		return fmt.Errorf("user %q: %w", cmd.Username, err)
	}

	extra := map[string]any{}
	if cmd.Age >= 0 {
		extra[entities.ExtraDataAge] = cmd.Age
	}
	if cmd.HTMLURL != "" {
		extra[entities.ExtraDataHTMLURL] = cmd.HTMLURL
	}

	service := profile.NewService(profiles.NewRepository(db.DB), log)
	account, err := service.LinkAccount(user, cmd.Provider, cmd.UID, extra)
	if err != nil {
		return err
	}

	fmt.Printf("Linked %q to %s account %s\n", user.Username, account.Provider, account.UID)
	return nil
}
